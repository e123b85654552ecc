package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/fieldcrm/internal/client/models"
	"github.com/dmitrijs2005/fieldcrm/internal/client/store"
	"github.com/dmitrijs2005/fieldcrm/internal/common"
	"github.com/dmitrijs2005/fieldcrm/internal/logging"
)

var ErrInvalidSettings = errors.New("invalid settings")

const recordKey = "app"

// Durable keeps AppSettings in the settings partition.
type Durable struct {
	st  store.Store
	log logging.Logger
}

func NewDurable(st store.Store, log logging.Logger) *Durable {
	return &Durable{st: st, log: log}
}

// load returns the stored record and whether there was one.
func (d *Durable) load(ctx context.Context) (models.AppSettings, bool, error) {
	rec, err := d.st.Get(ctx, store.PartitionSettings, recordKey)
	if errors.Is(err, common.ErrorNotFound) {
		return models.DefaultSettings(), false, nil
	}
	if err != nil {
		return models.DefaultSettings(), false, err
	}
	var s models.AppSettings
	if err := json.Unmarshal(rec.Value, &s); err != nil {
		return models.DefaultSettings(), false, fmt.Errorf("decode settings: %w", err)
	}
	return s.Normalize(), true, nil
}

// SaveSettings merges p into the stored record.
func (d *Durable) SaveSettings(ctx context.Context, p models.SettingsPatch) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	cur, _, err := d.load(ctx)
	if err != nil && (errors.Is(err, store.ErrStorageUnavailable) || errors.Is(err, context.Canceled)) {
		return err
	}
	// a corrupt record is simply overwritten
	next := p.Apply(cur)

	value, err := json.Marshal(next)
	if err != nil {
		return err
	}
	return d.st.Put(ctx, store.PartitionSettings, store.Record{Key: recordKey, Value: value})
}

// GetSettings returns the stored settings or the defaults. It never fails.
func (d *Durable) GetSettings(ctx context.Context) models.AppSettings {
	s, _, err := d.load(ctx)
	if err != nil {
		d.log.Warn(ctx, "durable settings unreadable, using defaults", "error", err)
		return models.DefaultSettings()
	}
	return s
}
