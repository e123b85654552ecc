package settings

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/fieldcrm/internal/client/models"
	"github.com/dmitrijs2005/fieldcrm/internal/logging"
)

// Manager writes through both layers and repairs the fast one on start.
type Manager struct {
	fast    *Prefs
	durable *Durable
	log     logging.Logger
}

func NewManager(fast *Prefs, durable *Durable, log logging.Logger) *Manager {
	return &Manager{fast: fast, durable: durable, log: log}
}

// Current is what the front-end should show.
func (m *Manager) Current() models.AppSettings {
	return m.fast.Get()
}

// Set applies p to both layers. Storage failures are logged, not returned;
// only invalid values are an error.
func (m *Manager) Set(ctx context.Context, p models.SettingsPatch) (models.AppSettings, error) {
	if err := p.Validate(); err != nil {
		return m.Current(), fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	next := p.Apply(m.fast.Get())
	if err := m.fast.Set(next); err != nil {
		m.log.Warn(ctx, "failed to write prefs file", "error", err)
	}
	if err := m.durable.SaveSettings(ctx, p); err != nil {
		m.log.Warn(ctx, "failed to write durable settings", "error", err)
	}
	return next, nil
}

// RestoreFromDurable repairs the fast layer when it shows defaults but the
// durable layer holds something else. It reports whether a repair happened.
func (m *Manager) RestoreFromDurable(ctx context.Context) (bool, error) {
	if !m.fast.Get().IsDefault() {
		return false, nil
	}
	stored, found, err := m.durable.load(ctx)
	if err != nil {
		m.log.Warn(ctx, "durable settings unreadable, keeping defaults", "error", err)
		return false, nil
	}
	if !found || stored == m.fast.Get() {
		return false, nil
	}
	if err := m.fast.Set(stored); err != nil {
		m.log.Warn(ctx, "failed to write repaired prefs file", "error", err)
	}
	m.log.Info(ctx, "settings restored from durable store", "theme", string(stored.Theme), "version", string(stored.Version))
	return true, nil
}
