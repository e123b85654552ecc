package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/fieldcrm/internal/client/models"
	"github.com/dmitrijs2005/fieldcrm/internal/client/store"
)

const (
	profileKey = "master"
	sessionKey = "session"
)

var ErrExpired = errors.New("cached profile expired")

type StoreRepository struct {
	st      store.Store
	nowFunc func() time.Time
}

func NewStoreRepository(st store.Store) *StoreRepository {
	return &StoreRepository{st: st, nowFunc: time.Now}
}

func (r *StoreRepository) put(ctx context.Context, key string, v any) error {
	value, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	err = r.st.Put(ctx, store.PartitionProfile, store.Record{Key: key, CreatedAt: r.nowFunc(), Value: value})
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

func (r *StoreRepository) get(ctx context.Context, key string, v any) error {
	rec, err := r.st.Get(ctx, store.PartitionProfile, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(rec.Value, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}

// Save stores p, stamping SavedAt when unset.
func (r *StoreRepository) Save(ctx context.Context, p models.MasterProfile) error {
	if p.SavedAt.IsZero() {
		p.SavedAt = r.nowFunc().UTC()
	}
	return r.put(ctx, profileKey, p)
}

// Get returns the cached profile. A missing profile is common.ErrorNotFound;
// an expired one is returned along with ErrExpired.
func (r *StoreRepository) Get(ctx context.Context) (models.MasterProfile, error) {
	var p models.MasterProfile
	if err := r.get(ctx, profileKey, &p); err != nil {
		return models.MasterProfile{}, err
	}
	if p.Expired(r.nowFunc()) {
		return p, ErrExpired
	}
	return p, nil
}

func (r *StoreRepository) Clear(ctx context.Context) error {
	return r.st.Delete(ctx, store.PartitionProfile, profileKey)
}

func (r *StoreRepository) SaveSession(ctx context.Context, s models.Session) error {
	return r.put(ctx, sessionKey, s)
}

func (r *StoreRepository) LoadSession(ctx context.Context) (models.Session, error) {
	var s models.Session
	if err := r.get(ctx, sessionKey, &s); err != nil {
		return models.Session{}, err
	}
	return s, nil
}

func (r *StoreRepository) ClearSession(ctx context.Context) error {
	return r.st.Delete(ctx, store.PartitionProfile, sessionKey)
}
