package photos

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/fieldcrm/internal/client/models"
	"github.com/dmitrijs2005/fieldcrm/internal/client/store"
)

type StoreRepository struct {
	st      store.Store
	nowFunc func() time.Time
}

func NewStoreRepository(st store.Store) *StoreRepository {
	return &StoreRepository{st: st, nowFunc: time.Now}
}

func (r *StoreRepository) Save(ctx context.Context, p models.CachedPhoto) error {
	if p.ID == "" || p.OrderID == "" {
		return fmt.Errorf("save photo: id and order id are required")
	}
	if p.UploadedAt.IsZero() {
		p.UploadedAt = r.nowFunc().UTC()
	}
	value, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode photo[%s]: %w", p.ID, err)
	}
	err = r.st.Put(ctx, store.PartitionPhotos, store.Record{
		Key:       p.ID,
		OrderID:   p.OrderID,
		CreatedAt: p.UploadedAt,
		Value:     value,
	})
	if err != nil {
		return fmt.Errorf("failed to save photo[%s]: %w", p.ID, err)
	}
	return nil
}

func (r *StoreRepository) Get(ctx context.Context, id string) (models.CachedPhoto, error) {
	rec, err := r.st.Get(ctx, store.PartitionPhotos, id)
	if err != nil {
		return models.CachedPhoto{}, err
	}
	var p models.CachedPhoto
	if err := json.Unmarshal(rec.Value, &p); err != nil {
		return models.CachedPhoto{}, fmt.Errorf("failed to decode photo[%s]: %w", id, err)
	}
	return p, nil
}

func (r *StoreRepository) ListByOrder(ctx context.Context, orderID string) ([]models.CachedPhoto, error) {
	recs, err := r.st.Iterate(ctx, store.PartitionPhotos, store.Query{Index: store.IndexOrderID, OrderID: orderID})
	if err != nil {
		return nil, err
	}
	out := make([]models.CachedPhoto, 0, len(recs))
	for _, rec := range recs {
		var p models.CachedPhoto
		if err := json.Unmarshal(rec.Value, &p); err != nil {
			return nil, fmt.Errorf("failed to decode photo[%s]: %w", rec.Key, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *StoreRepository) Delete(ctx context.Context, id string) error {
	return r.st.Delete(ctx, store.PartitionPhotos, id)
}
