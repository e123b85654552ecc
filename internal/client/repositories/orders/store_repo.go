package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/fieldcrm/internal/client/models"
	"github.com/dmitrijs2005/fieldcrm/internal/client/store"
)

// DefaultEvictBatch is how many of the oldest orders go when the store is full.
const DefaultEvictBatch = 20

type StoreRepository struct {
	st         store.Store
	evictBatch int
	nowFunc    func() time.Time
}

func NewStoreRepository(st store.Store) *StoreRepository {
	return &StoreRepository{st: st, evictBatch: DefaultEvictBatch, nowFunc: time.Now}
}

func (r *StoreRepository) Save(ctx context.Context, o models.Order) (models.CachedOrder, error) {
	if o.ID == "" {
		return models.CachedOrder{}, fmt.Errorf("save order: empty id")
	}
	co := models.CachedOrder{ID: o.ID, Data: o, CachedAt: r.nowFunc().UTC()}
	value, err := json.Marshal(co)
	if err != nil {
		return models.CachedOrder{}, fmt.Errorf("failed to encode order[%s]: %w", o.ID, err)
	}

	put := func(ctx context.Context) error {
		return r.st.Put(ctx, store.PartitionOrders, store.Record{
			Key:       o.ID,
			OrderID:   o.ID,
			CreatedAt: co.CachedAt,
			Value:     value,
		})
	}
	evict := func(ctx context.Context) error {
		_, err := r.EvictOldest(ctx, r.evictBatch)
		return err
	}
	if err := store.WithQuotaRetry(ctx, evict, put); err != nil {
		return models.CachedOrder{}, fmt.Errorf("failed to cache order[%s]: %w", o.ID, err)
	}
	return co, nil
}

func decode(rec store.Record) (models.CachedOrder, error) {
	var co models.CachedOrder
	if err := json.Unmarshal(rec.Value, &co); err != nil {
		return models.CachedOrder{}, fmt.Errorf("failed to decode order[%s]: %w", rec.Key, err)
	}
	return co, nil
}

func (r *StoreRepository) Get(ctx context.Context, id string) (models.CachedOrder, error) {
	rec, err := r.st.Get(ctx, store.PartitionOrders, id)
	if err != nil {
		return models.CachedOrder{}, err
	}
	return decode(rec)
}

// List returns cached orders, oldest cache first. Undecodable records are
// skipped.
func (r *StoreRepository) List(ctx context.Context) ([]models.CachedOrder, error) {
	recs, err := r.st.Iterate(ctx, store.PartitionOrders, store.Query{Index: store.IndexCreatedAt})
	if err != nil {
		return nil, err
	}
	out := make([]models.CachedOrder, 0, len(recs))
	for _, rec := range recs {
		co, err := decode(rec)
		if err != nil {
			continue
		}
		out = append(out, co)
	}
	return out, nil
}

func (r *StoreRepository) Delete(ctx context.Context, id string) error {
	return r.st.Delete(ctx, store.PartitionOrders, id)
}

// EvictOldest deletes up to n of the least recently cached orders and
// returns how many were removed.
func (r *StoreRepository) EvictOldest(ctx context.Context, n int) (int, error) {
	if n <= 0 {
		return 0, nil
	}
	recs, err := r.st.Iterate(ctx, store.PartitionOrders, store.Query{Index: store.IndexCreatedAt, Limit: n})
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, rec := range recs {
		if err := r.st.Delete(ctx, store.PartitionOrders, rec.Key); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
