package orders

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/fieldcrm/internal/client/models"
	"github.com/dmitrijs2005/fieldcrm/internal/client/store"
	"github.com/dmitrijs2005/fieldcrm/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepo(t *testing.T) (*StoreRepository, *time.Time) {
	t.Helper()
	now := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	r := NewStoreRepository(store.NewMemory(store.MainSchema))
	r.nowFunc = func() time.Time { return now }
	return r, &now
}

func TestSave_OverwritesAndStamps(t *testing.T) {
	r, now := newRepo(t)
	ctx := context.Background()

	_, err := r.Save(ctx, models.Order{ID: "42", Status: models.OrderStatusNew})
	require.NoError(t, err)

	*now = now.Add(time.Minute)
	co, err := r.Save(ctx, models.Order{ID: "42", Status: models.OrderStatusInProgress})
	require.NoError(t, err)
	assert.Equal(t, *now, co.CachedAt)

	got, err := r.Get(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusInProgress, got.Data.Status)
	assert.True(t, now.Equal(got.CachedAt))

	all, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1, "overwrite must not duplicate")
}

func TestSave_EmptyID(t *testing.T) {
	r, _ := newRepo(t)
	_, err := r.Save(context.Background(), models.Order{})
	require.Error(t, err)
}

func TestGet_Missing(t *testing.T) {
	r, _ := newRepo(t)
	_, err := r.Get(context.Background(), "nope")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestEvictOldest(t *testing.T) {
	r, now := newRepo(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		_, err := r.Save(ctx, models.Order{ID: id})
		require.NoError(t, err)
		*now = now.Add(time.Second)
	}

	n, err := r.EvictOldest(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "c", all[0].ID)

	n, err = r.EvictOldest(ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, n)
}

// fullStore reports the quota as exhausted until something is deleted.
type fullStore struct {
	store.Store
	full    bool
	deleted []string
}

func (f *fullStore) Put(ctx context.Context, p store.Partition, rec store.Record) error {
	if f.full {
		return store.ErrQuotaExceeded
	}
	return f.Store.Put(ctx, p, rec)
}

func (f *fullStore) Delete(ctx context.Context, p store.Partition, key string) error {
	f.deleted = append(f.deleted, key)
	f.full = false
	return f.Store.Delete(ctx, p, key)
}

func TestSave_EvictsOnQuota(t *testing.T) {
	ctx := context.Background()
	fs := &fullStore{Store: store.NewMemory(store.MainSchema)}
	r := NewStoreRepository(fs)
	r.evictBatch = 1

	base := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	r.nowFunc = func() time.Time { return base }
	_, err := r.Save(ctx, models.Order{ID: "old"})
	require.NoError(t, err)

	r.nowFunc = func() time.Time { return base.Add(time.Hour) }
	fs.full = true
	_, err = r.Save(ctx, models.Order{ID: "new"})
	require.NoError(t, err)

	assert.Equal(t, []string{"old"}, fs.deleted)
	_, err = r.Get(ctx, "new")
	require.NoError(t, err)
}
