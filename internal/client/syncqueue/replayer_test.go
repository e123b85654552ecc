package syncqueue

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/fieldcrm/internal/client/client"
	"github.com/dmitrijs2005/fieldcrm/internal/client/connectivity"
	"github.com/dmitrijs2005/fieldcrm/internal/client/models"
	"github.com/dmitrijs2005/fieldcrm/internal/client/notify"
	"github.com/dmitrijs2005/fieldcrm/internal/client/repositories/photos"
	"github.com/dmitrijs2005/fieldcrm/internal/client/store"
	"github.com/dmitrijs2005/fieldcrm/internal/common"
	"github.com/dmitrijs2005/fieldcrm/internal/logging"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedSender answers per item id, defaulting to success.
type scriptedSender struct {
	mu      sync.Mutex
	answers map[string]error
	sent    []string
}

func (s *scriptedSender) Send(ctx context.Context, item models.SyncQueueItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, item.ID)
	return s.answers[item.ID]
}

func (s *scriptedSender) answer(id string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.answers == nil {
		s.answers = map[string]error{}
	}
	s.answers[id] = err
}

func (s *scriptedSender) calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent...)
}

type fixture struct {
	st     store.Store
	q      *Queue
	photos *photos.StoreRepository
	sender *scriptedSender
	bus    *notify.Bus
	r      *Replayer
}

func newFixture(t *testing.T, opts ...ReplayerOption) *fixture {
	t.Helper()
	st := store.NewMemory(store.MainSchema)
	f := &fixture{
		st:     st,
		q:      newTestQueueOn(st),
		photos: photos.NewStoreRepository(st),
		sender: &scriptedSender{},
		bus:    notify.NewBus(),
	}
	opts = append([]ReplayerOption{WithPublisher(f.bus)}, opts...)
	f.r = NewReplayer(f.q, f.sender, f.photos, logging.Discard(), opts...)
	return f
}

func newTestQueueOn(st store.Store) *Queue {
	q := NewQueue(st)
	base := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
	var n atomic.Int64
	q.nowFunc = func() time.Time { return base.Add(time.Duration(n.Add(1)) * time.Second) }
	return q
}

func (f *fixture) enqueue(t *testing.T, item models.SyncQueueItem) string {
	t.Helper()
	id, err := f.q.Enqueue(context.Background(), item)
	require.NoError(t, err)
	return id
}

func TestReplay_SendsInOrderAndDequeues(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.enqueue(t, mustItem(t)(StatusChange("42", models.OrderStatusInProgress)))
	b := f.enqueue(t, mustItem(t)(Comment("7", "on my way")))
	c := f.enqueue(t, mustItem(t)(StatusChange("42", models.OrderStatusDone)))

	res, err := f.r.Replay(ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{Sent: 3}, res)
	assert.Equal(t, []string{a, b, c}, f.sender.calls())

	pending, err := f.q.ListPending(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestReplay_TwiceIsSafe(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.enqueue(t, mustItem(t)(Comment("42", "first")))
	b := f.enqueue(t, mustItem(t)(Comment("42", "second")))
	f.sender.answer(b, client.ErrServer)

	_, err := f.r.Replay(ctx)
	require.NoError(t, err)
	_, err = f.r.Replay(ctx)
	require.NoError(t, err)

	// a was confirmed once and never resent; b stays queued once
	assert.Equal(t, []string{a, b, b}, f.sender.calls())
	pending, err := f.q.ListPending(ctx, "")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, b, pending[0].ID)
	assert.Equal(t, 2, pending[0].Attempts)
}

func TestReplay_NetworkErrorAbortsPass(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.enqueue(t, mustItem(t)(Comment("42", "a")))
	f.enqueue(t, mustItem(t)(Comment("7", "b")))
	f.sender.answer(a, client.ErrUnavailable)

	res, err := f.r.Replay(ctx)
	require.NoError(t, err, "network failures are not surfaced")
	assert.True(t, res.Aborted)
	assert.Equal(t, []string{a}, f.sender.calls())

	item, err := f.q.Get(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, 1, item.Attempts)
	assert.Equal(t, models.SyncItemPending, item.Status)
}

func TestReplay_NetworkErrorsNeverFailTerminally(t *testing.T) {
	f := newFixture(t, WithMaxAttempts(2))
	ctx := context.Background()

	a := f.enqueue(t, mustItem(t)(Comment("42", "a")))
	f.sender.answer(a, client.ErrUnavailable)
	for i := 0; i < 5; i++ {
		_, err := f.r.Replay(ctx)
		require.NoError(t, err)
	}
	item, err := f.q.Get(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, models.SyncItemPending, item.Status)
	assert.Equal(t, 5, item.Attempts)
}

func TestReplay_OfflinePassesDoNotUseUpServerBudget(t *testing.T) {
	f := newFixture(t, WithMaxAttempts(3))
	ctx := context.Background()

	a := f.enqueue(t, mustItem(t)(StatusChange("42", models.OrderStatusDone)))
	f.sender.answer(a, client.ErrUnavailable)
	for i := 0; i < 5; i++ {
		_, err := f.r.Replay(ctx)
		require.NoError(t, err)
	}

	f.sender.answer(a, client.ErrServer)
	res, err := f.r.Replay(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Failed)

	item, err := f.q.Get(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, models.SyncItemPending, item.Status)
	assert.Equal(t, 6, item.Attempts)
	assert.Equal(t, 1, item.ServerErrors)
}

func TestReplay_SkipsUnreadableItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.st.Put(ctx, store.PartitionSyncQueue, store.Record{
		Key:       "bad",
		OrderID:   "42",
		CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Value:     []byte(`{oops`),
	}))
	a := f.enqueue(t, mustItem(t)(Comment("42", "still goes out")))

	for i := 0; i < 2; i++ {
		res, err := f.r.Replay(ctx)
		require.NoError(t, err)
		if i == 0 {
			assert.Equal(t, 1, res.Sent)
		}
	}
	assert.Equal(t, []string{a}, f.sender.calls())

	stats, err := f.q.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Pending)
}

func TestReplay_AuthRejectionPropagates(t *testing.T) {
	var rejected atomic.Int32
	f := newFixture(t, WithOnUnauthorized(func(context.Context) { rejected.Add(1) }))
	ctx := context.Background()

	a := f.enqueue(t, mustItem(t)(Comment("42", "a")))
	f.enqueue(t, mustItem(t)(Comment("7", "b")))
	f.sender.answer(a, client.ErrUnauthorized)

	res, err := f.r.Replay(ctx)
	require.ErrorIs(t, err, client.ErrUnauthorized)
	assert.True(t, res.Aborted)
	assert.EqualValues(t, 1, rejected.Load())

	item, err := f.q.Get(ctx, a)
	require.NoError(t, err)
	assert.Zero(t, item.Attempts, "auth rejections do not use up attempts")
}

func TestReplay_ValidationFailsImmediately(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	toasts, cancel := f.bus.Subscribe(4)
	defer cancel()

	a := f.enqueue(t, mustItem(t)(StatusChange("42", models.OrderStatusDone)))
	b := f.enqueue(t, mustItem(t)(Comment("42", "after the failed one")))
	c := f.enqueue(t, mustItem(t)(Comment("7", "other order")))
	f.sender.answer(a, errors.Join(client.ErrValidation, errors.New("status transition not allowed")))

	res, err := f.r.Replay(ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{Sent: 1, Failed: 1, Skipped: 1}, res)
	assert.Equal(t, []string{a, c}, f.sender.calls())

	failed, err := f.q.ListFailed(ctx)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, a, failed[0].ID)

	msg := <-toasts
	toast, ok := msg.(notify.Toast)
	require.True(t, ok)
	assert.Equal(t, notify.LevelError, toast.Level)
	assert.Contains(t, toast.Text, "order 42")

	// the skipped item goes through on the next pass
	_, err = f.r.Replay(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{a, c, b}, f.sender.calls())
}

func TestReplay_ServerErrorsFailAfterMaxAttempts(t *testing.T) {
	f := newFixture(t, WithMaxAttempts(3))
	ctx := context.Background()

	a := f.enqueue(t, mustItem(t)(Comment("42", "a")))
	f.sender.answer(a, client.ErrServer)

	for i := 0; i < 2; i++ {
		res, err := f.r.Replay(ctx)
		require.NoError(t, err)
		assert.Zero(t, res.Failed)
	}
	res, err := f.r.Replay(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)

	item, err := f.q.Get(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, models.SyncItemFailed, item.Status)
	assert.Equal(t, 3, item.Attempts)
	assert.Equal(t, 3, item.ServerErrors)

	_, err = f.r.Replay(ctx)
	require.NoError(t, err)
	assert.Len(t, f.sender.calls(), 3, "failed items are not replayed")
}

func TestReplay_PhotoCleanup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	photoID := uuid.NewString()
	require.NoError(t, f.photos.Save(ctx, models.CachedPhoto{ID: photoID, OrderID: "42", Blob: []byte{1}, Filename: "a.jpg"}))
	f.enqueue(t, mustItem(t)(Photo("42", photoID, "a.jpg")))

	_, err := f.r.Replay(ctx)
	require.NoError(t, err)

	_, err = f.photos.Get(ctx, photoID)
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestReplay_ConcurrentCallsCoalesce(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	st := store.NewMemory(store.MainSchema)
	q := newTestQueueOn(st)
	sender := SenderFunc(func(ctx context.Context, item models.SyncQueueItem) error {
		calls.Add(1)
		<-release
		return nil
	})
	r := NewReplayer(q, sender, nil, logging.Discard())

	_, err := q.Enqueue(context.Background(), mustItem(t)(Comment("42", "a")))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := r.Replay(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, 1, res.Sent)
		}()
	}
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.EqualValues(t, 1, calls.Load())
}

func TestReplay_CancelledContext(t *testing.T) {
	f := newFixture(t)
	f.enqueue(t, mustItem(t)(Comment("42", "a")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := f.r.Replay(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, res.Aborted)
	assert.Empty(t, f.sender.calls())
}

// Offline, then online: exactly one request reaches the status endpoint and
// the item leaves the queue.
func TestReplay_ConnectivityRestoredScenario(t *testing.T) {
	var statusCalls atomic.Int32
	var idemKey atomic.Value
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/orders/{id}/status", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "42" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		statusCalls.Add(1)
		idemKey.Store(r.Header.Get(common.IdempotencyKeyHeader))
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	api, err := client.NewHTTPClient(srv.URL + "/api")
	require.NoError(t, err)

	st := store.NewMemory(store.MainSchema)
	q := NewQueue(st)
	photoRepo := photos.NewStoreRepository(st)
	r := NewReplayer(q, NewAPISender(api, photoRepo), photoRepo, logging.Discard())

	var online atomic.Bool
	mon := connectivity.NewMonitor(connectivity.ProberFunc(func(ctx context.Context) error {
		if !online.Load() {
			return client.ErrUnavailable
		}
		return nil
	}), logging.Discard())
	mon.Subscribe(r.OnConnectivity)

	ctx := context.Background()
	id, err := q.Enqueue(ctx, mustItem(t)(StatusChange("42", models.OrderStatusDone)))
	require.NoError(t, err)

	require.False(t, mon.Check(ctx))
	r.Wait()
	assert.Zero(t, statusCalls.Load())

	online.Store(true)
	require.True(t, mon.Check(ctx))
	r.Wait()

	assert.EqualValues(t, 1, statusCalls.Load())
	assert.Equal(t, id, idemKey.Load())
	pending, err := q.ListPending(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, pending)
}
