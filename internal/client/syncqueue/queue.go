package syncqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/fieldcrm/internal/client/models"
	"github.com/dmitrijs2005/fieldcrm/internal/client/store"
	"github.com/dmitrijs2005/fieldcrm/internal/logging"
	"github.com/dmitrijs2005/fieldcrm/internal/validation"
	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var (
	// ErrInvalidItem marks input refused before it reached the queue or the
	// server.
	ErrInvalidItem = errors.New("invalid sync item")
	ErrNotFailed   = errors.New("sync item is not failed")
)

// Stats counts queue items by status.
type Stats struct {
	Pending int
	Failed  int
}

// Queue is the durable, FIFO store of pending mutations. It does not send
// anything itself; see Replayer.
type Queue struct {
	st       store.Store
	log      logging.Logger
	validate *validatorv10.Validate
	evict    func(ctx context.Context) error
	nowFunc  func() time.Time
	newID    func() string
}

type QueueOption func(*Queue)

// WithLogger sets where unreadable items are reported.
func WithLogger(l logging.Logger) QueueOption {
	return func(q *Queue) { q.log = l }
}

// WithEvictor sets what to drop when the store is full. Queue items are
// never evicted themselves.
func WithEvictor(fn func(ctx context.Context) error) QueueOption {
	return func(q *Queue) { q.evict = fn }
}

// NewQueue returns a queue over the sync_queue partition of st.
func NewQueue(st store.Store, opts ...QueueOption) *Queue {
	q := &Queue{
		st:       st,
		log:      logging.Discard(),
		validate: validation.New(),
		nowFunc:  time.Now,
		newID:    uuid.NewString,
	}
	for _, o := range opts {
		o(q)
	}
	return q
}

// Validate checks the item envelope and its typed payload.
func (q *Queue) Validate(item models.SyncQueueItem) error {
	if err := q.validate.Struct(item); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidItem, err)
	}
	p, err := Payload(item)
	if err != nil {
		return err
	}
	if err := q.validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidItem, err)
	}
	return nil
}

// Enqueue validates item, assigns it an id unless it already carries one
// and stores it as pending. A preset id lets a mutation that was first tried
// directly keep its idempotency key.
func (q *Queue) Enqueue(ctx context.Context, item models.SyncQueueItem) (string, error) {
	if err := q.Validate(item); err != nil {
		return "", err
	}
	now := q.nowFunc().UTC()
	if item.ID == "" {
		item.ID = q.newID()
	}
	item.CreatedAt = now
	item.UpdatedAt = now
	item.Attempts = 0
	item.ServerErrors = 0
	item.Status = models.SyncItemPending
	item.LastError = ""

	put := func(ctx context.Context) error { return q.put(ctx, item) }
	if err := store.WithQuotaRetry(ctx, q.evict, put); err != nil {
		return "", err
	}
	return item.ID, nil
}

func (q *Queue) put(ctx context.Context, item models.SyncQueueItem) error {
	value, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to encode sync item[%s]: %w", item.ID, err)
	}
	err = q.st.Put(ctx, store.PartitionSyncQueue, store.Record{
		Key:       item.ID,
		OrderID:   item.OrderID,
		CreatedAt: item.CreatedAt,
		Value:     value,
	})
	if err != nil {
		return fmt.Errorf("failed to save sync item[%s]: %w", item.ID, err)
	}
	return nil
}

// Get returns the item id in any state.
func (q *Queue) Get(ctx context.Context, id string) (models.SyncQueueItem, error) {
	rec, err := q.st.Get(ctx, store.PartitionSyncQueue, id)
	if err != nil {
		return models.SyncQueueItem{}, err
	}
	return decodeItem(rec)
}

func decodeItem(rec store.Record) (models.SyncQueueItem, error) {
	var item models.SyncQueueItem
	if err := json.Unmarshal(rec.Value, &item); err != nil {
		return models.SyncQueueItem{}, fmt.Errorf("failed to decode sync item[%s]: %w", rec.Key, err)
	}
	if item.Status == "" {
		item.Status = models.SyncItemPending
	}
	return item, nil
}

// DequeueProcessed removes an item the server confirmed.
func (q *Queue) DequeueProcessed(ctx context.Context, id string) error {
	return q.st.Delete(ctx, store.PartitionSyncQueue, id)
}

func (q *Queue) list(ctx context.Context, orderID string, status models.SyncItemStatus) ([]models.SyncQueueItem, error) {
	query := store.Query{Index: store.IndexCreatedAt}
	if orderID != "" {
		query = store.Query{Index: store.IndexOrderID, OrderID: orderID}
	}
	recs, err := q.st.Iterate(ctx, store.PartitionSyncQueue, query)
	if err != nil {
		return nil, err
	}
	out := make([]models.SyncQueueItem, 0, len(recs))
	for _, rec := range recs {
		item, err := decodeItem(rec)
		if err != nil {
			// one unreadable record must not hold up the rest of the queue
			q.log.Error(ctx, "skipping unreadable sync item", "item", rec.Key, "error", err)
			continue
		}
		if item.Status == status {
			out = append(out, item)
		}
	}
	return out, nil
}

// ListPending returns pending items in creation order, optionally only
// those of orderID.
func (q *Queue) ListPending(ctx context.Context, orderID string) ([]models.SyncQueueItem, error) {
	return q.list(ctx, orderID, models.SyncItemPending)
}

func (q *Queue) ListFailed(ctx context.Context) ([]models.SyncQueueItem, error) {
	return q.list(ctx, "", models.SyncItemFailed)
}

// Stats counts items by status. Unreadable records are not counted.
func (q *Queue) Stats(ctx context.Context) (Stats, error) {
	recs, err := q.st.Iterate(ctx, store.PartitionSyncQueue, store.Query{Index: store.IndexCreatedAt})
	if err != nil {
		return Stats{}, err
	}
	var s Stats
	for _, rec := range recs {
		item, err := decodeItem(rec)
		if err != nil {
			continue
		}
		if item.Status == models.SyncItemFailed {
			s.Failed++
		} else {
			s.Pending++
		}
	}
	return s, nil
}

func (q *Queue) update(ctx context.Context, id string, fn func(*models.SyncQueueItem)) (models.SyncQueueItem, error) {
	item, err := q.Get(ctx, id)
	if err != nil {
		return models.SyncQueueItem{}, err
	}
	fn(&item)
	item.UpdatedAt = q.nowFunc().UTC()
	// CreatedAt is kept so the item keeps its place in line
	if err := q.put(ctx, item); err != nil {
		return models.SyncQueueItem{}, err
	}
	return item, nil
}

// IncrementAttempt counts a failed delivery of id.
func (q *Queue) IncrementAttempt(ctx context.Context, id string, cause error) (models.SyncQueueItem, error) {
	return q.update(ctx, id, func(item *models.SyncQueueItem) {
		item.Attempts++
		if cause != nil {
			item.LastError = cause.Error()
		}
	})
}

// RecordServerError counts a delivery of id the server answered with an
// error. It is also an attempt.
func (q *Queue) RecordServerError(ctx context.Context, id string, cause error) (models.SyncQueueItem, error) {
	return q.update(ctx, id, func(item *models.SyncQueueItem) {
		item.Attempts++
		item.ServerErrors++
		if cause != nil {
			item.LastError = cause.Error()
		}
	})
}

// MarkFailed moves id to the terminal Failed state.
func (q *Queue) MarkFailed(ctx context.Context, id string, cause error) (models.SyncQueueItem, error) {
	return q.update(ctx, id, func(item *models.SyncQueueItem) {
		item.Status = models.SyncItemFailed
		if cause != nil {
			item.LastError = cause.Error()
		}
	})
}

// Retry puts a failed item back in line with a fresh attempt budget.
func (q *Queue) Retry(ctx context.Context, id string) (models.SyncQueueItem, error) {
	item, err := q.Get(ctx, id)
	if err != nil {
		return models.SyncQueueItem{}, err
	}
	if item.Status != models.SyncItemFailed {
		return models.SyncQueueItem{}, fmt.Errorf("%w: %s", ErrNotFailed, id)
	}
	return q.update(ctx, id, func(item *models.SyncQueueItem) {
		item.Status = models.SyncItemPending
		item.Attempts = 0
		item.ServerErrors = 0
		item.LastError = ""
	})
}

// Discard drops id without sending it and returns what was dropped.
func (q *Queue) Discard(ctx context.Context, id string) (models.SyncQueueItem, error) {
	item, err := q.Get(ctx, id)
	if err != nil {
		return models.SyncQueueItem{}, err
	}
	if err := q.st.Delete(ctx, store.PartitionSyncQueue, id); err != nil {
		return models.SyncQueueItem{}, err
	}
	return item, nil
}
