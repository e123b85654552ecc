package syncqueue

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/fieldcrm/internal/client/client"
	"github.com/dmitrijs2005/fieldcrm/internal/client/connectivity"
	"github.com/dmitrijs2005/fieldcrm/internal/client/models"
	"github.com/dmitrijs2005/fieldcrm/internal/client/notify"
	"github.com/dmitrijs2005/fieldcrm/internal/client/repositories/photos"
	"github.com/dmitrijs2005/fieldcrm/internal/common"
	"github.com/dmitrijs2005/fieldcrm/internal/logging"
	"golang.org/x/sync/singleflight"
)

// DefaultMaxAttempts is how many server errors an item may collect before
// it is marked Failed.
const DefaultMaxAttempts = 10

// Result summarises one replay pass.
type Result struct {
	Sent    int
	Failed  int
	Skipped int
	// Aborted is set when the pass stopped early on a network or auth error.
	Aborted bool
}

// Replayer sends pending queue items to the server. Concurrent Replay calls
// share one pass.
type Replayer struct {
	q           *Queue
	sender      Sender
	photos      photos.Repository
	bus         notify.Publisher
	log         logging.Logger
	maxAttempts int

	onUnauthorized func(ctx context.Context)

	group singleflight.Group

	baseCtx context.Context
	wg      sync.WaitGroup
}

type ReplayerOption func(*Replayer)

// WithMaxAttempts overrides DefaultMaxAttempts. Non-positive values are
// ignored.
func WithMaxAttempts(n int) ReplayerOption {
	return func(r *Replayer) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

// WithPublisher sets where failure and sync toasts go.
func WithPublisher(p notify.Publisher) ReplayerOption {
	return func(r *Replayer) { r.bus = p }
}

// WithOnUnauthorized sets what happens when a pass is stopped by an auth
// rejection.
func WithOnUnauthorized(fn func(ctx context.Context)) ReplayerOption {
	return func(r *Replayer) { r.onUnauthorized = fn }
}

// WithContext sets the context of background passes started by
// OnConnectivity. Cancelling it stops them.
func WithContext(ctx context.Context) ReplayerOption {
	return func(r *Replayer) { r.baseCtx = ctx }
}

// NewReplayer returns a replayer draining q through sender. photos may be
// nil when nothing needs cleaning up after an upload.
func NewReplayer(q *Queue, sender Sender, photos photos.Repository, log logging.Logger, opts ...ReplayerOption) *Replayer {
	r := &Replayer{
		q:           q,
		sender:      sender,
		photos:      photos,
		log:         log,
		maxAttempts: DefaultMaxAttempts,
		baseCtx:     context.Background(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Replay drains a snapshot of the pending items. A call made while a pass
// is running waits for that pass and shares its result; items enqueued in
// the meantime wait for the next pass.
func (r *Replayer) Replay(ctx context.Context) (Result, error) {
	v, err, _ := r.group.Do("replay", func() (any, error) {
		return r.replay(ctx)
	})
	res, _ := v.(Result)
	return res, err
}

func (r *Replayer) replay(ctx context.Context) (Result, error) {
	var res Result

	items, err := r.q.ListPending(ctx, "")
	if err != nil {
		return res, err
	}
	if len(items) == 0 {
		return res, nil
	}

	blocked := map[string]bool{}
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			res.Aborted = true
			return res, err
		}
		if blocked[item.OrderID] {
			res.Skipped++
			continue
		}

		sendErr := r.sender.Send(ctx, item)
		if sendErr == nil {
			r.confirm(ctx, item)
			res.Sent++
			continue
		}

		switch {
		case errors.Is(sendErr, client.ErrUnauthorized):
			res.Aborted = true
			r.log.Warn(ctx, "sync replay stopped, session rejected", "item", item.ID)
			if r.onUnauthorized != nil {
				r.onUnauthorized(ctx)
			}
			return res, sendErr

		case client.IsTransient(sendErr) || errors.Is(sendErr, context.DeadlineExceeded):
			if _, err := r.q.IncrementAttempt(ctx, item.ID, sendErr); err != nil {
				r.log.Warn(ctx, "failed to count sync attempt", "item", item.ID, "error", err)
			}
			res.Aborted = true
			r.log.Info(ctx, "sync replay stopped, server unreachable", "item", item.ID, "error", sendErr)
			return res, nil

		case permanent(sendErr):
			r.fail(ctx, item, sendErr)
			res.Failed++
			blocked[item.OrderID] = true

		default:
			// only answered failures count toward the cutoff
			updated, err := r.q.RecordServerError(ctx, item.ID, sendErr)
			if err != nil {
				r.log.Warn(ctx, "failed to count sync attempt", "item", item.ID, "error", err)
			} else if updated.ServerErrors >= r.maxAttempts {
				r.fail(ctx, item, sendErr)
				res.Failed++
			}
			blocked[item.OrderID] = true
		}
	}

	if res.Sent > 0 || res.Failed > 0 {
		r.log.Info(ctx, "sync replay finished", "sent", res.Sent, "failed", res.Failed, "skipped", res.Skipped)
	}
	return res, nil
}

// permanent reports whether resending the same item can never succeed.
func permanent(err error) bool {
	return errors.Is(err, client.ErrValidation) ||
		errors.Is(err, common.ErrorNotFound) ||
		errors.Is(err, ErrInvalidItem)
}

func (r *Replayer) confirm(ctx context.Context, item models.SyncQueueItem) {
	if err := r.q.DequeueProcessed(ctx, item.ID); err != nil {
		// the item will be sent again; the server drops it by idempotency key
		r.log.Warn(ctx, "failed to dequeue sync item", "item", item.ID, "error", err)
		return
	}
	if item.Type != models.SyncPhoto || r.photos == nil {
		return
	}
	p, err := Payload(item)
	if err != nil {
		return
	}
	photoID := p.(*models.PhotoPayload).PhotoID
	if err := r.photos.Delete(ctx, photoID); err != nil {
		r.log.Warn(ctx, "failed to drop uploaded photo", "photo", photoID, "error", err)
	}
}

func (r *Replayer) fail(ctx context.Context, item models.SyncQueueItem, cause error) {
	if _, err := r.q.MarkFailed(ctx, item.ID, cause); err != nil {
		r.log.Warn(ctx, "failed to mark sync item failed", "item", item.ID, "error", err)
	}
	r.log.Warn(ctx, "sync item failed", "item", item.ID, "type", string(item.Type), "order", item.OrderID, "error", cause)
	notify.Error(r.bus, fmt.Sprintf("Could not sync %s for order %s: %v", describe(item.Type), item.OrderID, cause))
}

func describe(t models.SyncItemType) string {
	switch t {
	case models.SyncStatusChange:
		return "status change"
	case models.SyncComment:
		return "comment"
	case models.SyncPhoto:
		return "photo"
	case models.SyncOrderUpdate:
		return "order update"
	}
	return string(t)
}

// OnConnectivity starts a background pass when the API becomes reachable.
func (r *Replayer) OnConnectivity(ev connectivity.Event) {
	if ev != connectivity.Online {
		return
	}
	if r.baseCtx.Err() != nil {
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		res, err := r.Replay(r.baseCtx)
		if err != nil {
			r.log.Warn(r.baseCtx, "background sync failed", "error", err)
			return
		}
		if res.Sent > 0 {
			notify.Info(r.bus, fmt.Sprintf("Synced %d pending change(s)", res.Sent))
		}
	}()
}

// Wait blocks until background passes started by OnConnectivity return.
func (r *Replayer) Wait() {
	r.wg.Wait()
}
