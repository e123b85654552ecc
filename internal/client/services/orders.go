package services

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/dmitrijs2005/fieldcrm/internal/client/client"
	"github.com/dmitrijs2005/fieldcrm/internal/client/models"
	"github.com/dmitrijs2005/fieldcrm/internal/client/repositories/orders"
	"github.com/dmitrijs2005/fieldcrm/internal/client/repositories/photos"
	"github.com/dmitrijs2005/fieldcrm/internal/client/syncqueue"
	"github.com/dmitrijs2005/fieldcrm/internal/common"
	"github.com/dmitrijs2005/fieldcrm/internal/logging"
	"github.com/google/uuid"
)

// Source tells where returned order data came from.
type Source int

const (
	SourceRemote Source = iota
	SourceCache
)

func (s Source) String() string {
	if s == SourceCache {
		return "cache"
	}
	return "remote"
}

// Outcome of a mutation.
type Outcome int

const (
	// Sent means the server accepted the change.
	Sent Outcome = iota
	// Queued means the change waits in the sync queue.
	Queued
)

func (o Outcome) String() string {
	if o == Queued {
		return "queued"
	}
	return "sent"
}

// OnlineChecker is the part of the connectivity monitor the services need.
type OnlineChecker interface {
	IsOnline(ctx context.Context) bool
}

// OrderService reads orders remote-first with the local cache as fallback,
// and applies mutations optimistically: the cached copy changes at once,
// the server hears about it now or on the next replay.
type OrderService interface {
	List(ctx context.Context) ([]models.Order, Source, error)
	Get(ctx context.Context, id string) (models.Order, Source, error)
	ChangeStatus(ctx context.Context, id string, status models.OrderStatus) (Outcome, error)
	AddComment(ctx context.Context, id, text string) (Outcome, error)
	AttachPhoto(ctx context.Context, id, filename string, blob []byte) (Outcome, error)
	UpdateOrder(ctx context.Context, id string, fields map[string]any) (Outcome, error)
}

type orderService struct {
	api    client.Client
	orders orders.Repository
	photos photos.Repository
	queue  *syncqueue.Queue
	sender syncqueue.Sender
	online OnlineChecker
	log    logging.Logger

	nowFunc func() time.Time
	newID   func() string
}

func NewOrderService(
	api client.Client,
	ordersRepo orders.Repository,
	photosRepo photos.Repository,
	queue *syncqueue.Queue,
	sender syncqueue.Sender,
	online OnlineChecker,
	log logging.Logger,
) OrderService {
	return &orderService{
		api:     api,
		orders:  ordersRepo,
		photos:  photosRepo,
		queue:   queue,
		sender:  sender,
		online:  online,
		log:     log,
		nowFunc: time.Now,
		newID:   uuid.NewString,
	}
}

// unreachable reports whether err means the server could not be asked.
func unreachable(err error) bool {
	return client.IsTransient(err) || errors.Is(err, context.DeadlineExceeded)
}

func (s *orderService) List(ctx context.Context) ([]models.Order, Source, error) {
	if s.online.IsOnline(ctx) {
		remote, err := s.api.ListOrders(ctx)
		if err == nil {
			// cache what the user sees, queued edits included
			remote = s.overlay(ctx, remote)
			for _, o := range remote {
				if _, err := s.orders.Save(ctx, o); err != nil {
					s.log.Warn(ctx, "failed to cache order", "order", o.ID, "error", err)
				}
			}
			return remote, SourceRemote, nil
		}
		if !unreachable(err) {
			return nil, SourceRemote, fmt.Errorf("list orders: %w", err)
		}
		s.log.Info(ctx, "order list unavailable, using cache", "error", err)
	}

	cached, err := s.orders.List(ctx)
	if err != nil {
		return nil, SourceCache, fmt.Errorf("%w: %w", client.ErrLocalDataNotAvailable, err)
	}
	out := make([]models.Order, 0, len(cached))
	for _, c := range cached {
		out = append(out, c.Data)
	}
	return out, SourceCache, nil
}

func (s *orderService) Get(ctx context.Context, id string) (models.Order, Source, error) {
	if s.online.IsOnline(ctx) {
		o, err := s.api.GetOrder(ctx, id)
		switch {
		case err == nil:
			o = s.overlayOne(ctx, o)
			if _, err := s.orders.Save(ctx, o); err != nil {
				s.log.Warn(ctx, "failed to cache order", "order", id, "error", err)
			}
			return o, SourceRemote, nil
		case errors.Is(err, common.ErrorNotFound):
			if err := s.orders.Delete(ctx, id); err != nil {
				s.log.Warn(ctx, "failed to drop cached order", "order", id, "error", err)
			}
			return models.Order{}, SourceRemote, fmt.Errorf("order %s: %w", id, err)
		case !unreachable(err):
			return models.Order{}, SourceRemote, fmt.Errorf("order %s: %w", id, err)
		}
		s.log.Info(ctx, "order unavailable, using cache", "order", id, "error", err)
	}

	c, err := s.orders.Get(ctx, id)
	if err != nil {
		return models.Order{}, SourceCache, fmt.Errorf("order %s: %w: %w", id, client.ErrLocalDataNotAvailable, err)
	}
	return c.Data, SourceCache, nil
}

// overlay re-applies queued changes on top of fresh server data so the
// user keeps seeing their own edits until they are replayed.
func (s *orderService) overlay(ctx context.Context, list []models.Order) []models.Order {
	pending, err := s.queue.ListPending(ctx, "")
	if err != nil || len(pending) == 0 {
		return list
	}
	byOrder := map[string][]models.SyncQueueItem{}
	for _, it := range pending {
		byOrder[it.OrderID] = append(byOrder[it.OrderID], it)
	}
	for i := range list {
		for _, it := range byOrder[list[i].ID] {
			applyItem(&list[i], it)
		}
	}
	return list
}

func (s *orderService) overlayOne(ctx context.Context, o models.Order) models.Order {
	pending, err := s.queue.ListPending(ctx, o.ID)
	if err != nil {
		return o
	}
	for _, it := range pending {
		applyItem(&o, it)
	}
	return o
}

func (s *orderService) ChangeStatus(ctx context.Context, id string, status models.OrderStatus) (Outcome, error) {
	item, err := syncqueue.StatusChange(id, status)
	if err != nil {
		return 0, err
	}
	return s.mutate(ctx, item)
}

func (s *orderService) AddComment(ctx context.Context, id, text string) (Outcome, error) {
	item, err := syncqueue.Comment(id, text)
	if err != nil {
		return 0, err
	}
	return s.mutate(ctx, item)
}

func (s *orderService) UpdateOrder(ctx context.Context, id string, fields map[string]any) (Outcome, error) {
	item, err := syncqueue.OrderUpdate(id, fields)
	if err != nil {
		return 0, err
	}
	return s.mutate(ctx, item)
}

// AttachPhoto keeps the blob in the photos partition until the upload is
// confirmed, so a queued upload survives a restart.
func (s *orderService) AttachPhoto(ctx context.Context, id, filename string, blob []byte) (Outcome, error) {
	photoID := s.newID()
	item, err := syncqueue.Photo(id, photoID, filename)
	if err != nil {
		return 0, err
	}
	if err := s.queue.Validate(item); err != nil {
		return 0, err
	}
	if len(blob) == 0 {
		return 0, fmt.Errorf("%w: photo is empty", syncqueue.ErrInvalidItem)
	}
	photo := models.CachedPhoto{ID: photoID, OrderID: id, Blob: blob, Filename: filename}
	if err := s.photos.Save(ctx, photo); err != nil {
		return 0, fmt.Errorf("store photo: %w", err)
	}

	out, err := s.mutate(ctx, item)
	if err != nil || out == Sent {
		s.dropPhoto(ctx, photoID)
	}
	return out, err
}

func (s *orderService) dropPhoto(ctx context.Context, id string) {
	if err := s.photos.Delete(ctx, id); err != nil && !errors.Is(err, common.ErrorNotFound) {
		s.log.Warn(ctx, "failed to delete cached photo", "photo", id, "error", err)
	}
}

// mutate applies item to the cached order and then sends it directly when
// the server is reachable and nothing older for the same order is waiting.
// Otherwise, or when the direct send cannot reach the server, the item is
// queued under the same id so the server can de-duplicate.
func (s *orderService) mutate(ctx context.Context, item models.SyncQueueItem) (Outcome, error) {
	if err := s.queue.Validate(item); err != nil {
		return 0, err
	}
	item.ID = s.newID()
	item.CreatedAt = s.nowFunc().UTC()

	prev, hadPrev := s.applyLocal(ctx, item)

	pending, err := s.queue.ListPending(ctx, item.OrderID)
	if err != nil {
		s.log.Warn(ctx, "failed to read sync queue", "order", item.OrderID, "error", err)
	}

	if err == nil && len(pending) == 0 && s.online.IsOnline(ctx) {
		sendErr := s.sender.Send(ctx, item)
		switch {
		case sendErr == nil:
			return Sent, nil
		case unreachable(sendErr):
			s.log.Info(ctx, "direct send failed, queueing", "order", item.OrderID, "type", string(item.Type), "error", sendErr)
		default:
			if hadPrev {
				s.restoreLocal(ctx, prev)
			}
			return 0, sendErr
		}
	}

	if _, err := s.queue.Enqueue(ctx, item); err != nil {
		if hadPrev {
			s.restoreLocal(ctx, prev)
		}
		return 0, fmt.Errorf("queue %s: %w", item.Type, err)
	}
	return Queued, nil
}

// applyLocal updates the cached order, returning what was there before.
func (s *orderService) applyLocal(ctx context.Context, item models.SyncQueueItem) (models.Order, bool) {
	c, err := s.orders.Get(ctx, item.OrderID)
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			s.log.Warn(ctx, "failed to read cached order", "order", item.OrderID, "error", err)
		}
		return models.Order{}, false
	}
	prev := cloneOrder(c.Data)
	applyItem(&c.Data, item)
	if _, err := s.orders.Save(ctx, c.Data); err != nil {
		s.log.Warn(ctx, "failed to update cached order", "order", item.OrderID, "error", err)
		return models.Order{}, false
	}
	return prev, true
}

func (s *orderService) restoreLocal(ctx context.Context, o models.Order) {
	if _, err := s.orders.Save(ctx, o); err != nil {
		s.log.Warn(ctx, "failed to roll back cached order", "order", o.ID, "error", err)
	}
}

func cloneOrder(o models.Order) models.Order {
	o.Comments = append([]models.Comment(nil), o.Comments...)
	o.Photos = append([]string(nil), o.Photos...)
	o.Fields = maps.Clone(o.Fields)
	return o
}

// applyItem is the local effect of a mutation.
func applyItem(o *models.Order, item models.SyncQueueItem) {
	p, err := syncqueue.Payload(item)
	if err != nil {
		return
	}
	switch p := p.(type) {
	case *models.StatusChangePayload:
		o.Status = p.Status
	case *models.CommentPayload:
		for _, c := range o.Comments {
			if c.ID == item.ID {
				return
			}
		}
		o.Comments = append(o.Comments, models.Comment{ID: item.ID, Text: p.Text, CreatedAt: item.CreatedAt})
	case *models.PhotoPayload:
		for _, id := range o.Photos {
			if id == p.PhotoID {
				return
			}
		}
		o.Photos = append(o.Photos, p.PhotoID)
	case *models.OrderUpdatePayload:
		applyFields(o, p.Fields)
	}
}

func applyFields(o *models.Order, fields map[string]any) {
	for k, v := range fields {
		s, isString := v.(string)
		switch {
		case k == "title" && isString:
			o.Title = s
		case k == "description" && isString:
			o.Description = s
		case k == "address" && isString:
			o.Address = s
		case k == "client_name" && isString:
			o.ClientName = s
		case k == "client_phone" && isString:
			o.ClientPhone = s
		default:
			if o.Fields == nil {
				o.Fields = map[string]any{}
			}
			o.Fields[k] = v
		}
	}
}
