package syncqueue

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/fieldcrm/internal/client/client"
	"github.com/dmitrijs2005/fieldcrm/internal/client/models"
	"github.com/dmitrijs2005/fieldcrm/internal/client/repositories/photos"
	"github.com/dmitrijs2005/fieldcrm/internal/common"
)

// Sender delivers one queued mutation to the server.
type Sender interface {
	Send(ctx context.Context, item models.SyncQueueItem) error
}

type SenderFunc func(ctx context.Context, item models.SyncQueueItem) error

func (f SenderFunc) Send(ctx context.Context, item models.SyncQueueItem) error { return f(ctx, item) }

// APISender maps queue items onto API calls.
type APISender struct {
	api    client.Client
	photos photos.Repository
}

func NewAPISender(api client.Client, photos photos.Repository) *APISender {
	return &APISender{api: api, photos: photos}
}

func (s *APISender) Send(ctx context.Context, item models.SyncQueueItem) error {
	p, err := Payload(item)
	if err != nil {
		return err
	}
	ctx = client.WithIdempotencyKey(ctx, item.ID)

	switch p := p.(type) {
	case *models.StatusChangePayload:
		return s.api.ChangeStatus(ctx, item.OrderID, p.Status)
	case *models.CommentPayload:
		_, err := s.api.AddComment(ctx, item.OrderID, p.Text)
		return err
	case *models.OrderUpdatePayload:
		_, err := s.api.UpdateOrder(ctx, item.OrderID, p.Fields)
		return err
	case *models.PhotoPayload:
		photo, err := s.photos.Get(ctx, p.PhotoID)
		if errors.Is(err, common.ErrorNotFound) {
			return fmt.Errorf("%w: photo %s is no longer cached", ErrInvalidItem, p.PhotoID)
		}
		if err != nil {
			return err
		}
		if photo.Filename == "" {
			photo.Filename = p.Filename
		}
		return s.api.UploadPhoto(ctx, item.OrderID, photo)
	}
	return fmt.Errorf("%w: unhandled type %q", ErrInvalidItem, item.Type)
}
