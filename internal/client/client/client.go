package client

import (
	"context"
	"time"

	"github.com/dmitrijs2005/fieldcrm/internal/client/models"
)

type Client interface {
	Login(ctx context.Context, login, password string) (models.MasterProfile, error)
	Refresh(ctx context.Context) error
	Logout(ctx context.Context) error
	Profile(ctx context.Context) (models.MasterProfile, error)

	ListOrders(ctx context.Context) ([]models.Order, error)
	GetOrder(ctx context.Context, id string) (models.Order, error)
	UpdateOrder(ctx context.Context, id string, fields map[string]any) (models.Order, error)
	ChangeStatus(ctx context.Context, id string, status models.OrderStatus) error
	AddComment(ctx context.Context, id string, text string) (models.Comment, error)
	UploadPhoto(ctx context.Context, id string, photo models.CachedPhoto) error

	ListNotifications(ctx context.Context) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
	DeleteNotification(ctx context.Context, id string) error

	Session() models.Session
	RestoreSession(s models.Session)
	SessionExpiry() time.Time
	ClearSession()
}

type idempotencyKey struct{}

// WithIdempotencyKey tags the mutating request made with ctx so the server
// can recognise a replay.
func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, idempotencyKey{}, key)
}

func idempotencyKeyFrom(ctx context.Context) string {
	v, _ := ctx.Value(idempotencyKey{}).(string)
	return v
}
