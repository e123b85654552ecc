package photos

import (
	"context"

	"github.com/dmitrijs2005/fieldcrm/internal/client/models"
)

type Repository interface {
	Save(ctx context.Context, p models.CachedPhoto) error
	Get(ctx context.Context, id string) (models.CachedPhoto, error)
	ListByOrder(ctx context.Context, orderID string) ([]models.CachedPhoto, error)
	Delete(ctx context.Context, id string) error
}
