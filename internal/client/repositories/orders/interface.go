package orders

import (
	"context"

	"github.com/dmitrijs2005/fieldcrm/internal/client/models"
)

type Repository interface {
	Save(ctx context.Context, o models.Order) (models.CachedOrder, error)
	Get(ctx context.Context, id string) (models.CachedOrder, error)
	List(ctx context.Context) ([]models.CachedOrder, error)
	Delete(ctx context.Context, id string) error
	EvictOldest(ctx context.Context, n int) (int, error)
}
