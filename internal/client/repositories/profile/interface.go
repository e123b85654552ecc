package profile

import (
	"context"

	"github.com/dmitrijs2005/fieldcrm/internal/client/models"
)

type Repository interface {
	Save(ctx context.Context, p models.MasterProfile) error
	Get(ctx context.Context) (models.MasterProfile, error)
	Clear(ctx context.Context) error

	SaveSession(ctx context.Context, s models.Session) error
	LoadSession(ctx context.Context) (models.Session, error)
	ClearSession(ctx context.Context) error
}
