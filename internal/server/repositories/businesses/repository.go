package businesses

import (
	"context"

	"github.com/avigliano/scontrino/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, b *models.Business) error
	GetByID(ctx context.Context, id string) (*models.Business, error)
}
