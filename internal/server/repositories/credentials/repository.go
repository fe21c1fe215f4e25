package credentials

import (
	"context"
	"time"

	"github.com/avigliano/scontrino/internal/server/models"
)

type Repository interface {
	// Upsert creates or replaces the business's credential row and clears
	// its verified-at timestamp.
	Upsert(ctx context.Context, cred *models.Credential) error

	GetByBusiness(ctx context.Context, businessID string) (*models.Credential, error)

	// Rekey replaces the encrypted fields and key version after a key
	// rotation. Unlike Upsert it keeps verified-at: rotation changes the
	// wrapping, not the credentials themselves.
	Rekey(ctx context.Context, cred *models.Credential) error

	// MarkVerified records a successful portal login probe.
	MarkVerified(ctx context.Context, businessID string, at time.Time) error
}
