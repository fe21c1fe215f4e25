package services

import (
	"context"

	"github.com/avigliano/scontrino/internal/portal"
)

// PortalClient is the slice of the portal session client the lifecycle
// services drive. One client instance equals one logical session and must
// not be shared across concurrent submissions.
type PortalClient interface {
	Login(ctx context.Context, creds portal.Credentials) (*portal.Session, error)
	SubmitDocument(ctx context.Context, kind portal.DocumentKind, payload any) (*portal.AuthorityResponse, error)
	GetFiscalData(ctx context.Context) (*portal.FiscalIdentity, error)
	GetDocument(ctx context.Context, transactionID string) (*portal.DocumentDetail, error)
	Logout(ctx context.Context)
}

// PortalFactory builds a fresh client per use case call, because a session
// belongs to exactly one login cycle.
type PortalFactory func() PortalClient
