package documents

import (
	"context"

	"github.com/avigliano/scontrino/internal/server/models"
)

type Repository interface {
	// CreatePending inserts a PENDING document with insert-if-absent
	// semantics on the unique idempotency key. When a document with the key
	// already exists, the stored document is returned with created=false and
	// no write happens. This is the sole mechanism preventing two concurrent
	// identical requests from both reaching the authority.
	CreatePending(ctx context.Context, doc *models.Document) (result *models.Document, created bool, err error)

	GetByID(ctx context.Context, id string) (*models.Document, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*models.Document, error)

	// GetAcceptedVoidFor returns the VOID_ACCEPTED document that voided the
	// given original SALE, so a re-void of an already-voided sale can answer
	// idempotently without contacting the authority.
	GetAcceptedVoidFor(ctx context.Context, originalDocID string) (*models.Document, error)

	// MarkOutcome records the authority's answer and moves the document to a
	// terminal status (ACCEPTED, VOID_ACCEPTED or REJECTED).
	MarkOutcome(ctx context.Context, id string, status models.DocumentStatus, txID, progressive string, request, response []byte) error

	// MarkError moves the document to ERROR, keeping the request payload and
	// a short failure detail for the operator.
	MarkError(ctx context.Context, id string, request []byte, detail string) error

	// SetStatus performs the one permitted post-terminal transition: the
	// original SALE flipping to VOID_ACCEPTED after a successful void.
	SetStatus(ctx context.Context, id string, status models.DocumentStatus) error

	AddLines(ctx context.Context, docID string, lines []models.DocumentLine) error
	GetLines(ctx context.Context, docID string) ([]models.DocumentLine, error)

	// SetLineAuthorityID persists the authority's identifier for one line
	// once it becomes known.
	SetLineAuthorityID(ctx context.Context, lineID int64, authorityLineID string) error
}
