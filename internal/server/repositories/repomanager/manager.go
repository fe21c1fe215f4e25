// Package repomanager vends repository implementations bound to a DBTX and
// owns schema migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"

	"github.com/avigliano/scontrino/internal/dbx"
	"github.com/avigliano/scontrino/internal/server/repositories/businesses"
	"github.com/avigliano/scontrino/internal/server/repositories/credentials"
	"github.com/avigliano/scontrino/internal/server/repositories/documents"
)

// RepositoryManager hands out repositories bound to either the pool or a
// transaction, so services can run multi-write steps atomically.
type RepositoryManager interface {
	Businesses(db dbx.DBTX) businesses.Repository
	Credentials(db dbx.DBTX) credentials.Repository
	Documents(db dbx.DBTX) documents.Repository
	RunMigrations(ctx context.Context, db *sql.DB) error
}
