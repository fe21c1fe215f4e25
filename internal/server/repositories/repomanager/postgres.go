package repomanager

import (
	"context"
	"database/sql"

	"github.com/avigliano/scontrino/internal/dbx"
	"github.com/avigliano/scontrino/internal/server/migrations"
	"github.com/avigliano/scontrino/internal/server/repositories/businesses"
	"github.com/avigliano/scontrino/internal/server/repositories/credentials"
	"github.com/avigliano/scontrino/internal/server/repositories/documents"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository
// implementations and exposes a schema migration hook.
type PostgresRepositoryManager struct{}

func NewPostgres() *PostgresRepositoryManager {
	return &PostgresRepositoryManager{}
}

// Businesses returns a businesses.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Businesses(db dbx.DBTX) businesses.Repository {
	return businesses.NewPostgresRepository(db)
}

// Credentials returns a credentials.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Credentials(db dbx.DBTX) credentials.Repository {
	return credentials.NewPostgresRepository(db)
}

// Documents returns a documents.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Documents(db dbx.DBTX) documents.Repository {
	return documents.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return err
	}
	return nil
}

// Open connects to PostgreSQL through the pgx stdlib driver.
func Open(dsn string) (*sql.DB, error) {
	return sql.Open("pgx", dsn)
}
