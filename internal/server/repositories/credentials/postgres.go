package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/avigliano/scontrino/internal/common"
	"github.com/avigliano/scontrino/internal/dbx"
	"github.com/avigliano/scontrino/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Upsert(ctx context.Context, cred *models.Credential) error {

	query :=
		`INSERT INTO portal_credentials (business_id, tax_code_enc, password_enc, pin_enc, key_version, verified_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NULL, now())
		 ON CONFLICT (business_id) DO UPDATE SET
		   tax_code_enc = EXCLUDED.tax_code_enc,
		   password_enc = EXCLUDED.password_enc,
		   pin_enc = EXCLUDED.pin_enc,
		   key_version = EXCLUDED.key_version,
		   verified_at = NULL,
		   updated_at = now()
		 `

	_, err := r.db.ExecContext(ctx, query,
		cred.BusinessID, cred.TaxCodeEnc, cred.PasswordEnc, cred.PINEnc, cred.KeyVersion)

	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) GetByBusiness(ctx context.Context, businessID string) (*models.Credential, error) {
	query :=
		`SELECT business_id, tax_code_enc, password_enc, pin_enc, key_version, verified_at, created_at, updated_at
		 FROM portal_credentials
		 WHERE business_id = $1
		 `

	cred := &models.Credential{}
	err := r.db.QueryRowContext(ctx, query, businessID).Scan(
		&cred.BusinessID, &cred.TaxCodeEnc, &cred.PasswordEnc, &cred.PINEnc,
		&cred.KeyVersion, &cred.VerifiedAt, &cred.CreatedAt, &cred.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return cred, nil
}

func (r *PostgresRepository) Rekey(ctx context.Context, cred *models.Credential) error {
	query :=
		`UPDATE portal_credentials SET
		   tax_code_enc = $2,
		   password_enc = $3,
		   pin_enc = $4,
		   key_version = $5,
		   updated_at = now()
		 WHERE business_id = $1
		 `

	res, err := r.db.ExecContext(ctx, query,
		cred.BusinessID, cred.TaxCodeEnc, cred.PasswordEnc, cred.PINEnc, cred.KeyVersion)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}

	return nil
}

func (r *PostgresRepository) MarkVerified(ctx context.Context, businessID string, at time.Time) error {
	query :=
		`UPDATE portal_credentials SET verified_at = $2, updated_at = now()
		 WHERE business_id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, businessID, at)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}

	return nil
}
