package businesses

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

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

func (r *PostgresRepository) Create(ctx context.Context, b *models.Business) error {
	query :=
		`INSERT INTO businesses (id, owner_user_id, name)
		 VALUES ($1, $2, $3)
		 `

	_, err := r.db.ExecContext(ctx, query, b.ID, b.OwnerUserID, b.Name)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Business, error) {
	query :=
		`SELECT id, owner_user_id, name, created_at FROM businesses
		 WHERE id = $1
		 `

	b := &models.Business{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&b.ID, &b.OwnerUserID, &b.Name, &b.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return b, nil
}
