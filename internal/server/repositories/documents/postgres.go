package documents

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

const documentColumns = `id, business_id, kind, idempotency_key, status,
	request_payload, response_payload,
	authority_transaction_id, authority_progressive,
	original_document_id, created_at, updated_at`

func (r *PostgresRepository) CreatePending(ctx context.Context, doc *models.Document) (*models.Document, bool, error) {

	query :=
		`INSERT INTO documents (id, business_id, kind, idempotency_key, status, original_document_id)
		 VALUES ($1, $2, $3, $4, 'PENDING', NULLIF($5, ''))
		 ON CONFLICT (idempotency_key) DO NOTHING
		 RETURNING id
		 `

	var id string
	err := r.db.QueryRowContext(ctx, query,
		doc.ID, doc.BusinessID, doc.Kind, doc.IdempotencyKey, doc.OriginalDocumentID).Scan(&id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// lost the race or retried call: the key's owner already exists
			existing, gerr := r.GetByIdempotencyKey(ctx, doc.IdempotencyKey)
			if gerr != nil {
				return nil, false, gerr
			}
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("db error: %w", err)
	}

	created, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return created, true, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetByIdempotencyKey(ctx context.Context, key string) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE idempotency_key = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, key))
}

func (r *PostgresRepository) GetAcceptedVoidFor(ctx context.Context, originalDocID string) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents
		 WHERE original_document_id = $1 AND kind = 'VOID' AND status = 'VOID_ACCEPTED'`
	return r.scanOne(r.db.QueryRowContext(ctx, query, originalDocID))
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*models.Document, error) {
	doc := &models.Document{}
	var reqPayload, respPayload []byte
	var txID, progressive, originalID sql.NullString

	err := row.Scan(&doc.ID, &doc.BusinessID, &doc.Kind, &doc.IdempotencyKey, &doc.Status,
		&reqPayload, &respPayload, &txID, &progressive, &originalID,
		&doc.CreatedAt, &doc.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	doc.RequestPayload = reqPayload
	doc.ResponsePayload = respPayload
	doc.AuthorityTransactionID = txID.String
	doc.AuthorityProgressive = progressive.String
	doc.OriginalDocumentID = originalID.String
	return doc, nil
}

func (r *PostgresRepository) MarkOutcome(ctx context.Context, id string, status models.DocumentStatus, txID, progressive string, request, response []byte) error {

	query :=
		`UPDATE documents SET status = $2,
		   authority_transaction_id = $3, authority_progressive = $4,
		   request_payload = $5, response_payload = $6,
		   updated_at = now()
		 WHERE id = $1 AND status = 'PENDING'
		 `

	return r.execOnPending(ctx, query, id, status, txID, progressive, request, response)
}

func (r *PostgresRepository) MarkError(ctx context.Context, id string, request []byte, detail string) error {

	query :=
		`UPDATE documents SET status = 'ERROR',
		   request_payload = $2, response_payload = $3,
		   updated_at = now()
		 WHERE id = $1 AND status = 'PENDING'
		 `

	return r.execOnPending(ctx, query, id, request, []byte(detail))
}

func (r *PostgresRepository) SetStatus(ctx context.Context, id string, status models.DocumentStatus) error {

	query :=
		`UPDATE documents SET status = $2, updated_at = now()
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return r.requireRow(res)
}

func (r *PostgresRepository) AddLines(ctx context.Context, docID string, lines []models.DocumentLine) error {

	query :=
		`INSERT INTO document_lines (document_id, position, description, quantity, unit_gross_cents, discount_cents, vat_code)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 `

	for i, ln := range lines {
		if _, err := r.db.ExecContext(ctx, query,
			docID, i+1, ln.Description, ln.Quantity, ln.UnitGrossCents, ln.DiscountCents, ln.VATCode); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}
	return nil
}

func (r *PostgresRepository) GetLines(ctx context.Context, docID string) ([]models.DocumentLine, error) {

	query :=
		`SELECT id, document_id, position, description, quantity, unit_gross_cents, discount_cents, vat_code, COALESCE(authority_line_id, '')
		 FROM document_lines
		 WHERE document_id = $1
		 ORDER BY position
		 `

	rows, err := r.db.QueryContext(ctx, query, docID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var lines []models.DocumentLine
	for rows.Next() {
		var ln models.DocumentLine
		if err := rows.Scan(&ln.ID, &ln.DocumentID, &ln.Position, &ln.Description,
			&ln.Quantity, &ln.UnitGrossCents, &ln.DiscountCents, &ln.VATCode, &ln.AuthorityLineID); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		lines = append(lines, ln)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return lines, nil
}

func (r *PostgresRepository) SetLineAuthorityID(ctx context.Context, lineID int64, authorityLineID string) error {

	query :=
		`UPDATE document_lines SET authority_line_id = $2
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, lineID, authorityLineID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return r.requireRow(res)
}

func (r *PostgresRepository) execOnPending(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		// either the document is gone or it already left PENDING
		return common.ErrorInconsistentState
	}
	return nil
}

func (r *PostgresRepository) requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
