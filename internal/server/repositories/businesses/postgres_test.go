package businesses

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/avigliano/scontrino/internal/common"
	"github.com/avigliano/scontrino/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestCreate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+businesses\s*\(id,\s*owner_user_id,\s*name\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3\)\s*$`
	mock.ExpectExec(q).
		WithArgs("b-1", "u-1", "Bar Centrale").
		WillReturnResult(sqlmock.NewResult(0, 1))

	b := &models.Business{ID: "b-1", OwnerUserID: "u-1", Name: "Bar Centrale"}
	if err := repo.Create(context.Background(), b); err != nil {
		t.Fatalf("Create error: %v", err)
	}
}

func TestGetByID_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+.+FROM\s+businesses\s+WHERE\s+id\s*=\s*\$1\s*$`
	rows := sqlmock.NewRows([]string{"id", "owner_user_id", "name", "created_at"}).
		AddRow("b-1", "u-1", "Bar Centrale", time.Now())
	mock.ExpectQuery(q).WithArgs("b-1").WillReturnRows(rows)

	got, err := repo.GetByID(context.Background(), "b-1")
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if got.OwnerUserID != "u-1" {
		t.Fatalf("unexpected business: %+v", got)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+.+FROM\s+businesses\s+WHERE\s+id\s*=\s*\$1\s*$`
	mock.ExpectQuery(q).WithArgs("ghost").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "ghost")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}
