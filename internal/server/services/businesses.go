package services

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/avigliano/scontrino/internal/common"
	"github.com/avigliano/scontrino/internal/logging"
	"github.com/avigliano/scontrino/internal/server/models"
	"github.com/avigliano/scontrino/internal/server/repositories/repomanager"
)

// BusinessService registers the businesses documents are emitted for.
type BusinessService struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	logger logging.Logger
}

func NewBusinessService(db *sql.DB, repos repomanager.RepositoryManager, logger logging.Logger) *BusinessService {
	return &BusinessService{db: db, repos: repos, logger: logger.With("service", "businesses")}
}

// Register creates a business owned by the calling user.
func (s *BusinessService) Register(ctx context.Context, userID, name string) (*models.Business, error) {
	if userID == "" || name == "" {
		return nil, common.ErrorValidation
	}

	b := &models.Business{
		ID:          uuid.NewString(),
		OwnerUserID: userID,
		Name:        name,
	}
	if err := s.repos.Businesses(s.db).Create(ctx, b); err != nil {
		s.logger.Error(ctx, "creating business failed", "error", err.Error())
		return nil, common.ErrorInternal
	}
	s.logger.Info(ctx, "business registered", "business_id", b.ID)
	return b, nil
}
