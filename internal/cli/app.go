// Package cli implements the fiskal command-line tool: business and
// credential management plus document emission, voiding, and display, all
// driven through the services layer.
package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/avigliano/scontrino/internal/cryptox"
	"github.com/avigliano/scontrino/internal/logging"
	"github.com/avigliano/scontrino/internal/portal"
	"github.com/avigliano/scontrino/internal/server/config"
	"github.com/avigliano/scontrino/internal/server/repositories/repomanager"
	"github.com/avigliano/scontrino/internal/server/services"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB

	businessService   *services.BusinessService
	credentialService *services.CredentialService
	documentService   *services.DocumentService
}

func NewApp(cfg *config.Config) (*App, error) {

	sl := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	logger := logging.NewSlogLogger(sl)

	ring, err := cfg.Keyring()
	if err != nil {
		return nil, fmt.Errorf("keyring init error: %w", err)
	}
	cipher := cryptox.NewCipher(ring)

	db, err := repomanager.Open(cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	repos := repomanager.NewPostgres()
	if err := repos.RunMigrations(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	newPortal := func() services.PortalClient {
		return portal.NewClient(cfg.PortalBaseURL, logger, portal.WithTimeout(cfg.PortalTimeout))
	}

	return &App{
		config:            cfg,
		logger:            logger,
		db:                db,
		businessService:   services.NewBusinessService(db, repos, logger),
		credentialService: services.NewCredentialService(db, repos, cipher, newPortal, logger),
		documentService:   services.NewDocumentService(db, repos, cipher, newPortal, logger),
	}, nil
}

func (a *App) Close() error {
	return a.db.Close()
}
