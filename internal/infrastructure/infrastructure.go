// Package infrastructure assembles the systems every domain module depends
// on: lifecycle coordination, logging, the database and the model gateway.
package infrastructure

import (
	"fmt"
	"log/slog"

	"github.com/TAPUZE/project-chimera/internal/config"
	"github.com/TAPUZE/project-chimera/internal/providers"
	"github.com/TAPUZE/project-chimera/migrations"
	"github.com/TAPUZE/project-chimera/pkg/database"
	"github.com/TAPUZE/project-chimera/pkg/lifecycle"
	"github.com/TAPUZE/project-chimera/pkg/logging"
)

// Infrastructure holds the core systems shared by all domain modules.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Database  database.System
	Gateway   *providers.Gateway

	dbConfig *database.Config
}

// New creates an Infrastructure from the application configuration.
// Nothing is started; call Start separately.
func New(cfg *config.Config) (*Infrastructure, error) {
	lc := lifecycle.New()
	logger := logging.New(&cfg.Logging)

	db, err := database.New(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}

	gw, err := providers.New(&cfg.Providers, logger)
	if err != nil {
		return nil, fmt.Errorf("providers init failed: %w", err)
	}

	return &Infrastructure{
		Lifecycle: lc,
		Logger:    logger,
		Database:  db,
		Gateway:   gw,
		dbConfig:  &cfg.Database,
	}, nil
}

// Start connects the database and applies pending schema migrations.
func (i *Infrastructure) Start() error {
	if err := i.Database.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("database start failed: %w", err)
	}
	if err := database.Migrate(i.dbConfig, migrations.FS, "."); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}
	i.Logger.Info("database migrations applied")
	return nil
}
