package bootstrap

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/north-cloud/medgraph/internal/config"
	"github.com/jonesrussell/north-cloud/medgraph/internal/database"
	"github.com/jonesrussell/north-cloud/medgraph/internal/logger"
)

// SetupDatabase connects and applies the schema.
func SetupDatabase(ctx context.Context, cfg *config.Config, log logger.Logger) (*sqlx.DB, error) {
	db, err := database.Connect(ctx, cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("database connection: %w", err)
	}
	if err = database.Migrate(ctx, db, log); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("database migration: %w", err)
	}
	return db, nil
}
