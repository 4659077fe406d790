// Package database provides PostgreSQL connectivity and schema setup.
package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/jonesrussell/north-cloud/medgraph/internal/config"
	"github.com/jonesrussell/north-cloud/medgraph/internal/logger"
)

// DefaultPingTimeout is the timeout for the initial connectivity check.
const DefaultPingTimeout = 5 * time.Second

//go:embed migrations/*.sql
var migrations embed.FS

// Connect opens a pooled connection and verifies it with a ping.
func Connect(ctx context.Context, cfg config.DatabaseConfig, log logger.Logger) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, DefaultPingTimeout)
	defer cancel()

	if pingErr := db.PingContext(pingCtx); pingErr != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", pingErr)
	}

	log.Info("Database connection established",
		logger.String("host", cfg.Host),
		logger.Int("port", cfg.Port),
		logger.String("dbname", cfg.DBName),
	)
	return db, nil
}

// Source returns the embedded migration files.
func Source() (source.Driver, error) {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("open migrations: %w", err)
	}
	return src, nil
}

// Migrate applies every pending up migration. An up-to-date schema is not an
// error.
func Migrate(ctx context.Context, db *sqlx.DB, log logger.Logger) error {
	return run(ctx, db, log, "up", (*migrate.Migrate).Up)
}

// Rollback applies every down migration.
func Rollback(ctx context.Context, db *sqlx.DB, log logger.Logger) error {
	return run(ctx, db, log, "down", (*migrate.Migrate).Down)
}

func run(ctx context.Context, db *sqlx.DB, log logger.Logger, direction string, step func(*migrate.Migrate) error) error {
	src, err := Source()
	if err != nil {
		return err
	}
	driver, err := postgres.WithInstance(db.DB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migrate driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			m.GracefulStop <- true
		case <-done:
		}
	}()

	err = step(m)
	if errors.Is(err, migrate.ErrNoChange) {
		log.Debug("No migrations to apply", logger.String("direction", direction))
		return nil
	}
	if err != nil {
		return fmt.Errorf("migration %s: %w", direction, err)
	}

	version, dirty, verErr := m.Version()
	if verErr != nil && !errors.Is(verErr, migrate.ErrNilVersion) {
		return fmt.Errorf("read schema version: %w", verErr)
	}
	log.Info("Migration completed",
		logger.String("direction", direction),
		logger.Int("version", int(version)),
		logger.Bool("dirty", dirty),
	)
	return nil
}
