// Package bootstrap wires the medgraph components from configuration.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jonesrussell/north-cloud/medgraph/internal/config"
	"github.com/jonesrussell/north-cloud/medgraph/internal/dedup"
	"github.com/jonesrussell/north-cloud/medgraph/internal/events"
	"github.com/jonesrussell/north-cloud/medgraph/internal/fetcher"
	"github.com/jonesrussell/north-cloud/medgraph/internal/logger"
	"github.com/jonesrussell/north-cloud/medgraph/internal/metrics"
	"github.com/jonesrussell/north-cloud/medgraph/internal/orchestrator"
	"github.com/jonesrussell/north-cloud/medgraph/internal/repository"
	"github.com/jonesrussell/north-cloud/medgraph/internal/sources"
)

// Version is set at build time with -ldflags.
var Version = "dev"

// App holds the wired components of one process.
type App struct {
	Config       *config.Config
	Log          logger.Logger
	DB           *sqlx.DB
	Repository   *repository.InstitutionRepository
	Registry     *sources.Registry
	Orchestrator *orchestrator.Orchestrator
	Gatherer     prometheus.Gatherer

	publisher *events.Publisher
}

// New connects to the database and builds the pipeline.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*App, error) {
	// Phase 1: database
	db, err := SetupDatabase(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	// Phase 2: metrics and optional event publisher
	registry := prometheus.NewRegistry()
	m := metrics.NewMetrics(registry)
	publisher := SetupEventPublisher(ctx, cfg, log)

	// Phase 3: pipeline
	f := fetcher.New(cfg.Fetcher, log, fetcher.WithRecorder(m))
	repo := repository.NewInstitutionRepository(db, log,
		repository.WithConflictMode(cfg.Pipeline.ConflictMode),
	)
	reg := sources.NewRegistry(f, cfg.Fetcher.MaxPages)

	opts := []orchestrator.Option{orchestrator.WithMetrics(m)}
	if publisher != nil {
		opts = append(opts, orchestrator.WithPublisher(publisher))
	}
	orch := orchestrator.New(cfg.Pipeline, reg, repo, dedup.New(repo, cfg.Dedup, log), log, opts...)

	return &App{
		Config:       cfg,
		Log:          log,
		DB:           db,
		Repository:   repo,
		Registry:     reg,
		Orchestrator: orch,
		Gatherer:     registry,
		publisher:    publisher,
	}, nil
}

// ServeMetrics runs the metrics endpoint in the background when an address
// is configured.
func (a *App) ServeMetrics(ctx context.Context) {
	addr := a.Config.Metrics.Addr
	if addr == "" {
		return
	}
	go func() {
		if err := metrics.Serve(ctx, addr, a.Gatherer, a.Log); err != nil {
			a.Log.Error("Metrics endpoint stopped", logger.Error(err))
		}
	}()
}

// Close releases the database and Redis connections.
func (a *App) Close() error {
	var errs []error
	if err := a.publisher.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close redis: %w", err))
	}
	if err := a.DB.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close database: %w", err))
	}
	return errors.Join(errs...)
}
