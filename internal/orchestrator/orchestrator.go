// Package orchestrator drives the per-country ingestion pipeline: freshness
// check, extraction, normalization, persistence and deduplication.
package orchestrator

//go:generate mockgen -source=orchestrator.go -destination=mocks/mocks.go -package=mocks Store,Deduplicator,Registry,Publisher

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jonesrussell/north-cloud/medgraph/internal/adapter"
	"github.com/jonesrussell/north-cloud/medgraph/internal/config"
	"github.com/jonesrussell/north-cloud/medgraph/internal/dedup"
	"github.com/jonesrussell/north-cloud/medgraph/internal/domain"
	"github.com/jonesrussell/north-cloud/medgraph/internal/events"
	"github.com/jonesrussell/north-cloud/medgraph/internal/logger"
	"github.com/jonesrussell/north-cloud/medgraph/internal/metrics"
	"github.com/jonesrussell/north-cloud/medgraph/internal/normalize"
	"github.com/jonesrussell/north-cloud/medgraph/internal/repository"
)

// Store is the persistence a run needs.
type Store interface {
	IsStale(ctx context.Context, country string, refreshDays int) (bool, error)
	UpsertBatch(ctx context.Context, country string, records []domain.Institution) (repository.UpsertStats, error)
}

// Deduplicator removes near-duplicates of a country after persistence.
type Deduplicator interface {
	Deduplicate(ctx context.Context, country string) (dedup.Result, error)
}

// Registry resolves a country code to its adapters.
type Registry interface {
	Lookup(code string) (domain.CountryContext, []adapter.Adapter, error)
}

// Publisher receives one event per finished run.
type Publisher interface {
	PublishAsync(event events.RunEvent)
}

// RunOptions overrides the pipeline configuration for one invocation.
type RunOptions struct {
	Force bool
	// RefreshDays is the freshness window; zero uses the configured value.
	RefreshDays int
}

// PauseFunc waits between sequential countries.
type PauseFunc func(ctx context.Context, d time.Duration) error

// Orchestrator runs country pipelines.
type Orchestrator struct {
	cfg        config.PipelineConfig
	registry   Registry
	store      Store
	dedup      Deduplicator
	normalizer *normalize.Normalizer
	publisher  Publisher
	metrics    *metrics.Metrics
	log        logger.Logger
	pause      PauseFunc
	now        func() time.Time
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithPublisher emits run events.
func WithPublisher(p Publisher) Option {
	return func(o *Orchestrator) { o.publisher = p }
}

// WithMetrics records run metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithPause replaces the pause between sequential countries.
func WithPause(p PauseFunc) Option {
	return func(o *Orchestrator) { o.pause = p }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New creates an Orchestrator.
func New(
	cfg config.PipelineConfig,
	registry Registry,
	store Store,
	deduplicator Deduplicator,
	log logger.Logger,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		cfg:        cfg,
		registry:   registry,
		store:      store,
		dedup:      deduplicator,
		normalizer: normalize.New(),
		log:        log.With(logger.Component("orchestrator")),
		pause:      pauseContext,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes the pipeline for one country. Failures are reported in the
// result, never returned: an unknown country or a storage error ends the run
// in FAILED while adapter failures only reduce what is ingested.
func (o *Orchestrator) Run(ctx context.Context, country string, opts RunOptions) RunResult {
	code := domain.NormalizeCountryCode(country)
	res := RunResult{
		RunID:     uuid.New(),
		Country:   code,
		StartedAt: o.now(),
	}
	res.transition(StateIdle)
	log := o.log.With(logger.String("country", code), logger.String("run_id", res.RunID.String()))

	cc, adapters, err := o.registry.Lookup(code)
	if err != nil {
		return o.fail(res, log, err)
	}

	res.transition(StateCheckFreshness)
	if !opts.Force {
		refreshDays := opts.RefreshDays
		if refreshDays <= 0 {
			refreshDays = o.cfg.RefreshDays
		}
		stale, staleErr := o.store.IsStale(ctx, code, refreshDays)
		if staleErr != nil {
			return o.fail(res, log, staleErr)
		}
		if !stale {
			res.transition(StateSkipped)
			log.Info("Data is fresh, skipping country", logger.Int("refresh_days", refreshDays))
			return o.finish(res, log)
		}
	}

	res.transition(StateExtracting)
	raw := o.extract(ctx, cc, adapters, &res, log)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return o.fail(res, log, ctxErr)
	}
	res.Fetched = len(raw)
	o.metrics.AddRecords(code, metrics.StageFetched, res.Fetched)

	res.transition(StateNormalizing)
	normalized := o.normalizer.Normalize(code, raw)
	res.Normalized = len(normalized)
	o.metrics.AddRecords(code, metrics.StageNormalized, res.Normalized)

	res.transition(StatePersisting)
	institutions := make([]domain.Institution, len(normalized))
	for i := range normalized {
		institutions[i] = normalized[i].Institution()
	}
	stats, err := o.store.UpsertBatch(ctx, code, institutions)
	res.Inserted = stats.Inserted
	res.Refreshed = stats.Refreshed
	res.Skipped = stats.Skipped
	res.Rejected = stats.Rejected
	res.PersistFailures = stats.Failed
	o.metrics.AddRecords(code, metrics.StageInserted, stats.Inserted)
	o.metrics.AddRecords(code, metrics.StageRefreshed, stats.Refreshed)
	o.metrics.AddRecords(code, metrics.StageRejected, stats.Rejected)
	if err != nil {
		return o.fail(res, log, err)
	}

	res.transition(StateDeduplicating)
	dd, err := o.dedup.Deduplicate(ctx, code)
	if err != nil {
		return o.fail(res, log, err)
	}
	res.DuplicatesRemoved = dd.Removed
	o.metrics.AddRecords(code, metrics.StageDuplicate, int(dd.Removed))

	res.transition(StateDone)
	return o.finish(res, log)
}

// extract runs adapters in order. A failing adapter contributes nothing.
func (o *Orchestrator) extract(
	ctx context.Context,
	cc domain.CountryContext,
	adapters []adapter.Adapter,
	res *RunResult,
	log logger.Logger,
) []domain.RawRecord {
	var raw []domain.RawRecord
	for _, a := range adapters {
		if ctx.Err() != nil {
			break
		}
		ar := adapter.Collect(ctx, a, cc, log)
		res.Adapters = append(res.Adapters, AdapterResult{
			Source:   ar.Source.Name,
			Tier:     ar.Source.Tier,
			Records:  len(ar.Records),
			Duration: ar.Duration,
			Err:      ar.Err,
		})
		if ar.Failed() {
			o.metrics.AdapterFailed(cc.Code, ar.Source.Name)
			continue
		}
		raw = append(raw, ar.Records...)
	}
	return raw
}

func (o *Orchestrator) fail(res RunResult, log logger.Logger, err error) RunResult {
	res.Err = err
	res.transition(StateFailed)
	if errors.Is(err, context.Canceled) {
		log.Warn("Run interrupted", logger.Error(err))
	} else {
		log.Error("Run failed", logger.Error(err))
	}
	return o.finish(res, log)
}

func (o *Orchestrator) finish(res RunResult, log logger.Logger) RunResult {
	res.Duration = o.now().Sub(res.StartedAt)
	o.metrics.RecordRun(res.Country, string(res.State), res.Duration)

	if res.State != StateFailed {
		log.Info("Run finished",
			logger.String("state", string(res.State)),
			logger.Int("fetched", res.Fetched),
			logger.Int("inserted", res.Inserted),
			logger.Int("rejected", res.Rejected),
			logger.Int64("duplicates_removed", res.DuplicatesRemoved),
			logger.Strings("failed_sources", res.FailedSources()),
			logger.Duration("duration", res.Duration),
		)
	}

	if o.publisher != nil {
		o.publisher.PublishAsync(runEvent(&res))
	}
	return res
}

func runEvent(res *RunResult) events.RunEvent {
	eventType := events.RunCompleted
	switch res.State {
	case StateSkipped:
		eventType = events.RunSkipped
	case StateFailed:
		eventType = events.RunFailed
	}

	ev := events.RunEvent{
		EventType: eventType,
		RunID:     res.RunID,
		Country:   res.Country,
		Payload: events.RunPayload{
			Fetched:           res.Fetched,
			Normalized:        res.Normalized,
			Inserted:          res.Inserted,
			Refreshed:         res.Refreshed,
			Rejected:          res.Rejected,
			DuplicatesRemoved: res.DuplicatesRemoved,
			FailedSources:     res.FailedSources(),
			DurationMS:        res.Duration.Milliseconds(),
		},
	}
	if res.Err != nil {
		ev.Payload.Error = res.Err.Error()
	}
	return ev
}

func pauseContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
