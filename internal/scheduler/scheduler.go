// Package scheduler re-runs country extractions on a cron schedule. The
// freshness gate decides whether a triggered run does any work.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jonesrussell/north-cloud/medgraph/internal/logger"
	"github.com/jonesrussell/north-cloud/medgraph/internal/orchestrator"
)

// Runner executes a batch of countries.
type Runner interface {
	RunMany(ctx context.Context, countries []string, opts orchestrator.RunOptions) ([]orchestrator.RunResult, error)
}

// ResultHandler receives the results of every triggered batch.
type ResultHandler func(results []orchestrator.RunResult)

// Scheduler triggers batches from a five-field cron expression.
type Scheduler struct {
	cron      *cron.Cron
	parser    cron.Parser
	runner    Runner
	countries []string
	opts      orchestrator.RunOptions
	onResults ResultHandler
	log       logger.Logger

	// running guards against a slow batch overlapping the next trigger.
	running sync.Mutex
}

// New creates a Scheduler. onResults may be nil.
func New(
	runner Runner,
	countries []string,
	opts orchestrator.RunOptions,
	onResults ResultHandler,
	log logger.Logger,
) *Scheduler {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return &Scheduler{
		cron:      cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger))),
		parser:    parser,
		runner:    runner,
		countries: countries,
		opts:      opts,
		onResults: onResults,
		log:       log.With(logger.Component("scheduler")),
	}
}

// Next returns the first activation of expr after now.
func (s *Scheduler) Next(expr string, now time.Time) (time.Time, error) {
	schedule, err := s.parser.Parse(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse cron expression %q: %w", expr, err)
	}
	return schedule.Next(now), nil
}

// Run schedules the batch on expr and blocks until ctx is cancelled, then
// waits for a batch in progress to finish.
func (s *Scheduler) Run(ctx context.Context, expr string) error {
	next, err := s.Next(expr, time.Now())
	if err != nil {
		return err
	}

	if _, err = s.cron.AddFunc(expr, func() { s.Trigger(ctx) }); err != nil {
		return fmt.Errorf("add cron job: %w", err)
	}

	s.log.Info("Scheduler started",
		logger.String("schedule", expr),
		logger.Strings("countries", s.countries),
		logger.Time("next_run", next),
	)
	s.cron.Start()

	<-ctx.Done()
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()

	s.log.Info("Scheduler stopped")
	return nil
}

// Trigger runs one batch now unless a previous batch is still running.
func (s *Scheduler) Trigger(ctx context.Context) {
	if !s.running.TryLock() {
		s.log.Warn("Previous batch still running, trigger skipped")
		return
	}
	defer s.running.Unlock()

	s.log.Info("Scheduled batch triggered", logger.Strings("countries", s.countries))
	results, err := s.runner.RunMany(ctx, s.countries, s.opts)
	if err != nil {
		s.log.Warn("Scheduled batch interrupted", logger.Error(err))
	}
	if s.onResults != nil {
		s.onResults(results)
	}
}
