// Package metrics provides Prometheus instrumentation for ingestion runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// MetricsNamespace is the namespace for all medgraph metrics.
	MetricsNamespace = "medgraph"

	// MetricsSubsystem is the subsystem for pipeline metrics.
	MetricsSubsystem = "pipeline"
)

// Record stages counted by RecordsTotal.
const (
	StageFetched    = "fetched"
	StageNormalized = "normalized"
	StageInserted   = "inserted"
	StageRefreshed  = "refreshed"
	StageRejected   = "rejected"
	StageDuplicate  = "duplicate_removed"
)

// Metrics holds the pipeline collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	FetchesTotal         *prometheus.CounterVec
	FetchDurationSeconds prometheus.Histogram

	RunsTotal          *prometheus.CounterVec
	RunDurationSeconds *prometheus.HistogramVec
	RecordsTotal       *prometheus.CounterVec
	AdapterFailures    *prometheus.CounterVec
}

// NewMetrics creates and registers all collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	return &Metrics{
		FetchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: MetricsNamespace,
				Subsystem: MetricsSubsystem,
				Name:      "fetch_attempts_total",
				Help:      "Total number of HTTP fetch attempts by outcome",
			},
			[]string{"outcome"},
		),
		FetchDurationSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: MetricsNamespace,
				Subsystem: MetricsSubsystem,
				Name:      "fetch_duration_seconds",
				Help:      "Duration of individual HTTP fetch attempts",
				Buckets:   prometheus.DefBuckets,
			},
		),
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: MetricsNamespace,
				Subsystem: MetricsSubsystem,
				Name:      "runs_total",
				Help:      "Total number of country runs by terminal state",
			},
			[]string{"country", "state"},
		),
		RunDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: MetricsNamespace,
				Subsystem: MetricsSubsystem,
				Name:      "run_duration_seconds",
				Help:      "Duration of country runs",
				Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
			},
			[]string{"country"},
		),
		RecordsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: MetricsNamespace,
				Subsystem: MetricsSubsystem,
				Name:      "records_total",
				Help:      "Records processed per country and stage",
			},
			[]string{"country", "stage"},
		),
		AdapterFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: MetricsNamespace,
				Subsystem: MetricsSubsystem,
				Name:      "adapter_failures_total",
				Help:      "Adapters that failed and contributed no records",
			},
			[]string{"country", "source"},
		),
	}
}

// RecordFetch counts one fetch attempt.
func (m *Metrics) RecordFetch(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.FetchesTotal.WithLabelValues(outcome).Inc()
	m.FetchDurationSeconds.Observe(elapsed.Seconds())
}

// RecordRun counts a finished country run.
func (m *Metrics) RecordRun(country, state string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(country, state).Inc()
	m.RunDurationSeconds.WithLabelValues(country).Observe(elapsed.Seconds())
}

// AddRecords adds n records at stage for country.
func (m *Metrics) AddRecords(country, stage string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.RecordsTotal.WithLabelValues(country, stage).Add(float64(n))
}

// AdapterFailed counts an adapter that produced nothing because it failed.
func (m *Metrics) AdapterFailed(country, source string) {
	if m == nil {
		return
	}
	m.AdapterFailures.WithLabelValues(country, source).Inc()
}
