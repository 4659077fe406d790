package orchestrator

import (
	"time"

	"github.com/google/uuid"

	"github.com/jonesrussell/north-cloud/medgraph/internal/domain"
)

// State is a step of a country run.
type State string

const (
	StateIdle           State = "IDLE"
	StateCheckFreshness State = "CHECK_FRESHNESS"
	StateSkipped        State = "SKIPPED"
	StateExtracting     State = "EXTRACTING"
	StateNormalizing    State = "NORMALIZING"
	StatePersisting     State = "PERSISTING"
	StateDeduplicating  State = "DEDUPLICATING"
	StateDone           State = "DONE"
	StateFailed         State = "FAILED"
)

// Terminal reports whether no further transition follows s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateSkipped || s == StateFailed
}

// AdapterResult summarizes one adapter's contribution to a run.
type AdapterResult struct {
	Source   string
	Tier     domain.Tier
	Records  int
	Duration time.Duration
	Err      error
}

// RunResult is the outcome of one country run.
type RunResult struct {
	RunID   uuid.UUID
	Country string
	State   State
	// Trace lists every state visited, starting with IDLE.
	Trace    []State
	Adapters []AdapterResult

	Fetched           int
	Normalized        int
	Inserted          int
	Refreshed         int
	Skipped           int
	Rejected          int
	PersistFailures   int
	DuplicatesRemoved int64

	StartedAt time.Time
	Duration  time.Duration
	Err       error
}

// Succeeded is true for DONE and SKIPPED runs.
func (r *RunResult) Succeeded() bool {
	return r.State == StateDone || r.State == StateSkipped
}

// FailedSources lists the adapters that contributed nothing because of an
// error.
func (r *RunResult) FailedSources() []string {
	var out []string
	for _, a := range r.Adapters {
		if a.Err != nil {
			out = append(out, a.Source)
		}
	}
	return out
}

func (r *RunResult) transition(s State) {
	r.State = s
	r.Trace = append(r.Trace, s)
}

// BatchSummary totals a multi-country invocation.
type BatchSummary struct {
	Successful int
	Skipped    int
	Failed     int
	Inserted   int
	Removed    int64
	Duration   time.Duration
}

// Summarize totals results.
func Summarize(results []RunResult) BatchSummary {
	var s BatchSummary
	for i := range results {
		r := &results[i]
		switch r.State {
		case StateDone:
			s.Successful++
		case StateSkipped:
			s.Skipped++
		default:
			s.Failed++
		}
		s.Inserted += r.Inserted
		s.Removed += r.DuplicatesRemoved
		s.Duration += r.Duration
	}
	return s
}
