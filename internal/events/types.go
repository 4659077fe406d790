// Package events publishes ingestion run events to Redis Streams.
package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the outcome of a run.
type EventType string

const (
	// RunCompleted indicates a country was extracted, persisted and deduplicated.
	RunCompleted EventType = "RUN_COMPLETED"
	// RunSkipped indicates the country's data was still fresh.
	RunSkipped EventType = "RUN_SKIPPED"
	// RunFailed indicates the run aborted.
	RunFailed EventType = "RUN_FAILED"
)

// RunEvent is the envelope written to the stream.
type RunEvent struct {
	EventID   uuid.UUID  `json:"event_id"`
	EventType EventType  `json:"event_type"`
	RunID     uuid.UUID  `json:"run_id"`
	Country   string     `json:"country"`
	Timestamp time.Time  `json:"timestamp"`
	Payload   RunPayload `json:"payload"`
}

// RunPayload carries the run's counters.
type RunPayload struct {
	Fetched           int      `json:"fetched"`
	Normalized        int      `json:"normalized"`
	Inserted          int      `json:"inserted"`
	Refreshed         int      `json:"refreshed"`
	Rejected          int      `json:"rejected"`
	DuplicatesRemoved int64    `json:"duplicates_removed"`
	FailedSources     []string `json:"failed_sources,omitempty"`
	DurationMS        int64    `json:"duration_ms"`
	Error             string   `json:"error,omitempty"`
}
