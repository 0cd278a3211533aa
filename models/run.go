package models

import (
	"time"

	"github.com/google/uuid"
)

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusPartial   RunStatus = "partial"
	RunStatusFailed    RunStatus = "failed"
)

// SyncRun is one execution of the full calendar sync across all active
// properties.
type SyncRun struct {
	ID                  int64      `json:"id" db:"id"`
	StartedAt           time.Time  `json:"started_at" db:"started_at"`
	FinishedAt          *time.Time `json:"finished_at" db:"finished_at"`
	Status              RunStatus  `json:"status" db:"status"`
	PropertiesAttempted int        `json:"properties_attempted" db:"properties_attempted"`
	PropertiesSucceeded int        `json:"properties_succeeded" db:"properties_succeeded"`
	PropertiesFailed    int        `json:"properties_failed" db:"properties_failed"`
	JobsCreated         int        `json:"jobs_created" db:"jobs_created"`
	ErrorMessage        string     `json:"error_message" db:"error_message"`
}

// PropertyResult is the per-property outcome of a sync run. Error strings
// are safe to display to the user.
type PropertyResult struct {
	PropertyID   uuid.UUID `json:"property_id"`
	PropertyName string    `json:"property_name"`
	Success      bool      `json:"success"`
	JobsCreated  int       `json:"jobs_created"`
	Error        string    `json:"error,omitempty"`
}

// SyncSummary is the aggregate result of RunSync and the only externally
// observable contract of the orchestrator.
type SyncSummary struct {
	Attempted   int              `json:"attempted"`
	Succeeded   int              `json:"succeeded"`
	Failed      int              `json:"failed"`
	JobsCreated int              `json:"jobs_created"`
	Details     []PropertyResult `json:"details"`
	StartedAt   time.Time        `json:"started_at"`
	FinishedAt  time.Time        `json:"finished_at"`
}
