package models

import (
	"encoding/json"
	"time"
)

// GenerationRunStatus tracks an asynchronous generation.
type GenerationRunStatus string

const (
	GenerationRunQueued   GenerationRunStatus = "QUEUED"
	GenerationRunRunning  GenerationRunStatus = "RUNNING"
	GenerationRunFinished GenerationRunStatus = "FINISHED"
	GenerationRunFailed   GenerationRunStatus = "FAILED"
)

// GenerationRun is the stored state of an asynchronous generation. Request and Result hold
// the JSON encoded request and response payloads.
type GenerationRun struct {
	ID         string              `json:"id"`
	Status     GenerationRunStatus `json:"status"`
	Attempts   int                 `json:"attempts"`
	Request    json.RawMessage     `json:"request"`
	Result     json.RawMessage     `json:"result,omitempty"`
	Error      string              `json:"error,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
	StartedAt  *time.Time          `json:"started_at,omitempty"`
	FinishedAt *time.Time          `json:"finished_at,omitempty"`
}
