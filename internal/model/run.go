package model

import (
	"time"

	"github.com/google/uuid"
)

type RunStatus string

const (
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusSucceeded RunStatus = "SUCCEEDED"
	RunStatusFailed    RunStatus = "FAILED"
)

// PublishRun records the outcome of one publish invocation: where the
// log went, how much was sent, and how the run ended.
type PublishRun struct {
	ID          uuid.UUID  `db:"id"`
	LogGroup    string     `db:"log_group"`
	LogStream   string     `db:"log_stream"`
	Status      RunStatus  `db:"status"`
	EventsSent  int        `db:"events_sent"`
	BatchesSent int        `db:"batches_sent"`
	Error       string     `db:"error"`
	StartedAt   time.Time  `db:"started_at"`
	FinishedAt  *time.Time `db:"finished_at"`
}
