package domain

import "time"

// ChangeOperation describes a persisted activity operation for a task.
type ChangeOperation string

// ChangeOperation values used by the local activity ledger.
const (
	ChangeOperationCreate ChangeOperation = "create"
	ChangeOperationMove   ChangeOperation = "move"
	ChangeOperationDelete ChangeOperation = "delete"
)

// ChangeEvent represents a single activity-log entry for a task.
type ChangeEvent struct {
	ID         int64
	TaskID     int64
	Operation  ChangeOperation
	Metadata   map[string]string
	OccurredAt time.Time
}
