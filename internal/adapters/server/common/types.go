// Package common provides transport-agnostic server contracts used by HTTP and MCP adapters.
package common

import (
	"context"
	"errors"

	"github.com/evanschultz/kanban/internal/app"
)

// ErrInvalidRequest reports malformed or invalid transport input.
var ErrInvalidRequest = errors.New("invalid request")

// ErrNotFound reports missing transport-visible resources.
var ErrNotFound = errors.New("not found")

// ErrServiceUnavailable reports a transport wired without a backing task service.
var ErrServiceUnavailable = errors.New("task service unavailable")

// ListTasksRequest filters one task listing. An empty status lists every lane.
type ListTasksRequest struct {
	Status string
}

// CreateTaskRequest stores transport input for task creation.
type CreateTaskRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
}

// MoveTaskRequest stores transport input for a lane change.
type MoveTaskRequest struct {
	ID     int64  `json:"-"`
	Status string `json:"status"`
}

// HistoryRequest bounds one activity ledger read. Zero means the store default.
type HistoryRequest struct {
	Limit int
}

// MutationResult reports the outcome of one move or delete.
type MutationResult struct {
	ID     int64  `json:"id"`
	Result string `json:"result"`
	Status string `json:"status,omitempty"`
}

// BoardLane is one lane of a board snapshot.
type BoardLane struct {
	Status string           `json:"status"`
	Title  string           `json:"title"`
	Tasks  []app.TaskRecord `json:"tasks"`
}

// BoardSnapshot is the lane projection of the store at one point in time.
type BoardSnapshot struct {
	Lanes []BoardLane `json:"lanes"`
	Total int         `json:"total"`
}

// TaskService is the task surface shared by the REST and MCP transports.
type TaskService interface {
	ListTasks(context.Context, ListTasksRequest) ([]app.TaskRecord, error)
	CreateTask(context.Context, CreateTaskRequest) (app.TaskRecord, error)
	MoveTask(context.Context, MoveTaskRequest) (MutationResult, error)
	DeleteTask(context.Context, int64) (MutationResult, error)
	Board(context.Context) (BoardSnapshot, error)
	History(context.Context, HistoryRequest) ([]app.ChangeEventRecord, error)
}
