package common

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/evanschultz/kanban/internal/app"
	"github.com/evanschultz/kanban/internal/domain"
)

// AppServiceAdapter maps transport contracts onto app.Service task APIs.
type AppServiceAdapter struct {
	service *app.Service
}

// NewAppServiceAdapter builds one common adapter over an app.Service instance.
func NewAppServiceAdapter(service *app.Service) *AppServiceAdapter {
	return &AppServiceAdapter{service: service}
}

// ListTasks lists all tasks, or the tasks of one lane when a status is given.
func (a *AppServiceAdapter) ListTasks(ctx context.Context, in ListTasksRequest) ([]app.TaskRecord, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	rawStatus := strings.TrimSpace(in.Status)
	if rawStatus == "" {
		tasks, err := a.service.ListTasks(ctx)
		if err != nil {
			return nil, mapAppError("list tasks", err)
		}
		return app.TaskRecords(tasks), nil
	}
	status, err := domain.ParseStatus(rawStatus)
	if err != nil {
		return nil, mapAppError("list tasks", err)
	}
	tasks, err := a.service.ListTasksByStatus(ctx, status)
	if err != nil {
		return nil, mapAppError("list tasks", err)
	}
	return app.TaskRecords(tasks), nil
}

// CreateTask stores one new todo task.
func (a *AppServiceAdapter) CreateTask(ctx context.Context, in CreateTaskRequest) (app.TaskRecord, error) {
	if err := a.ready(); err != nil {
		return app.TaskRecord{}, err
	}
	task, err := a.service.CreateTask(ctx, app.CreateTaskInput{
		Title:       in.Title,
		Description: in.Description,
	})
	if err != nil {
		return app.TaskRecord{}, mapAppError("create task", err)
	}
	return app.NewTaskRecord(task), nil
}

// MoveTask changes one task's lane. A missing id maps to ErrNotFound.
func (a *AppServiceAdapter) MoveTask(ctx context.Context, in MoveTaskRequest) (MutationResult, error) {
	if err := a.ready(); err != nil {
		return MutationResult{}, err
	}
	if in.ID <= 0 {
		return MutationResult{}, fmt.Errorf("move task: id must be positive: %w", ErrInvalidRequest)
	}
	status, err := domain.ParseStatus(in.Status)
	if err != nil {
		return MutationResult{}, mapAppError("move task", err)
	}
	result, err := a.service.UpdateTaskStatus(ctx, in.ID, status)
	if err != nil {
		return MutationResult{}, mapAppError("move task", err)
	}
	if !result.Found() {
		return MutationResult{}, fmt.Errorf("move task %d: %w", in.ID, ErrNotFound)
	}
	return MutationResult{ID: in.ID, Result: string(result), Status: string(status)}, nil
}

// DeleteTask removes one task. A missing id maps to ErrNotFound.
func (a *AppServiceAdapter) DeleteTask(ctx context.Context, id int64) (MutationResult, error) {
	if err := a.ready(); err != nil {
		return MutationResult{}, err
	}
	if id <= 0 {
		return MutationResult{}, fmt.Errorf("delete task: id must be positive: %w", ErrInvalidRequest)
	}
	result, err := a.service.DeleteTask(ctx, id)
	if err != nil {
		return MutationResult{}, mapAppError("delete task", err)
	}
	if !result.Found() {
		return MutationResult{}, fmt.Errorf("delete task %d: %w", id, ErrNotFound)
	}
	return MutationResult{ID: id, Result: string(result)}, nil
}

// Board returns the three-lane snapshot of the store.
func (a *AppServiceAdapter) Board(ctx context.Context) (BoardSnapshot, error) {
	if err := a.ready(); err != nil {
		return BoardSnapshot{}, err
	}
	projection, err := a.service.Board(ctx)
	if err != nil {
		return BoardSnapshot{}, mapAppError("board", err)
	}
	return NewBoardSnapshot(projection), nil
}

// History returns the newest activity ledger entries first.
func (a *AppServiceAdapter) History(ctx context.Context, in HistoryRequest) ([]app.ChangeEventRecord, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	if in.Limit < 0 {
		return nil, fmt.Errorf("history: limit must not be negative: %w", ErrInvalidRequest)
	}
	events, err := a.service.ListChangeEvents(ctx, in.Limit)
	if err != nil {
		return nil, mapAppError("history", err)
	}
	return app.ChangeEventRecords(events), nil
}

// NewBoardSnapshot maps a projection to its transport shape, lanes in board order.
func NewBoardSnapshot(projection app.Projection) BoardSnapshot {
	out := BoardSnapshot{
		Lanes: make([]BoardLane, 0, domain.LaneCount),
		Total: projection.Len(),
	}
	for _, status := range domain.Lanes() {
		out.Lanes = append(out.Lanes, BoardLane{
			Status: string(status),
			Title:  status.Title(),
			Tasks:  app.TaskRecords(projection.Lane(status)),
		})
	}
	return out
}

// ready reports whether the adapter has a backing service.
func (a *AppServiceAdapter) ready() error {
	if a == nil || a.service == nil {
		return fmt.Errorf("app service adapter is not configured: %w", ErrServiceUnavailable)
	}
	return nil
}

// mapAppError maps app and domain errors into transport sentinels.
func mapAppError(operation string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, app.ErrNotFound):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrNotFound, err))
	case errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidTitle),
		errors.Is(err, domain.ErrInvalidStatus):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrInvalidRequest, err))
	default:
		return fmt.Errorf("%s: %w", operation, err)
	}
}
