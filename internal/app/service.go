package app

import (
	"context"
	"time"

	"github.com/evanschultz/kanban/internal/domain"
)

// Result distinguishes an applied mutation from one that targeted a missing id.
type Result string

// Result values returned by status updates and deletes.
const (
	ResultUpdated  Result = "updated"
	ResultDeleted  Result = "deleted"
	ResultNotFound Result = "not_found"
)

// Found reports whether the targeted task existed.
func (r Result) Found() bool {
	return r == ResultUpdated || r == ResultDeleted
}

// Clock returns the current time.
type Clock func() time.Time

// Service exposes task operations over one project-local store.
type Service struct {
	repo  Repository
	clock Clock
}

// NewService constructs a service bound to one repository.
func NewService(repo Repository, clock Clock) *Service {
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		repo:  repo,
		clock: clock,
	}
}

// CreateTaskInput holds input values for create task operations.
type CreateTaskInput struct {
	Title       string
	Description *string
}

// CreateTask validates and stores a new todo task and returns it with its assigned id.
func (s *Service) CreateTask(ctx context.Context, in CreateTaskInput) (domain.Task, error) {
	task, err := domain.NewTask(domain.TaskInput{
		Title:       in.Title,
		Description: in.Description,
	}, s.clock())
	if err != nil {
		return domain.Task{}, err
	}
	created, err := s.repo.CreateTask(ctx, task)
	if err != nil {
		return domain.Task{}, persistenceErr("create task", err)
	}
	return created, nil
}

// GetTask returns one task or ErrNotFound.
func (s *Service) GetTask(ctx context.Context, id int64) (domain.Task, error) {
	if id <= 0 {
		return domain.Task{}, ErrNotFound
	}
	task, err := s.repo.GetTask(ctx, id)
	if err != nil {
		return domain.Task{}, persistenceErr("get task", err)
	}
	return task, nil
}

// ListTasks returns every task in creation order.
func (s *Service) ListTasks(ctx context.Context) ([]domain.Task, error) {
	tasks, err := s.repo.ListTasks(ctx)
	if err != nil {
		return nil, persistenceErr("list tasks", err)
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	return tasks, nil
}

// ListTasksByStatus returns the tasks of one lane in creation order.
func (s *Service) ListTasksByStatus(ctx context.Context, status domain.Status) ([]domain.Task, error) {
	if !status.Valid() {
		return nil, &domain.InvalidStatusError{Value: string(status)}
	}
	tasks, err := s.repo.ListTasksByStatus(ctx, status)
	if err != nil {
		return nil, persistenceErr("list tasks by status", err)
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	return tasks, nil
}

// UpdateTaskStatus moves one task to a lane. A missing id is reported as ResultNotFound.
func (s *Service) UpdateTaskStatus(ctx context.Context, id int64, status domain.Status) (Result, error) {
	if !status.Valid() {
		return "", &domain.InvalidStatusError{Value: string(status)}
	}
	if id <= 0 {
		return ResultNotFound, nil
	}
	return mutationResult(s.repo.UpdateTaskStatus(ctx, id, status, s.clock()), ResultUpdated, "update task status")
}

// DeleteTask removes one task. A missing id is reported as ResultNotFound.
func (s *Service) DeleteTask(ctx context.Context, id int64) (Result, error) {
	if id <= 0 {
		return ResultNotFound, nil
	}
	return mutationResult(s.repo.DeleteTask(ctx, id, s.clock()), ResultDeleted, "delete task")
}

// Board returns the lane projection of the current store contents.
func (s *Service) Board(ctx context.Context) (Projection, error) {
	tasks, err := s.ListTasks(ctx)
	if err != nil {
		return Projection{}, err
	}
	return Project(tasks), nil
}

// ListChangeEvents returns the newest activity ledger entries.
func (s *Service) ListChangeEvents(ctx context.Context, limit int) ([]domain.ChangeEvent, error) {
	events, err := s.repo.ListChangeEvents(ctx, limit)
	if err != nil {
		return nil, persistenceErr("list change events", err)
	}
	return events, nil
}

// mutationResult folds a repository ErrNotFound into ResultNotFound.
func mutationResult(err error, applied Result, op string) (Result, error) {
	switch {
	case err == nil:
		return applied, nil
	case isNotFound(err):
		return ResultNotFound, nil
	default:
		return "", persistenceErr(op, err)
	}
}
