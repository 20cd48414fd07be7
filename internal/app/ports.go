package app

import (
	"context"
	"time"

	"github.com/evanschultz/kanban/internal/domain"
)

// Repository is the durable task store consumed by the service.
// Mutations must be committed before the call returns; at stamps the change event.
type Repository interface {
	CreateTask(context.Context, domain.Task) (domain.Task, error)
	GetTask(context.Context, int64) (domain.Task, error)
	ListTasks(context.Context) ([]domain.Task, error)
	ListTasksByStatus(context.Context, domain.Status) ([]domain.Task, error)
	UpdateTaskStatus(ctx context.Context, id int64, status domain.Status, at time.Time) error
	DeleteTask(ctx context.Context, id int64, at time.Time) error
	ListChangeEvents(context.Context, int) ([]domain.ChangeEvent, error)
}
