package scanner

import (
	"context"
	"fmt"

	"github.com/evanschultz/kanban/internal/app"
	"github.com/evanschultz/kanban/internal/domain"
)

// TaskWriter is the subset of the task service used by Import.
type TaskWriter interface {
	CreateTask(context.Context, app.CreateTaskInput) (domain.Task, error)
	UpdateTaskStatus(context.Context, int64, domain.Status) (app.Result, error)
}

// Import creates one task per marker. The description records the marker location
// and markers outside todo are moved to their lane after creation.
func Import(ctx context.Context, svc TaskWriter, markers []Marker) ([]domain.Task, error) {
	created := make([]domain.Task, 0, len(markers))
	for _, marker := range markers {
		location := fmt.Sprintf("%s:%d", marker.SourceFile, marker.LineNumber)
		task, err := svc.CreateTask(ctx, app.CreateTaskInput{
			Title:       marker.Title,
			Description: &location,
		})
		if err != nil {
			return created, fmt.Errorf("import %s: %w", location, err)
		}
		if marker.Status != domain.StatusTodo {
			result, err := svc.UpdateTaskStatus(ctx, task.ID, marker.Status)
			if err != nil {
				return created, fmt.Errorf("import %s: %w", location, err)
			}
			if !result.Found() {
				return created, fmt.Errorf("import %s: task %d: %w", location, task.ID, app.ErrNotFound)
			}
			task.Status = marker.Status
		}
		created = append(created, task)
	}
	return created, nil
}
