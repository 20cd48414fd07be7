package app

import (
	"context"
	"time"

	"github.com/evanschultz/kanban/internal/domain"
)

// TaskRecord is the JSON export shape of one task.
type TaskRecord struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// ChangeEventRecord is the export shape of one activity entry.
type ChangeEventRecord struct {
	ID         int64             `json:"id"`
	TaskID     int64             `json:"task_id"`
	Operation  string            `json:"operation"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// ExportTasks returns every task in creation order as export records.
func (s *Service) ExportTasks(ctx context.Context) ([]TaskRecord, error) {
	tasks, err := s.ListTasks(ctx)
	if err != nil {
		return nil, err
	}
	return TaskRecords(tasks), nil
}

// TaskRecords maps domain tasks to export records.
func TaskRecords(tasks []domain.Task) []TaskRecord {
	out := make([]TaskRecord, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, NewTaskRecord(task))
	}
	return out
}

// NewTaskRecord maps one domain task to its export record.
func NewTaskRecord(task domain.Task) TaskRecord {
	var desc *string
	if task.Description != nil {
		value := *task.Description
		desc = &value
	}
	return TaskRecord{
		ID:          task.ID,
		Title:       task.Title,
		Description: desc,
		Status:      string(task.Status),
		CreatedAt:   task.CreatedAt.UTC(),
	}
}

// ChangeEventRecords maps activity entries to export records.
func ChangeEventRecords(events []domain.ChangeEvent) []ChangeEventRecord {
	out := make([]ChangeEventRecord, 0, len(events))
	for _, event := range events {
		out = append(out, ChangeEventRecord{
			ID:         event.ID,
			TaskID:     event.TaskID,
			Operation:  string(event.Operation),
			Metadata:   event.Metadata,
			OccurredAt: event.OccurredAt.UTC(),
		})
	}
	return out
}
