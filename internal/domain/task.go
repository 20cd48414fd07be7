package domain

import (
	"strings"
	"time"
)

// Task is one durable work item on the board.
type Task struct {
	ID          int64
	Title       string
	Description *string
	Status      Status
	CreatedAt   time.Time
}

// TaskInput holds caller-supplied fields for a new task.
type TaskInput struct {
	Title       string
	Description *string
}

// NewTask validates input and returns an unsaved task in the todo lane.
func NewTask(in TaskInput, now time.Time) (Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return Task{}, &ValidationError{Field: "title", Err: ErrInvalidTitle}
	}
	return Task{
		Title:       title,
		Description: normalizeDescription(in.Description),
		Status:      StatusTodo,
		CreatedAt:   now.UTC(),
	}, nil
}

// DescriptionText returns the description or an empty string when absent.
func (t Task) DescriptionText() string {
	if t.Description == nil {
		return ""
	}
	return *t.Description
}

// HasDescription reports whether the task carries a description.
func (t Task) HasDescription() bool {
	return t.Description != nil
}

// normalizeDescription maps blank descriptions to absent.
func normalizeDescription(desc *string) *string {
	if desc == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*desc)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
