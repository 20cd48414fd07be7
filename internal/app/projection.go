package app

import (
	"fmt"

	"github.com/evanschultz/kanban/internal/domain"
)

// Projection is the three-lane grouping of a task list.
type Projection struct {
	Todo  []domain.Task
	Doing []domain.Task
	Done  []domain.Task
}

// Project partitions tasks into lanes, keeping the input order within each lane.
// A status outside the lane set is a store invariant violation and panics.
func Project(tasks []domain.Task) Projection {
	out := Projection{
		Todo:  []domain.Task{},
		Doing: []domain.Task{},
		Done:  []domain.Task{},
	}
	for _, task := range tasks {
		switch task.Status {
		case domain.StatusTodo:
			out.Todo = append(out.Todo, task)
		case domain.StatusDoing:
			out.Doing = append(out.Doing, task)
		case domain.StatusDone:
			out.Done = append(out.Done, task)
		default:
			panic(fmt.Sprintf("task %d has status %q outside the lane set", task.ID, task.Status))
		}
	}
	return out
}

// Lane returns the tasks of one lane.
func (p Projection) Lane(status domain.Status) []domain.Task {
	switch status {
	case domain.StatusTodo:
		return p.Todo
	case domain.StatusDoing:
		return p.Doing
	case domain.StatusDone:
		return p.Done
	default:
		return nil
	}
}

// Lanes returns the lane slices in board order.
func (p Projection) Lanes() [domain.LaneCount][]domain.Task {
	return [domain.LaneCount][]domain.Task{p.Todo, p.Doing, p.Done}
}

// Len returns the total number of tasks across lanes.
func (p Projection) Len() int {
	return len(p.Todo) + len(p.Doing) + len(p.Done)
}
