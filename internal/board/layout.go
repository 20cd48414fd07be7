package board

import (
	"github.com/evanschultz/kanban/internal/app"
	"github.com/evanschultz/kanban/internal/domain"
)

// Position locates one task card on the board.
type Position struct {
	Lane  domain.Status
	Index int
	Task  domain.Task
}

// Layout is the in-memory lane membership the board renders and mutates.
// Values are copy-on-write: moves never alias the lanes of the source layout.
type Layout struct {
	lanes  [domain.LaneCount][]domain.Task
	hidden map[int64]struct{}
}

// NewLayout builds a layout from a store projection.
func NewLayout(p app.Projection) Layout {
	var l Layout
	for idx, lane := range p.Lanes() {
		l.lanes[idx] = append([]domain.Task(nil), lane...)
	}
	return l
}

// Lane returns the tasks currently shown in one lane, hidden ones included.
func (l Layout) Lane(status domain.Status) []domain.Task {
	idx := status.Index()
	if idx < 0 {
		return nil
	}
	return l.lanes[idx]
}

// VisibleLane returns the tasks of one lane that pass the active filter.
func (l Layout) VisibleLane(status domain.Status) []domain.Task {
	lane := l.Lane(status)
	if len(l.hidden) == 0 {
		return lane
	}
	out := make([]domain.Task, 0, len(lane))
	for _, task := range lane {
		if l.Visible(task.ID) {
			out = append(out, task)
		}
	}
	return out
}

// Len returns the number of tasks on the board.
func (l Layout) Len() int {
	total := 0
	for _, lane := range l.lanes {
		total += len(lane)
	}
	return total
}

// Visible reports whether a task passes the active filter.
func (l Layout) Visible(id int64) bool {
	_, hidden := l.hidden[id]
	return !hidden
}

// WithFilter returns a layout that hides every task the predicate rejects.
// A nil predicate clears the filter.
func (l Layout) WithFilter(keep func(domain.Task) bool) Layout {
	out := l
	out.hidden = nil
	if keep == nil {
		return out
	}
	for _, lane := range l.lanes {
		for _, task := range lane {
			if keep(task) {
				continue
			}
			if out.hidden == nil {
				out.hidden = map[int64]struct{}{}
			}
			out.hidden[task.ID] = struct{}{}
		}
	}
	return out
}

// Filtered reports whether any task is hidden.
func (l Layout) Filtered() bool {
	return len(l.hidden) > 0
}

// Order returns visible tasks in visual order: each lane top to bottom, lanes left to right.
func (l Layout) Order() []Position {
	out := make([]Position, 0, l.Len())
	for laneIdx, lane := range l.lanes {
		status, _ := domain.LaneAt(laneIdx)
		for idx, task := range lane {
			if !l.Visible(task.ID) {
				continue
			}
			out = append(out, Position{Lane: status, Index: idx, Task: task})
		}
	}
	return out
}

// Find locates a task by id.
func (l Layout) Find(id int64) (Position, bool) {
	for laneIdx, lane := range l.lanes {
		for idx, task := range lane {
			if task.ID == id {
				status, _ := domain.LaneAt(laneIdx)
				return Position{Lane: status, Index: idx, Task: task}, true
			}
		}
	}
	return Position{}, false
}

// relocate detaches the task at pos and appends it to the end of the target lane.
func (l Layout) relocate(pos Position, target domain.Status) Layout {
	from := pos.Lane.Index()
	to := target.Index()
	out := l

	source := l.lanes[from]
	detached := make([]domain.Task, 0, len(source)-1)
	detached = append(detached, source[:pos.Index]...)
	detached = append(detached, source[pos.Index+1:]...)
	out.lanes[from] = detached

	task := pos.Task
	task.Status = target
	dest := make([]domain.Task, 0, len(l.lanes[to])+1)
	dest = append(dest, l.lanes[to]...)
	out.lanes[to] = append(dest, task)
	return out
}
