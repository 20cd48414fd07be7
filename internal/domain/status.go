package domain

import "strings"

// Status is the lane a task belongs to.
type Status string

const (
	StatusTodo  Status = "todo"
	StatusDoing Status = "doing"
	StatusDone  Status = "done"
)

// lanes is the fixed left-to-right board order.
var lanes = [...]Status{StatusTodo, StatusDoing, StatusDone}

// LaneCount is the number of lanes on every board.
const LaneCount = len(lanes)

// Lanes returns the lane values in board order.
func Lanes() []Status {
	out := make([]Status, len(lanes))
	copy(out, lanes[:])
	return out
}

// LaneAt returns the lane at one board index.
func LaneAt(idx int) (Status, bool) {
	if idx < 0 || idx >= len(lanes) {
		return "", false
	}
	return lanes[idx], true
}

// ParseStatus normalizes raw input into a lane value.
func ParseStatus(raw string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !status.Valid() {
		return "", &InvalidStatusError{Value: raw}
	}
	return status, nil
}

// Valid reports whether the status is one of the three lanes.
func (s Status) Valid() bool {
	return s.Index() >= 0
}

// Index returns the board position of the lane, or -1.
func (s Status) Index() int {
	for idx, lane := range lanes {
		if lane == s {
			return idx
		}
	}
	return -1
}

// Title returns the display heading for the lane.
func (s Status) Title() string {
	switch s {
	case StatusTodo:
		return "Todo"
	case StatusDoing:
		return "Doing"
	case StatusDone:
		return "Done"
	default:
		return string(s)
	}
}

func laneNames() []string {
	out := make([]string, 0, len(lanes))
	for _, lane := range lanes {
		out = append(out, string(lane))
	}
	return out
}
