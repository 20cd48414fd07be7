package board

import (
	"fmt"

	"github.com/evanschultz/kanban/internal/domain"
)

// Mode is the interaction state of a board session.
type Mode string

const (
	ModeIdle    Mode = "idle"
	ModeFocused Mode = "focused"
	ModeGrabbed Mode = "grabbed"
)

// Event is one user command fed to the board.
type Event string

const (
	EventFocusNext  Event = "focus_next"
	EventFocusPrev  Event = "focus_prev"
	EventToggleGrab Event = "toggle_grab"
	EventMoveLeft   Event = "move_left"
	EventMoveRight  Event = "move_right"
	EventQuit       Event = "quit"
)

// State is the ephemeral focus/grab state. Lane is the focused task's lane membership.
type State struct {
	Mode   Mode
	TaskID int64
	Lane   domain.Status
}

// Idle returns the session start state.
func Idle() State {
	return State{Mode: ModeIdle}
}

// Focused reports whether a task has focus, grabbed or not.
func (s State) Focused() bool {
	return s.Mode == ModeFocused || s.Mode == ModeGrabbed
}

// Grabbed reports whether the focused task is grabbed.
func (s State) Grabbed() bool {
	return s.Mode == ModeGrabbed
}

// EffectKind names a side effect requested by a transition.
type EffectKind string

const (
	// EffectPersistStatus asks the caller to write To as the task's status.
	EffectPersistStatus EffectKind = "persist_status"
	// EffectRelease asks the caller to end the session.
	EffectRelease EffectKind = "release"
)

// Effect is one side effect emitted by Apply.
type Effect struct {
	Kind   EffectKind
	TaskID int64
	From   domain.Status
	To     domain.Status
}

// transitionTable defines the legal mode changes.
// Key: current mode → event → next mode. Missing entries are ignored events.
var transitionTable = map[Mode]map[Event]Mode{
	ModeIdle: {
		EventFocusNext: ModeFocused,
		EventFocusPrev: ModeFocused,
		EventQuit:      ModeIdle,
	},
	ModeFocused: {
		EventFocusNext:  ModeFocused,
		EventFocusPrev:  ModeFocused,
		EventToggleGrab: ModeGrabbed,
		EventQuit:       ModeIdle,
	},
	ModeGrabbed: {
		EventToggleGrab: ModeFocused,
		EventMoveLeft:   ModeGrabbed,
		EventMoveRight:  ModeGrabbed,
		EventQuit:       ModeIdle,
	},
}

// ApplyTransition returns the next mode for one event, or an error when the event is not legal.
func ApplyTransition(current Mode, event Event) (Mode, error) {
	events, ok := transitionTable[current]
	if !ok {
		return "", fmt.Errorf("no transitions defined for mode %q", current)
	}
	next, ok := events[event]
	if !ok {
		return "", fmt.Errorf("invalid transition: %q + %q", current, event)
	}
	return next, nil
}

// Apply is the pure board transition function. Illegal events and edge-of-board
// moves return the inputs unchanged with no effects.
func Apply(l Layout, s State, event Event) (Layout, State, []Effect) {
	s = Reconcile(l, s)
	next, err := ApplyTransition(s.Mode, event)
	if err != nil {
		return l, s, nil
	}

	switch event {
	case EventFocusNext:
		return l, focusStep(l, s, 1), nil
	case EventFocusPrev:
		return l, focusStep(l, s, -1), nil
	case EventToggleGrab:
		s.Mode = next
		return l, s, nil
	case EventMoveLeft:
		return move(l, s, -1)
	case EventMoveRight:
		return move(l, s, 1)
	case EventQuit:
		return l, Idle(), []Effect{{Kind: EffectRelease}}
	default:
		return l, s, nil
	}
}

// focusStep moves focus one visible card forward or backward in visual order.
func focusStep(l Layout, s State, delta int) State {
	order := l.Order()
	if len(order) == 0 {
		return Idle()
	}
	if s.Mode == ModeIdle {
		target := order[0]
		if delta < 0 {
			target = order[len(order)-1]
		}
		return State{Mode: ModeFocused, TaskID: target.Task.ID, Lane: target.Lane}
	}
	current := -1
	for idx, pos := range order {
		if pos.Task.ID == s.TaskID {
			current = idx
			break
		}
	}
	target := current + delta
	if current < 0 || target < 0 || target >= len(order) {
		return s
	}
	return State{Mode: ModeFocused, TaskID: order[target].Task.ID, Lane: order[target].Lane}
}

// move relocates the grabbed task one lane over and requests a status write.
func move(l Layout, s State, delta int) (Layout, State, []Effect) {
	target, ok := domain.LaneAt(s.Lane.Index() + delta)
	if !ok {
		return l, s, nil
	}
	pos, ok := l.Find(s.TaskID)
	if !ok {
		return l, Idle(), nil
	}
	moved := l.relocate(pos, target)
	effect := Effect{
		Kind:   EffectPersistStatus,
		TaskID: s.TaskID,
		From:   s.Lane,
		To:     target,
	}
	return moved, State{Mode: ModeGrabbed, TaskID: s.TaskID, Lane: target}, []Effect{effect}
}

// Reconcile re-derives focus after the layout changed underneath the state.
// A focused task that vanished or got filtered out moves focus to the nearest
// visible card; a grabbed task that vanished ends the grab.
func Reconcile(l Layout, s State) State {
	if s.Mode == ModeIdle {
		return s
	}
	pos, ok := l.Find(s.TaskID)
	if ok && (s.Mode == ModeGrabbed || l.Visible(s.TaskID)) {
		s.Lane = pos.Lane
		return s
	}
	order := l.Order()
	if len(order) == 0 {
		return Idle()
	}
	laneIdx := s.Lane.Index()
	best := order[0]
	for _, candidate := range order {
		if candidate.Lane.Index() >= laneIdx {
			best = candidate
			break
		}
		best = candidate
	}
	return State{Mode: ModeFocused, TaskID: best.Task.ID, Lane: best.Lane}
}
