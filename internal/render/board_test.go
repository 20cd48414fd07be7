package render

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evanschultz/kanban/internal/app"
	"github.com/evanschultz/kanban/internal/board"
	"github.com/evanschultz/kanban/internal/domain"
)

func sampleProjection() app.Projection {
	desc := "quarterly numbers"
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return app.Project([]domain.Task{
		{ID: 1, Title: "Write report", Description: &desc, Status: domain.StatusTodo, CreatedAt: now},
		{ID: 2, Title: "Review PR", Status: domain.StatusDoing, CreatedAt: now},
	})
}

func TestStaticRendersAllLanes(t *testing.T) {
	out := ansi.Strip(Static(sampleProjection(), Options{Width: 120}))

	for _, want := range []string{"Todo (1)", "Doing (1)", "Done (0)", "#1 Write report", "#2 Review PR", "(empty)"} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "quarterly numbers")
	assert.Less(t, strings.Index(out, "Todo"), strings.Index(out, "Doing"))
	assert.Less(t, strings.Index(out, "Doing"), strings.Index(out, "Done"))
}

func TestBoardShowsDescriptionsWhenEnabled(t *testing.T) {
	out := ansi.Strip(Static(sampleProjection(), Options{Width: 120, ShowDescriptions: true}))
	assert.Contains(t, out, "quarterly numbers")
}

func TestBoardMarksFocusAndGrab(t *testing.T) {
	l := board.NewLayout(sampleProjection())

	focused := ansi.Strip(Board(l, board.State{Mode: board.ModeFocused, TaskID: 1, Lane: domain.StatusTodo}, Options{Width: 120}))
	assert.Contains(t, focused, "│ #1 Write report")

	grabbed := ansi.Strip(Board(l, board.State{Mode: board.ModeGrabbed, TaskID: 2, Lane: domain.StatusDoing}, Options{Width: 120}))
	assert.Contains(t, grabbed, "▶ #2 Review PR")
	assert.NotContains(t, grabbed, "│ #1")
}

func TestBoardFilteredHeaderCounts(t *testing.T) {
	l := board.NewLayout(sampleProjection()).WithFilter(func(task domain.Task) bool { return task.ID == 2 })
	out := ansi.Strip(Board(l, board.Idle(), Options{Width: 120}))
	assert.Contains(t, out, "Todo (0/1)")
	assert.Contains(t, out, "Doing (1/1)")
	assert.NotContains(t, out, "Write report")
}

func TestBoardClipsLanesToHeight(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	tasks := make([]domain.Task, 0, 6)
	for id := int64(1); id <= 6; id++ {
		tasks = append(tasks, domain.Task{ID: id, Title: fmt.Sprintf("task %d", id), Status: domain.StatusTodo, CreatedAt: now})
	}
	out := ansi.Strip(Static(app.Project(tasks), Options{Width: 120, Height: 8}))

	assert.Equal(t, 8, lipgloss.Height(out))
	assert.Contains(t, out, "#1 task 1")
	assert.Contains(t, out, "…")
	assert.NotContains(t, out, "#6 task 6")

	unbounded := ansi.Strip(Static(app.Project(tasks), Options{Width: 120}))
	assert.Contains(t, unbounded, "#6 task 6")
}

func TestColumnWidth(t *testing.T) {
	assert.Equal(t, minColumnWidth, ColumnWidth(0))
	assert.Equal(t, minColumnWidth, ColumnWidth(30))
	assert.Equal(t, 40-columnChrome, ColumnWidth(120))
}

func TestFitLines(t *testing.T) {
	require.Equal(t, "", FitLines("a", 0))
	assert.Equal(t, "a\nb\n…", FitLines("a\nb\nc\nd", 3))
	assert.Equal(t, "a\n\n", FitLines("a", 3))
	assert.Equal(t, "…", FitLines("a\nb", 1))
}
