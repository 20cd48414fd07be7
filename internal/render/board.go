// Package render draws the three-lane board for the terminal.
package render

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"

	"github.com/evanschultz/kanban/internal/app"
	"github.com/evanschultz/kanban/internal/board"
	"github.com/evanschultz/kanban/internal/domain"
)

const (
	minColumnWidth = 18
	// columnChrome is border plus horizontal padding plus right margin.
	columnChrome = 2 + 2 + 1
)

// Options controls board rendering.
type Options struct {
	// Width is the total terminal width; zero renders columns at their minimum width.
	Width int
	// Height caps the lane height in lines; zero lets lanes grow with their content.
	Height           int
	ShowDescriptions bool
}

// Palette holds the board colors.
type Palette struct {
	Accent  string
	Muted   string
	Dim     string
	Focus   string
	Grabbed string
}

// DefaultPalette returns the stock board colors.
func DefaultPalette() Palette {
	return Palette{
		Accent:  "62",
		Muted:   "241",
		Dim:     "239",
		Focus:   "212",
		Grabbed: "237",
	}
}

// Static renders a projection with nothing focused.
func Static(p app.Projection, opts Options) string {
	return Board(board.NewLayout(p), board.Idle(), opts)
}

// Board renders every lane side by side, marking the focused or grabbed card.
func Board(l board.Layout, s board.State, opts Options) string {
	return BoardWithPalette(l, s, opts, DefaultPalette())
}

// BoardWithPalette renders the board using explicit colors.
func BoardWithPalette(l board.Layout, s board.State, opts Options, pal Palette) string {
	colWidth := ColumnWidth(opts.Width)
	views := make([]string, 0, domain.LaneCount)
	for _, lane := range domain.Lanes() {
		views = append(views, renderLane(l, s, lane, colWidth, opts, pal))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, views...)
}

// ColumnWidth returns the content width of one lane for a terminal width.
func ColumnWidth(total int) int {
	if total <= 0 {
		return minColumnWidth
	}
	return max(minColumnWidth, total/domain.LaneCount-columnChrome)
}

func renderLane(l board.Layout, s board.State, lane domain.Status, colWidth int, opts Options, pal Palette) string {
	accent := lipgloss.Color(pal.Accent)
	muted := lipgloss.Color(pal.Muted)
	dim := lipgloss.Color(pal.Dim)

	colStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(dim).
		Padding(0, 1).
		MarginRight(1).
		Width(colWidth + 4)
	if s.Focused() && s.Lane == lane {
		colStyle = colStyle.BorderForeground(accent)
	}
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(accent)
	subStyle := lipgloss.NewStyle().Foreground(muted)
	emptyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	focusStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(pal.Focus)).Bold(true)
	grabStyle := focusStyle.Background(lipgloss.Color(pal.Grabbed))

	tasks := l.VisibleLane(lane)
	header := fmt.Sprintf("%s (%d)", lane.Title(), len(tasks))
	if l.Filtered() {
		header = fmt.Sprintf("%s (%d/%d)", lane.Title(), len(tasks), len(l.Lane(lane)))
	}
	lines := []string{titleStyle.Render(header), ""}

	if len(tasks) == 0 {
		lines = append(lines, emptyStyle.Render("(empty)"))
	}
	for idx, task := range tasks {
		focused := s.Focused() && s.TaskID == task.ID
		prefix := "  "
		switch {
		case focused && s.Grabbed():
			prefix = "▶ "
		case focused:
			prefix = "│ "
		}
		title := prefix + ansi.Truncate(CardTitle(task), max(1, colWidth-2), "…")
		switch {
		case focused && s.Grabbed():
			title = grabStyle.Render(title)
		case focused:
			title = focusStyle.Render(title)
		}
		lines = append(lines, title)
		if opts.ShowDescriptions && task.HasDescription() {
			desc := strings.Join(strings.Fields(task.DescriptionText()), " ")
			lines = append(lines, "  "+subStyle.Render(ansi.Truncate(desc, max(1, colWidth-2), "…")))
		}
		if idx < len(tasks)-1 {
			lines = append(lines, "")
		}
	}

	content := strings.Join(lines, "\n")
	if opts.Height > 0 {
		content = FitLines(content, max(1, opts.Height-2))
	}
	return colStyle.Render(content)
}

// CardTitle is the one-line card label for a task.
func CardTitle(task domain.Task) string {
	return fmt.Sprintf("#%d %s", task.ID, task.Title)
}

// FitLines pads or clips content to exactly maxLines lines.
func FitLines(content string, maxLines int) string {
	if maxLines <= 0 {
		return ""
	}
	lines := strings.Split(content, "\n")
	switch {
	case len(lines) > maxLines:
		if maxLines == 1 {
			lines = []string{"…"}
		} else {
			lines = append(lines[:maxLines-1], "…")
		}
	case len(lines) < maxLines:
		lines = append(lines, make([]string, maxLines-len(lines))...)
	}
	return strings.Join(lines, "\n")
}
