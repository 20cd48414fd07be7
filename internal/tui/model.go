package tui

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"strings"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/sahilm/fuzzy"

	"github.com/evanschultz/kanban/internal/app"
	"github.com/evanschultz/kanban/internal/board"
	"github.com/evanschultz/kanban/internal/domain"
	"github.com/evanschultz/kanban/internal/render"
)

// Service is the task store surface used by the board.
type Service interface {
	ListTasks(context.Context) ([]domain.Task, error)
	UpdateTaskStatus(context.Context, int64, domain.Status) (app.Result, error)
}

// MoveObserver receives every persisted move outcome; err is nil on success.
type MoveObserver func(effect board.Effect, err error)

// minLaneHeight keeps a lane header and one card visible on short terminals.
const minLaneHeight = 5

// inputMode represents a selectable mode.
type inputMode int

const (
	modeNone inputMode = iota
	modeFilter
)

// Model is the interactive board program.
type Model struct {
	svc Service

	ready  bool
	loaded bool
	width  int
	height int
	err    error

	status string

	help help.Model
	keys keyMap

	boardCfg    BoardConfig
	copyText    func(string) error
	observeMove MoveObserver
	markdown    *render.Markdown

	layout board.Layout
	state  board.State

	// inflight is set while a move's store write is outstanding.
	inflight *inflightMove
	queued   []tea.KeyPressMsg
	// moves counts started store writes; a load issued before the latest one is stale.
	moves         uint64
	reloadPending bool

	mode        inputMode
	filterInput textinput.Model
	filterQuery string
	showDetail  bool
	confirmQuit bool
}

// inflightMove keeps the pre-move board so a failed write can be undone.
type inflightMove struct {
	effect        board.Effect
	prevLayout    board.Layout
	prevState     board.State
	filterQueryAt string
}

// loadedMsg carries message data through update handling.
type loadedMsg struct {
	tasks []domain.Task
	err   error
	moves uint64
}

// persistedMsg reports the outcome of one move's store write.
type persistedMsg struct {
	effect board.Effect
	result app.Result
	err    error
}

// clipboardMsg reports a copy to the system clipboard.
type clipboardMsg struct {
	text string
	err  error
}

// NewModel constructs a new value for this package.
func NewModel(svc Service, opts ...Option) Model {
	h := help.New()
	h.ShowAll = false
	filterInput := textinput.New()
	filterInput.Prompt = "/ "
	filterInput.Placeholder = "fuzzy filter by id, title or description"
	filterInput.CharLimit = 120
	m := Model{
		svc:         svc,
		status:      "loading...",
		help:        h,
		keys:        newKeyMap(),
		boardCfg:    DefaultBoardConfig(),
		copyText:    systemClipboard,
		markdown:    &render.Markdown{},
		state:       board.Idle(),
		filterInput: filterInput,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	return m
}

// Init handles init.
func (m Model) Init() tea.Cmd {
	return m.loadCmd()
}

// Update updates state for the requested operation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case loadedMsg:
		if m.inflight != nil || msg.moves != m.moves {
			// The snapshot may predate a move; load again once the board is settled.
			if m.inflight != nil {
				m.reloadPending = true
				return m, nil
			}
			return m, m.loadCmd()
		}
		if msg.err != nil {
			m.err = msg.err
			m.status = "load failed"
			return m, nil
		}
		m.err = nil
		m.loaded = true
		m.layout = m.filtered(board.NewLayout(app.Project(msg.tasks)))
		m.state = board.Reconcile(m.layout, m.state)
		if m.status == "" || m.status == "loading..." || m.status == "reloading..." {
			m.status = fmt.Sprintf("%d tasks", m.layout.Len())
		}
		return m, nil

	case persistedMsg:
		return m.resolveMove(msg)

	case clipboardMsg:
		if msg.err != nil {
			m.status = "copy failed: " + msg.err.Error()
			return m, nil
		}
		m.status = "copied " + msg.text
		return m, nil

	case tea.KeyPressMsg:
		if key.Matches(msg, m.keys.forceQuit) {
			return m.quit()
		}
		if m.inflight != nil {
			m.queued = append(m.queued, msg)
			return m, nil
		}
		return m.handleKey(msg)

	default:
		if m.mode == modeFilter {
			var cmd tea.Cmd
			m.filterInput, cmd = m.filterInput.Update(msg)
			return m, cmd
		}
		return m, nil
	}
}

// handleKey dispatches one key press while no move is in flight.
func (m Model) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if m.mode == modeFilter {
		return m.handleFilterKey(msg)
	}
	if m.err != nil || !m.loaded {
		switch {
		case key.Matches(msg, m.keys.quit):
			return m.quit()
		case key.Matches(msg, m.keys.reload) && m.err != nil:
			m.status = "reloading..."
			return m, m.loadCmd()
		}
		return m, nil
	}

	confirming := m.confirmQuit
	m.confirmQuit = false
	switch {
	case key.Matches(msg, m.keys.quit):
		if m.boardCfg.ConfirmQuitWhileGrabbed && m.state.Grabbed() && !confirming {
			m.confirmQuit = true
			m.status = "task grabbed: press q again to quit"
			return m, nil
		}
		return m.quit()
	case key.Matches(msg, m.keys.focusNext):
		return m.applyEvent(board.EventFocusNext)
	case key.Matches(msg, m.keys.focusPrev):
		return m.applyEvent(board.EventFocusPrev)
	case key.Matches(msg, m.keys.grab):
		return m.applyEvent(board.EventToggleGrab)
	case key.Matches(msg, m.keys.moveLeft):
		return m.applyEvent(board.EventMoveLeft)
	case key.Matches(msg, m.keys.moveRight):
		return m.applyEvent(board.EventMoveRight)
	case key.Matches(msg, m.keys.clear):
		if m.state.Grabbed() {
			return m.applyEvent(board.EventToggleGrab)
		}
		if m.filterQuery != "" {
			m.setFilter("")
			m.status = "filter cleared"
		}
		return m, nil
	case key.Matches(msg, m.keys.filter):
		if m.state.Grabbed() {
			m.status = "drop the task before filtering"
			return m, nil
		}
		m.mode = modeFilter
		m.filterInput.SetValue(m.filterQuery)
		m.filterInput.CursorEnd()
		cmd := m.filterInput.Focus()
		return m, cmd
	case key.Matches(msg, m.keys.reload):
		m.status = "reloading..."
		return m, m.loadCmd()
	case key.Matches(msg, m.keys.copyRef):
		return m, m.copyFocusedCmd()
	case key.Matches(msg, m.keys.taskInfo):
		m.showDetail = !m.showDetail
		return m, nil
	case key.Matches(msg, m.keys.toggleHelp):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	default:
		return m, nil
	}
}

// handleFilterKey edits the live filter query.
func (m Model) handleFilterKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Code == tea.KeyEscape || msg.String() == "esc":
		m.mode = modeNone
		m.filterInput.Blur()
		m.setFilter("")
		m.status = "filter cleared"
		return m, nil
	case msg.Code == tea.KeyEnter || msg.String() == "enter":
		m.mode = modeNone
		m.filterInput.Blur()
		m.setFilter(m.filterInput.Value())
		if m.filterQuery == "" {
			m.status = "filter cleared"
		} else {
			m.status = fmt.Sprintf("filter %q: %d shown", m.filterQuery, len(m.layout.Order()))
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	m.setFilter(m.filterInput.Value())
	return m, cmd
}

// applyEvent runs one board transition and starts the store write a move requests.
func (m Model) applyEvent(event board.Event) (tea.Model, tea.Cmd) {
	next, state, effects := board.Apply(m.layout, m.state, event)
	for _, effect := range effects {
		if effect.Kind != board.EffectPersistStatus {
			continue
		}
		m.moves++
		m.inflight = &inflightMove{
			effect:        effect,
			prevLayout:    m.layout,
			prevState:     m.state,
			filterQueryAt: m.filterQuery,
		}
		m.layout = next
		m.state = state
		m.status = fmt.Sprintf("moving #%d to %s...", effect.TaskID, effect.To)
		return m, m.persistCmd(effect)
	}
	m.layout = next
	m.state = state
	return m, nil
}

// persistCmd writes one move to the store.
func (m Model) persistCmd(effect board.Effect) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		result, err := svc.UpdateTaskStatus(context.Background(), effect.TaskID, effect.To)
		return persistedMsg{effect: effect, result: result, err: err}
	}
}

// resolveMove commits or rolls back the in-flight move, then replays queued input.
func (m Model) resolveMove(msg persistedMsg) (tea.Model, tea.Cmd) {
	flight := m.inflight
	if flight == nil || flight.effect != msg.effect {
		return m, nil
	}
	m.inflight = nil

	err := msg.err
	if err == nil && !msg.result.Found() {
		err = fmt.Errorf("task %d: %w", msg.effect.TaskID, app.ErrNotFound)
	}
	if m.observeMove != nil {
		m.observeMove(msg.effect, err)
	}
	if err != nil {
		m.layout = flight.prevLayout
		if m.filterQuery != flight.filterQueryAt {
			m.layout = m.filtered(m.layout)
		}
		m.state = board.Reconcile(m.layout, flight.prevState)
		if errors.Is(err, app.ErrNotFound) {
			m.status = fmt.Sprintf("move failed: task #%d no longer exists (press r to reload)", msg.effect.TaskID)
		} else {
			m.status = fmt.Sprintf("move failed, #%d kept in %s: %v", msg.effect.TaskID, msg.effect.From, err)
		}
	} else {
		m.status = fmt.Sprintf("moved #%d to %s", msg.effect.TaskID, msg.effect.To)
	}
	next, cmd := m.drainQueue()
	m = next.(Model)
	if !m.reloadPending || m.inflight != nil {
		return m, cmd
	}
	m.reloadPending = false
	if cmd == nil {
		return m, m.loadCmd()
	}
	return m, tea.Batch(cmd, m.loadCmd())
}

// drainQueue replays queued keys until one starts another store write.
func (m Model) drainQueue() (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	for len(m.queued) > 0 && m.inflight == nil {
		next := m.queued[0]
		m.queued = m.queued[1:]
		updated, cmd := m.handleKey(next)
		m = updated.(Model)
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	if len(m.queued) == 0 {
		m.queued = nil
	}
	switch len(cmds) {
	case 0:
		return m, nil
	case 1:
		return m, cmds[0]
	default:
		return m, tea.Sequence(cmds...)
	}
}

// quit releases the ephemeral board state and exits.
func (m Model) quit() (tea.Model, tea.Cmd) {
	_, state, _ := board.Apply(m.layout, m.state, board.EventQuit)
	m.state = state
	m.mode = modeNone
	m.status = "bye"
	return m, tea.Quit
}

// setFilter applies a fuzzy filter query to the current layout.
func (m *Model) setFilter(query string) {
	m.filterQuery = strings.TrimSpace(query)
	m.layout = m.filtered(m.layout)
	m.state = board.Reconcile(m.layout, m.state)
}

// filtered hides every task that does not fuzzy-match the active query.
func (m Model) filtered(l board.Layout) board.Layout {
	if m.filterQuery == "" {
		return l.WithFilter(nil)
	}
	order := l.WithFilter(nil).Order()
	haystack := make([]string, len(order))
	for idx, pos := range order {
		haystack[idx] = filterText(pos.Task)
	}
	keep := make(map[int64]struct{}, len(order))
	for _, match := range fuzzy.Find(m.filterQuery, haystack) {
		keep[order[match.Index].Task.ID] = struct{}{}
	}
	return l.WithFilter(func(task domain.Task) bool {
		_, ok := keep[task.ID]
		return ok
	})
}

// filterText is the searchable text of one card.
func filterText(task domain.Task) string {
	text := render.CardTitle(task)
	if task.HasDescription() {
		text += " " + task.DescriptionText()
	}
	return text
}

// focusedTask returns the task under focus, if any.
func (m Model) focusedTask() (domain.Task, bool) {
	if !m.state.Focused() {
		return domain.Task{}, false
	}
	pos, ok := m.layout.Find(m.state.TaskID)
	if !ok {
		return domain.Task{}, false
	}
	return pos.Task, true
}

// copyFocusedCmd copies the focused card reference to the clipboard.
func (m Model) copyFocusedCmd() tea.Cmd {
	task, ok := m.focusedTask()
	if !ok {
		return func() tea.Msg { return clipboardMsg{err: errors.New("no task focused")} }
	}
	text := render.CardTitle(task)
	write := m.copyText
	return func() tea.Msg {
		return clipboardMsg{text: text, err: write(text)}
	}
}

// loadCmd reads every task, tagged with the number of moves started so far.
func (m Model) loadCmd() tea.Cmd {
	svc := m.svc
	moves := m.moves
	return func() tea.Msg {
		tasks, err := svc.ListTasks(context.Background())
		if err != nil {
			return loadedMsg{err: err, moves: moves}
		}
		return loadedMsg{tasks: tasks, moves: moves}
	}
}

// View handles view.
func (m Model) View() tea.View {
	if m.err != nil {
		v := tea.NewView("error: " + m.err.Error() + "\n\npress r to retry • q quit\n")
		v.AltScreen = true
		return v
	}
	if !m.ready || !m.loaded {
		v := tea.NewView("loading...")
		v.AltScreen = true
		return v
	}

	accent := lipgloss.Color("62")
	muted := lipgloss.Color("241")
	dim := lipgloss.Color("239")
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	statusStyle := lipgloss.NewStyle().Foreground(dim)

	header := titleStyle.Render("kanban") + statusStyle.Render("  ["+string(m.state.Mode)+"]")
	if m.filterQuery != "" {
		header += statusStyle.Render("  filter: " + m.filterQuery)
	}
	if m.inflight != nil {
		header += statusStyle.Render("  saving...")
	}

	boardWidth := m.width
	detail := ""
	if m.showDetail {
		detail = m.renderTaskDetails(accent, muted, dim)
		if m.width >= 100 {
			boardWidth = m.width - lipgloss.Width(detail)
		}
	}
	helpBubble := m.help
	helpBubble.SetWidth(max(0, m.width-2))
	helpLine := lipgloss.NewStyle().
		Foreground(muted).
		BorderTop(true).
		BorderForeground(dim).
		Padding(0, 1).
		Width(max(0, m.width)).
		Render(helpBubble.View(m.keys))

	laneHeight := 0
	if m.height > 0 {
		// header, spacer, status line and the filter prompt when open
		reserved := 3 + lipgloss.Height(helpLine)
		if m.mode == modeFilter {
			reserved++
		}
		laneHeight = max(minLaneHeight, m.height-reserved)
	}
	body := render.Board(m.layout, m.state, render.Options{
		Width:            boardWidth,
		Height:           laneHeight,
		ShowDescriptions: m.boardCfg.ShowDescriptions,
	})
	if detail != "" {
		if m.width >= 100 {
			body = lipgloss.JoinHorizontal(lipgloss.Top, body, detail)
		} else {
			body = lipgloss.JoinVertical(lipgloss.Left, body, detail)
		}
	}

	sections := []string{header, "", body}
	if m.mode == modeFilter {
		sections = append(sections, m.filterInput.View())
	}
	if strings.TrimSpace(m.status) != "" {
		sections = append(sections, statusStyle.Render(m.status))
	}
	content := strings.Join(sections, "\n")

	if m.height > 0 {
		contentHeight := max(0, m.height-lipgloss.Height(helpLine))
		content = render.FitLines(content, contentHeight)
	}

	v := tea.NewView(content + "\n" + helpLine)
	v.AltScreen = true
	return v
}

// renderTaskDetails renders the focused task with its markdown description.
func (m Model) renderTaskDetails(accent, muted, dim color.Color) string {
	width := 40
	lines := []string{lipgloss.NewStyle().Bold(true).Foreground(accent).Render("Task Details")}
	task, ok := m.focusedTask()
	if !ok {
		lines = append(lines, lipgloss.NewStyle().Foreground(muted).Render("no task focused"))
	} else {
		lines = append(lines,
			render.CardTitle(task),
			lipgloss.NewStyle().Foreground(muted).Render(fmt.Sprintf("status: %s  created: %s", task.Status, task.CreatedAt.Local().Format("2006-01-02 15:04"))),
			"",
		)
		if task.HasDescription() {
			lines = append(lines, m.markdown.Render(task.DescriptionText(), width-4))
		} else {
			lines = append(lines, lipgloss.NewStyle().Foreground(muted).Render("description: -"))
		}
	}
	return lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(dim).
		Padding(0, 1).
		Width(width).
		Render(strings.Join(lines, "\n"))
}
