// Package tui is the interactive view of the list: a text input, an Add
// button and the rendered entries. It never holds list state of its own;
// every change goes through the synchronizer and comes back as a refresh.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/Makepad-fr/tada/internal/listsync"
	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/ui"
)

// ErrMissingAnchor is returned when the view has nothing to attach to.
var ErrMissingAnchor = errors.New("tui: missing list synchronizer")

const inputCharLimit = 200

type focus int

const (
	focusInput focus = iota
	focusButton
	focusList
	focusCount
)

// changedMsg tells the program the synchronizer's list moved on,
// e.g. because a removal timer fired.
type changedMsg struct{}

// listItem adapts listsync.Item to bubbles/list.Item
type listItem struct {
	listsync.Item
}

func (i listItem) FilterValue() string { return i.Text }

// Custom delegate to control how items render (single line)
type itemDelegate struct{}

func (d itemDelegate) Height() int                               { return 1 }
func (d itemDelegate) Spacing() int                              { return 0 }
func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(listItem)
	if !ok {
		return
	}
	box := mutedStyle.Render(boxUnchecked)
	text := it.Text
	if it.Completed {
		box = successStyle.Render(boxChecked)
		text = doneStyle.Render(text)
	}
	line := box + " " + text
	if it.RemovalPending {
		line += " " + mutedStyle.Render("(removing)")
	}
	prefix := "  "
	if index == m.Index() {
		prefix = selectedStyle.Render("> ")
	}
	fmt.Fprint(w, prefix+line)
}

type keyMap struct {
	next, prev, submit, complete, reopen, add, quit key.Binding
}

var keys = keyMap{
	next:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
	prev:     key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev field")),
	submit:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "add")),
	complete: key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter/space", "done")),
	reopen:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reopen")),
	add:      key.NewBinding(key.WithKeys("a", "i"), key.WithHelp("a", "new entry")),
	quit:     key.NewBinding(key.WithKeys("q", "esc"), key.WithHelp("q", "quit")),
}

// Model implements tea.Model on top of a Synchronizer.
type Model struct {
	ctx     context.Context
	sync    *listsync.Synchronizer
	logger  *slog.Logger
	changed chan struct{}

	list  list.Model
	input textinput.Model
	focus focus
	err   string

	width, height int
}

// New builds the view and subscribes it to s.
func New(ctx context.Context, s *listsync.Synchronizer, logger *slog.Logger) (Model, error) {
	if s == nil {
		return Model{}, ErrMissingAnchor
	}
	if logger == nil {
		logger = slog.Default()
	}

	l := list.New(nil, itemDelegate{}, 0, 0)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	// The filter line is drawn above the list so rows keep a fixed offset.
	l.SetShowFilter(false)
	l.FilterInput.Prompt = "/ "
	l.SetShowHelp(true)
	l.SetShowPagination(true)
	l.Styles.HelpStyle = helpStyle
	l.Styles.PaginationStyle = helpStyle
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{keys.complete, keys.reopen, keys.add, keys.next}
	}
	l.AdditionalFullHelpKeys = l.AdditionalShortHelpKeys

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "What needs doing?"
	ti.CharLimit = inputCharLimit
	ti.Focus()

	w, h := terminalSize()
	m := Model{
		ctx:     ctx,
		sync:    s,
		logger:  logger,
		changed: make(chan struct{}, 1),
		list:    l,
		input:   ti,
		focus:   focusInput,
	}
	m.resize(w, h)

	// Coalesce notifications; the program re-reads the list on wake-up.
	changed := m.changed
	s.Observe(func([]listsync.Item) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	m.refresh()
	return m, nil
}

// Run starts the program on the terminal and blocks until the user quits.
func Run(ctx context.Context, s *listsync.Synchronizer, logger *slog.Logger) error {
	m, err := New(ctx, s, logger)
	if err != nil {
		return err
	}
	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}

func (m Model) waitForChange() tea.Cmd {
	changed, done := m.changed, m.ctx.Done()
	return func() tea.Msg {
		select {
		case <-changed:
			return changedMsg{}
		case <-done:
			return nil
		}
	}
}

// Update and View implement Bubble Tea's Model
func (m Model) Init() tea.Cmd { return tea.Batch(textinput.Blink, m.waitForChange()) }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case changedMsg:
		cmd := m.refresh()
		return m, tea.Batch(cmd, m.waitForChange())

	case list.FilterMatchesMsg:
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		// While the filter is being typed every key belongs to it.
		if m.focus == focusList && m.list.SettingFilter() {
			var cmd tea.Cmd
			m.list, cmd = m.list.Update(msg)
			return m, cmd
		}
		switch {
		case key.Matches(msg, keys.next):
			m.setFocus((m.focus + 1) % focusCount)
			return m, nil
		case key.Matches(msg, keys.prev):
			m.setFocus((m.focus + focusCount - 1) % focusCount)
			return m, nil
		}
		switch m.focus {
		case focusInput:
			return m.updateInput(msg)
		case focusButton:
			return m.updateButton(msg)
		case focusList:
			return m.updateList(msg)
		}
	}

	if m.focus == focusInput {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.submit):
		return m, m.submit()
	case msg.Type == tea.KeyEsc:
		m.setFocus(focusList)
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateButton(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.quit):
		return m, tea.Quit
	case msg.Type == tea.KeyEnter || msg.String() == " ":
		return m, m.submit()
	}
	return m, nil
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyEsc && m.list.IsFiltered():
		// esc clears an applied filter before it quits
	case key.Matches(msg, keys.quit):
		return m, tea.Quit
	case key.Matches(msg, keys.complete):
		return m, m.completeAt(m.list.Index())
	case key.Matches(msg, keys.reopen):
		return m, m.reopenAt(m.list.Index())
	case key.Matches(msg, keys.add):
		m.setFocus(focusInput)
		return m, nil
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// handleMouse maps a left click onto the input, the button or a row.
func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
		return m, nil
	}
	if m.list.SettingFilter() {
		return m, nil
	}
	inputTop, inputBottom, buttonLeft, listTop := m.layout()
	switch {
	case msg.Y >= inputTop && msg.Y < inputBottom && msg.X >= buttonLeft:
		m.setFocus(focusButton)
		return m, m.submit()
	case msg.Y >= inputTop && msg.Y < inputBottom:
		m.setFocus(focusInput)
	case msg.Y >= listTop:
		row := msg.Y - listTop
		idx := m.list.Paginator.Page*m.list.Paginator.PerPage + row
		if row < m.list.Paginator.PerPage && idx < len(m.list.VisibleItems()) {
			m.setFocus(focusList)
			m.list.Select(idx)
			return m, m.completeAt(idx)
		}
	}
	return m, nil
}

// submit sends the input text to the synchronizer. Blank text is
// silently ignored, the same as the synchronizer does.
func (m *Model) submit() tea.Cmd {
	m.err = ""
	item, added, err := m.sync.Submit(m.ctx, m.input.Value())
	if err != nil {
		m.fail("save", err)
	}
	if !added {
		return nil
	}
	m.logger.Debug("entry added", "text", item.Text)
	m.input.SetValue("")
	cmd := m.refresh()
	if n := len(m.list.VisibleItems()); n > 0 {
		m.list.Select(n - 1)
	}
	return cmd
}

// completeAt and reopenAt take an index into the visible (filtered) rows.
func (m *Model) completeAt(idx int) tea.Cmd {
	it, ok := m.itemAt(idx)
	if !ok {
		return nil
	}
	m.err = ""
	if err := m.sync.Complete(m.ctx, it.ID); err != nil {
		m.fail("complete", err)
	}
	return m.refresh()
}

func (m *Model) reopenAt(idx int) tea.Cmd {
	it, ok := m.itemAt(idx)
	if !ok {
		return nil
	}
	m.err = ""
	if _, err := m.sync.Reopen(m.ctx, it.ID); err != nil {
		m.fail("reopen", err)
	}
	return m.refresh()
}

func (m *Model) fail(op string, err error) {
	m.err = op + ": " + err.Error()
	m.logger.Error(op, "error", err)
}

func (m *Model) itemAt(idx int) (listItem, bool) {
	items := m.list.VisibleItems()
	if idx < 0 || idx >= len(items) {
		return listItem{}, false
	}
	it, ok := items[idx].(listItem)
	return it, ok
}

// refresh re-reads the synchronizer's list into the list widget. An
// applied filter is re-run in place; one still being typed is re-run by
// the returned command.
func (m *Model) refresh() tea.Cmd {
	entries := m.sync.Entries()
	items := make([]list.Item, len(entries))
	for i, e := range entries {
		items[i] = listItem{e}
	}
	idx := m.list.Index()
	cmd := m.list.SetItems(items)
	if m.list.IsFiltered() {
		m.list.SetFilterText(m.list.FilterValue())
		cmd = nil
	}
	if n := len(m.list.VisibleItems()); idx >= n {
		idx = n - 1
	}
	if idx >= 0 {
		m.list.Select(idx)
	}
	return cmd
}

func (m *Model) setFocus(f focus) {
	m.focus = f
	if f == focusInput {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
}

func (m *Model) resize(w, h int) {
	m.width, m.height = w, h
	m.input.Width = max(10, w-lipgloss.Width(m.buttonView())-12)
	_, _, _, listTop := m.layout()
	m.list.SetSize(max(10, w-4), max(3, h-listTop-2))
}

func (m Model) entries() []model.Entry {
	items := m.list.Items()
	out := make([]model.Entry, 0, len(items))
	for _, it := range items {
		if li, ok := it.(listItem); ok {
			out = append(out, li.Entry)
		}
	}
	return out
}

func (m Model) header() string {
	entries := m.entries()
	dn, pn := model.Stats(entries)
	return fmt.Sprintf("%s   %s %d  %s %d  %s %d",
		titleStyle.Render("Todos"),
		successStyle.Render("✔"), dn,
		pendingStyle.Render("•"), pn,
		accentStyle.Render("Total"), len(entries),
	)
}

func (m Model) inputView() string {
	style := frameStyle
	if m.focus == focusInput {
		style = focusedFrameStyle
	}
	return style.Render(m.input.View())
}

func (m Model) buttonView() string {
	style := buttonStyle
	if m.focus == focusButton {
		style = focusedButtonStyle
	}
	return style.Render("Add")
}

// above is everything drawn between the outer frame and the list.
func (m Model) above() string {
	dn, _ := model.Stats(m.entries())
	row := lipgloss.JoinHorizontal(lipgloss.Top, m.inputView(), " ", m.buttonView())
	return lipgloss.JoinVertical(lipgloss.Left,
		m.header(),
		mutedStyle.Render(ui.ProgressBar(dn, len(m.list.Items()), 28)),
		"",
		row,
		m.filterView(),
	)
}

// filterView is the single line under the input: the filter prompt while
// typing, the applied filter afterwards, blank otherwise.
func (m Model) filterView() string {
	switch m.list.FilterState() {
	case list.Filtering:
		return m.list.FilterInput.View()
	case list.FilterApplied:
		return mutedStyle.Render(fmt.Sprintf("filter: %s (esc to clear)", m.list.FilterValue()))
	}
	return ""
}

// layout returns screen coordinates used for mouse hit-testing. The outer
// frame adds one row on top and two columns on the left.
func (m Model) layout() (inputTop, inputBottom, buttonLeft, listTop int) {
	const frameTop, frameLeft = 1, 2
	inputTop = frameTop + 3
	inputBottom = inputTop + lipgloss.Height(m.inputView())
	buttonLeft = frameLeft + lipgloss.Width(m.inputView()) + 1
	listTop = frameTop + lipgloss.Height(m.above())
	return
}

func (m Model) View() string {
	content := lipgloss.JoinVertical(lipgloss.Left, m.above(), m.list.View())
	if m.err != "" {
		content += "\n" + errorStyle.Render(m.err)
	}
	return frameStyle.Render(strings.TrimRight(content, "\n"))
}

func terminalSize() (int, int) {
	w, h, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 || h <= 0 {
		return 80, 24
	}
	return w, h
}
