package tui

import (
	"fmt"
	"strings"

	"wbs-cli/internal/docs"
	"wbs-cli/internal/engine"
	"wbs-cli/internal/mutate"
	"wbs-cli/internal/store"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	Top       key.Binding
	Bottom    key.Binding
	Pick      key.Binding
	Outdent   key.Binding
	Indent    key.Binding
	Upper     key.Binding
	Lower     key.Binding
	Cancel    key.Binding
	Toggle    key.Binding
	ToggleAll key.Binding
	Policy    key.Binding
	Reset     key.Binding
	Help      key.Binding
	Quit      key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Top:       key.NewBinding(key.WithKeys("home", "g")),
		Bottom:    key.NewBinding(key.WithKeys("end", "G")),
		Pick:      key.NewBinding(key.WithKeys(" ", "space", "enter"), key.WithHelp("space", "pick/drop")),
		Outdent:   key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/→", "level")),
		Indent:    key.NewBinding(key.WithKeys("right", "l")),
		Upper:     key.NewBinding(key.WithKeys("u"), key.WithHelp("u/d", "above/below")),
		Lower:     key.NewBinding(key.WithKeys("d")),
		Cancel:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		Toggle:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "fold")),
		ToggleAll: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "fold all")),
		Policy:    key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "policy")),
		Reset:     key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "reset")),
		Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) idleHelp() []key.Binding {
	return []key.Binding{k.Up, k.Pick, k.Toggle, k.ToggleAll, k.Policy, k.Reset, k.Help, k.Quit}
}

func (k keyMap) dragHelp() []key.Binding {
	return []key.Binding{k.Up, k.Pick, k.Outdent, k.Upper, k.Cancel, k.Policy}
}

// Model is the interactive outline. All structural changes go through the engine.
type Model struct {
	eng   *engine.Engine
	keys  keyMap
	help  help.Model
	list  list.Model
	marks *dragMarks

	width  int
	height int

	offset float64
	half   mutate.Half

	status    string
	statusErr bool
	showHelp  bool
}

func NewModel(eng *engine.Engine) Model {
	marks := &dragMarks{}
	l := list.New(nil, newOutlineItemDelegate(marks), 80, 20)
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()

	m := Model{
		eng:   eng,
		keys:  defaultKeyMap(),
		help:  help.New(),
		list:  l,
		marks: marks,
	}
	m.refresh("")
	return m
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	dragging := m.marks.active
	k := m.keys

	switch {
	case key.Matches(msg, k.Quit):
		if dragging {
			m.eng.DragCancel()
		}
		return m, tea.Quit
	case key.Matches(msg, k.Help):
		m.showHelp = !m.showHelp
		return m, nil
	case m.showHelp:
		if key.Matches(msg, k.Cancel) {
			m.showHelp = false
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, k.Up):
		m.list.CursorUp()
		m.followCursor()
	case key.Matches(msg, k.Down):
		m.list.CursorDown()
		m.followCursor()
	case key.Matches(msg, k.Top):
		m.list.Select(0)
		m.followCursor()
	case key.Matches(msg, k.Bottom):
		if n := len(m.list.Items()); n > 0 {
			m.list.Select(n - 1)
		}
		m.followCursor()
	case key.Matches(msg, k.Pick):
		if dragging {
			m.drop()
		} else {
			m.pickUp()
		}
	case key.Matches(msg, k.Cancel):
		if dragging {
			m.cancel()
		}
	case dragging && key.Matches(msg, k.Outdent):
		m.offset -= m.eng.IndentWidth()
		m.retarget()
	case dragging && key.Matches(msg, k.Indent):
		m.offset += m.eng.IndentWidth()
		m.retarget()
	case dragging && key.Matches(msg, k.Upper):
		m.half = mutate.HalfUpper
		m.retarget()
	case dragging && key.Matches(msg, k.Lower):
		m.half = mutate.HalfLower
		m.retarget()
	case key.Matches(msg, k.Policy):
		m.switchPolicy()
	case dragging:
		// Folding and reset wait until the drag ends.
	case key.Matches(msg, k.Toggle):
		id := m.cursorID()
		if m.eng.ToggleCollapse(id) {
			m.refresh(id)
			m.setStatus("")
		}
	case key.Matches(msg, k.ToggleAll):
		id := m.cursorID()
		collapsed := m.eng.FlipCollapseAll()
		m.refresh(id)
		if collapsed {
			m.setStatus("collapsed all")
		} else {
			m.setStatus("expanded all")
		}
	case key.Matches(msg, k.Reset):
		m.eng.Reset()
		m.refresh("")
		m.setStatus("reset to the initial plan")
	}
	return m, nil
}

func (m *Model) cursorID() string {
	if it, ok := m.list.SelectedItem().(rowItem); ok {
		return it.row.ID
	}
	return ""
}

// refresh reloads rows from the engine and keeps the cursor on id when it is visible.
func (m *Model) refresh(id string) {
	if id == "" {
		id = m.cursorID()
	}
	rows := m.eng.Rows()
	items := make([]list.Item, 0, len(rows))
	sel := -1
	for i, r := range rows {
		items = append(items, rowItem{row: r})
		if r.ID == id {
			sel = i
		}
	}
	cur := m.list.Index()
	m.list.SetItems(items)
	switch {
	case sel >= 0:
		m.list.Select(sel)
	case cur >= len(items) && len(items) > 0:
		m.list.Select(len(items) - 1)
	}
}

func (m *Model) pickUp() {
	id := m.cursorID()
	if !m.eng.DragStart(id) {
		m.setError("cannot pick up " + id)
		return
	}
	m.offset, m.half = 0, mutate.HalfAuto
	*m.marks = dragMarks{active: true, source: id}
	m.retarget()
}

func (m *Model) followCursor() {
	if m.marks.active {
		m.retarget()
	}
}

// retarget points the drag at the row under the cursor and previews where it lands.
func (m *Model) retarget() {
	over := m.cursorID()
	m.eng.DragOver(over, m.offset, m.half)
	m.marks.over = over

	intent, err := m.eng.Preview()
	if err != nil {
		m.marks.bad = true
		m.setError(rejectText(err))
		return
	}
	m.marks.bad = false
	m.setStatus(m.describe(intent))
}

func (m *Model) drop() {
	src := m.marks.source
	out := m.eng.DragEnd()
	*m.marks = dragMarks{}
	m.refresh(src)

	switch out.Status {
	case engine.StatusApplied:
		if !out.Changed {
			m.setStatus("no change")
			return
		}
		code := m.eng.Codes()[src]
		m.setStatus(fmt.Sprintf("moved to %s", code))
	case engine.StatusRejected:
		m.setError(string(out.Reason) + ": " + out.Message)
	default:
		m.setStatus(out.Message)
	}
}

func (m *Model) cancel() {
	m.eng.DragCancel()
	src := m.marks.source
	*m.marks = dragMarks{}
	m.refresh(src)
	m.setStatus("drag cancelled")
}

func (m *Model) switchPolicy() {
	var next mutate.Policy = mutate.SiblingOnly{}
	if _, ok := m.eng.Policy().(mutate.SiblingOnly); ok {
		next = mutate.FreeReparent{}
	}
	m.eng.SetPolicy(next)
	if m.marks.active {
		m.retarget()
		return
	}
	m.setStatus("policy: " + next.Name())
}

func (m *Model) describe(in mutate.Intent) string {
	where := "top level"
	if in.ParentID != "" {
		if row, ok := m.eng.Node(in.ParentID); ok {
			where = row.Code + " " + row.Task.Name
		}
	}
	return fmt.Sprintf("drop: %s under %s, position %d (%s)", in.Level, where, in.Index+1, m.half)
}

func rejectText(err error) string {
	if reason, ok := store.ReasonOf(err); ok {
		return "can't drop here: " + strings.ReplaceAll(string(reason), "_", " ")
	}
	return err.Error()
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.statusErr = false
}

func (m *Model) setError(s string) {
	m.status = s
	m.statusErr = true
}

func (m *Model) resize() {
	h := m.height - 5
	if h < 3 {
		h = 3
	}
	w := m.width
	if w < 20 {
		w = 20
	}
	m.list.SetSize(w, h)
	m.help.Width = w
}

func (m Model) View() string {
	title := m.eng.Title()
	if title == "" {
		title = "Work breakdown"
	}
	mode := "browse"
	if m.marks.active {
		mode = "dragging"
	}
	header := lipgloss.NewStyle().Bold(true).Render(title) + "  " +
		styleMuted().Render(fmt.Sprintf("policy=%s  rows=%d/%d  %s",
			m.eng.Policy().Name(), len(m.list.Items()), m.eng.Tree().Len(), mode))

	body := m.list.View()
	if m.showHelp {
		body = renderMarkdown(docs.MustGet("keys"), max(m.width-4, 40))
	}

	status := styleMuted().Render(m.status)
	if m.statusErr {
		status = lipgloss.NewStyle().Foreground(colorErrorFg).Render(m.status)
	}

	bindings := m.keys.idleHelp()
	if m.marks.active {
		bindings = m.keys.dragHelp()
	}
	footer := m.help.ShortHelpView(bindings)
	return strings.Join([]string{header, body, status, footer}, "\n")
}
