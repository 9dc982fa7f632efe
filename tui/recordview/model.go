package recordview

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/grovetools/recordsync/pkg/mirror"
	"github.com/grovetools/recordsync/pkg/records"
	"github.com/grovetools/recordsync/tui/keymap"
	"github.com/grovetools/recordsync/tui/theme"
)

const (
	headerHeight = 2
	footerHeight = 1
	minColumn    = 8
)

type snapshotMsg mirror.Snapshot

type sourceClosedMsg struct{}

// Option configures a Model.
type Option func(*Model)

// WithStateFilter only shows records in state.
func WithStateFilter(state string) Option {
	return func(m *Model) { m.state = state }
}

// WithTheme overrides theme.DefaultTheme.
func WithTheme(t *theme.Theme) Option {
	return func(m *Model) { m.theme = t }
}

// WithKeyOverrides rebinds keys, see keymap.ApplyOverrides.
func WithKeyOverrides(o keymap.Overrides) Option {
	return func(m *Model) { m.keys = newKeyMap(o) }
}

// Model is a live table of one record kind, fed by mirror snapshots.
type Model struct {
	kind    records.Type
	state   string
	updates <-chan mirror.Snapshot

	keys    keyMap
	theme   *theme.Theme
	table   table.Model
	details viewport.Model
	spinner spinner.Model
	help    help.Model

	visible     []records.Record
	loading     bool
	showDetails bool
	width       int
	height      int
}

// New creates a view of kind that renders every snapshot received on updates. The program quits
// when updates is closed.
func New(kind records.Type, updates <-chan mirror.Snapshot, opts ...Option) *Model {
	m := &Model{
		kind:    kind,
		updates: updates,
		keys:    newKeyMap(nil),
		theme:   theme.DefaultTheme,
		loading: true,
	}
	for _, opt := range opts {
		opt(m)
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = m.theme.Accent
	m.spinner = s

	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(m.theme.Colors.Border).
		BorderBottom(true).
		Bold(true)
	styles.Selected = m.theme.Selected.Bold(true)

	m.table = table.New(
		table.WithColumns(m.columns(0)),
		table.WithFocused(true),
		table.WithStyles(styles),
		table.WithKeyMap(m.keys.tableKeys()),
	)
	m.details = viewport.New(0, 0)
	m.help = help.New()
	return m
}

// Init starts the spinner and the snapshot pump.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForSnapshot())
}

func (m *Model) waitForSnapshot() tea.Cmd {
	updates := m.updates
	return func() tea.Msg {
		snap, ok := <-updates
		if !ok {
			return sourceClosedMsg{}
		}
		return snapshotMsg(snap)
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.resize()
		return m, nil

	case snapshotMsg:
		m.apply(mirror.Snapshot(msg))
		return m, m.waitForSnapshot()

	case sourceClosedMsg:
		return m, tea.Quit

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			m.resize()
			return m, nil
		case key.Matches(msg, m.keys.ToggleDetails):
			m.showDetails = !m.showDetails
			m.resize()
			return m, nil
		case key.Matches(msg, m.keys.Back):
			if m.help.ShowAll {
				m.help.ShowAll = false
			} else {
				m.showDetails = false
			}
			m.resize()
			return m, nil
		}

		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		m.refreshDetails()
		return m, cmd
	}
	return m, nil
}

// apply replaces the visible rows, keeping the cursor on the same record when it is still there.
func (m *Model) apply(snap mirror.Snapshot) {
	selected := m.selectedID()

	m.loading = snap.Loading
	m.visible = FilterState(snap.Items, m.state)

	rows := make([]table.Row, 0, len(m.visible))
	for _, r := range m.visible {
		row := Row(r)
		row[1] = theme.StateIcon(row[1]) + " " + row[1]
		rows = append(rows, row)
	}
	m.table.SetRows(rows)

	cursor := m.table.Cursor()
	for i, r := range m.visible {
		if r.RecordID() == selected {
			cursor = i
			break
		}
	}
	if cursor >= len(rows) {
		cursor = len(rows) - 1
	}
	if cursor < 0 {
		cursor = 0
	}
	m.table.SetCursor(cursor)
	m.refreshDetails()
}

func (m *Model) selectedID() string {
	r, ok := m.Selected()
	if !ok {
		return ""
	}
	return r.RecordID()
}

// Selected returns the record under the cursor.
func (m *Model) Selected() (records.Record, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.visible) {
		return nil, false
	}
	return m.visible[i], true
}

func (m *Model) refreshDetails() {
	if !m.showDetails {
		return
	}
	r, ok := m.Selected()
	if !ok {
		m.details.SetContent(m.theme.Muted.Render("nothing selected"))
		return
	}
	content, err := Details(r)
	if err != nil {
		content = m.theme.Error.Render(err.Error())
	}
	m.details.SetContent(content)
	m.details.GotoTop()
}

func (m *Model) resize() {
	if m.width == 0 || m.height == 0 {
		return
	}
	m.table.SetColumns(m.columns(m.width))
	m.table.SetWidth(m.width)

	available := m.height - headerHeight - footerHeight
	if m.help.ShowAll {
		available -= len(m.keys.FullHelp())
	}
	tableHeight := available
	if m.showDetails {
		tableHeight = available / 2
		// Border plus padding of the details box.
		m.details.Width = m.width - 4
		m.details.Height = available - tableHeight - 2
	}
	if tableHeight < 3 {
		tableHeight = 3
	}
	m.table.SetHeight(tableHeight)
	m.refreshDetails()
}

// columns sizes the columns to width. CREATED keeps its natural width and the rest share what is left.
func (m *Model) columns(width int) []table.Column {
	titles := Columns(m.kind)
	cols := make([]table.Column, len(titles))
	if width == 0 {
		for i, t := range titles {
			cols[i] = table.Column{Title: t, Width: len(t)}
		}
		return cols
	}

	// Each cell is padded by one space on both sides.
	remaining := width - 2*len(titles)
	flexible := len(titles)
	if titles[len(titles)-1] == "CREATED" {
		created := len(timeLayout)
		cols[len(cols)-1] = table.Column{Title: "CREATED", Width: created}
		remaining -= created
		flexible--
	}
	share := remaining / flexible
	if share < minColumn {
		share = minColumn
	}
	for i := 0; i < flexible; i++ {
		cols[i] = table.Column{Title: titles[i], Width: share}
	}
	return cols
}

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder

	title := m.theme.Title.Render(m.kind.Kind())
	status := m.theme.Muted.Render(fmt.Sprintf("%d shown", len(m.visible)))
	if m.state != "" {
		status = m.theme.Muted.Render(fmt.Sprintf("state=%s · %d shown", m.state, len(m.visible)))
	}
	if m.loading {
		status = m.spinner.View() + " " + m.theme.Warning.Render("Loading...")
	}
	b.WriteString(title + "  " + status + "\n\n")

	b.WriteString(m.table.View())
	if !m.loading && len(m.visible) == 0 {
		b.WriteString("\n" + m.theme.Muted.Render(fmt.Sprintf("No %s yet.", m.kind.Kind())))
	}
	if m.showDetails {
		b.WriteString("\n" + m.theme.DetailsBox.Render(m.details.View()))
	}
	b.WriteString("\n" + m.help.View(m.keys))
	return b.String()
}
