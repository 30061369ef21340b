package tui

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/joacominatel/birdq/internal/app"
	"github.com/joacominatel/birdq/internal/config"
	"github.com/joacominatel/birdq/internal/runner"
	"github.com/joacominatel/birdq/internal/runner/tinybird"
	"github.com/joacominatel/birdq/internal/tui/editor"
	"github.com/joacominatel/birdq/internal/tui/explorer"
	"github.com/joacominatel/birdq/internal/tui/results"
	"github.com/joacominatel/birdq/internal/tui/statusbar"
	"github.com/joacominatel/birdq/internal/tui/theme"
)

// Pane identifies a focusable area.
type Pane int

const (
	PaneExplorer Pane = iota
	PaneEditor
	PaneResults
)

func (p Pane) String() string {
	switch p {
	case PaneExplorer:
		return "explorer"
	case PaneEditor:
		return "editor"
	case PaneResults:
		return "results"
	default:
		return "unknown"
	}
}

// AppMode tracks the current UI state.
type AppMode int

const (
	ModeSelectConnection AppMode = iota // saved connections list
	ModeConnect                         // new Tinybird connection form
	ModeMain                            // main TUI
)

const (
	connectTimeout = 15 * time.Second
	schemaTimeout  = 60 * time.Second
	queryTimeout   = 5 * time.Minute
)

// Custom messages for async operations.
type (
	connectedMsg struct {
		conn config.Connection
		save bool
		err  error
	}
	schemaLoadedMsg struct {
		entries []runner.SchemaEntry
		err     error
	}
	queryExecutedMsg struct {
		exec *app.Execution
		err  error
	}
	connectionSavedMsg struct {
		err error
	}
)

// Options wires the TUI to the rest of the application.
type Options struct {
	Service  *app.Service
	Config   *config.Config
	Loader   *config.Loader
	Secrets  *config.Secrets
	Registry *runner.Registry

	// Initial, when set, is connected to on start.
	Initial *config.Connection
}

// Model is the top-level bubbletea model orchestrating all components.
type Model struct {
	opts       Options
	explorer   explorer.Model
	editor     editor.Model
	results    results.Model
	statusbar  statusbar.Model
	urlInput   textinput.Model
	tokenInput textinput.Model
	activePane Pane
	mode       AppMode
	width      int
	height     int
	err        error
	showHelp   bool
	connCursor int
}

// NewModel creates the top-level model.
func NewModel(opts Options) Model {
	if opts.Config == nil {
		opts.Config = &config.Config{}
	}

	urlInput := textinput.New()
	urlInput.Placeholder = tinybird.DefaultURL
	urlInput.CharLimit = 200
	urlInput.Width = 60

	tokenInput := textinput.New()
	tokenInput.Placeholder = "p.eyJ1Ijo..."
	tokenInput.EchoMode = textinput.EchoPassword
	tokenInput.CharLimit = 1000
	tokenInput.Width = 60
	tokenInput.Focus()

	mode := ModeConnect
	if opts.Initial == nil && len(opts.Config.Connections) > 0 {
		mode = ModeSelectConnection
	}

	return Model{
		opts:       opts,
		explorer:   explorer.New(),
		editor:     editor.New(),
		results:    results.New(),
		statusbar:  statusbar.New(),
		urlInput:   urlInput,
		tokenInput: tokenInput,
		activePane: PaneExplorer,
		mode:       mode,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink}
	if m.opts.Initial != nil {
		cmds = append(cmds, m.connectCmd(*m.opts.Initial, false))
	}
	return tea.Batch(cmds...)
}

// Update handles all messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		if msg.String() == "?" && m.mode == ModeMain && m.activePane != PaneEditor {
			m.showHelp = !m.showHelp
			return m, nil
		}
		if m.showHelp {
			m.showHelp = false
			return m, nil
		}

		switch m.mode {
		case ModeSelectConnection:
			return m.updateSelectConnection(msg)
		case ModeConnect:
			return m.updateConnect(msg)
		default:
			return m.updateMain(msg)
		}

	case connectedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.statusbar.SetMessage("Connection failed")
			return m, nil
		}
		m.mode = ModeMain
		m.err = nil
		m.explorer.SetLoading(true)
		m.statusbar.SetConnected(true, msg.conn.Name, m.opts.Service.RunnerName())
		m.statusbar.SetMessage("Loading resources...")
		m.setFocus(PaneExplorer)
		m.layout()

		cmds := []tea.Cmd{m.loadSchemaCmd()}
		if msg.save {
			cmds = append(cmds, m.saveConnectionCmd(msg.conn))
		}
		return m, tea.Batch(cmds...)

	case connectionSavedMsg:
		if msg.err != nil {
			m.statusbar.SetMessage("Warning: could not save connection: " + msg.err.Error())
		}
		return m, nil

	case schemaLoadedMsg:
		m.explorer.SetLoading(false)
		if msg.err != nil {
			m.statusbar.SetMessage("Failed to load resources: " + msg.err.Error())
			return m, nil
		}
		m.explorer.SetEntries(msg.entries)
		m.editor.SetSchema(msg.entries)
		m.statusbar.SetResourceCount(len(msg.entries))
		m.statusbar.SetMessage("")
		return m, nil

	case queryExecutedMsg:
		if msg.err != nil {
			m.results.SetError(msg.err)
			m.statusbar.SetMessage("")
			return m, nil
		}
		m.results.SetExecution(msg.exec)
		m.statusbar.SetMessage("")
		return m, nil

	case explorer.QuickQueryMsg:
		m.editor.SetQuery(msg.Query)
		return m.runQuery(msg.Query)

	case explorer.RefreshMsg:
		m.statusbar.SetMessage("Refreshing resources...")
		return m, m.loadSchemaCmd()

	case editor.ExecuteQueryMsg:
		return m.runQuery(msg.Query)
	}

	if m.mode == ModeMain {
		return m.updateComponents(msg)
	}
	return m, nil
}

func (m Model) runQuery(query string) (tea.Model, tea.Cmd) {
	m.results.SetLoading(true)
	m.statusbar.SetMessage("Running query...")
	return m, m.executeQueryCmd(query)
}

func (m Model) updateSelectConnection(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	connCount := len(m.opts.Config.Connections)

	switch msg.String() {
	case "up", "k":
		if m.connCursor > 0 {
			m.connCursor--
		}
	case "down", "j":
		if m.connCursor < connCount { // last item is "New connection"
			m.connCursor++
		}
	case "enter":
		if m.connCursor < connCount {
			conn := m.opts.Config.Connections[m.connCursor]
			m.statusbar.SetMessage("Connecting to " + conn.Name + "...")
			return m, m.connectCmd(conn, false)
		}
		return m.enterConnectMode()
	case "n":
		return m.enterConnectMode()
	case "q":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) enterConnectMode() (tea.Model, tea.Cmd) {
	m.mode = ModeConnect
	m.err = nil
	m.urlInput.Blur()
	return m, m.tokenInput.Focus()
}

func (m Model) updateConnect(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		token := strings.TrimSpace(m.tokenInput.Value())
		if token == "" {
			return m, nil
		}
		conn := app.TinybirdConnection(strings.TrimSpace(m.urlInput.Value()), token)
		m.statusbar.SetMessage("Connecting...")
		return m, m.connectCmd(conn, true)
	case "tab", "shift+tab":
		if m.tokenInput.Focused() {
			m.tokenInput.Blur()
			return m, m.urlInput.Focus()
		}
		m.urlInput.Blur()
		return m, m.tokenInput.Focus()
	case "esc":
		if len(m.opts.Config.Connections) > 0 {
			m.mode = ModeSelectConnection
			return m, nil
		}
	}

	var cmd tea.Cmd
	if m.tokenInput.Focused() {
		m.tokenInput, cmd = m.tokenInput.Update(msg)
	} else {
		m.urlInput, cmd = m.urlInput.Update(msg)
	}
	return m, cmd
}

func (m Model) updateMain(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		if m.activePane != PaneEditor {
			return m, tea.Quit
		}
	case "tab":
		if m.activePane == PaneEditor && m.editor.WantsTab() {
			return m.updateComponents(msg)
		}
		m.cyclePane(1)
		return m, nil
	case "shift+tab":
		m.cyclePane(-1)
		return m, nil
	}
	return m.updateComponents(msg)
}

func (m Model) updateComponents(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.activePane {
	case PaneExplorer:
		m.explorer, cmd = m.explorer.Update(msg)
	case PaneEditor:
		m.editor, cmd = m.editor.Update(msg)
	case PaneResults:
		m.results, cmd = m.results.Update(msg)
	}
	return m, cmd
}

func (m *Model) cyclePane(step int) {
	next := (int(m.activePane) + step + 3) % 3
	m.setFocus(Pane(next))
}

func (m *Model) setFocus(pane Pane) {
	m.activePane = pane
	m.explorer.SetFocused(pane == PaneExplorer)
	m.editor.SetFocused(pane == PaneEditor)
	m.results.SetFocused(pane == PaneResults)
	m.statusbar.SetActivePane(pane.String())
}

// dimensions returns explorer width, right pane width, editor height and
// results height for the current window.
func (m Model) dimensions() (int, int, int, int) {
	explorerWidth := min(max(m.width/4, 22), 40)
	rightWidth := m.width - explorerWidth - 1

	availHeight := m.height - 1 - 2 // status bar, borders
	editorHeight := max(availHeight*35/100, 5)
	resultsHeight := availHeight - editorHeight - 2
	return explorerWidth, rightWidth, editorHeight, resultsHeight
}

func (m *Model) layout() {
	if m.width == 0 || m.height == 0 {
		return
	}
	explorerWidth, rightWidth, editorHeight, resultsHeight := m.dimensions()

	m.explorer.SetSize(explorerWidth-2, m.height-3)
	m.editor.SetSize(rightWidth-2, editorHeight)
	m.results.SetSize(rightWidth-2, resultsHeight)
	m.statusbar.SetWidth(m.width)
}

// Async commands

func (m Model) connectCmd(conn config.Connection, save bool) tea.Cmd {
	service := m.opts.Service
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		err := service.Connect(ctx, conn)
		return connectedMsg{conn: conn, save: save, err: err}
	}
}

func (m Model) saveConnectionCmd(conn config.Connection) tea.Cmd {
	opts := m.opts
	return func() tea.Msg {
		if opts.Loader == nil || opts.Config.HasConnection(conn.Name) {
			return connectionSavedMsg{}
		}
		conn.Options = maps.Clone(conn.Options)
		if opts.Secrets != nil && opts.Registry != nil {
			schema, _ := opts.Registry.Schema(conn.Type)
			if err := opts.Secrets.Extract(&conn, schema); err != nil {
				return connectionSavedMsg{err: err}
			}
		}
		if !opts.Config.AddConnection(conn) {
			return connectionSavedMsg{}
		}
		return connectionSavedMsg{err: opts.Loader.Save(opts.Config)}
	}
}

func (m Model) loadSchemaCmd() tea.Cmd {
	service := m.opts.Service
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), schemaTimeout)
		defer cancel()
		entries, err := service.LoadSchema(ctx)
		return schemaLoadedMsg{entries: entries, err: err}
	}
}

func (m Model) executeQueryCmd(query string) tea.Cmd {
	service := m.opts.Service
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
		defer cancel()
		exec, err := service.ExecuteQuery(ctx, query)
		return queryExecutedMsg{exec: exec, err: err}
	}
}

// View renders the entire application.
func (m Model) View() string {
	if m.showHelp {
		return m.viewHelp()
	}

	switch m.mode {
	case ModeSelectConnection:
		return m.viewSelectConnection()
	case ModeConnect:
		return m.viewConnect()
	default:
		return m.viewMain()
	}
}

func (m Model) banner() []string {
	title := theme.StyleTitle.Padding(1, 0).Render("birdq")
	subtitle := theme.StyleMuted.Render("Query Tinybird from the terminal.")
	return []string{"", title, subtitle, ""}
}

func (m Model) errorLine() []string {
	if m.err == nil {
		return nil
	}
	return []string{"", theme.StyleError.Render("  Error: " + m.err.Error())}
}

func (m Model) viewSelectConnection() string {
	parts := m.banner()
	parts = append(parts, theme.StyleTitle.Render("Saved Connections"))

	for i, conn := range m.opts.Config.Connections {
		label := conn.Name + " (" + conn.DisplayString() + ")"
		if i == m.connCursor {
			parts = append(parts, theme.StyleSelected.Render("> "+label))
		} else {
			parts = append(parts, "  "+label)
		}
	}

	newLabel := "  [New Tinybird Connection]"
	if m.connCursor == len(m.opts.Config.Connections) {
		newLabel = theme.StyleSelected.Render("> [New Tinybird Connection]")
	}
	parts = append(parts, "", newLabel)
	parts = append(parts, m.errorLine()...)
	parts = append(parts, "", theme.StyleMuted.Render("  ↑/↓: Navigate  Enter: Connect  n: New  q: Quit"))

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Left, parts...))
}

func (m Model) viewConnect() string {
	prompt := lipgloss.NewStyle().Foreground(theme.ColorPrimary)

	back := ""
	if len(m.opts.Config.Connections) > 0 {
		back = "Esc: Back │ "
	}

	parts := m.banner()
	parts = append(parts,
		prompt.Render("API URL:"),
		"  "+m.urlInput.View(),
		prompt.Render("Auth Token:"),
		"  "+m.tokenInput.View(),
	)
	parts = append(parts, m.errorLine()...)
	parts = append(parts, "", theme.StyleMuted.Render("  "+back+"Tab: Next field │ Enter: Connect │ Ctrl+C: Quit"))

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Left, parts...))
}

func (m Model) border(pane Pane) lipgloss.Style {
	if m.activePane == pane {
		return theme.StyleActiveBorder
	}
	return theme.StyleBorder
}

func (m Model) viewMain() string {
	explorerWidth, rightWidth, editorHeight, resultsHeight := m.dimensions()

	explorerView := m.border(PaneExplorer).
		Width(explorerWidth - 2).
		Height(m.height - 3).
		Render(m.explorer.View())

	editorView := m.border(PaneEditor).
		Width(rightWidth - 2).
		Height(editorHeight).
		Render(m.editor.View())

	resultsView := m.border(PaneResults).
		Width(rightWidth - 2).
		Height(resultsHeight).
		Render(m.results.View())

	right := lipgloss.JoinVertical(lipgloss.Left, editorView, resultsView)
	main := lipgloss.JoinHorizontal(lipgloss.Top, explorerView, right)

	return lipgloss.JoinVertical(lipgloss.Left, main, m.statusbar.View())
}

func (m Model) viewHelp() string {
	section := theme.StyleSelected
	keyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("252"))

	row := func(key, desc string) string {
		return keyStyle.Render(fmt.Sprintf("  %-14s", key)) + theme.StyleMuted.Render(desc)
	}

	help := lipgloss.JoinVertical(lipgloss.Left,
		theme.StyleTitle.Render("birdq - Keyboard Shortcuts"),
		"",
		section.Render("Global"),
		row("q / Ctrl+C", "Quit"),
		row("Tab", "Switch between panes"),
		row("Shift+Tab", "Switch panes (reverse)"),
		row("?", "Toggle this help"),
		"",
		section.Render("Resources"),
		row("↑/k  ↓/j", "Navigate"),
		row("Enter/→/l", "Show columns"),
		row("←/h", "Hide columns"),
		row("s", "SELECT * LIMIT 100"),
		row("d", "Count rows"),
		row("r", "Refresh resources"),
		"",
		section.Render("Query"),
		row("Ctrl+E / F5", "Run query"),
		row("Ctrl+K", "Clear"),
		row("Ctrl+L", "Uppercase keywords"),
		row("Ctrl+P/Ctrl+N", "Previous/next query"),
		row("Tab", "Complete resource or column"),
		"",
		section.Render("Results"),
		row("↑/k  ↓/j", "Scroll rows"),
		row("←/h  →/l", "Scroll columns"),
		row("PgUp/PgDn", "Page up/down"),
		"",
		theme.StyleMuted.Render("Press any key to close"),
	)

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, help)
}
