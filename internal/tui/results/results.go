package results

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/joacominatel/birdq/internal/app"
	"github.com/joacominatel/birdq/internal/runner"
	"github.com/joacominatel/birdq/internal/tui/theme"
)

const maxColWidth = 40

// Model is the query results component.
type Model struct {
	exec      *app.Execution
	columns   []string
	rows      [][]string
	err       error
	width     int
	height    int
	focused   bool
	scrollY   int
	colOffset int
	loading   bool
	colWidths []int
	numeric   []bool
}

// New creates a new results model.
func New() Model {
	return Model{}
}

// SetSize updates the component dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// SetFocused sets the focus state.
func (m *Model) SetFocused(f bool) {
	m.focused = f
}

// SetLoading sets the loading state.
func (m *Model) SetLoading(l bool) {
	m.loading = l
}

// SetExecution sets the query execution to display.
func (m *Model) SetExecution(exec *app.Execution) {
	m.exec = exec
	m.err = nil
	m.scrollY = 0
	m.colOffset = 0
	m.loading = false
	m.columns, m.rows = Table(exec)
	m.numeric = numericColumns(exec)
	m.calculateColumnWidths()
}

// numericColumns flags integer and float columns for right alignment.
func numericColumns(exec *app.Execution) []bool {
	if exec == nil || exec.Result == nil {
		return nil
	}
	flags := make([]bool, len(exec.Result.Columns))
	for i, c := range exec.Result.Columns {
		flags[i] = c.Type == runner.TypeInteger || c.Type == runner.TypeFloat
	}
	return flags
}

// SetError sets an error to display.
func (m *Model) SetError(err error) {
	m.err = err
	m.exec = nil
	m.columns, m.rows = nil, nil
	m.scrollY = 0
	m.loading = false
}

// Table flattens an execution into display strings in column order.
func Table(exec *app.Execution) ([]string, [][]string) {
	if exec == nil || exec.Result == nil {
		return nil, nil
	}
	columns := exec.Result.ColumnNames()
	rows := make([][]string, len(exec.Result.Rows))
	for i, row := range exec.Result.Rows {
		cells := make([]string, len(columns))
		for j, c := range columns {
			cells[j] = FormatValue(row[c])
		}
		rows[i] = cells
	}
	return columns, rows
}

// FormatValue renders a single cell.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return strings.ReplaceAll(val, "\n", "↵")
	case time.Time:
		return val.Format(time.RFC3339)
	case []byte:
		return fmt.Sprintf("\\x%x", val)
	default:
		return fmt.Sprint(val)
	}
}

func (m *Model) calculateColumnWidths() {
	if len(m.columns) == 0 {
		m.colWidths = nil
		return
	}

	m.colWidths = make([]int, len(m.columns))
	for i, col := range m.columns {
		m.colWidths[i] = lipgloss.Width(col)
	}
	for _, row := range m.rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > m.colWidths[i] {
				m.colWidths[i] = w
			}
		}
	}
	for i := range m.colWidths {
		m.colWidths[i] = min(max(m.colWidths[i], 1), maxColWidth)
	}
}

// Update handles messages for the results pane.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.focused {
		return m, nil
	}

	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	lastRow := max(len(m.rows)-1, 0)
	switch key.String() {
	case "up", "k":
		m.scrollY = max(m.scrollY-1, 0)
	case "down", "j":
		m.scrollY = min(m.scrollY+1, lastRow)
	case "pgup":
		m.scrollY = max(m.scrollY-m.height/2, 0)
	case "pgdown":
		m.scrollY = min(m.scrollY+m.height/2, lastRow)
	case "left", "h":
		m.colOffset = max(m.colOffset-1, 0)
	case "right", "l":
		m.colOffset = min(m.colOffset+1, max(len(m.columns)-1, 0))
	}
	return m, nil
}

// View renders the results pane.
func (m Model) View() string {
	title := theme.StylePaneTitle.Render("Results")

	switch {
	case m.loading:
		return title + "\n" + theme.StyleMuted.Render("  Running query...")
	case m.err != nil:
		return title + "\n" + theme.StyleError.Render("  Error: "+m.err.Error())
	case m.exec == nil:
		return title + "\n" + theme.StyleMuted.Render("  Run a query to see results")
	}

	stats := fmt.Sprintf("%d row(s) │ %s │ %s",
		len(m.rows),
		m.exec.Result.Duration.Round(time.Millisecond),
		shortID(m.exec.ID),
	)
	header := title + "  " + theme.StyleMuted.Render(stats)

	if len(m.columns) == 0 {
		return header + "\n" + theme.StyleSuccess.Render("  Query executed successfully")
	}

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n")
	b.WriteString(m.renderRow(m.columns, true))
	b.WriteString("\n")
	b.WriteString(m.renderSeparator())

	visibleRows := max(m.height-4, 1)
	for i := m.scrollY; i < len(m.rows) && i < m.scrollY+visibleRows; i++ {
		b.WriteString("\n")
		b.WriteString(m.renderRow(m.rows[i], false))
	}

	return b.String()
}

func (m Model) renderRow(cells []string, isHeader bool) string {
	var parts []string
	for i := m.colOffset; i < len(cells); i++ {
		width := m.colWidths[i]
		display := truncate(cells[i], width)
		if pad := width - lipgloss.Width(display); pad > 0 {
			if !isHeader && i < len(m.numeric) && m.numeric[i] {
				display = strings.Repeat(" ", pad) + display
			} else {
				display += strings.Repeat(" ", pad)
			}
		}
		if isHeader {
			display = lipgloss.NewStyle().Bold(true).Foreground(theme.ColorPrimary).Render(display)
		}
		parts = append(parts, display)
	}
	return "  " + strings.Join(parts, " │ ")
}

func (m Model) renderSeparator() string {
	var parts []string
	for i := m.colOffset; i < len(m.colWidths); i++ {
		parts = append(parts, strings.Repeat("─", m.colWidths[i]))
	}
	return "  " + lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(strings.Join(parts, "─┼─"))
}

func truncate(s string, width int) string {
	if lipgloss.Width(s) <= width {
		return s
	}
	if width <= 1 {
		return "…"
	}
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes)) >= width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "…"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
