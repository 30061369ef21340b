package statusbar

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/joacominatel/birdq/internal/tui/theme"
)

const (
	hints     = "Ctrl+E: Run │ Tab: Pane │ r: Refresh │ ?: Help │ q: Quit"
	separator = " │ "
)

// Model is the bottom status line: connection, pane and resource count on
// the left, a message or key hints on the right.
type Model struct {
	width     int
	conn      string
	runner    string
	pane      string
	resources int
	message   string
}

// New creates a new status bar model.
func New() Model {
	return Model{pane: "explorer", resources: -1}
}

// SetWidth updates the component width.
func (m *Model) SetWidth(w int) {
	m.width = w
}

// SetConnected records the active connection. An empty name or
// connected=false shows the bar as disconnected.
func (m *Model) SetConnected(connected bool, name, runnerName string) {
	if !connected {
		name, runnerName = "", ""
		m.resources = -1
	}
	m.conn = name
	m.runner = runnerName
}

// SetActivePane updates the displayed active pane name.
func (m *Model) SetActivePane(pane string) {
	m.pane = pane
}

// SetResourceCount shows how many resources discovery returned.
func (m *Model) SetResourceCount(n int) {
	m.resources = n
}

// SetMessage sets a temporary status message. Empty restores the hints.
func (m *Model) SetMessage(msg string) {
	m.message = msg
}

// Message returns the current status message.
func (m Model) Message() string {
	return m.message
}

func (m Model) segments() []string {
	dot := lipgloss.NewStyle().Foreground(theme.ColorError).Render("●")
	conn := dot + " disconnected"
	if m.conn != "" {
		dot = lipgloss.NewStyle().Foreground(theme.ColorSuccess).Render("●")
		conn = dot + " " + m.conn
		if m.runner != "" {
			conn += theme.StyleMuted.Render(" (" + m.runner + ")")
		}
	}

	segs := []string{conn, theme.StyleMuted.Render(m.pane)}
	if m.conn != "" && m.resources >= 0 {
		segs = append(segs, theme.StyleMuted.Render(fmt.Sprintf("%d resources", m.resources)))
	}
	return segs
}

// View renders the status bar.
func (m Model) View() string {
	left := strings.Join(m.segments(), theme.StyleMuted.Render(separator))

	right := hints
	if m.message != "" {
		right = m.message
	}

	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(right)-2, 1)
	return theme.StyleStatusBar.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}
