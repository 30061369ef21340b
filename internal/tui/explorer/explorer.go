package explorer

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/joacominatel/birdq/internal/runner"
	"github.com/joacominatel/birdq/internal/tui/theme"
)

// QuickQueryMsg asks the app to put a query in the editor and run it.
type QuickQueryMsg struct {
	Query string
}

// RefreshMsg asks the app to re-run schema discovery.
type RefreshMsg struct{}

type node struct {
	entry    runner.SchemaEntry
	expanded bool
}

type flatItem struct {
	node   *node
	column string // empty for resource rows
}

// Model is the resource explorer component.
type Model struct {
	title   string
	nodes   []*node
	items   []flatItem
	cursor  int
	width   int
	height  int
	focused bool
	loading bool
}

// New creates a new explorer model.
func New() Model {
	return Model{title: "Resources"}
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

// SetEntries replaces the listed resources, keeping expansion state for
// resources that are still present.
func (m *Model) SetEntries(entries []runner.SchemaEntry) {
	expanded := make(map[string]bool, len(m.nodes))
	for _, n := range m.nodes {
		expanded[n.entry.Name] = n.expanded
	}

	m.nodes = make([]*node, len(entries))
	for i, e := range entries {
		m.nodes[i] = &node{entry: e, expanded: expanded[e.Name]}
	}
	m.loading = false
	m.flatten()
}

// Selected returns the resource under the cursor.
func (m Model) Selected() (string, bool) {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return "", false
	}
	return m.items[m.cursor].node.entry.Name, true
}

func (m *Model) flatten() {
	m.items = m.items[:0]
	for _, n := range m.nodes {
		m.items = append(m.items, flatItem{node: n})
		if n.expanded {
			for _, c := range n.entry.Columns {
				m.items = append(m.items, flatItem{node: n, column: c})
			}
		}
	}
	if m.cursor >= len(m.items) {
		m.cursor = max(0, len(m.items)-1)
	}
}

// Update handles messages for the explorer.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.focused {
		return m, nil
	}

	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case "enter", "right", "l":
		m.setExpanded(true)
	case "left", "h":
		m.setExpanded(false)
	case "s":
		return m, m.quickQuery("SELECT * FROM %s LIMIT 100")
	case "d":
		return m, m.quickQuery("SELECT count() FROM %s")
	case "r":
		return m, func() tea.Msg { return RefreshMsg{} }
	}
	return m, nil
}

func (m *Model) setExpanded(expanded bool) {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return
	}
	item := m.items[m.cursor]
	if item.node.expanded == expanded {
		return
	}
	item.node.expanded = expanded
	m.flatten()

	if !expanded {
		// Keep the cursor on the collapsed resource.
		for i, it := range m.items {
			if it.node == item.node && it.column == "" {
				m.cursor = i
				break
			}
		}
	}
}

func (m Model) quickQuery(format string) tea.Cmd {
	name, ok := m.Selected()
	if !ok {
		return nil
	}
	query := fmt.Sprintf(format, name)
	return func() tea.Msg { return QuickQueryMsg{Query: query} }
}

// View renders the explorer.
func (m Model) View() string {
	title := theme.StylePaneTitle.Render(m.title)

	if m.loading {
		return title + "\n" + theme.StyleMuted.Render("  Loading...")
	}
	if len(m.nodes) == 0 {
		return title + "\n" + theme.StyleMuted.Render("  No resources")
	}

	var b strings.Builder
	b.WriteString(title)

	visible := max(m.height-2, 1)
	offset := 0
	if m.cursor >= visible {
		offset = m.cursor - visible + 1
	}

	for i := offset; i < len(m.items) && i < offset+visible; i++ {
		b.WriteString("\n")
		b.WriteString(m.renderItem(m.items[i], i == m.cursor))
	}
	return b.String()
}

func (m Model) renderItem(item flatItem, selected bool) string {
	var label string
	if item.column != "" {
		label = "    " + item.column
	} else {
		icon := "▶ "
		if item.node.expanded {
			icon = "▼ "
		}
		label = icon + item.node.entry.Name
	}
	label = clip(label, m.width-2)

	if selected {
		label = theme.StyleSelected.Render(label)
	}
	if item.column == "" {
		if size := item.node.entry.Size; size != nil && *size > 0 {
			count := humanize.Comma(*size)
			if m.width == 0 || lipgloss.Width(label)+len(count)+1 <= m.width-2 {
				label += " " + theme.StyleMuted.Render(count)
			}
		}
	}
	return label
}

func clip(s string, width int) string {
	if width < 3 || lipgloss.Width(s) <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes)) > width-2 {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + ".."
}
