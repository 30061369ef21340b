package editor

import (
	"strings"
	"unicode"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/joacominatel/birdq/internal/runner"
	"github.com/joacominatel/birdq/internal/tui/theme"
)

// ExecuteQueryMsg is sent when the user triggers query execution.
type ExecuteQueryMsg struct {
	Query string
}

// Keywords uppercased by Ctrl+L, ClickHouse dialect.
var sqlKeywords = toSet(`
	select from where prewhere and or not in is null like ilike between
	join inner left right full cross array global any asof on using as
	distinct group by having order limit offset with totals rollup cube
	union all asc desc nulls first last case when then else end format
	settings final sample interval exists true false
`)

func toSet(words string) map[string]bool {
	set := map[string]bool{}
	for _, w := range strings.Fields(words) {
		set[w] = true
	}
	return set
}

// completion tracks Tab cycling through candidates.
type completion struct {
	candidates []string
	index      int
}

// Model is the SQL query editor component.
type Model struct {
	input     textarea.Model
	focused   bool
	completer *Completer
	comp      *completion
	history   history
}

// New creates a new editor model.
func New() Model {
	input := textarea.New()
	input.Placeholder = "SELECT * FROM my_datasource LIMIT 10"
	input.ShowLineNumbers = false
	input.CharLimit = 0
	input.Prompt = "│ "

	plain := lipgloss.NewStyle()
	input.FocusedStyle.Base = plain
	input.FocusedStyle.CursorLine = plain
	input.BlurredStyle.Base = plain
	input.FocusedStyle.Placeholder = plain.Foreground(theme.ColorMuted)
	input.BlurredStyle.Placeholder = plain.Foreground(theme.ColorMuted)
	input.FocusedStyle.Prompt = plain.Foreground(theme.ColorPrimary)
	input.BlurredStyle.Prompt = plain.Foreground(theme.ColorBorder)

	return Model{input: input}
}

// SetSize updates the component dimensions. The title and the completion
// hint take one line each.
func (m *Model) SetSize(w, h int) {
	m.input.SetWidth(max(w-2, 1))
	m.input.SetHeight(max(h-2, 1))
}

// SetFocused sets the focus state.
func (m *Model) SetFocused(f bool) {
	m.focused = f
	if f {
		m.input.Focus()
		return
	}
	m.input.Blur()
}

// Value returns the current editor content.
func (m Model) Value() string {
	return m.input.Value()
}

// SetQuery replaces the editor content.
func (m *Model) SetQuery(query string) {
	m.input.SetValue(query)
	m.comp = nil
}

// SetSchema replaces the identifiers offered for completion.
func (m *Model) SetSchema(entries []runner.SchemaEntry) {
	m.completer = NewCompleter(entries)
}

// CompletionActive reports whether Tab is cycling completion candidates.
func (m Model) CompletionActive() bool {
	return m.comp != nil
}

// WantsTab reports whether Tab would complete rather than switch panes.
func (m Model) WantsTab() bool {
	return m.comp != nil || len(m.completer.Complete(m.input.Value())) > 0
}

// Clear empties the editor.
func (m *Model) Clear() {
	m.input.Reset()
	m.comp = nil
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

// Update handles messages for the editor.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.focused {
		return m, nil
	}

	key, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch key.String() {
	case "ctrl+e", "f5":
		m.comp = nil
		query := strings.TrimSpace(m.input.Value())
		if query == "" {
			return m, nil
		}
		m.history.push(query)
		return m, func() tea.Msg { return ExecuteQueryMsg{Query: query} }
	case "ctrl+k":
		m.Clear()
		return m, nil
	case "ctrl+l":
		m.input.SetValue(FormatKeywords(m.input.Value()))
		return m, nil
	case "ctrl+p":
		if q, ok := m.history.prev(m.input.Value()); ok {
			m.SetQuery(q)
		}
		return m, nil
	case "ctrl+n":
		if q, ok := m.history.next(); ok {
			m.SetQuery(q)
		}
		return m, nil
	case "tab":
		if m.complete() {
			return m, nil
		}
	case "esc":
		if m.comp != nil {
			m.comp = nil
			return m, nil
		}
	default:
		m.comp = nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// complete starts or advances Tab completion.
func (m *Model) complete() bool {
	if m.comp == nil {
		candidates := m.completer.Complete(m.input.Value())
		if len(candidates) == 0 {
			return false
		}
		m.comp = &completion{candidates: candidates}
	} else {
		m.comp.index = (m.comp.index + 1) % len(m.comp.candidates)
	}

	val := m.input.Value()
	m.input.SetValue(strings.TrimSuffix(val, lastWord(val)) + m.comp.candidates[m.comp.index])
	return true
}

// FormatKeywords uppercases SQL keywords outside quoted text.
func FormatKeywords(sql string) string {
	var out, word strings.Builder
	var quote rune

	flush := func() {
		w := word.String()
		if sqlKeywords[strings.ToLower(w)] {
			w = strings.ToUpper(w)
		}
		out.WriteString(w)
		word.Reset()
	}

	for _, ch := range sql {
		switch {
		case quote != 0:
			out.WriteRune(ch)
			if ch == quote {
				quote = 0
			}
		case ch == '\'' || ch == '"' || ch == '`':
			flush()
			quote = ch
			out.WriteRune(ch)
		case unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_':
			word.WriteRune(ch)
		default:
			flush()
			out.WriteRune(ch)
		}
	}
	flush()
	return out.String()
}

// View renders the editor.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(theme.StylePaneTitle.Render("Query"))
	b.WriteString("\n")
	b.WriteString(m.input.View())

	if m.comp != nil && len(m.comp.candidates) > 1 {
		items := make([]string, len(m.comp.candidates))
		for i, c := range m.comp.candidates {
			style := theme.StyleMuted
			if i == m.comp.index {
				style = theme.StyleSelected
			}
			items[i] = style.Render(c)
		}
		b.WriteString("\n " + theme.StyleMuted.Render("Tab: ") + strings.Join(items, " │ "))
	}
	return b.String()
}
