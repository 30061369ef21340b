package explorer

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joacominatel/birdq/internal/runner"
)

func testEntries() []runner.SchemaEntry {
	return []runner.SchemaEntry{
		{Name: "events", Columns: []string{"id", "ts"}, Size: runner.Size(1234567)},
		{Name: "top_events", Columns: []string{"no_schema"}, Size: runner.Size(0)},
	}
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestExpandCollapse(t *testing.T) {
	m := New()
	m.SetSize(40, 20)
	m.SetFocused(true)
	m.SetEntries(testEntries())
	assert.Len(t, m.items, 2)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Len(t, m.items, 4)
	assert.Contains(t, m.View(), "1,234,567")

	m, _ = m.Update(key("j"))
	m, _ = m.Update(key("j"))
	m, _ = m.Update(key("h"))
	assert.Len(t, m.items, 2)
	assert.Equal(t, 0, m.cursor)
}

func TestExpansionSurvivesRefresh(t *testing.T) {
	m := New()
	m.SetFocused(true)
	m.SetEntries(testEntries())
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	m.SetEntries(testEntries())
	assert.Len(t, m.items, 4)
}

func TestQuickQueries(t *testing.T) {
	m := New()
	m.SetFocused(true)
	m.SetEntries(testEntries())
	m, _ = m.Update(key("j"))

	_, cmd := m.Update(key("s"))
	require.NotNil(t, cmd)
	assert.Equal(t, QuickQueryMsg{Query: "SELECT * FROM top_events LIMIT 100"}, cmd())

	_, cmd = m.Update(key("d"))
	require.NotNil(t, cmd)
	assert.Equal(t, QuickQueryMsg{Query: "SELECT count() FROM top_events"}, cmd())

	_, cmd = m.Update(key("r"))
	require.NotNil(t, cmd)
	assert.Equal(t, RefreshMsg{}, cmd())
}

func TestEmpty(t *testing.T) {
	m := New()
	assert.Contains(t, m.View(), "No resources")
	_, ok := m.Selected()
	assert.False(t, ok)

	m.SetLoading(true)
	assert.Contains(t, m.View(), "Loading")
}
