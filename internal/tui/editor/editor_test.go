package editor

import (
	"fmt"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joacominatel/birdq/internal/runner"
)

var testEntries = []runner.SchemaEntry{
	{Name: "events", Columns: []string{"id", "country", "created_at"}},
	{Name: "events_mv", Columns: []string{"country", "hits"}},
	{Name: "top_pages", Columns: []string{"no_schema"}},
}

func TestFormatKeywords(t *testing.T) {
	got := FormatKeywords("select count() from events where name = 'from select' format json")
	assert.Equal(t, "SELECT count() FROM events WHERE name = 'from select' FORMAT json", got)

	assert.Equal(t, "SELECT `order` FROM t", FormatKeywords("select `order` from t"))
	assert.Equal(t, "", FormatKeywords(""))
}

func TestCompleteResources(t *testing.T) {
	c := NewCompleter(testEntries)

	assert.Equal(t, []string{"events", "events_mv"}, c.Complete("SELECT * FROM ev"))
	assert.Equal(t, []string{"top_pages"}, c.Complete("select * from a join to"))
	assert.Nil(t, c.Complete("SELECT * FROM "))
	assert.Nil(t, c.Complete(""))
}

func TestCompleteColumns(t *testing.T) {
	c := NewCompleter(testEntries)

	assert.Equal(t, []string{"country", "created_at"}, c.Complete("SELECT * FROM events WHERE c"))
	assert.Nil(t, c.Complete("SELECT * FROM events WHERE "), "no partial, no candidates")
	assert.Equal(t, []string{"hits"}, c.Complete("SELECT * FROM events JOIN events_mv USING country WHERE h"))
	assert.Equal(t, []string{"events_mv.country"}, c.Complete("SELECT events_mv.c"))
	assert.Nil(t, c.Complete("SELECT * FROM top_pages WHERE n"), "placeholder columns are not offered")
	assert.Nil(t, c.Complete("SELECT co"), "no resource referenced")

	var nilCompleter *Completer
	assert.Nil(t, nilCompleter.Complete("SELECT * FROM ev"))
}

func TestExecuteKey(t *testing.T) {
	m := New()
	m.SetFocused(true)
	m.SetQuery("  SELECT 1  ")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlE})
	require.NotNil(t, cmd)
	assert.Equal(t, ExecuteQueryMsg{Query: "SELECT 1"}, cmd())

	m.Clear()
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlE})
	assert.Nil(t, cmd)
}

func TestTabCompletion(t *testing.T) {
	m := New()
	m.SetFocused(true)
	m.SetSchema(testEntries)
	m.SetQuery("SELECT * FROM ev")
	assert.True(t, m.WantsTab())

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.True(t, m.CompletionActive())
	assert.Equal(t, "SELECT * FROM events", m.Value())
	assert.Contains(t, m.View(), "events_mv")

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, "SELECT * FROM events_mv", m.Value())

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.CompletionActive())

	m.SetQuery("SELECT 1")
	assert.False(t, m.WantsTab())
}

func TestHistory(t *testing.T) {
	m := New()
	m.SetFocused(true)

	for _, q := range []string{"SELECT 1", "SELECT 2", "SELECT 2"} {
		m.SetQuery(q)
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlE})
	}
	assert.Equal(t, []string{"SELECT 1", "SELECT 2"}, m.history.entries)

	m.SetQuery("SELECT 3")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlP})
	assert.Equal(t, "SELECT 2", m.Value())
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlP})
	assert.Equal(t, "SELECT 1", m.Value())
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlP})
	assert.Equal(t, "SELECT 1", m.Value())

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlN})
	assert.Equal(t, "SELECT 2", m.Value())
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlN})
	assert.Equal(t, "SELECT 3", m.Value(), "draft restored")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlN})
	assert.Equal(t, "SELECT 3", m.Value())
}

func TestHistoryCap(t *testing.T) {
	var h history
	for i := 0; i < maxHistory+10; i++ {
		h.push(fmt.Sprintf("SELECT %d", i))
	}
	assert.Len(t, h.entries, maxHistory)
	assert.Equal(t, maxHistory, h.pos)
	assert.Equal(t, "SELECT 10", h.entries[0])
}
