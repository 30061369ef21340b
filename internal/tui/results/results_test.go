package results

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"

	"github.com/joacominatel/birdq/internal/app"
	"github.com/joacominatel/birdq/internal/runner"
)

func testExecution() *app.Execution {
	return &app.Execution{
		ID: "5f0c8a9e-2a43-4c55-9d1e-0d7b3f1c2a11",
		Result: &runner.QueryResult{
			Columns: []runner.Column{
				{Name: "country", Type: runner.TypeString},
				{Name: "hits", Type: runner.TypeInteger},
			},
			Rows: []map[string]any{
				{"country": "es", "hits": int64(10)},
				{"country": nil, "hits": int64(3)},
			},
			Duration: 12 * time.Millisecond,
		},
	}
}

func TestTable(t *testing.T) {
	cols, rows := Table(testExecution())
	assert.Equal(t, []string{"country", "hits"}, cols)
	assert.Equal(t, [][]string{{"es", "10"}, {"NULL", "3"}}, rows)

	cols, rows = Table(nil)
	assert.Nil(t, cols)
	assert.Nil(t, rows)
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "NULL", FormatValue(nil))
	assert.Equal(t, "a↵b", FormatValue("a\nb"))
	assert.Equal(t, "1.5", FormatValue(1.5))
	assert.Equal(t, "2024-01-02T03:04:05Z", FormatValue(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)))
	assert.Equal(t, `\x0aff`, FormatValue([]byte{0x0a, 0xff}))
}

func TestView(t *testing.T) {
	m := New()
	m.SetSize(80, 20)
	assert.Contains(t, m.View(), "Run a query")

	m.SetExecution(testExecution())
	view := m.View()
	assert.Contains(t, view, "2 row(s)")
	assert.Contains(t, view, "5f0c8a9e")
	assert.Contains(t, view, "country")
	assert.Contains(t, view, "NULL")

	m.SetError(errors.New("Code: 62. Syntax error"))
	assert.Contains(t, m.View(), "Syntax error")
}

func TestScroll(t *testing.T) {
	m := New()
	m.SetSize(80, 20)
	m.SetExecution(testExecution())
	m.SetFocused(true)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, m.scrollY)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, 1, m.colOffset)
	assert.False(t, strings.Contains(m.renderRow(m.columns, false), "country"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab…", truncate("abcdef", 3))
	assert.Equal(t, "…", truncate("abcdef", 1))
}

func TestNumericAlignment(t *testing.T) {
	m := New()
	m.SetExecution(testExecution())

	assert.Equal(t, []bool{false, true}, m.numeric)
	assert.Equal(t, "  es      │   10", m.renderRow(m.rows[0], false))
}
