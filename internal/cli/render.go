package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"github.com/joacominatel/birdq/internal/app"
	"github.com/joacominatel/birdq/internal/config"
	"github.com/joacominatel/birdq/internal/runner"
	"github.com/joacominatel/birdq/internal/tui/results"
	"github.com/joacominatel/birdq/internal/tui/theme"
)

const maxColumnsListed = 6

func newTable(headers ...string) *table.Table {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorPrimary).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(theme.ColorBorder)).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type executionOutput struct {
	ID        string           `json:"id"`
	Columns   []runner.Column  `json:"columns"`
	Rows      []map[string]any `json:"rows"`
	ElapsedMS int64            `json:"elapsed_ms"`
}

func writeExecutionJSON(w io.Writer, exec *app.Execution) error {
	out := executionOutput{ID: exec.ID, Rows: []map[string]any{}}
	if exec.Result != nil {
		out.Columns = exec.Result.Columns
		if exec.Result.Rows != nil {
			out.Rows = exec.Result.Rows
		}
		out.ElapsedMS = exec.Result.Duration.Milliseconds()
	}
	return writeJSON(w, out)
}

func writeExecution(w io.Writer, exec *app.Execution) error {
	cols, rows := results.Table(exec)
	if len(cols) == 0 {
		_, err := fmt.Fprintln(w, "query returned no columns")
		return err
	}

	t := newTable(cols...).Rows(rows...)
	if _, err := fmt.Fprintln(w, t.Render()); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%s row(s) in %s\n",
		humanize.Comma(int64(len(rows))), exec.Result.Duration.Round(time.Millisecond))
	return err
}

func writeEntries(w io.Writer, entries []runner.SchemaEntry) error {
	t := newTable("NAME", "ROWS", "COLUMNS")
	for _, e := range entries {
		t.Row(e.Name, sizeLabel(e.Size), columnsLabel(e.Columns))
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func writeConnections(w io.Writer, cfg *config.Config) error {
	def := config.DefaultConnection(cfg)
	t := newTable("", "NAME", "TYPE", "DETAILS")
	for _, c := range cfg.Connections {
		marker := ""
		if def != nil && def.Name == c.Name {
			marker = "*"
		}
		t.Row(marker, c.Name, c.Type, c.DisplayString())
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func sizeLabel(size *int64) string {
	if size == nil {
		return "-"
	}
	return humanize.Comma(*size)
}

func columnsLabel(cols []string) string {
	if len(cols) <= maxColumnsListed {
		return strings.Join(cols, ", ")
	}
	return fmt.Sprintf("%s, +%d more", strings.Join(cols[:maxColumnsListed], ", "), len(cols)-maxColumnsListed)
}
