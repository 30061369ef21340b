package editor

import (
	"sort"
	"strings"

	"github.com/joacominatel/birdq/internal/runner"
)

// placeholderColumn is what Tinybird pipes report before they are probed.
const placeholderColumn = "no_schema"

// Completer suggests identifiers drawn from discovered schema entries.
type Completer struct {
	resources []string
	columns   map[string][]string
}

// NewCompleter indexes entries for completion.
func NewCompleter(entries []runner.SchemaEntry) *Completer {
	c := &Completer{columns: make(map[string][]string, len(entries))}
	for _, e := range entries {
		c.resources = append(c.resources, e.Name)
		var cols []string
		for _, col := range e.Columns {
			if col != placeholderColumn {
				cols = append(cols, col)
			}
		}
		c.columns[strings.ToLower(e.Name)] = cols
	}
	sort.Strings(c.resources)
	return c
}

// Complete returns the candidates for the identifier at the end of sql.
// After FROM or JOIN those are resource names; elsewhere they are columns
// of the resources the statement reads from. "res.col" completes columns
// of res only.
func (c *Completer) Complete(sql string) []string {
	if c == nil {
		return nil
	}
	partial := lastWord(sql)
	if partial == "" {
		return nil
	}

	if keywordBefore(sql, partial) {
		return matchPrefix(c.resources, partial, "")
	}

	if res, col, ok := strings.Cut(partial, "."); ok {
		return matchPrefix(c.columns[strings.ToLower(res)], col, res+".")
	}

	seen := map[string]bool{}
	var cols []string
	for _, res := range referencedResources(sql) {
		for _, col := range c.columns[strings.ToLower(res)] {
			if !seen[col] {
				seen[col] = true
				cols = append(cols, col)
			}
		}
	}
	sort.Strings(cols)
	return matchPrefix(cols, partial, "")
}

func keywordBefore(sql, partial string) bool {
	before := strings.Fields(strings.ToUpper(strings.TrimSuffix(sql, partial)))
	if len(before) == 0 {
		return false
	}
	prev := before[len(before)-1]
	return prev == "FROM" || prev == "JOIN"
}

// referencedResources returns the identifiers following FROM or JOIN.
func referencedResources(sql string) []string {
	fields := strings.Fields(sql)
	var out []string
	for i := 0; i+1 < len(fields); i++ {
		kw := strings.ToUpper(fields[i])
		if kw != "FROM" && kw != "JOIN" {
			continue
		}
		name := strings.TrimRight(fields[i+1], ",;()")
		if name != "" {
			out = append(out, name)
		}
	}
	return out
}

func matchPrefix(candidates []string, partial, prefix string) []string {
	lower := strings.ToLower(partial)
	var out []string
	for _, c := range candidates {
		if strings.HasPrefix(strings.ToLower(c), lower) {
			out = append(out, prefix+c)
		}
	}
	return out
}

func lastWord(s string) string {
	i := len(s)
	for i > 0 && isIdentChar(s[i-1]) {
		i--
	}
	return s[i:]
}

func isIdentChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9') || c == '_' || c == '.'
}
