package runner

import (
	"sort"
	"time"
)

// Column types reported in a QueryResult.
const (
	TypeInteger  = "integer"
	TypeFloat    = "float"
	TypeBoolean  = "boolean"
	TypeString   = "string"
	TypeDatetime = "datetime"
	TypeDate     = "date"
)

// Column describes one output column of a query.
type Column struct {
	Name         string `json:"name"`
	FriendlyName string `json:"friendly_name"`
	Type         string `json:"type"`
}

// QueryResult holds the parsed result of a query execution.
type QueryResult struct {
	Columns  []Column         `json:"columns"`
	Rows     []map[string]any `json:"rows"`
	Duration time.Duration    `json:"-"`
}

// ColumnNames returns the column names in output order.
func (r *QueryResult) ColumnNames() []string {
	names := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		names[i] = c.Name
	}
	return names
}

// SchemaEntry describes a queryable resource.
type SchemaEntry struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Size    *int64   `json:"size,omitempty"`
}

// Schema accumulates entries keyed by resource name so that repeated
// discovery calls merge instead of duplicating.
type Schema map[string]SchemaEntry

// Put stores an entry, replacing any previous entry with the same name.
func (s Schema) Put(e SchemaEntry) {
	s[e.Name] = e
}

// Entries returns the accumulated entries sorted by name.
func (s Schema) Entries() []SchemaEntry {
	entries := make([]SchemaEntry, 0, len(s))
	for _, e := range s {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})
	return entries
}

// Size is a helper for building SchemaEntry.Size.
func Size(n int64) *int64 {
	return &n
}
