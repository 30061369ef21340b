// Package clickhouse parses ClickHouse "FORMAT JSON" payloads into runner results.
package clickhouse

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/joacominatel/birdq/internal/runner"
)

var wrapperType = regexp.MustCompile(`^(?:nullable|lowcardinality)\((.*)\)$`)

type payload struct {
	Meta   []metaColumn     `json:"meta"`
	Data   []map[string]any `json:"data"`
	Totals map[string]any   `json:"totals"`
}

type metaColumn struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Parser implements runner.ResultParser for ClickHouse-compatible backends.
type Parser struct{}

// NewParser creates a ClickHouse result parser.
func NewParser() Parser {
	return Parser{}
}

// ParseResult decodes a FORMAT JSON payload.
func (Parser) ParseResult(data []byte) (*runner.QueryResult, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var p payload
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	if p.Meta == nil {
		return nil, fmt.Errorf("decode result: missing meta")
	}

	columns := make([]runner.Column, len(p.Meta))
	for i, m := range p.Meta {
		columns[i] = runner.Column{
			Name:         m.Name,
			FriendlyName: m.Name,
			Type:         ColumnType(m.Type),
		}
	}

	rows := make([]map[string]any, 0, len(p.Data)+1)
	for _, row := range p.Data {
		rows = append(rows, convertRow(columns, row))
	}

	if p.Totals != nil {
		totals := convertRow(columns, p.Totals)
		for i, c := range columns {
			if is64Bit(p.Meta[i].Type) {
				continue
			}
			if c.Type == runner.TypeString {
				totals[c.Name] = "Total"
			} else {
				totals[c.Name] = nil
			}
		}
		rows = append(rows, totals)
	}

	return &runner.QueryResult{Columns: columns, Rows: rows}, nil
}

// ColumnType maps a ClickHouse type name to a result column type.
func ColumnType(chType string) string {
	t := baseType(chType)
	switch {
	case strings.HasPrefix(t, "int"), strings.HasPrefix(t, "uint"):
		return runner.TypeInteger
	case strings.HasPrefix(t, "float"), strings.HasPrefix(t, "decimal"):
		return runner.TypeFloat
	case strings.HasPrefix(t, "datetime"):
		return runner.TypeDatetime
	case strings.HasPrefix(t, "date"):
		return runner.TypeDate
	case t == "bool", t == "boolean":
		return runner.TypeBoolean
	default:
		return runner.TypeString
	}
}

func baseType(chType string) string {
	t := strings.ToLower(strings.TrimSpace(chType))
	for {
		m := wrapperType.FindStringSubmatch(t)
		if m == nil {
			return t
		}
		t = m[1]
	}
}

// 64-bit and wider integers are quoted by ClickHouse JSON output.
func is64Bit(chType string) bool {
	switch baseType(chType) {
	case "int64", "uint64", "int128", "uint128", "int256", "uint256":
		return true
	}
	return false
}

func convertRow(columns []runner.Column, row map[string]any) map[string]any {
	out := make(map[string]any, len(row))
	for k, v := range row {
		out[k] = v
	}
	for _, c := range columns {
		v, ok := out[c.Name]
		if !ok {
			continue
		}
		out[c.Name] = convertValue(c.Type, v)
	}
	return out
}

func convertValue(colType string, v any) any {
	switch colType {
	case runner.TypeInteger:
		return toInteger(v)
	case runner.TypeFloat:
		if n, ok := v.(json.Number); ok {
			if f, err := n.Float64(); err == nil {
				return f
			}
		}
		return v
	default:
		if n, ok := v.(json.Number); ok {
			if f, err := n.Float64(); err == nil {
				return f
			}
		}
		return v
	}
}

func toInteger(v any) any {
	var s string
	switch n := v.(type) {
	case nil:
		return nil
	case json.Number:
		s = n.String()
	case string:
		s = n
	default:
		return nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if u, err := strconv.ParseUint(s, 10, 64); err == nil {
		return u
	}
	return nil
}
