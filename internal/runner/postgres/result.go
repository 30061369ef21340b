package postgres

import (
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/joacominatel/birdq/internal/runner"
)

func columnType(oid uint32) string {
	switch oid {
	case pgtype.Int2OID, pgtype.Int4OID, pgtype.Int8OID:
		return runner.TypeInteger
	case pgtype.Float4OID, pgtype.Float8OID, pgtype.NumericOID:
		return runner.TypeFloat
	case pgtype.BoolOID:
		return runner.TypeBoolean
	case pgtype.DateOID:
		return runner.TypeDate
	case pgtype.TimestampOID, pgtype.TimestamptzOID:
		return runner.TypeDatetime
	default:
		return runner.TypeString
	}
}

type metaColumn struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type encodedResult struct {
	Meta []metaColumn     `json:"meta"`
	Data []map[string]any `json:"data"`
	Rows int              `json:"rows"`
}

func encodeResult(res *runner.QueryResult) (json.RawMessage, error) {
	out := encodedResult{
		Meta: make([]metaColumn, len(res.Columns)),
		Data: res.Rows,
		Rows: len(res.Rows),
	}
	if out.Data == nil {
		out.Data = []map[string]any{}
	}
	for i, c := range res.Columns {
		out.Meta[i] = metaColumn{Name: c.Name, Type: c.Type}
	}

	b, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return b, nil
}
