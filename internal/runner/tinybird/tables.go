package tinybird

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/joacominatel/birdq/internal/runner"
)

// noSchemaColumn stands in for the columns of a pipe that was not probed.
const noSchemaColumn = "no_schema"

type datasourcesResponse struct {
	Datasources []struct {
		Name    string `json:"name"`
		Columns []struct {
			Name string `json:"name"`
		} `json:"columns"`
		Statistics *struct {
			RowCount *int64 `json:"row_count"`
		} `json:"statistics"`
	} `json:"datasources"`
}

type pipesResponse struct {
	Pipes []struct {
		Name     string `json:"name"`
		Endpoint any    `json:"endpoint"`
	} `json:"pipes"`
}

type metaResponse struct {
	Meta []struct {
		Name string `json:"name"`
	} `json:"meta"`
}

// GetTables lists datasources and published pipes, storing them in schema.
//
// Pipes get a placeholder column list unless the runner was configured to
// probe them: a pipe's output is only known by executing it, and doing so
// for every pipe can process a lot of data.
func (r *Runner) GetTables(ctx context.Context, schema runner.Schema) ([]runner.SchemaEntry, error) {
	if schema == nil {
		schema = runner.Schema{}
	}

	if err := r.loadDatasources(ctx, schema); err != nil {
		return nil, err
	}
	if err := r.loadPipes(ctx, schema); err != nil {
		return nil, err
	}

	return schema.Entries(), nil
}

func (r *Runner) loadDatasources(ctx context.Context, schema runner.Schema) error {
	raw, err := r.get(ctx, datasourcesEndpoint, nil)
	if err != nil {
		return err
	}

	var resp datasourcesResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return fmt.Errorf("decode datasources: %w", err)
	}

	for _, ds := range resp.Datasources {
		columns := make([]string, 0, len(ds.Columns))
		for _, c := range ds.Columns {
			columns = append(columns, c.Name)
		}
		entry := runner.SchemaEntry{Name: ds.Name, Columns: columns}
		if ds.Statistics != nil && ds.Statistics.RowCount != nil {
			entry.Size = runner.Size(*ds.Statistics.RowCount)
		}
		schema.Put(entry)
	}
	return nil
}

func (r *Runner) loadPipes(ctx context.Context, schema runner.Schema) error {
	raw, err := r.get(ctx, pipesEndpoint, nil)
	if err != nil {
		return err
	}

	var resp pipesResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return fmt.Errorf("decode pipes: %w", err)
	}

	for _, pipe := range resp.Pipes {
		if !truthy(pipe.Endpoint) {
			continue
		}
		schema.Put(runner.SchemaEntry{
			Name:    pipe.Name,
			Columns: r.pipeColumns(ctx, pipe.Name),
			Size:    runner.Size(0),
		})
	}
	return nil
}

func (r *Runner) pipeColumns(ctx context.Context, name string) []string {
	if !r.cfg.ProbePipes {
		return []string{noSchemaColumn}
	}

	raw, err := r.SendQuery(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT 1 FORMAT JSON", name))
	if err != nil {
		r.logger.Warn("pipe probe failed", "pipe", name, "err", err)
		return []string{noSchemaColumn}
	}

	var meta metaResponse
	if err := json.Unmarshal(raw, &meta); err != nil || len(meta.Meta) == 0 {
		return []string{noSchemaColumn}
	}

	columns := make([]string, len(meta.Meta))
	for i, m := range meta.Meta {
		columns[i] = m.Name
	}
	return columns
}

// truthy reports whether a pipe's endpoint field marks it as published.
// The API has used both booleans and endpoint ids here.
func truthy(v any) bool {
	switch e := v.(type) {
	case nil:
		return false
	case bool:
		return e
	case string:
		return e != ""
	case float64:
		return e != 0
	case map[string]any:
		return len(e) > 0
	case []any:
		return len(e) > 0
	default:
		return true
	}
}
