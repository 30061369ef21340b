// Package postgres implements a query runner for PostgreSQL.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joacominatel/birdq/internal/runner"
)

// Type is the registry key for this runner.
const Type = "pg"

// Config holds the PostgreSQL runner settings.
type Config struct {
	DSN      string
	MaxConns int32
}

// ParseConfig converts generic settings into a Config.
func ParseConfig(s runner.Settings) (Config, error) {
	cfg := Config{DSN: s.String("dsn", ""), MaxConns: 5}
	if cfg.DSN == "" {
		return Config{}, errors.New("parse config: dsn is required")
	}
	n, err := s.Float("max_conns", float64(cfg.MaxConns))
	if err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if n < 1 {
		return Config{}, fmt.Errorf("parse config: max_conns must be at least 1, got %v", n)
	}
	cfg.MaxConns = int32(n)
	return cfg, nil
}

// ConfigurationSchema returns the accepted settings.
func ConfigurationSchema() runner.ConfigurationSchema {
	return runner.ConfigurationSchema{
		Type: "object",
		Properties: map[string]runner.Property{
			"dsn":       {Type: "string", Title: "Connection String"},
			"max_conns": {Type: "number", Title: "Max Connections", Default: 5},
		},
		Order:        []string{"dsn"},
		Required:     []string{"dsn"},
		ExtraOptions: []string{"max_conns"},
		Secret:       []string{"dsn"},
	}
}

// Driver implements runner.Runner for PostgreSQL. The pool is opened on
// first use.
type Driver struct {
	cfg    Config
	logger *log.Logger

	mu   sync.Mutex
	pool *pgxpool.Pool
}

// New creates a new PostgreSQL driver.
func New(cfg Config, logger *log.Logger) *Driver {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Driver{cfg: cfg, logger: logger}
}

// Factory builds a PostgreSQL runner from generic settings.
func Factory(logger *log.Logger) runner.Factory {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return func(s runner.Settings) (runner.Runner, error) {
		cfg, err := ParseConfig(s)
		if err != nil {
			return nil, err
		}
		return New(cfg, logger.With("runner", Type)), nil
	}
}

func (d *Driver) connect(ctx context.Context) (*pgxpool.Pool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pool != nil {
		return d.pool, nil
	}

	cfg, err := pgxpool.ParseConfig(d.cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = d.cfg.MaxConns
	cfg.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	d.logger.Debug("pool opened", "database", cfg.ConnConfig.Database)
	d.pool = pool
	return pool, nil
}

// Name returns the display name.
func (d *Driver) Name() string {
	return "PostgreSQL"
}

// Type returns the registry key.
func (d *Driver) Type() string {
	return Type
}

// ConfigurationSchema returns the accepted settings.
func (d *Driver) ConfigurationSchema() runner.ConfigurationSchema {
	return ConfigurationSchema()
}

// Check pings the server.
func (d *Driver) Check(ctx context.Context) error {
	pool, err := d.connect(ctx)
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, queryPing); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// TestConnection reports whether Check succeeds.
func (d *Driver) TestConnection(ctx context.Context) bool {
	if err := d.Check(ctx); err != nil {
		d.logger.Debug("connection test failed", "err", err)
		return false
	}
	return true
}

// RunQuery runs a SQL query and returns the results.
func (d *Driver) RunQuery(ctx context.Context, query string) (*runner.QueryResult, error) {
	start := time.Now()

	pool, err := d.connect(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("execute: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]runner.Column, len(fields))
	for i, f := range fields {
		columns[i] = runner.Column{
			Name:         f.Name,
			FriendlyName: f.Name,
			Type:         columnType(f.DataTypeOID),
		}
	}

	var resultRows []map[string]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		row := make(map[string]any, len(values))
		for i, v := range values {
			row[columns[i].Name] = v
		}
		resultRows = append(resultRows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return &runner.QueryResult{
		Columns:  columns,
		Rows:     resultRows,
		Duration: time.Since(start),
	}, nil
}

// SendQuery runs query and encodes the result in the same meta/data shape
// the ClickHouse-compatible runners return.
func (d *Driver) SendQuery(ctx context.Context, query string) (json.RawMessage, error) {
	res, err := d.RunQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	return encodeResult(res)
}

// GetTables lists user tables and views with their columns and estimated row counts.
func (d *Driver) GetTables(ctx context.Context, schema runner.Schema) ([]runner.SchemaEntry, error) {
	if schema == nil {
		schema = runner.Schema{}
	}

	pool, err := d.connect(ctx)
	if err != nil {
		return nil, err
	}

	tables, err := collectNames(ctx, pool, queryListTables)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	columns, err := collectColumns(ctx, pool)
	if err != nil {
		return nil, fmt.Errorf("list columns: %w", err)
	}
	counts, err := collectRowCounts(ctx, pool)
	if err != nil {
		return nil, fmt.Errorf("row counts: %w", err)
	}

	for _, name := range tables {
		entry := runner.SchemaEntry{Name: name, Columns: columns[name]}
		if n, ok := counts[name]; ok {
			entry.Size = runner.Size(n)
		}
		schema.Put(entry)
	}
	return schema.Entries(), nil
}

// Close closes the connection pool.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pool != nil {
		d.pool.Close()
		d.pool = nil
	}
	return nil
}

func collectNames(ctx context.Context, pool *pgxpool.Pool, query string) ([]string, error) {
	rows, err := pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (string, error) {
		var schema, table string
		if err := row.Scan(&schema, &table); err != nil {
			return "", fmt.Errorf("scan table: %w", err)
		}
		return qualifiedName(schema, table), nil
	})
}

func collectColumns(ctx context.Context, pool *pgxpool.Pool) (map[string][]string, error) {
	rows, err := pool.Query(ctx, queryListColumns)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns := make(map[string][]string)
	for rows.Next() {
		var schema, table, column string
		if err := rows.Scan(&schema, &table, &column); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		key := qualifiedName(schema, table)
		columns[key] = append(columns[key], column)
	}
	return columns, rows.Err()
}

func collectRowCounts(ctx context.Context, pool *pgxpool.Pool) (map[string]int64, error) {
	rows, err := pool.Query(ctx, queryTableRowCounts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var schema, table string
		var count int64
		if err := rows.Scan(&schema, &table, &count); err != nil {
			return nil, fmt.Errorf("scan row count: %w", err)
		}
		counts[qualifiedName(schema, table)] = count
	}
	return counts, rows.Err()
}

// Tables in the public schema are listed unqualified.
func qualifiedName(schema, table string) string {
	if schema == "public" {
		return table
	}
	return schema + "." + table
}

var _ runner.Runner = (*Driver)(nil)
