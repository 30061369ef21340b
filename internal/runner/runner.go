package runner

import (
	"context"
	"encoding/json"
)

// Runner is the contract a query runner exposes to the host.
// Implementations must be safe for concurrent use.
type Runner interface {
	// Name returns the human-readable runner name.
	Name() string

	// Type returns the registry key of the runner.
	Type() string

	// ConfigurationSchema describes the settings the runner accepts.
	ConfigurationSchema() ConfigurationSchema

	// TestConnection reports whether the backend answers a health-check query.
	TestConnection(ctx context.Context) bool

	// SendQuery executes a statement and returns the backend payload undecoded.
	SendQuery(ctx context.Context, query string) (json.RawMessage, error)

	// RunQuery executes a statement and returns parsed results.
	RunQuery(ctx context.Context, query string) (*QueryResult, error)

	// GetTables discovers queryable resources, merging them into schema.
	GetTables(ctx context.Context, schema Schema) ([]SchemaEntry, error)

	// Close releases any resources held by the runner.
	Close() error
}

// Checker is implemented by runners that can explain why a connection test
// failed. TestConnection reports Check(ctx) == nil.
type Checker interface {
	Check(ctx context.Context) error
}

// ResultParser turns a backend JSON payload into a QueryResult.
type ResultParser interface {
	ParseResult(payload []byte) (*QueryResult, error)
}
