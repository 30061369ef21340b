package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/joacominatel/birdq/internal/config"
	"github.com/joacominatel/birdq/internal/logging"
	"github.com/joacominatel/birdq/internal/runner"
)

// SecretResolver fills secret settings for a connection.
type SecretResolver interface {
	Resolve(conn config.Connection, schema runner.ConfigurationSchema) (runner.Settings, error)
}

// Execution is the outcome of one query run.
type Execution struct {
	ID        string
	Query     string
	StartedAt time.Time
	Result    *runner.QueryResult
}

// Service coordinates application-level operations between the UI and a runner.
type Service struct {
	registry *runner.Registry
	secrets  SecretResolver
	logger   *log.Logger

	mu     sync.RWMutex
	runner runner.Runner
	conn   config.Connection
	schema runner.Schema

	schemaMu sync.Mutex
}

// NewService creates a new application service. secrets may be nil, in
// which case connections must carry their own secret options.
func NewService(registry *runner.Registry, secrets SecretResolver, logger *log.Logger) *Service {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{registry: registry, secrets: secrets, logger: logger}
}

// Open builds the runner for conn without contacting the backend.
// A previous connection is closed on success.
func (s *Service) Open(conn config.Connection) error {
	r, err := s.build(conn)
	if err != nil {
		return err
	}
	s.install(conn, r)
	return nil
}

// Connect builds the runner for conn and verifies it answers. On failure the
// previous connection stays active.
func (s *Service) Connect(ctx context.Context, conn config.Connection) error {
	r, err := s.build(conn)
	if err != nil {
		return err
	}
	if err := check(ctx, r); err != nil {
		_ = r.Close()
		return &ErrConnection{Name: conn.Name, Cause: err}
	}
	s.install(conn, r)
	return nil
}

func (s *Service) build(conn config.Connection) (runner.Runner, error) {
	if err := conn.Validate(s.registry); err != nil {
		return nil, &ErrConfig{Cause: err}
	}

	settings := conn.Settings()
	if s.secrets != nil {
		schema, _ := s.registry.Schema(conn.Type)
		resolved, err := s.secrets.Resolve(conn, schema)
		if err != nil {
			return nil, &ErrConfig{Cause: err}
		}
		settings = resolved
	}

	r, err := s.registry.New(conn.Type, settings)
	if err != nil {
		return nil, &ErrConfig{Cause: err}
	}
	return r, nil
}

func (s *Service) install(conn config.Connection, r runner.Runner) {
	s.mu.Lock()
	prev := s.runner
	s.runner = r
	s.conn = conn
	s.schema = runner.Schema{}
	s.mu.Unlock()

	if prev != nil {
		_ = prev.Close()
	}
	s.logger.Info("connected", "connection", conn.Name, "runner", r.Name())
}

// check prefers the runner's own failure over a bare false.
func check(ctx context.Context, r runner.Runner) error {
	if c, ok := r.(runner.Checker); ok {
		return c.Check(ctx)
	}
	if !r.TestConnection(ctx) {
		return errors.New("connection test failed")
	}
	return nil
}

// Disconnect closes the active runner.
func (s *Service) Disconnect() error {
	s.mu.Lock()
	r := s.runner
	s.runner = nil
	s.schema = nil
	s.mu.Unlock()

	if r == nil {
		return nil
	}
	return r.Close()
}

// Connected reports whether a runner is active.
func (s *Service) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runner != nil
}

// ConnectionName returns the active connection name.
func (s *Service) ConnectionName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn.Name
}

// RunnerName returns the display name of the active runner.
func (s *Service) RunnerName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.runner == nil {
		return ""
	}
	return s.runner.Name()
}

func (s *Service) active() (runner.Runner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.runner == nil {
		return nil, ErrNotConnected
	}
	return s.runner, nil
}

// Ping re-runs the runner's connection test.
func (s *Service) Ping(ctx context.Context) bool {
	r, err := s.active()
	if err != nil {
		return false
	}
	return r.TestConnection(ctx)
}

// LoadSchema discovers resources. Repeated calls on the same connection
// merge into one accumulator.
func (s *Service) LoadSchema(ctx context.Context) ([]runner.SchemaEntry, error) {
	s.mu.RLock()
	r, schema := s.runner, s.schema
	s.mu.RUnlock()
	if r == nil {
		return nil, ErrNotConnected
	}

	// Each connection owns its accumulator; schemaMu only serializes writers.
	s.schemaMu.Lock()
	defer s.schemaMu.Unlock()

	start := time.Now()
	entries, err := r.GetTables(ctx, schema)
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	s.logger.Debug("schema loaded", "resources", len(entries), "duration", time.Since(start))
	return entries, nil
}

// ExecuteQuery runs a SQL query and returns the results.
func (s *Service) ExecuteQuery(ctx context.Context, query string) (*Execution, error) {
	r, err := s.active()
	if err != nil {
		return nil, err
	}

	exec := &Execution{
		ID:        uuid.NewString(),
		Query:     query,
		StartedAt: time.Now(),
	}
	logger := s.logger.With("query_id", exec.ID)
	logger.Debug("executing query")

	result, err := r.RunQuery(ctx, query)
	if err != nil {
		logger.Warn("query failed", "err", err)
		return nil, &ErrQuery{ID: exec.ID, Query: query, Cause: err}
	}
	exec.Result = result
	logger.Info("query executed", "rows", len(result.Rows), "duration", result.Duration)
	return exec, nil
}

// SendQuery runs query and returns the raw backend payload.
func (s *Service) SendQuery(ctx context.Context, query string) (json.RawMessage, error) {
	r, err := s.active()
	if err != nil {
		return nil, err
	}
	raw, err := r.SendQuery(ctx, query)
	if err != nil {
		return nil, &ErrQuery{Query: query, Cause: err}
	}
	return raw, nil
}
