// Package tinybird implements a query runner backed by the Tinybird REST API.
package tinybird

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/joacominatel/birdq/internal/runner"
	"github.com/joacominatel/birdq/internal/runner/clickhouse"
)

const (
	// Type is the registry key for this runner.
	Type = "tinybird"

	testQuery = "SELECT count() FROM tinybird.pipe_stats LIMIT 1 FORMAT JSON"
)

var formatClause = regexp.MustCompile(`(?i)\bFORMAT\s+\w+\s*$`)

// Runner implements runner.Runner for Tinybird.
type Runner struct {
	cfg    Config
	client *http.Client
	parser runner.ResultParser
	logger *log.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithHTTPClient replaces the HTTP client built from the config.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Runner) {
		r.client = c
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *log.Logger) Option {
	return func(r *Runner) {
		r.logger = l
	}
}

// WithParser replaces the ClickHouse result parser.
func WithParser(p runner.ResultParser) Option {
	return func(r *Runner) {
		r.parser = p
	}
}

// New creates a Tinybird runner.
func New(cfg Config, opts ...Option) (*Runner, error) {
	if cfg.Token == "" {
		return nil, errors.New("tinybird token is required")
	}
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	cfg.URL = strings.TrimRight(cfg.URL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	r := &Runner{
		cfg:    cfg,
		parser: clickhouse.NewParser(),
		logger: log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.client == nil {
		r.client = newHTTPClient(cfg)
	}
	return r, nil
}

// Factory builds a Tinybird runner from generic settings.
func Factory(logger *log.Logger) runner.Factory {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return func(s runner.Settings) (runner.Runner, error) {
		cfg, err := ParseConfig(s)
		if err != nil {
			return nil, err
		}
		return New(cfg, WithLogger(logger.With("runner", Type)))
	}
}

func newHTTPClient(cfg Config) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !cfg.Verify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // user opted out
	}
	return &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
	}
}

// Name returns the display name.
func (r *Runner) Name() string {
	return "Tinybird"
}

// Type returns the registry key.
func (r *Runner) Type() string {
	return Type
}

// ConfigurationSchema returns the accepted settings.
func (r *Runner) ConfigurationSchema() runner.ConfigurationSchema {
	return ConfigurationSchema()
}

// Config returns the settings the runner was built with.
func (r *Runner) Config() Config {
	return r.cfg
}

// Check runs a lightweight health-check query and returns its error.
func (r *Runner) Check(ctx context.Context) error {
	_, err := r.SendQuery(ctx, testQuery)
	return err
}

// TestConnection reports whether Check succeeds. Failures are logged at debug.
func (r *Runner) TestConnection(ctx context.Context) bool {
	if err := r.Check(ctx); err != nil {
		r.logger.Debug("connection test failed", "err", err)
		return false
	}
	return true
}

// SendQuery executes query against the SQL endpoint and returns the
// decoded payload unchanged.
func (r *Runner) SendQuery(ctx context.Context, query string) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("q", strings.ToValidUTF8(query, ""))
	return r.get(ctx, sqlEndpoint, params)
}

// RunQuery executes query with JSON output and parses the result.
func (r *Runner) RunQuery(ctx context.Context, query string) (*runner.QueryResult, error) {
	start := time.Now()

	payload, err := r.SendQuery(ctx, withJSONFormat(query))
	if err != nil {
		return nil, err
	}

	result, err := r.parser.ParseResult(payload)
	if err != nil {
		return nil, err
	}
	result.Duration = time.Since(start)
	return result, nil
}

// Close releases idle connections.
func (r *Runner) Close() error {
	r.client.CloseIdleConnections()
	return nil
}

func withJSONFormat(query string) string {
	q := strings.TrimSpace(query)
	q = strings.TrimSpace(strings.TrimSuffix(q, ";"))
	if formatClause.MatchString(q) {
		return q
	}
	return q + "\nFORMAT JSON"
}

var _ runner.Runner = (*Runner)(nil)
