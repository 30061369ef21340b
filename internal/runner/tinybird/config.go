package tinybird

import (
	"fmt"
	"time"

	"github.com/joacominatel/birdq/internal/runner"
)

const (
	// DefaultURL is the public Tinybird API base.
	DefaultURL = "https://api.tinybird.co"

	// DefaultTimeout applies when no timeout is configured.
	DefaultTimeout = 30 * time.Second
)

// Config holds the Tinybird runner settings. It is read-only once the
// runner is built.
type Config struct {
	URL        string
	Token      string
	Timeout    time.Duration
	Verify     bool
	ProbePipes bool
}

// ParseConfig converts generic settings into a Config, applying defaults.
func ParseConfig(s runner.Settings) (Config, error) {
	cfg := Config{
		URL:   s.String("url", DefaultURL),
		Token: s.String("token", ""),
	}

	seconds, err := s.Float("timeout", DefaultTimeout.Seconds())
	if err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if seconds <= 0 {
		return Config{}, fmt.Errorf("parse config: timeout must be positive, got %v", seconds)
	}
	cfg.Timeout = time.Duration(seconds * float64(time.Second))

	if cfg.Verify, err = s.Bool("verify", true); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if cfg.ProbePipes, err = s.Bool("probe_pipes", false); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

// ConfigurationSchema returns the static description of accepted settings.
func ConfigurationSchema() runner.ConfigurationSchema {
	return runner.ConfigurationSchema{
		Type: "object",
		Properties: map[string]runner.Property{
			"url":   {Type: "string", Default: DefaultURL},
			"token": {Type: "string", Title: "Auth Token"},
			"timeout": {
				Type:    "number",
				Title:   "Request Timeout",
				Default: int(DefaultTimeout.Seconds()),
			},
			"verify": {
				Type:    "boolean",
				Title:   "Verify SSL certificate",
				Default: true,
			},
			"probe_pipes": {
				Type:    "boolean",
				Title:   "Probe pipe endpoints for columns (runs a LIMIT 1 query per pipe)",
				Default: false,
			},
		},
		Order:        []string{"url", "token"},
		Required:     []string{"token"},
		ExtraOptions: []string{"timeout", "verify", "probe_pipes"},
		Secret:       []string{"token"},
	}
}
