package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/joacominatel/birdq/internal/runner"
)

// Config represents the application configuration.
type Config struct {
	Connections []Connection `mapstructure:"connections" yaml:"connections"`
	Preferences Preferences  `mapstructure:"preferences" yaml:"preferences"`
}

// Connection represents a saved runner profile. Secret options are kept
// in the OS keyring and are absent from Options once saved.
type Connection struct {
	Name    string         `mapstructure:"name" yaml:"name"`
	Type    string         `mapstructure:"type" yaml:"type"`
	Options map[string]any `mapstructure:"options" yaml:"options,omitempty"`
}

// Preferences holds user preferences.
type Preferences struct {
	Theme             string `mapstructure:"theme" yaml:"theme"`
	DefaultConnection string `mapstructure:"default_connection" yaml:"default_connection"`
	LogLevel          string `mapstructure:"log_level" yaml:"log_level"`
}

// Settings returns the connection options as runner settings.
func (c Connection) Settings() runner.Settings {
	s := make(runner.Settings, len(c.Options))
	for k, v := range c.Options {
		s[k] = v
	}
	return s
}

// DisplayString returns a human-readable summary of the connection.
func (c Connection) DisplayString() string {
	if u, ok := c.Options["url"]; ok && u != "" {
		return fmt.Sprintf("%s %v", c.Type, u)
	}
	return c.Type
}

// Validate checks that the connection can be handed to the registry.
func (c Connection) Validate(reg *runner.Registry) error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("connection name is required")
	}
	if _, ok := reg.Schema(c.Type); !ok {
		return fmt.Errorf("connection %s: unknown type %q (known: %s)", c.Name, c.Type, strings.Join(reg.Kinds(), ", "))
	}
	return nil
}

// HasConnection checks if a connection with the given name already exists.
func (cfg *Config) HasConnection(name string) bool {
	return cfg.FindConnection(name) != nil
}

// FindConnection returns the named connection, or nil.
func (cfg *Config) FindConnection(name string) *Connection {
	for i := range cfg.Connections {
		if cfg.Connections[i].Name == name {
			return &cfg.Connections[i]
		}
	}
	return nil
}

// AddConnection appends a connection if it doesn't already exist.
func (cfg *Config) AddConnection(conn Connection) bool {
	if cfg.HasConnection(conn.Name) {
		return false
	}
	cfg.Connections = append(cfg.Connections, conn)
	return true
}

// RemoveConnection deletes the named connection and clears it as default.
func (cfg *Config) RemoveConnection(name string) bool {
	for i := range cfg.Connections {
		if cfg.Connections[i].Name != name {
			continue
		}
		cfg.Connections = append(cfg.Connections[:i], cfg.Connections[i+1:]...)
		if cfg.Preferences.DefaultConnection == name {
			cfg.Preferences.DefaultConnection = ""
		}
		return true
	}
	return false
}

// ConnectionNames returns the saved connection names, sorted.
func (cfg *Config) ConnectionNames() []string {
	names := make([]string, len(cfg.Connections))
	for i, c := range cfg.Connections {
		names[i] = c.Name
	}
	sort.Strings(names)
	return names
}

// DefaultConnection returns the default connection from config, or the first one.
func DefaultConnection(cfg *Config) *Connection {
	if len(cfg.Connections) == 0 {
		return nil
	}

	if cfg.Preferences.DefaultConnection != "" {
		if c := cfg.FindConnection(cfg.Preferences.DefaultConnection); c != nil {
			return c
		}
	}

	return &cfg.Connections[0]
}
