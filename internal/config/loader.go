package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	configDir  = ".birdq"
	configFile = "config"
	configType = "yaml"
	envPrefix  = "BIRDQ"
)

// Loader reads and writes the configuration file in a directory.
type Loader struct {
	dir string
	v   *viper.Viper
}

// NewLoader creates a loader for dir. An empty dir means ~/.birdq.
func NewLoader(dir string) (*Loader, error) {
	if dir == "" {
		d, err := DefaultDir()
		if err != nil {
			return nil, fmt.Errorf("config dir: %w", err)
		}
		dir = d
	}

	v := viper.New()
	v.SetConfigName(configFile)
	v.SetConfigType(configType)
	v.AddConfigPath(dir)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("preferences.theme", "default")
	v.SetDefault("preferences.log_level", "info")

	return &Loader{dir: dir, v: v}, nil
}

// Dir returns the directory the loader works in.
func (l *Loader) Dir() string {
	return l.dir
}

// Path returns the configuration file path.
func (l *Loader) Path() string {
	return filepath.Join(l.dir, configFile+"."+configType)
}

// Load reads the configuration. A missing file yields an empty config.
func (l *Loader) Load() (*Config, error) {
	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration file.
func (l *Loader) Save(cfg *Config) error {
	if err := os.MkdirAll(l.dir, 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	l.v.Set("connections", cfg.Connections)
	l.v.Set("preferences", cfg.Preferences)

	if err := l.v.WriteConfigAs(l.Path()); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// DefaultDir returns ~/.birdq.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configDir), nil
}
