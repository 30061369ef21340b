package config

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/joacominatel/birdq/internal/runner"
)

const keyringService = "birdq"

// Secrets stores secret connection options in the OS keyring.
type Secrets struct {
	service string
}

// NewSecrets creates a keyring-backed secret store.
func NewSecrets() *Secrets {
	return &Secrets{service: keyringService}
}

func (s *Secrets) key(conn, field string) string {
	return conn + "/" + field
}

// Get returns the stored secret, or "" when none is stored.
func (s *Secrets) Get(conn, field string) (string, error) {
	v, err := keyring.Get(s.service, s.key(conn, field))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("keyring get %s: %w", field, err)
	}
	return v, nil
}

// Set stores a secret.
func (s *Secrets) Set(conn, field, value string) error {
	if err := keyring.Set(s.service, s.key(conn, field), value); err != nil {
		return fmt.Errorf("keyring set %s: %w", field, err)
	}
	return nil
}

// Delete removes every secret of conn listed in schema.
func (s *Secrets) Delete(conn string, schema runner.ConfigurationSchema) error {
	for _, field := range schema.Secret {
		err := keyring.Delete(s.service, s.key(conn, field))
		if err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("keyring delete %s: %w", field, err)
		}
	}
	return nil
}

// Extract moves secret options out of conn into the keyring.
func (s *Secrets) Extract(conn *Connection, schema runner.ConfigurationSchema) error {
	for _, field := range schema.Secret {
		v, ok := conn.Options[field]
		if !ok {
			continue
		}
		if str := fmt.Sprint(v); str != "" {
			if err := s.Set(conn.Name, field, str); err != nil {
				return err
			}
		}
		delete(conn.Options, field)
	}
	return nil
}

// Resolve returns conn's settings with secrets filled in from the keyring.
// Options already present on the connection win.
func (s *Secrets) Resolve(conn Connection, schema runner.ConfigurationSchema) (runner.Settings, error) {
	settings := conn.Settings()
	for _, field := range schema.Secret {
		if settings.String(field, "") != "" {
			continue
		}
		v, err := s.Get(conn.Name, field)
		if err != nil {
			return nil, err
		}
		if v != "" {
			settings[field] = v
		}
	}
	return settings, nil
}
