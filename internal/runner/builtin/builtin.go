// Package builtin registers the runners shipped with birdq.
package builtin

import (
	"github.com/charmbracelet/log"

	"github.com/joacominatel/birdq/internal/runner"
	"github.com/joacominatel/birdq/internal/runner/postgres"
	"github.com/joacominatel/birdq/internal/runner/tinybird"
)

// Register adds every built-in runner factory to r.
func Register(r *runner.Registry, logger *log.Logger) error {
	if err := r.RegisterFactory(tinybird.Type, tinybird.ConfigurationSchema(), tinybird.Factory(logger)); err != nil {
		return err
	}
	return r.RegisterFactory(postgres.Type, postgres.ConfigurationSchema(), postgres.Factory(logger))
}

// NewRegistry returns a registry with the built-in runners registered.
func NewRegistry(logger *log.Logger) *runner.Registry {
	r := runner.NewRegistry()
	// A fresh registry cannot hold duplicates.
	_ = Register(r, logger)
	return r
}
