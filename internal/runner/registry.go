package runner

import (
	"fmt"
	"sort"
	"sync"
)

// Factory builds a runner from its settings.
type Factory func(settings Settings) (Runner, error)

type registration struct {
	factory Factory
	schema  ConfigurationSchema
}

// Registry maps runner types to their factories.
type Registry struct {
	mu      sync.RWMutex
	runners map[string]registration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{runners: make(map[string]registration)}
}

// RegisterFactory registers a factory for kind along with its configuration schema.
func (r *Registry) RegisterFactory(kind string, schema ConfigurationSchema, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.runners[kind]; exists {
		return fmt.Errorf("runner %s already registered", kind)
	}
	r.runners[kind] = registration{factory: factory, schema: schema}
	return nil
}

// New builds a runner of the given kind.
func (r *Registry) New(kind string, settings Settings) (Runner, error) {
	r.mu.RLock()
	reg, ok := r.runners[kind]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown runner type: %s", kind)
	}
	if err := validate(reg.schema, settings); err != nil {
		return nil, fmt.Errorf("%s: %w", kind, err)
	}
	return reg.factory(settings)
}

// Schema returns the configuration schema registered for kind.
func (r *Registry) Schema(kind string) (ConfigurationSchema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.runners[kind]
	return reg.schema, ok
}

// Kinds returns the registered runner types, sorted.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.runners))
	for k := range r.runners {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

func validate(schema ConfigurationSchema, settings Settings) error {
	for _, field := range schema.Required {
		if settings.String(field, "") == "" {
			return fmt.Errorf("missing required setting %q", field)
		}
	}
	return nil
}
