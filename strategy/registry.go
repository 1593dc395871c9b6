package strategy

import (
	"fmt"
	"sort"
	"sync"

	"github.com/kbukum/traverse/errors"
	"github.com/kbukum/traverse/traversal"
)

// Factory creates a fresh strategy instance.
type Factory func() traversal.Strategy

// Registry provides named strategy lookup for building sets from profiles.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry holds the built-in strategies.
var DefaultRegistry = NewBuiltinRegistry()

// NewBuiltinRegistry creates a registry holding the built-in strategies.
func NewBuiltinRegistry() *Registry {
	r := NewRegistry()
	r.Register(NameIdentityRemoval, func() traversal.Strategy { return NewIdentityRemoval() })
	r.Register(NameStandardVerification, func() traversal.Strategy { return NewStandardVerification() })
	r.Register(NameComputerVerification, func() traversal.Strategy { return NewComputerVerification() })
	return r
}

// Register adds a factory under name, replacing any earlier one.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Get retrieves a factory by name.
func (r *Registry) Get(name string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[name]
	return f, ok
}

// Build instantiates the named strategies into a set, in order.
func (r *Registry) Build(names ...string) (*traversal.Strategies, error) {
	ss := make([]traversal.Strategy, 0, len(names))
	for _, name := range names {
		f, ok := r.Get(name)
		if !ok {
			return nil, errors.NotFound("strategy", name)
		}
		s := f()
		if s.Name() != name {
			return nil, errors.InvalidConfig(fmt.Sprintf("factory %q built strategy %q", name, s.Name()))
		}
		ss = append(ss, s)
	}
	return traversal.NewStrategies(ss...), nil
}

// List returns sorted names of all registered strategies.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
