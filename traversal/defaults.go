package traversal

import "sync"

// defaults caches the strategy set handed to new traversals, per graph kind.
var defaults = &defaultRegistry{sets: make(map[string]*Strategies)}

type defaultRegistry struct {
	mu   sync.RWMutex
	sets map[string]*Strategies
}

// RegisterDefaultStrategies sets the strategies new traversals over graphs of the
// given kind start with. The empty kind covers traversals without a graph
// and kinds with no registration of their own.
func RegisterDefaultStrategies(kind string, s *Strategies) {
	defaults.mu.Lock()
	defer defaults.mu.Unlock()
	defaults.sets[kind] = s
}

// DefaultStrategies returns the registered set for g's kind, falling back
// to the empty kind, or an empty set.
func DefaultStrategies(g Graph) *Strategies {
	defaults.mu.RLock()
	defer defaults.mu.RUnlock()
	if s, ok := defaults.sets[graphKind(g)]; ok {
		return s
	}
	if s, ok := defaults.sets[""]; ok {
		return s
	}
	return NewStrategies()
}
