package sideeffect

import (
	"fmt"
	"sort"
	"sync"

	"github.com/kbukum/traverse/errors"
)

// MergeFunc folds an incoming value into the current one.
type MergeFunc func(current, incoming any) any

// Store is a thread-safe key-value store for side-effects.
type Store struct {
	mu      sync.RWMutex
	data    map[string]any
	merges  map[string]MergeFunc
	sack    any
	hasSack bool
}

// New creates a new empty Store.
func New() *Store {
	return &Store{
		data:   make(map[string]any),
		merges: make(map[string]MergeFunc),
	}
}

// Get retrieves a value by key. Returns false if the key does not exist.
func (s *Store) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

// Set stores a value by key together with the merge operation used when the
// key is folded with Add or Merge. A nil merge leaves the key overwrite-only.
func (s *Store) Set(key string, value any, merge MergeFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	if merge != nil {
		s.merges[key] = merge
	} else {
		delete(s.merges, key)
	}
}

// Add folds value into key using the key's declared merge operation.
// Adding to a key without one is an error.
func (s *Store) Add(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	merge, ok := s.merges[key]
	if !ok {
		return errors.Conflict(fmt.Sprintf("side-effect %q has no merge operation", key)).
			WithDetail("key", key)
	}
	s.data[key] = merge(s.data[key], value)
	return nil
}

// Keys returns the sorted keys of all stored side-effects.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of stored side-effects.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// SetSack configures the initial value of every traverser's sack.
func (s *Store) SetSack(initial any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sack = initial
	s.hasSack = true
}

// Sack returns the configured initial sack value, if any.
func (s *Store) Sack() (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sack, s.hasSack
}

// Merge folds every key of other into s. Keys only present in other are
// copied with their merge operation. Keys present on both sides are folded
// with the merge operation declared in s (or in other when s has none); a key
// on both sides with no merge operation is a conflict, and s is left
// unchanged.
func (s *Store) Merge(other *Store) error {
	if other == nil || other == s {
		return nil
	}
	other.mu.RLock()
	incoming := make(map[string]any, len(other.data))
	incomingMerges := make(map[string]MergeFunc, len(other.merges))
	for k, v := range other.data {
		incoming[k] = v
	}
	for k, m := range other.merges {
		incomingMerges[k] = m
	}
	otherSack, otherHasSack := other.sack, other.hasSack
	other.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	for k := range incoming {
		if _, exists := s.data[k]; !exists {
			continue
		}
		if s.merges[k] == nil && incomingMerges[k] == nil {
			return errors.Conflict(fmt.Sprintf("side-effect %q exists on both sides without a merge operation", k)).
				WithDetail("key", k)
		}
	}

	for k, v := range incoming {
		current, exists := s.data[k]
		if !exists {
			s.data[k] = v
			if m := incomingMerges[k]; m != nil {
				s.merges[k] = m
			}
			continue
		}
		merge := s.merges[k]
		if merge == nil {
			merge = incomingMerges[k]
			s.merges[k] = merge
		}
		s.data[k] = merge(current, v)
	}
	if !s.hasSack && otherHasSack {
		s.sack, s.hasSack = otherSack, true
	}
	return nil
}

// Clone returns an independent copy of the store. Slice and map values are
// copied one level deep so appends on the clone do not leak back.
func (s *Store) Clone() *Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := &Store{
		data:    make(map[string]any, len(s.data)),
		merges:  make(map[string]MergeFunc, len(s.merges)),
		sack:    s.sack,
		hasSack: s.hasSack,
	}
	for k, v := range s.data {
		c.data[k] = copyValue(v)
	}
	for k, m := range s.merges {
		c.merges[k] = m
	}
	return c
}

func copyValue(v any) any {
	switch x := v.(type) {
	case []any:
		return append([]any(nil), x...)
	case map[string]any:
		m := make(map[string]any, len(x))
		for k, val := range x {
			m[k] = val
		}
		return m
	default:
		return v
	}
}

// Port is a compile-time typed accessor for a Store key.
type Port[T any] struct {
	Key string
}

// Read retrieves a typed value from the store using a Port.
// Returns an error if the key is missing or the type doesn't match.
func Read[T any](s *Store, port Port[T]) (T, error) {
	var zero T
	raw, ok := s.Get(port.Key)
	if !ok {
		return zero, errors.NotFound("side-effect", port.Key)
	}
	val, ok := raw.(T)
	if !ok {
		return zero, errors.InvalidInput(port.Key, fmt.Sprintf("expected %T, got %T", zero, raw))
	}
	return val, nil
}

// Write stores a typed value using a Port, keeping the key's merge operation.
func Write[T any](s *Store, port Port[T], value T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[port.Key] = value
}
