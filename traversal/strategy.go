package traversal

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Category groups strategies into application phases.
type Category int

const (
	CategoryDecoration Category = iota
	CategoryOptimization
	CategoryProvider
	CategoryFinalization
	CategoryVerification
)

var categoryNames = [...]string{"decoration", "optimization", "provider", "finalization", "verification"}

func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return fmt.Sprintf("category(%d)", int(c))
	}
	return categoryNames[c]
}

// ParseCategory parses a category name as written by Category.String.
func ParseCategory(s string) (Category, error) {
	for i, name := range categoryNames {
		if strings.EqualFold(s, name) {
			return Category(i), nil
		}
	}
	return 0, fmt.Errorf("unknown strategy category %q", s)
}

// Strategy rewrites a traversal before it is locked.
type Strategy interface {
	// Name identifies the strategy within a set.
	Name() string
	Category() Category
	// RunsBefore names strategies that must be applied after this one.
	RunsBefore() []string
	// RunsAfter names strategies that must be applied before this one.
	RunsAfter() []string
	// Apply rewrites t in place.
	Apply(ctx context.Context, t *Traversal) error
}

// Unconstrained can be embedded by strategies without ordering constraints.
type Unconstrained struct{}

func (Unconstrained) RunsBefore() []string { return nil }
func (Unconstrained) RunsAfter() []string  { return nil }

// Strategies is an immutable, name-keyed set of strategies. The application
// order is computed once and cached.
type Strategies struct {
	list []Strategy

	once  sync.Once
	order []Strategy
	err   error
}

// NewStrategies builds a set. A later strategy replaces an earlier one of
// the same name, keeping the earlier position.
func NewStrategies(ss ...Strategy) *Strategies {
	return (&Strategies{}).With(ss...)
}

// With returns a new set holding s's strategies plus ss.
func (s *Strategies) With(ss ...Strategy) *Strategies {
	out := &Strategies{list: make([]Strategy, 0, s.Len()+len(ss))}
	if s != nil {
		out.list = append(out.list, s.list...)
	}
	for _, add := range ss {
		if add == nil {
			continue
		}
		if i := out.index(add.Name()); i >= 0 {
			out.list[i] = add
			continue
		}
		out.list = append(out.list, add)
	}
	return out
}

// Without returns a new set with the named strategies removed.
func (s *Strategies) Without(names ...string) *Strategies {
	out := &Strategies{}
	for _, st := range s.List() {
		drop := false
		for _, n := range names {
			if st.Name() == n {
				drop = true
				break
			}
		}
		if !drop {
			out.list = append(out.list, st)
		}
	}
	return out
}

func (s *Strategies) index(name string) int {
	for i, st := range s.list {
		if st.Name() == name {
			return i
		}
	}
	return -1
}

// Contains reports whether a strategy named name is in the set.
func (s *Strategies) Contains(name string) bool {
	return s != nil && s.index(name) >= 0
}

// Get returns the strategy named name.
func (s *Strategies) Get(name string) (Strategy, bool) {
	if s == nil {
		return nil, false
	}
	if i := s.index(name); i >= 0 {
		return s.list[i], true
	}
	return nil, false
}

// List returns the strategies in registration order.
func (s *Strategies) List() []Strategy {
	if s == nil {
		return nil
	}
	return append([]Strategy(nil), s.list...)
}

// Names returns the strategy names in registration order.
func (s *Strategies) Names() []string {
	names := make([]string, 0, s.Len())
	for _, st := range s.List() {
		names = append(names, st.Name())
	}
	return names
}

// Len returns the number of strategies.
func (s *Strategies) Len() int {
	if s == nil {
		return 0
	}
	return len(s.list)
}

// Clone returns an equal, independent set.
func (s *Strategies) Clone() *Strategies {
	return (&Strategies{}).With(s.List()...)
}

// Order returns the strategies in application order: every constraint is
// honoured, categories apply in ascending order and ties keep registration
// order. It fails with errors.ErrStrategyCycle if no such order exists.
func (s *Strategies) Order() ([]Strategy, error) {
	if s == nil {
		return nil, nil
	}
	s.once.Do(func() {
		s.order, s.err = sortStrategies(s.list)
	})
	if s.err != nil {
		return nil, s.err
	}
	return append([]Strategy(nil), s.order...), nil
}
