package step

import (
	"context"
	"fmt"

	"github.com/kbukum/traverse/errors"
	"github.com/kbukum/traverse/sideeffect"
	"github.com/kbukum/traverse/traversal"
	"github.com/kbukum/traverse/traverser"
)

// typed adapts a typed function to the untyped value flowing through steps.
func typed[T, R any](name string, fn func(T) (R, error)) func(any) (any, error) {
	return func(v any) (any, error) {
		in, ok := v.(T)
		if !ok {
			var zero T
			return nil, errors.InvalidInput(name, fmt.Sprintf("expected %T, got %T", zero, v))
		}
		return fn(in)
	}
}

// lambda holds what every function-wrapping step shares. Functions are not
// comparable, so the name is the structural identity.
type lambda struct {
	traversal.Base
	name string
}

func (l *lambda) Name() string         { return l.name }
func (l *lambda) Kind() traversal.Kind { return traversal.KindTransform }
func (l *lambda) Hash() uint64         { return l.Hasher().Sum() }

func (l *lambda) Requirements() traverser.Requirements {
	return traverser.NewRequirements(traverser.RequirementObject)
}

// Map replaces each value with fn(value).
type Map struct {
	lambda
	fn func(any) (any, error)
}

// NewMap creates a Map step. A value not of type T fails the pull with INVALID_INPUT.
func NewMap[T, R any](name string, fn func(T) (R, error)) *Map {
	m := &Map{lambda: lambda{name: name}, fn: typed(name, fn)}
	m.Init(m)
	return m
}

func (m *Map) Process(ctx context.Context) (*traverser.Traverser, error) {
	t, err := m.Pull(ctx)
	if err != nil {
		return nil, err
	}
	v, err := m.fn(t.Value())
	if err != nil {
		return nil, err
	}
	return t.Split(v), nil
}

func (m *Map) Clone() traversal.Step {
	c := *m
	c.Base.Fork(&c)
	return &c
}

// Filter passes values for which fn returns true.
type Filter struct {
	lambda
	fn func(any) (any, error)
}

// NewFilter creates a Filter step.
func NewFilter[T any](name string, fn func(T) (bool, error)) *Filter {
	f := &Filter{lambda: lambda{name: name}, fn: typed(name, fn)}
	f.Init(f)
	return f
}

func (f *Filter) Process(ctx context.Context) (*traverser.Traverser, error) {
	for {
		t, err := f.Pull(ctx)
		if err != nil {
			return nil, err
		}
		keep, err := f.fn(t.Value())
		if err != nil {
			return nil, err
		}
		if keep.(bool) {
			return t, nil
		}
	}
}

func (f *Filter) Clone() traversal.Step {
	c := *f
	c.Base.Fork(&c)
	return &c
}

// FlatMap replaces each value with every element of fn(value).
type FlatMap struct {
	lambda
	fn      func(any) (any, error)
	current *traverser.Traverser
	pending []any
}

// NewFlatMap creates a FlatMap step.
func NewFlatMap[T, R any](name string, fn func(T) ([]R, error)) *FlatMap {
	f := &FlatMap{lambda: lambda{name: name}}
	f.fn = typed(name, func(in T) (any, error) {
		out, err := fn(in)
		if err != nil {
			return nil, err
		}
		vals := make([]any, len(out))
		for i, v := range out {
			vals[i] = v
		}
		return vals, nil
	})
	f.Init(f)
	return f
}

func (f *FlatMap) Process(ctx context.Context) (*traverser.Traverser, error) {
	for len(f.pending) == 0 {
		t, err := f.Pull(ctx)
		if err != nil {
			return nil, err
		}
		out, err := f.fn(t.Value())
		if err != nil {
			return nil, err
		}
		f.current = t
		f.pending = out.([]any)
	}
	v := f.pending[0]
	f.pending = f.pending[1:]
	return f.current.Split(v), nil
}

func (f *FlatMap) Reset() {
	f.current, f.pending = nil, nil
}

func (f *FlatMap) Clone() traversal.Step {
	c := *f
	c.Base.Fork(&c)
	c.current, c.pending = nil, nil
	return &c
}

// SideEffect calls fn with each value and the traversal's side-effect
// store, passing the traverser through unchanged.
type SideEffect struct {
	lambda
	fn func(v any, store *sideeffect.Store) error
}

// NewSideEffect creates a SideEffect step.
func NewSideEffect(name string, fn func(v any, store *sideeffect.Store) error) *SideEffect {
	s := &SideEffect{lambda: lambda{name: name}, fn: fn}
	s.Init(s)
	return s
}

func (s *SideEffect) Process(ctx context.Context) (*traverser.Traverser, error) {
	t, err := s.Pull(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.fn(t.Value(), s.SideEffects()); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *SideEffect) Requirements() traverser.Requirements {
	return traverser.NewRequirements(traverser.RequirementObject, traverser.RequirementSideEffects)
}

func (s *SideEffect) Clone() traversal.Step {
	c := *s
	c.Base.Fork(&c)
	return &c
}

// Identity passes traversers through. Unlabeled identities are removed by
// the identity-removal optimization.
type Identity struct {
	traversal.Base
}

// NewIdentity creates an Identity step.
func NewIdentity() *Identity {
	i := &Identity{}
	i.Init(i)
	return i
}

func (i *Identity) Name() string         { return "identity" }
func (i *Identity) Kind() traversal.Kind { return traversal.KindTransform }

func (i *Identity) Process(ctx context.Context) (*traverser.Traverser, error) {
	return i.Pull(ctx)
}

func (i *Identity) Clone() traversal.Step {
	c := *i
	c.Base.Fork(&c)
	return &c
}

func (i *Identity) Hash() uint64 { return i.Hasher().Sum() }
