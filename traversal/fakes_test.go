package traversal

import (
	"context"

	"github.com/kbukum/traverse/traverser"
)

// valuesStep emits a fixed list of traversers, then its input.
type valuesStep struct {
	Base
	values []*traverser.Traverser
	pos    int
}

func newValues(values ...any) *valuesStep {
	ts := make([]*traverser.Traverser, len(values))
	for i, v := range values {
		ts[i] = traverser.New(v)
	}
	return newTraversers(ts...)
}

func newTraversers(ts ...*traverser.Traverser) *valuesStep {
	s := &valuesStep{values: ts}
	s.Init(s)
	return s
}

func (s *valuesStep) Name() string { return "values" }
func (s *valuesStep) Kind() Kind   { return KindTransform }

func (s *valuesStep) Process(ctx context.Context) (*traverser.Traverser, error) {
	if s.pos < len(s.values) {
		t := s.values[s.pos]
		s.pos++
		return t, nil
	}
	return s.Pull(ctx)
}

func (s *valuesStep) Reset() { s.pos = 0 }

func (s *valuesStep) Clone() Step {
	c := *s
	c.Base.Fork(&c)
	c.pos = 0
	return &c
}

func (s *valuesStep) Hash() uint64 {
	h := s.Hasher()
	for _, t := range s.values {
		h.Value(t.Value())
	}
	return h.Sum()
}

// mapStep applies fn to each input value.
type mapStep struct {
	Base
	name string
	fn   func(any) any
	reqs []traverser.Requirement
}

func newMap(name string, fn func(any) any, reqs ...traverser.Requirement) *mapStep {
	s := &mapStep{name: name, fn: fn, reqs: reqs}
	s.Init(s)
	return s
}

func (s *mapStep) Name() string { return s.name }
func (s *mapStep) Kind() Kind   { return KindTransform }

func (s *mapStep) Process(ctx context.Context) (*traverser.Traverser, error) {
	t, err := s.Pull(ctx)
	if err != nil {
		return nil, err
	}
	return t.Split(s.fn(t.Value())), nil
}

func (s *mapStep) Requirements() traverser.Requirements {
	return traverser.NewRequirements(s.reqs...)
}

func (s *mapStep) Clone() Step {
	c := *s
	c.Base.Fork(&c)
	return &c
}

func (s *mapStep) Hash() uint64 { return s.Hasher().String(s.name).Sum() }

// parentStep passes input through and owns one global child.
type parentStep struct {
	Base
	child *Traversal
}

func newParent(child *Traversal) *parentStep {
	s := &parentStep{}
	s.Init(s)
	s.child = s.IntegrateChild(child)
	return s
}

func (s *parentStep) Name() string { return "parent" }
func (s *parentStep) Kind() Kind   { return KindParent }

func (s *parentStep) GlobalChildren() []*Traversal { return []*Traversal{s.child} }
func (s *parentStep) LocalChildren() []*Traversal  { return nil }

func (s *parentStep) Process(ctx context.Context) (*traverser.Traverser, error) {
	return s.Pull(ctx)
}

func (s *parentStep) Requirements() traverser.Requirements {
	return ChildRequirements(s.GlobalChildren())
}

func (s *parentStep) Clone() Step {
	c := *s
	c.Base.Fork(&c)
	c.child = c.IntegrateChild(s.child.Clone())
	return &c
}

func (s *parentStep) Hash() uint64 { return s.Hasher().Traversal(s.child).Sum() }

// fakeStrategy records its application into log.
type fakeStrategy struct {
	name     string
	category Category
	before   []string
	after    []string
	log      *[]string
	apply    func(t *Traversal) error
}

func (s *fakeStrategy) Name() string         { return s.name }
func (s *fakeStrategy) Category() Category   { return s.category }
func (s *fakeStrategy) RunsBefore() []string { return s.before }
func (s *fakeStrategy) RunsAfter() []string  { return s.after }

func (s *fakeStrategy) Apply(_ context.Context, t *Traversal) error {
	if s.log != nil {
		*s.log = append(*s.log, s.name)
	}
	if s.apply != nil {
		return s.apply(t)
	}
	return nil
}

type kindGraph string

func (g kindGraph) Kind() string { return string(g) }

func mustBuild(steps ...Step) *Traversal {
	t, err := Of(steps, WithStrategies(NewStrategies()))
	if err != nil {
		panic(err)
	}
	return t
}
