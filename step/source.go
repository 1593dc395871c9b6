package step

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/kbukum/traverse/errors"
	"github.com/kbukum/traverse/traversal"
	"github.com/kbukum/traverse/traverser"
)

// IDFunc returns the stable identifier of an element.
type IDFunc func(element any) (id any, ok bool)

// Identified is implemented by elements that carry a stable identifier.
type Identified interface {
	ID() any
}

// DefaultIDFunc reads the id of an Identified element.
func DefaultIDFunc(element any) (any, bool) {
	if e, ok := element.(Identified); ok {
		return e.ID(), true
	}
	return nil, false
}

// Source starts a traversal with a fixed list of elements and then passes
// through any injected starts.
type Source struct {
	traversal.Base
	elements []any
	idFunc   IDFunc
	ids      bool

	loaded []any
	ready  bool
	pos    int
}

// NewSource creates a source of elements.
func NewSource(elements ...any) *Source {
	s := &Source{elements: slices.Clone(elements), idFunc: DefaultIDFunc}
	s.Init(s)
	return s
}

// WithIDFunc sets how ConvertElementsToIDs identifies elements.
func (s *Source) WithIDFunc(f IDFunc) *Source {
	s.idFunc = f
	return s
}

func (s *Source) Name() string         { return "source" }
func (s *Source) Kind() traversal.Kind { return traversal.KindTransform }

// Elements returns the configured elements, or ids once converted.
func (s *Source) Elements() []any { return append([]any(nil), s.elements...) }

// ReturnsIDs reports whether elements were converted to ids.
func (s *Source) ReturnsIDs() bool { return s.ids }

// ConvertElementsToIDs replaces every identifiable element with its id, so
// the source no longer references in-memory elements. When executed against
// a graph implementing traversal.ElementResolver the ids are resolved back
// to elements on first pull.
func (s *Source) ConvertElementsToIDs() {
	if s.ids {
		return
	}
	for i, e := range s.elements {
		if id, ok := s.idFunc(e); ok {
			s.elements[i] = id
		}
	}
	s.ids = true
}

func (s *Source) load(ctx context.Context) error {
	s.ready = true
	s.loaded = s.elements
	if !s.ids {
		return nil
	}
	t := s.Traversal()
	if t == nil {
		return nil
	}
	resolver, ok := t.Graph().(traversal.ElementResolver)
	if !ok {
		return nil
	}
	resolved, err := resolver.Resolve(ctx, s.elements)
	if err != nil {
		return errors.Internal(fmt.Errorf("resolving source ids: %w", err))
	}
	s.loaded = resolved
	return nil
}

func (s *Source) Process(ctx context.Context) (*traverser.Traverser, error) {
	if !s.ready {
		if err := s.load(ctx); err != nil {
			return nil, err
		}
	}
	if s.pos < len(s.loaded) {
		t := traverser.New(s.loaded[s.pos])
		s.pos++
		t.Attach(s.SideEffects())
		return t, nil
	}
	return s.Pull(ctx)
}

func (s *Source) Reset() {
	s.loaded, s.ready, s.pos = nil, false, 0
}

func (s *Source) Clone() traversal.Step {
	c := *s
	c.Base.Fork(&c)
	c.elements = append([]any(nil), s.elements...)
	c.loaded, c.ready, c.pos = nil, false, 0
	return &c
}

func (s *Source) Hash() uint64 {
	h := s.Hasher().Bool(s.ids).Uint64(uint64(len(s.elements)))
	for _, e := range s.elements {
		h.Value(e)
	}
	return h.Sum()
}

func (s *Source) String() string {
	parts := make([]string, len(s.elements))
	for i, e := range s.elements {
		parts[i] = fmt.Sprint(e)
	}
	return "source(" + strings.Join(parts, ",") + ")"
}
