package traverser

import (
	"github.com/emirpasic/gods/maps/linkedhashmap"
)

// Set is an insertion-ordered set of traversers keyed by Traverser.Key.
// Adding a traverser equal to one already present adds its bulk instead.
// A Set owns the traversers it holds; Add stores a copy.
type Set struct {
	m *linkedhashmap.Map
}

// NewSet creates a Set holding ts.
func NewSet(ts ...*Traverser) *Set {
	s := &Set{m: linkedhashmap.New()}
	for _, t := range ts {
		s.Add(t)
	}
	return s
}

// Add inserts t or merges its bulk into an equal traverser.
func (s *Set) Add(t *Traverser) {
	key := t.Key()
	if existing, ok := s.m.Get(key); ok {
		existing.(*Traverser).bulk += t.bulk
		return
	}
	s.m.Put(key, t.Clone())
}

// AddAll adds every traverser of other in order.
func (s *Set) AddAll(other *Set) {
	for _, t := range other.Traversers() {
		s.Add(t)
	}
}

// Len returns the number of distinct traversers.
func (s *Set) Len() int { return s.m.Size() }

// IsEmpty reports whether the set holds no traversers.
func (s *Set) IsEmpty() bool { return s.m.Empty() }

// BulkSize returns the sum of all bulks.
func (s *Set) BulkSize() uint64 {
	var n uint64
	it := s.m.Iterator()
	for it.Next() {
		n += it.Value().(*Traverser).bulk
	}
	return n
}

// Traversers returns the traversers in insertion order.
func (s *Set) Traversers() []*Traverser {
	out := make([]*Traverser, 0, s.m.Size())
	it := s.m.Iterator()
	for it.Next() {
		out = append(out, it.Value().(*Traverser))
	}
	return out
}

// Poll removes and returns the oldest traverser.
func (s *Set) Poll() (*Traverser, bool) {
	it := s.m.Iterator()
	if !it.First() {
		return nil, false
	}
	key, t := it.Key(), it.Value().(*Traverser)
	s.m.Remove(key)
	return t, true
}

// Contains reports whether a traverser equal to t is present.
func (s *Set) Contains(t *Traverser) bool {
	_, ok := s.m.Get(t.Key())
	return ok
}
