package traverser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kbukum/traverse/sideeffect"
)

// Binding records a value bound to a label along the traverser's path.
type Binding struct {
	Label string
	Value any
}

// Detachable is implemented by values bound to transient graph-session state.
// Detach returns a self-contained copy safe to serialize or transport.
type Detachable interface {
	Detach() any
}

// Keyer lets a value supply its own identity for dedup and set membership.
type Keyer interface {
	Key() string
}

// Traverser is a result token with a multiplicity.
type Traverser struct {
	value       any
	bulk        uint64
	path        []Binding
	sideEffects *sideeffect.Store
}

// New creates a traverser with bulk 1.
func New(value any) *Traverser {
	return &Traverser{value: value, bulk: 1}
}

// NewBulk creates a traverser standing for bulk identical results.
// It panics if bulk is 0.
func NewBulk(value any, bulk uint64) *Traverser {
	mustBulk(bulk)
	return &Traverser{value: value, bulk: bulk}
}

func mustBulk(bulk uint64) {
	if bulk == 0 {
		panic("traverser: bulk must be >= 1")
	}
}

// Value returns the wrapped result.
func (t *Traverser) Value() any { return t.value }

// Bulk returns the multiplicity of this traverser.
func (t *Traverser) Bulk() uint64 { return t.bulk }

// SideEffects returns the side-effect store this traverser is attached to, or nil.
func (t *Traverser) SideEffects() *sideeffect.Store { return t.sideEffects }

// Attach binds the traverser to a side-effect store.
func (t *Traverser) Attach(store *sideeffect.Store) { t.sideEffects = store }

// Clone returns a copy that shares no mutable state with t.
func (t *Traverser) Clone() *Traverser {
	c := *t
	if len(t.path) > 0 {
		c.path = append([]Binding(nil), t.path...)
	}
	return &c
}

// Split derives a traverser carrying value with the same bulk, path and
// side-effects.
func (t *Traverser) Split(value any) *Traverser {
	c := t.Clone()
	c.value = value
	return c
}

// WithBulk returns a copy with the given bulk. It panics if bulk is 0.
func (t *Traverser) WithBulk(bulk uint64) *Traverser {
	mustBulk(bulk)
	c := t.Clone()
	c.bulk = bulk
	return c
}

// Labeled returns a copy whose path binds the current value to each label.
func (t *Traverser) Labeled(labels ...string) *Traverser {
	if len(labels) == 0 {
		return t
	}
	c := t.Clone()
	for _, l := range labels {
		c.path = append(c.path, Binding{Label: l, Value: t.value})
	}
	return c
}

// Latest returns the most recent value bound to label.
func (t *Traverser) Latest(label string) (any, bool) {
	for i := len(t.path) - 1; i >= 0; i-- {
		if t.path[i].Label == label {
			return t.path[i].Value, true
		}
	}
	return nil, false
}

// Path returns a copy of the label bindings in binding order.
func (t *Traverser) Path() []Binding {
	return append([]Binding(nil), t.path...)
}

// Detach returns a copy safe to move across execution units: the value and
// every path binding are detached and the side-effect reference is dropped.
func (t *Traverser) Detach() *Traverser {
	c := t.Clone()
	c.value = detach(c.value)
	for i := range c.path {
		c.path[i].Value = detach(c.path[i].Value)
	}
	c.sideEffects = nil
	return c
}

func detach(v any) any {
	if d, ok := v.(Detachable); ok {
		return d.Detach()
	}
	return v
}

// Key identifies the traverser for set membership: two traversers with the
// same value and path are interchangeable and may merge bulks.
func (t *Traverser) Key() string {
	if len(t.path) == 0 {
		return KeyOf(t.value)
	}
	var b strings.Builder
	writeField(&b, KeyOf(t.value))
	for _, p := range t.path {
		writeField(&b, p.Label)
		writeField(&b, KeyOf(p.Value))
	}
	return b.String()
}

// String implements fmt.Stringer.
func (t *Traverser) String() string {
	if t.bulk == 1 {
		return fmt.Sprintf("%v", t.value)
	}
	return fmt.Sprintf("%v×%d", t.value, t.bulk)
}

// KeyOf returns a canonical identity string for a value. Values implementing
// Keyer supply their own key; []any is keyed element-wise so label tuples
// compare by content. Elements are length-prefixed, so no element content
// can forge a tuple boundary.
func KeyOf(v any) string {
	switch x := v.(type) {
	case nil:
		return "<nil>"
	case Keyer:
		return "k:" + x.Key()
	case []any:
		var b strings.Builder
		b.WriteString("tuple:")
		b.WriteString(strconv.Itoa(len(x)))
		for _, e := range x {
			writeField(&b, KeyOf(e))
		}
		return b.String()
	case string:
		return "string:" + x
	default:
		return fmt.Sprintf("%T:%v", v, v)
	}
}

// writeField appends s as <len>:<s>.
func writeField(b *strings.Builder, s string) {
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(len(s)))
	b.WriteByte(':')
	b.WriteString(s)
}
