package traversal

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"

	"github.com/kbukum/traverse/traverser"
)

// Hasher accumulates the structural identity of a step or traversal.
// Order matters: the same parts written in a different order hash differently.
type Hasher struct {
	d   *xxhash.Digest
	buf [8]byte
}

// NewHasher starts a hash seeded with name.
func NewHasher(name string) *Hasher {
	h := &Hasher{d: xxhash.New()}
	return h.String(name)
}

// String writes a length-prefixed string.
func (h *Hasher) String(s string) *Hasher {
	h.Uint64(uint64(len(s)))
	_, _ = h.d.WriteString(s)
	return h
}

// Uint64 writes v.
func (h *Hasher) Uint64(v uint64) *Hasher {
	binary.LittleEndian.PutUint64(h.buf[:], v)
	_, _ = h.d.Write(h.buf[:])
	return h
}

// Bool writes b.
func (h *Hasher) Bool(b bool) *Hasher {
	if b {
		return h.Uint64(1)
	}
	return h.Uint64(0)
}

// Value writes the equality key of v.
func (h *Hasher) Value(v any) *Hasher {
	return h.String(traverser.KeyOf(v))
}

// Traversal writes the hash of t, or a marker for nil.
func (h *Hasher) Traversal(t *Traversal) *Hasher {
	if t == nil {
		return h.Uint64(0)
	}
	return h.Uint64(t.Hash())
}

// Sum returns the accumulated hash.
func (h *Hasher) Sum() uint64 { return h.d.Sum64() }

// Hasher returns a hasher seeded with the step's name and labels.
func (b *Base) Hasher() *Hasher {
	name := ""
	if b.self != nil {
		name = b.self.Name()
	}
	h := NewHasher(name)
	h.Uint64(uint64(len(b.labels)))
	for _, l := range b.labels {
		h.String(l)
	}
	return h
}
