package step

import (
	"context"
	"strings"

	"github.com/kbukum/traverse/errors"
	"github.com/kbukum/traverse/traversal"
	"github.com/kbukum/traverse/traverser"
)

// Dedup emits each distinct key the first time it is seen. The key is the
// traverser value, or the ordered tuple of the most recent values bound to
// the configured labels. An optional local By child maps each part of the key.
//
// Every traverser passing through is normalized to bulk 1, also when the
// step is bypassed.
type Dedup struct {
	traversal.Base
	keys   []string
	by     *traversal.Traversal
	bypass bool
	seen   map[string]struct{}
}

// NewDedup creates a dedup over the traverser value, or over labels when
// given. Repeated labels are collapsed keeping the first occurrence.
func NewDedup(labels ...string) *Dedup {
	d := &Dedup{seen: make(map[string]struct{})}
	for _, l := range labels {
		if !contains(d.keys, l) {
			d.keys = append(d.keys, l)
		}
	}
	d.Init(d)
	return d
}

// By sets a local child that maps each key part before comparison.
func (d *Dedup) By(child *traversal.Traversal) *Dedup {
	d.by = d.IntegrateChild(child)
	return d
}

func (d *Dedup) Name() string         { return "dedup" }
func (d *Dedup) Kind() traversal.Kind { return traversal.KindBarrier }

// KeyLabels returns the labels the key is built from.
func (d *Dedup) KeyLabels() []string { return append([]string(nil), d.keys...) }

func (d *Dedup) SetBypass(bypass bool) { d.bypass = bypass }
func (d *Dedup) Bypass() bool          { return d.bypass }

func (d *Dedup) GlobalChildren() []*traversal.Traversal { return nil }

func (d *Dedup) LocalChildren() []*traversal.Traversal {
	if d.by == nil {
		return nil
	}
	return []*traversal.Traversal{d.by}
}

func (d *Dedup) Process(ctx context.Context) (*traverser.Traverser, error) {
	for {
		t, err := d.Pull(ctx)
		if err != nil {
			return nil, err
		}
		if t.Bulk() != 1 {
			t = t.WithBulk(1)
		}
		if d.bypass {
			return t, nil
		}
		key, err := d.key(ctx, t)
		if err != nil {
			return nil, err
		}
		if _, dup := d.seen[key]; dup {
			continue
		}
		d.seen[key] = struct{}{}
		return t, nil
	}
}

func (d *Dedup) key(ctx context.Context, t *traverser.Traverser) (string, error) {
	if len(d.keys) == 0 {
		v, err := applyLocal(ctx, d.by, t, t.Value())
		if err != nil {
			return "", err
		}
		return traverser.KeyOf(v), nil
	}
	parts := make([]any, len(d.keys))
	for i, label := range d.keys {
		v, _ := t.Latest(label)
		if v != nil {
			mapped, err := applyLocal(ctx, d.by, t, v)
			if err != nil {
				return "", err
			}
			v = mapped
		}
		parts[i] = v
	}
	return traverser.KeyOf(parts), nil
}

func (d *Dedup) HasNextBarrier(ctx context.Context) (bool, error) {
	return d.HasInput(ctx)
}

// NextBarrier drains the remaining input, keeping the first traverser of
// each key with bulk 1. It returns errors.ErrExhausted if there was none.
func (d *Dedup) NextBarrier(ctx context.Context) (*traverser.Set, error) {
	seen := make(map[string]struct{})
	set := traverser.NewSet()
	for {
		t, err := d.Pull(ctx)
		if errors.IsExhausted(err) {
			break
		}
		if err != nil {
			return nil, err
		}
		key, err := d.key(ctx, t)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		set.Add(t.WithBulk(1).Detach())
	}
	if set.IsEmpty() {
		return nil, errors.ErrExhausted
	}
	return set, nil
}

// AddBarrier queues a snapshot as input. Keys already seen by this step are
// filtered when pulled, so merging is a union of key sets.
func (d *Dedup) AddBarrier(snapshot *traverser.Set) {
	inject(&d.Base, snapshot)
}

// Reset clears the seen keys. Bypass is kept.
func (d *Dedup) Reset() {
	d.seen = make(map[string]struct{})
}

func (d *Dedup) Requirements() traverser.Requirements {
	reqs := traversal.ChildRequirements(d.LocalChildren(), traverser.RequirementBulk)
	if len(d.keys) > 0 {
		reqs.Add(traverser.RequirementLabeledPath)
	}
	return reqs
}

func (d *Dedup) Clone() traversal.Step {
	c := *d
	c.Base.Fork(&c)
	c.keys = append([]string(nil), d.keys...)
	c.seen = make(map[string]struct{})
	if d.by != nil {
		c.by = c.IntegrateChild(d.by.Clone())
	}
	return &c
}

func (d *Dedup) Hash() uint64 {
	h := d.Hasher().Bool(d.bypass).Uint64(uint64(len(d.keys)))
	for _, k := range d.keys {
		h.String(k)
	}
	return h.Traversal(d.by).Sum()
}

func (d *Dedup) String() string {
	if len(d.keys) == 0 {
		return "dedup"
	}
	return "dedup(" + strings.Join(d.keys, ",") + ")"
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
