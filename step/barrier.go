package step

import (
	"context"

	"github.com/kbukum/traverse/errors"
	"github.com/kbukum/traverse/traversal"
	"github.com/kbukum/traverse/traverser"
)

// drain pulls every remaining input traverser of b.
func drain(ctx context.Context, b *traversal.Base) ([]*traverser.Traverser, error) {
	var out []*traverser.Traverser
	for {
		t, err := b.Pull(ctx)
		if errors.IsExhausted(err) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
}

// snapshot drains b into a detached set, or returns errors.ErrExhausted.
func snapshot(ctx context.Context, b *traversal.Base) (*traverser.Set, error) {
	ts, err := drain(ctx, b)
	if err != nil {
		return nil, err
	}
	if len(ts) == 0 {
		return nil, errors.ErrExhausted
	}
	set := traverser.NewSet()
	for _, t := range ts {
		set.Add(t.Detach())
	}
	return set, nil
}

// inject queues the snapshot's traversers as input of b, bound to b's
// side-effect store. The snapshot itself is left untouched.
func inject(b *traversal.Base, set *traverser.Set) {
	if set == nil {
		return
	}
	se := b.SideEffects()
	for _, t := range set.Traversers() {
		c := t.Clone()
		c.Attach(se)
		b.AddStart(c)
	}
}

// applyLocal evaluates a local child on a single value and returns its first
// result, or nil when the child produces nothing.
func applyLocal(ctx context.Context, child *traversal.Traversal, t *traverser.Traverser, v any) (any, error) {
	if child == nil {
		return v, nil
	}
	child.Reset()
	if err := child.AddStart(ctx, t.Split(v).WithBulk(1)); err != nil {
		return nil, err
	}
	out, ok, err := child.Next(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return out, nil
}
