package traversal

import (
	"context"
	stderrors "errors"
	"io"
	"iter"

	"github.com/kbukum/traverse/errors"
	"github.com/kbukum/traverse/traverser"
)

// Next returns the next value. A traverser of bulk n is returned as n
// successive values. ok is false once the traversal is exhausted.
func (t *Traversal) Next(ctx context.Context) (value any, ok bool, err error) {
	if err := t.Finalize(ctx); err != nil {
		return nil, false, err
	}
	if t.lastEndCount > 0 {
		t.lastEndCount--
		v := t.lastEnd.Value()
		if t.lastEndCount == 0 {
			t.lastEnd = nil
		}
		t.metrics.RecordEmitted(ctx, 1)
		return v, true, nil
	}
	end := t.EndStep()
	if end == nil {
		return nil, false, nil
	}
	tr, err := end.Next(ctx)
	if errors.IsExhausted(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if tr.Bulk() > 1 {
		t.lastEnd = tr
		t.lastEndCount = tr.Bulk() - 1
	}
	t.metrics.RecordEmitted(ctx, 1)
	return tr.Value(), true, nil
}

// HasNext reports whether Next would return a value.
func (t *Traversal) HasNext(ctx context.Context) (bool, error) {
	if err := t.Finalize(ctx); err != nil {
		return false, err
	}
	if t.lastEndCount > 0 {
		return true, nil
	}
	end := t.EndStep()
	if end == nil {
		return false, nil
	}
	return end.HasNext(ctx)
}

// NextTraverser returns the next traverser with its bulk intact, or
// errors.ErrExhausted. Values partially unrolled by Next are returned as
// one traverser carrying the remaining bulk.
func (t *Traversal) NextTraverser(ctx context.Context) (*traverser.Traverser, error) {
	if err := t.Finalize(ctx); err != nil {
		return nil, err
	}
	if t.lastEndCount > 0 {
		tr := t.lastEnd.WithBulk(t.lastEndCount)
		t.lastEnd = nil
		t.lastEndCount = 0
		return tr, nil
	}
	end := t.EndStep()
	if end == nil {
		return nil, errors.ErrExhausted
	}
	return end.Next(ctx)
}

// AddStart injects tr ahead of the start step's upstream input.
func (t *Traversal) AddStart(ctx context.Context, tr *traverser.Traverser) error {
	if err := t.Finalize(ctx); err != nil {
		return err
	}
	start := t.StartStep()
	if start == nil {
		return errors.InvalidInput("traversal", "has no steps")
	}
	if tr.SideEffects() == nil {
		tr = tr.Clone()
		tr.Attach(t.sideEffects)
	}
	start.AddStart(tr)
	return nil
}

// ToList drains the traversal into a slice.
func (t *Traversal) ToList(ctx context.Context) ([]any, error) {
	var out []any
	for {
		v, ok, err := t.Next(ctx)
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, v)
	}
}

// Iterate drains the traversal for its side-effects.
func (t *Traversal) Iterate(ctx context.Context) error {
	for {
		_, err := t.NextTraverser(ctx)
		if errors.IsExhausted(err) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// Iter returns a range-over-func sequence of values. Iteration stops at
// the first error, which is yielded with a nil value.
func (t *Traversal) Iter(ctx context.Context) iter.Seq2[any, error] {
	return func(yield func(any, error) bool) {
		for {
			v, ok, err := t.Next(ctx)
			if err != nil {
				yield(nil, err)
				return
			}
			if !ok || !yield(v, nil) {
				return
			}
		}
	}
}

// Close releases resources held by steps, such as open remote streams.
// The traversal can still be Reset and re-run afterwards.
func (t *Traversal) Close() error {
	var errs []error
	for _, s := range t.steps {
		if c, ok := s.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		if p, ok := s.(Parent); ok {
			for _, c := range children(p) {
				if err := c.Close(); err != nil {
					errs = append(errs, err)
				}
			}
		}
	}
	return stderrors.Join(errs...)
}
