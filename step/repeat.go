package step

import (
	"context"
	"fmt"

	"github.com/kbukum/traverse/errors"
	"github.com/kbukum/traverse/traversal"
	"github.com/kbukum/traverse/traverser"
)

// Repeat runs each input traverser through its body a fixed number of
// times. The body is a global child traversal.
type Repeat struct {
	traversal.Base
	body  *traversal.Traversal
	times int

	out []*traverser.Traverser
}

// NewRepeat creates a loop over body. A non-positive times passes input
// through unchanged.
func NewRepeat(body *traversal.Traversal, times int) *Repeat {
	r := &Repeat{times: max(times, 0)}
	r.Init(r)
	r.body = r.IntegrateChild(body)
	return r
}

func (r *Repeat) Name() string         { return "repeat" }
func (r *Repeat) Kind() traversal.Kind { return traversal.KindParent }

// Loops marks the body as a loop body.
func (r *Repeat) Loops() {}

// Body returns the loop body.
func (r *Repeat) Body() *traversal.Traversal { return r.body }

func (r *Repeat) GlobalChildren() []*traversal.Traversal { return []*traversal.Traversal{r.body} }
func (r *Repeat) LocalChildren() []*traversal.Traversal  { return nil }

func (r *Repeat) Process(ctx context.Context) (*traverser.Traverser, error) {
	for len(r.out) == 0 {
		t, err := r.Pull(ctx)
		if err != nil {
			return nil, err
		}
		current := []*traverser.Traverser{t}
		for i := 0; i < r.times && len(current) > 0; i++ {
			if current, err = r.iterate(ctx, current); err != nil {
				return nil, err
			}
		}
		r.out = current
	}
	t := r.out[0]
	r.out = r.out[1:]
	return t, nil
}

func (r *Repeat) iterate(ctx context.Context, in []*traverser.Traverser) ([]*traverser.Traverser, error) {
	var next []*traverser.Traverser
	for _, t := range in {
		r.body.Reset()
		if err := r.body.AddStart(ctx, t); err != nil {
			return nil, err
		}
		for {
			o, err := r.body.NextTraverser(ctx)
			if errors.IsExhausted(err) {
				break
			}
			if err != nil {
				return nil, err
			}
			next = append(next, o)
		}
	}
	return next, nil
}

func (r *Repeat) Reset() { r.out = nil }

func (r *Repeat) Requirements() traverser.Requirements {
	return traversal.ChildRequirements(r.GlobalChildren())
}

func (r *Repeat) Clone() traversal.Step {
	c := *r
	c.Base.Fork(&c)
	c.out = nil
	c.body = c.IntegrateChild(r.body.Clone())
	return &c
}

func (r *Repeat) Hash() uint64 {
	return r.Hasher().Uint64(uint64(r.times)).Traversal(r.body).Sum()
}

func (r *Repeat) String() string {
	return fmt.Sprintf("repeat(%s,%d)", r.body, r.times)
}
