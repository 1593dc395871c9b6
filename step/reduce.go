package step

import (
	"context"
	"math"

	"github.com/kbukum/traverse/errors"
	"github.com/kbukum/traverse/sideeffect"
	"github.com/kbukum/traverse/traversal"
	"github.com/kbukum/traverse/traverser"
)

// FoldFunc folds a value of the given bulk into an accumulator.
type FoldFunc func(acc any, value any, bulk uint64) any

// Reduce is a reducing barrier: it folds all input into one accumulator and
// emits it once. Partial accumulators extracted with NextBarrier are
// combined with the merge operation, so shards can be reduced independently.
type Reduce struct {
	traversal.Base
	name  string
	seed  func() any
	fold  FoldFunc
	merge sideeffect.MergeFunc

	acc     any
	started bool
	done    bool
}

// NewReduce creates a reducing barrier. merge must be commutative and
// associative for sharded results to be deterministic.
func NewReduce(name string, seed func() any, fold FoldFunc, merge sideeffect.MergeFunc) *Reduce {
	r := &Reduce{name: name, seed: seed, fold: fold, merge: merge}
	r.Init(r)
	return r
}

// NewCount counts traversers, honouring bulk.
func NewCount() *Reduce {
	return NewReduce("count",
		func() any { return int64(0) },
		func(acc any, _ any, bulk uint64) any { return addBulk(acc.(int64), bulk) },
		sideeffect.Sum,
	)
}

// addBulk adds bulk to a non-negative count, saturating at math.MaxInt64.
func addBulk(n int64, bulk uint64) int64 {
	if bulk > uint64(math.MaxInt64-n) {
		return math.MaxInt64
	}
	return n + int64(bulk)
}

// NewSum adds numeric values, honouring bulk.
func NewSum() *Reduce {
	return NewReduce("sum",
		func() any { return int64(0) },
		func(acc any, v any, bulk uint64) any {
			return sideeffect.Sum(acc, sideeffect.Times(v, bulk))
		},
		sideeffect.Sum,
	)
}

// NewFold collects values into a []any, honouring bulk.
func NewFold() *Reduce {
	return NewReduce("fold",
		func() any { return []any{} },
		func(acc any, v any, bulk uint64) any {
			list := acc.([]any)
			for i := uint64(0); i < bulk; i++ {
				list = append(list, v)
			}
			return list
		},
		sideeffect.AddAll,
	)
}

func (r *Reduce) Name() string         { return r.name }
func (r *Reduce) Kind() traversal.Kind { return traversal.KindBarrier }

// Reducing marks the step as a reducing barrier.
func (r *Reduce) Reducing() {}

func (r *Reduce) accumulate(ctx context.Context) error {
	ts, err := drain(ctx, &r.Base)
	if err != nil {
		return err
	}
	for _, t := range ts {
		r.add(t.Value(), t.Bulk())
	}
	return nil
}

func (r *Reduce) add(v any, bulk uint64) {
	if !r.started {
		r.acc = r.seed()
		r.started = true
	}
	r.acc = r.fold(r.acc, v, bulk)
}

func (r *Reduce) combine(partial any) {
	if !r.started {
		r.acc = r.seed()
		r.started = true
	}
	r.acc = r.merge(r.acc, partial)
}

// Process emits the accumulator once. With no input the seed is emitted.
func (r *Reduce) Process(ctx context.Context) (*traverser.Traverser, error) {
	if r.done {
		return nil, errors.ErrExhausted
	}
	if err := r.accumulate(ctx); err != nil {
		return nil, err
	}
	r.done = true
	v := r.acc
	if !r.started {
		v = r.seed()
	}
	r.acc, r.started = nil, false
	t := traverser.New(v)
	t.Attach(r.SideEffects())
	return t, nil
}

func (r *Reduce) HasNextBarrier(ctx context.Context) (bool, error) {
	return r.HasInput(ctx)
}

// NextBarrier drains the input and returns the partial accumulator as a
// single-traverser snapshot.
func (r *Reduce) NextBarrier(ctx context.Context) (*traverser.Set, error) {
	if err := r.accumulate(ctx); err != nil {
		return nil, err
	}
	if !r.started {
		return nil, errors.ErrExhausted
	}
	partial := r.acc
	r.acc, r.started = nil, false
	return traverser.NewSet(traverser.New(partial)), nil
}

// AddBarrier merges partial accumulators into this step.
func (r *Reduce) AddBarrier(snapshot *traverser.Set) {
	if snapshot == nil {
		return
	}
	for _, t := range snapshot.Traversers() {
		for i := uint64(0); i < t.Bulk(); i++ {
			r.combine(t.Value())
		}
	}
}

func (r *Reduce) Reset() {
	r.acc, r.started, r.done = nil, false, false
}

func (r *Reduce) Requirements() traverser.Requirements {
	return traverser.NewRequirements(traverser.RequirementBulk, traverser.RequirementObject)
}

func (r *Reduce) Clone() traversal.Step {
	c := *r
	c.Base.Fork(&c)
	c.acc, c.started, c.done = nil, false, false
	return &c
}

func (r *Reduce) Hash() uint64 { return r.Hasher().String(r.name).Sum() }
