package traversal

import (
	"context"
	"fmt"

	"github.com/kbukum/traverse/errors"
	"github.com/kbukum/traverse/sideeffect"
	"github.com/kbukum/traverse/traverser"
)

// Kind classifies a step at the engine boundary.
type Kind int

const (
	// KindTransform steps map, filter or otherwise process one traverser at a time.
	KindTransform Kind = iota
	// KindBarrier steps drain their whole upstream before emitting.
	KindBarrier
	// KindDelegating steps hand execution to another system.
	KindDelegating
	// KindParent steps own nested child traversals.
	KindParent
)

func (k Kind) String() string {
	switch k {
	case KindTransform:
		return "transform"
	case KindBarrier:
		return "barrier"
	case KindDelegating:
		return "delegating"
	case KindParent:
		return "parent"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Step is one stage of a traversal. Implementations must embed Base.
type Step interface {
	// Name is the step's display name.
	Name() string
	// Kind is the step's variant at the engine boundary.
	Kind() Kind
	// Process produces the next output traverser or errors.ErrExhausted.
	// Callers use Next; Process is only invoked through Base.
	Process(ctx context.Context) (*traverser.Traverser, error)
	// Reset clears step-local execution state. Structural configuration stays.
	Reset()
	// Clone returns an independent copy with no execution state.
	Clone() Step
	// Requirements declares what this step needs from traversers.
	Requirements() traverser.Requirements
	// Hash is the structural identity of the step.
	Hash() uint64

	ID() string
	Labels() []string
	AddLabel(label string)
	Traversal() *Traversal
	Next(ctx context.Context) (*traverser.Traverser, error)
	HasNext(ctx context.Context) (bool, error)
	AddStart(t *traverser.Traverser)

	base() *Base
}

// Barrier is a step that must pull all input before emitting. Its
// accumulation can be extracted as a snapshot and re-injected elsewhere.
type Barrier interface {
	Step
	// HasNextBarrier reports whether more upstream input is available.
	HasNextBarrier(ctx context.Context) (bool, error)
	// NextBarrier drains all remaining input into a snapshot. It returns
	// errors.ErrExhausted when there was nothing to drain.
	NextBarrier(ctx context.Context) (*traverser.Set, error)
	// AddBarrier folds a snapshot into this step's input.
	AddBarrier(snapshot *traverser.Set)
}

// ReducingBarrier is a barrier that reduces its input to a single value.
type ReducingBarrier interface {
	Barrier
	Reducing()
}

// Parent is a step owning nested traversals. Global children run as
// independent sub-traversals; local children are evaluated per traverser.
type Parent interface {
	Step
	GlobalChildren() []*Traversal
	LocalChildren() []*Traversal
}

// Looping is a parent whose global child is a loop body.
type Looping interface {
	Parent
	Loops()
}

// Computing steps require a distributed, bulk-synchronous executor.
type Computing interface {
	Step
	RequiresComputer()
}

// Profiling steps record execution metrics into side-effects.
type Profiling interface {
	Step
	Profiling()
}

// Capping steps emit side-effect values at the end of a traversal.
type Capping interface {
	Step
	Capping()
}

// Base implements the linking and pull plumbing shared by every step.
// Concrete steps embed it and call Init with themselves on construction.
type Base struct {
	self      Step
	traversal *Traversal
	index     int
	id        string
	labels    []string
	starts    []*traverser.Traverser
	buffered  *traverser.Traverser
}

func (b *Base) base() *Base { return b }

// Init binds the base to the concrete step embedding it.
func (b *Base) Init(self Step) { b.self = self }

// Fork prepares a shallow copy of a step for use as an independent clone:
// links, id and buffered input are dropped and labels are copied.
func (b *Base) Fork(self Step) {
	b.self = self
	b.traversal = nil
	b.index = 0
	b.id = ""
	b.starts = nil
	b.buffered = nil
	b.labels = append([]string(nil), b.labels...)
}

// ID returns the step id. It is empty until the owning traversal is finalized.
func (b *Base) ID() string { return b.id }

// Labels returns the labels this step binds onto emitted traversers.
func (b *Base) Labels() []string { return append([]string(nil), b.labels...) }

// AddLabel binds label to every traverser this step emits.
func (b *Base) AddLabel(label string) {
	for _, l := range b.labels {
		if l == label {
			return
		}
	}
	b.labels = append(b.labels, label)
}

// Traversal returns the owning traversal, or nil.
func (b *Base) Traversal() *Traversal { return b.traversal }

// Previous returns the upstream neighbour, or nil for a start step.
func (b *Base) Previous() Step {
	if b.traversal == nil || b.index <= 0 || b.index >= len(b.traversal.steps) {
		return nil
	}
	return b.traversal.steps[b.index-1]
}

// NextStep returns the downstream neighbour, or nil for an end step.
func (b *Base) NextStep() Step {
	if b.traversal == nil || b.index+1 >= len(b.traversal.steps) {
		return nil
	}
	return b.traversal.steps[b.index+1]
}

// SideEffects returns the owning traversal's side-effect store, or nil.
func (b *Base) SideEffects() *sideeffect.Store {
	if b.traversal == nil {
		return nil
	}
	return b.traversal.sideEffects
}

// AddStart queues t as input ahead of the upstream step.
func (b *Base) AddStart(t *traverser.Traverser) {
	b.starts = append(b.starts, t)
}

// Next returns the next output traverser, labeled with this step's labels.
func (b *Base) Next(ctx context.Context) (*traverser.Traverser, error) {
	if b.buffered != nil {
		t := b.buffered
		b.buffered = nil
		return t, nil
	}
	if b.self == nil {
		return nil, errors.Internal(fmt.Errorf("step was not initialized"))
	}
	t, err := b.self.Process(ctx)
	if err != nil {
		return nil, err
	}
	return t.Labeled(b.labels...), nil
}

// HasNext reports whether Next would return a traverser, buffering it.
func (b *Base) HasNext(ctx context.Context) (bool, error) {
	if b.buffered != nil {
		return true, nil
	}
	t, err := b.Next(ctx)
	if errors.IsExhausted(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	b.buffered = t
	return true, nil
}

// Pull returns the next input traverser: queued starts first, then the
// upstream step. It returns errors.ErrExhausted when input is exhausted.
func (b *Base) Pull(ctx context.Context) (*traverser.Traverser, error) {
	if len(b.starts) > 0 {
		t := b.starts[0]
		b.starts[0] = nil
		b.starts = b.starts[1:]
		return t, nil
	}
	if prev := b.Previous(); prev != nil {
		return prev.Next(ctx)
	}
	return nil, errors.ErrExhausted
}

// HasInput reports whether Pull would return a traverser.
func (b *Base) HasInput(ctx context.Context) (bool, error) {
	if len(b.starts) > 0 {
		return true, nil
	}
	if prev := b.Previous(); prev != nil {
		return prev.HasNext(ctx)
	}
	return false, nil
}

// Reset is a no-op for steps without execution state.
func (b *Base) Reset() {}

// Requirements declares no requirements.
func (b *Base) Requirements() traverser.Requirements {
	return traverser.NewRequirements()
}

// IntegrateChild makes child a nested traversal of this step, binding it to
// the owning traversal's strategies, side-effects and graph when attached.
func (b *Base) IntegrateChild(child *Traversal) *Traversal {
	if child == nil {
		return nil
	}
	child.parent = b.self
	if b.traversal != nil {
		b.traversal.propagate(child)
	}
	return child
}

func (b *Base) resetIO() {
	b.starts = nil
	b.buffered = nil
}

// ChildRequirements returns the union of reqs and every child's requirements.
func ChildRequirements(children []*Traversal, reqs ...traverser.Requirement) traverser.Requirements {
	out := traverser.NewRequirements(reqs...)
	for _, c := range children {
		if c != nil {
			out.Merge(c.Requirements())
		}
	}
	return out
}
