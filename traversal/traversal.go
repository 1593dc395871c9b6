package traversal

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/traverse/errors"
	"github.com/kbukum/traverse/logger"
	"github.com/kbukum/traverse/observability"
	"github.com/kbukum/traverse/sideeffect"
	"github.com/kbukum/traverse/traverser"
)

// Traversal is an ordered chain of steps evaluated lazily from its end step.
// It is not safe for concurrent use.
type Traversal struct {
	id           string
	steps        []Step
	parent       Step
	sideEffects  *sideeffect.Store
	strategies   *Strategies
	graph        Graph
	requirements traverser.Requirements
	locked       bool
	broken       error

	lastEnd      *traverser.Traverser
	lastEndCount uint64

	log     *logger.Logger
	metrics *observability.Metrics
}

// Option configures a Traversal.
type Option func(*Traversal)

// WithGraph binds the traversal to g. Unless WithStrategies is given, the
// default strategies registered for g's kind are used.
func WithGraph(g Graph) Option {
	return func(t *Traversal) { t.graph = g }
}

// WithStrategies sets the strategy set.
func WithStrategies(s *Strategies) Option {
	return func(t *Traversal) { t.strategies = s }
}

// WithSideEffects sets the side-effect store.
func WithSideEffects(s *sideeffect.Store) Option {
	return func(t *Traversal) { t.sideEffects = s }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(t *Traversal) { t.log = l }
}

// WithMetrics sets the metric instruments.
func WithMetrics(m *observability.Metrics) Option {
	return func(t *Traversal) { t.metrics = m }
}

// New creates an empty, unlocked traversal.
func New(opts ...Option) *Traversal {
	t := &Traversal{id: uuid.NewString()}
	for _, opt := range opts {
		opt(t)
	}
	if t.strategies == nil {
		t.strategies = DefaultStrategies(t.graph)
	}
	if t.sideEffects == nil {
		t.sideEffects = sideeffect.New()
	}
	if t.log == nil {
		t.log = logger.Get("traversal")
	}
	return t
}

// Of creates a traversal holding steps, in order.
func Of(steps []Step, opts ...Option) (*Traversal, error) {
	t := New(opts...)
	for _, s := range steps {
		if err := t.AddStep(s); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// ID is a process-unique identifier used in logs and spans.
func (t *Traversal) ID() string { return t.id }

// Steps returns a copy of the step chain.
func (t *Traversal) Steps() []Step { return slices.Clone(t.steps) }

// Len returns the number of steps.
func (t *Traversal) Len() int { return len(t.steps) }

// Step returns the step at position i.
func (t *Traversal) Step(i int) Step {
	if i < 0 || i >= len(t.steps) {
		return nil
	}
	return t.steps[i]
}

// StartStep returns the first step, or nil.
func (t *Traversal) StartStep() Step { return t.Step(0) }

// EndStep returns the last step, or nil.
func (t *Traversal) EndStep() Step { return t.Step(len(t.steps) - 1) }

// Parent returns the step owning this traversal, or nil for a root.
func (t *Traversal) Parent() Step { return t.parent }

// IsRoot reports whether the traversal has no parent step.
func (t *Traversal) IsRoot() bool { return t.parent == nil }

// SideEffects returns the shared side-effect store.
func (t *Traversal) SideEffects() *sideeffect.Store { return t.sideEffects }

// Strategies returns the strategy set.
func (t *Traversal) Strategies() *Strategies { return t.strategies }

// Graph returns the bound graph, or nil.
func (t *Traversal) Graph() Graph { return t.graph }

// IsLocked reports whether the traversal has been finalized.
func (t *Traversal) IsLocked() bool { return t.locked }

// Logger returns the traversal's logger tagged with its id.
func (t *Traversal) Logger() *logger.Logger { return t.log.WithTraversal(t.id) }

// Metrics returns the metric instruments, possibly nil.
func (t *Traversal) Metrics() *observability.Metrics { return t.metrics }

// Requirements returns the frozen requirement set of a locked traversal, or
// the set computed from the current steps otherwise.
func (t *Traversal) Requirements() traverser.Requirements {
	if t.locked && t.requirements != nil {
		return t.requirements.Clone()
	}
	return t.computeRequirements()
}

// SetStrategies replaces the strategy set.
func (t *Traversal) SetStrategies(s *Strategies) error {
	if err := t.mutable("set strategies"); err != nil {
		return err
	}
	t.strategies = s
	return nil
}

// SetSideEffects replaces the side-effect store.
func (t *Traversal) SetSideEffects(s *sideeffect.Store) error {
	if err := t.mutable("set side-effects"); err != nil {
		return err
	}
	t.sideEffects = s
	for _, st := range t.steps {
		t.adopt(st)
	}
	return nil
}

// SetGraph binds g.
func (t *Traversal) SetGraph(g Graph) error {
	if err := t.mutable("set graph"); err != nil {
		return err
	}
	t.graph = g
	for _, st := range t.steps {
		t.adopt(st)
	}
	return nil
}

// AddStep appends s.
func (t *Traversal) AddStep(s Step) error {
	return t.InsertStep(len(t.steps), s)
}

// InsertStep inserts s at position i, relinking its neighbours.
func (t *Traversal) InsertStep(i int, s Step) error {
	if err := t.mutable("add step"); err != nil {
		return err
	}
	if s == nil {
		return errors.InvalidInput("step", "must not be nil")
	}
	if i < 0 || i > len(t.steps) {
		return errors.InvalidInput("index", fmt.Sprintf("%d out of range [0,%d]", i, len(t.steps)))
	}
	b := s.base()
	if b.traversal != nil {
		return errors.InvalidInput("step", fmt.Sprintf("%s already belongs to a traversal", s.Name()))
	}
	if b.self == nil {
		b.self = s
	}
	t.steps = slices.Insert(t.steps, i, s)
	b.traversal = t
	t.reindex(i)
	t.adopt(s)
	return nil
}

// RemoveStep removes and returns the step at position i.
func (t *Traversal) RemoveStep(i int) (Step, error) {
	if err := t.mutable("remove step"); err != nil {
		return nil, err
	}
	if i < 0 || i >= len(t.steps) {
		return nil, errors.InvalidInput("index", fmt.Sprintf("%d out of range [0,%d)", i, len(t.steps)))
	}
	s := t.steps[i]
	t.steps = slices.Delete(t.steps, i, i+1)
	b := s.base()
	b.traversal = nil
	b.index = 0
	t.reindex(i)
	return s, nil
}

func (t *Traversal) mutable(op string) error {
	if t.broken != nil {
		return t.broken
	}
	if t.locked {
		return errors.LockedState(op)
	}
	return nil
}

func (t *Traversal) reindex(from int) {
	for j := from; j < len(t.steps); j++ {
		t.steps[j].base().index = j
	}
}

// adopt binds the children of a parent step to this traversal.
func (t *Traversal) adopt(s Step) {
	p, ok := s.(Parent)
	if !ok {
		return
	}
	for _, c := range children(p) {
		c.parent = s
		t.propagate(c)
	}
}

// propagate shares this traversal's context with a nested child.
func (t *Traversal) propagate(child *Traversal) {
	child.sideEffects = t.sideEffects
	child.strategies = t.strategies
	child.graph = t.graph
	child.log = t.log
	child.metrics = t.metrics
	for _, s := range child.steps {
		child.adopt(s)
	}
}

func children(p Parent) []*Traversal {
	var out []*Traversal
	for _, c := range p.GlobalChildren() {
		if c != nil {
			out = append(out, c)
		}
	}
	for _, c := range p.LocalChildren() {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

// Finalize applies strategies, finalizes children, assigns step ids and
// locks the traversal. It runs at most once; later calls return the first
// outcome. Pulling finalizes implicitly.
func (t *Traversal) Finalize(ctx context.Context) error {
	if t.broken != nil {
		return t.broken
	}
	if t.locked {
		return nil
	}

	start := time.Now()
	ctx, span := observability.StartSpan(ctx, observability.SpanFinalize)
	observability.SetSpanAttribute(ctx, observability.AttrTraversalID, t.id)
	err := t.finalize(ctx)
	observability.SetSpanAttribute(ctx, observability.AttrStepCount, len(t.steps))
	observability.EndSpan(span, err)
	t.metrics.RecordFinalize(ctx, len(t.steps), observability.Status(err), time.Since(start))

	log := t.Logger()
	if err != nil {
		t.broken = err
		t.metrics.RecordError(ctx, string(errors.CodeOf(err)), "traversal")
		log.Warn("finalize failed", logger.ErrorFields("finalize", err))
		return err
	}
	log.Debug("traversal locked", logger.Fields(
		logger.FieldStepCount, len(t.steps),
		logger.FieldRequire, requirementNames(t.requirements),
		logger.FieldDuration, time.Since(start).Milliseconds(),
	))
	return nil
}

func (t *Traversal) finalize(ctx context.Context) error {
	order, err := t.strategies.Order()
	if err != nil {
		return err
	}
	log := t.Logger()
	if len(order) > 0 {
		log.Debug("strategies resolved", logger.Fields("order", names(order)))
	}
	for _, s := range order {
		begin := time.Now()
		sctx, span := observability.StartSpan(ctx, observability.SpanStrategy+s.Name())
		observability.SetSpanAttribute(sctx, observability.AttrCategory, s.Category().String())
		err := s.Apply(sctx, t)
		observability.EndSpan(span, err)
		t.metrics.RecordStrategy(ctx, s.Name(), s.Category().String(), time.Since(begin))
		if err != nil {
			return err
		}
		log.Debug("strategy applied", logger.Fields(
			logger.FieldStrategy, s.Name(),
			logger.FieldCategory, s.Category().String(),
			logger.FieldStepCount, len(t.steps),
		))
	}

	for _, s := range t.steps {
		p, ok := s.(Parent)
		if !ok {
			continue
		}
		for _, c := range children(p) {
			c.parent = s
			t.propagate(c)
			if err := c.Finalize(ctx); err != nil {
				return err
			}
		}
	}

	if t.IsRoot() {
		t.assignIDs("")
	}
	t.requirements = t.computeRequirements()
	t.locked = true
	return nil
}

// assignIDs numbers steps by position. A step nested in child c of parent
// step p is identified as "<p>.<c>.<position>".
func (t *Traversal) assignIDs(prefix string) {
	for i, s := range t.steps {
		s.base().id = prefix + strconv.Itoa(i)
		if p, ok := s.(Parent); ok {
			for j, c := range children(p) {
				c.assignIDs(s.ID() + "." + strconv.Itoa(j) + ".")
			}
		}
	}
}

func (t *Traversal) computeRequirements() traverser.Requirements {
	reqs := traverser.NewRequirements()
	for _, s := range t.steps {
		reqs.Merge(s.Requirements())
	}
	if t.sideEffects != nil {
		if t.sideEffects.Len() > 0 {
			reqs.Add(traverser.RequirementSideEffects)
		}
		if _, ok := t.sideEffects.Sack(); ok {
			reqs.Add(traverser.RequirementSack)
		}
	}
	if reqs.Has(traverser.RequirementOneBulk) {
		reqs.Remove(traverser.RequirementBulk)
	}
	return reqs
}

func names(ss []Strategy) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = s.Name()
	}
	return out
}

func requirementNames(r traverser.Requirements) []string {
	names := make([]string, 0, len(r))
	for _, x := range r.Sorted() {
		names = append(names, string(x))
	}
	return names
}

// Reset clears all execution state so the traversal can be re-run with
// new starts. Structure, lock state and side-effects are kept.
func (t *Traversal) Reset() {
	for _, s := range t.steps {
		s.base().resetIO()
		s.Reset()
		if p, ok := s.(Parent); ok {
			for _, c := range children(p) {
				c.Reset()
			}
		}
	}
	t.lastEnd = nil
	t.lastEndCount = 0
}

// Clone returns a structurally equal, independent traversal with a fresh
// id and no execution state. Strategies are shared; side-effects are copied.
func (t *Traversal) Clone() *Traversal {
	c := &Traversal{
		id:          uuid.NewString(),
		sideEffects: t.sideEffects.Clone(),
		strategies:  t.strategies,
		graph:       t.graph,
		locked:      t.locked,
		broken:      t.broken,
		log:         t.log,
		metrics:     t.metrics,
	}
	if t.requirements != nil {
		c.requirements = t.requirements.Clone()
	}
	c.steps = make([]Step, 0, len(t.steps))
	for i, s := range t.steps {
		cs := s.Clone()
		b := cs.base()
		if b.self == nil {
			b.self = cs
		}
		b.traversal = c
		b.index = i
		b.id = s.ID()
		b.resetIO()
		c.steps = append(c.steps, cs)
	}
	for _, cs := range c.steps {
		c.adopt(cs)
	}
	return c
}

// Hash combines the step hashes in order.
func (t *Traversal) Hash() uint64 {
	h := NewHasher("traversal")
	for _, s := range t.steps {
		h.Uint64(s.Hash())
	}
	return h.Sum()
}

// Equal reports whether o has the same steps, in order, as t.
func (t *Traversal) Equal(o *Traversal) bool {
	if t == nil || o == nil {
		return t == o
	}
	if len(t.steps) != len(o.steps) {
		return false
	}
	for i := range t.steps {
		if t.steps[i].Hash() != o.steps[i].Hash() {
			return false
		}
	}
	return true
}

// String renders the step chain, e.g. [source(1,2), dedup].
func (t *Traversal) String() string {
	parts := make([]string, 0, len(t.steps))
	for _, s := range t.steps {
		if str, ok := s.(fmt.Stringer); ok {
			parts = append(parts, str.String())
		} else {
			parts = append(parts, s.Name())
		}
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
