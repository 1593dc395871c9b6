package step

import (
	"context"

	"github.com/kbukum/traverse/errors"
	"github.com/kbukum/traverse/traversal"
	"github.com/kbukum/traverse/traverser"
)

// ProgramFunc computes over the complete input in one bulk-synchronous pass.
type ProgramFunc func(ctx context.Context, in []*traverser.Traverser) ([]*traverser.Traverser, error)

// Program runs a whole-input computation. It requires a distributed
// executor and is rejected by verification unless computer verification
// is active.
type Program struct {
	traversal.Base
	name string
	fn   ProgramFunc

	out []*traverser.Traverser
	ran bool
}

// NewProgram creates a Program step.
func NewProgram(name string, fn ProgramFunc) *Program {
	p := &Program{name: name, fn: fn}
	p.Init(p)
	return p
}

func (p *Program) Name() string         { return p.name }
func (p *Program) Kind() traversal.Kind { return traversal.KindBarrier }

// RequiresComputer marks the step as needing distributed execution.
func (p *Program) RequiresComputer() {}

func (p *Program) Process(ctx context.Context) (*traverser.Traverser, error) {
	if !p.ran {
		in, err := drain(ctx, &p.Base)
		if err != nil {
			return nil, err
		}
		p.ran = true
		if p.out, err = p.fn(ctx, in); err != nil {
			return nil, err
		}
	}
	if len(p.out) == 0 {
		return nil, errors.ErrExhausted
	}
	t := p.out[0]
	p.out = p.out[1:]
	return t, nil
}

func (p *Program) HasNextBarrier(ctx context.Context) (bool, error) { return p.HasInput(ctx) }

func (p *Program) NextBarrier(ctx context.Context) (*traverser.Set, error) {
	return snapshot(ctx, &p.Base)
}

func (p *Program) AddBarrier(set *traverser.Set) { inject(&p.Base, set) }

func (p *Program) Reset() { p.out, p.ran = nil, false }

func (p *Program) Requirements() traverser.Requirements {
	return traverser.NewRequirements(traverser.RequirementBulk, traverser.RequirementSideEffects)
}

func (p *Program) Clone() traversal.Step {
	c := *p
	c.Base.Fork(&c)
	c.out, c.ran = nil, false
	return &c
}

func (p *Program) Hash() uint64 { return p.Hasher().String(p.name).Sum() }
