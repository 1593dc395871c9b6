package strategy

import (
	"context"
	"fmt"

	"github.com/kbukum/traverse/errors"
	"github.com/kbukum/traverse/traversal"
)

// Strategy names.
const (
	NameIdentityRemoval      = "identity_removal"
	NameStandardVerification = "standard_verification"
	NameComputerVerification = "computer_verification"
)

// StandardVerification rejects plans that the pull engine cannot execute.
type StandardVerification struct{}

// NewStandardVerification creates the strategy.
func NewStandardVerification() *StandardVerification { return &StandardVerification{} }

func (*StandardVerification) Name() string                 { return NameStandardVerification }
func (*StandardVerification) Category() traversal.Category { return traversal.CategoryVerification }
func (*StandardVerification) RunsBefore() []string         { return nil }
func (*StandardVerification) RunsAfter() []string          { return []string{NameComputerVerification} }

// Apply checks t. Nested children are checked when they finalize.
func (v *StandardVerification) Apply(_ context.Context, t *traversal.Traversal) error {
	if err := verifyComputer(t); err != nil {
		return err
	}
	if err := verifyLoopBarrier(t); err != nil {
		return err
	}
	return verifyProfile(t)
}

func verifyComputer(t *traversal.Traversal) error {
	if t.Strategies().Contains(NameComputerVerification) {
		return nil
	}
	for _, s := range t.Steps() {
		if _, ok := s.(traversal.Computing); ok {
			return errors.PlanVerification(fmt.Sprintf(
				"step %s requires a distributed computer, but %s is not active", s.Name(), NameComputerVerification)).
				WithDetail("step", s.Name())
		}
	}
	return nil
}

func verifyLoopBarrier(t *traversal.Traversal) error {
	if _, ok := t.Parent().(traversal.Looping); !ok {
		return nil
	}
	for _, s := range t.Steps() {
		if _, ok := s.(traversal.ReducingBarrier); ok {
			return errors.PlanVerification(fmt.Sprintf(
				"reducing barrier %s cannot be inside the body of %s", s.Name(), t.Parent().Name())).
				WithDetail("step", s.Name())
		}
	}
	return nil
}

func verifyProfile(t *traversal.Traversal) error {
	steps := t.Steps()
	at := -1
	for i, s := range steps {
		if _, ok := s.(traversal.Profiling); !ok {
			continue
		}
		if at >= 0 {
			return errors.PlanVerification("a traversal may hold at most one profile step")
		}
		at = i
	}
	if at < 0 || at == len(steps)-1 {
		return nil
	}
	if at == len(steps)-2 {
		if _, ok := steps[at+1].(traversal.Capping); ok {
			return nil
		}
	}
	return errors.PlanVerification(fmt.Sprintf(
		"profile step must be last or directly followed by a cap step, found at position %d of %d", at, len(steps))).
		WithDetail("position", at)
}

// ComputerVerification rejects plans a distributed computer cannot run:
// delegating steps, and distributed steps nested in a local child.
type ComputerVerification struct{}

// NewComputerVerification creates the strategy.
func NewComputerVerification() *ComputerVerification { return &ComputerVerification{} }

func (*ComputerVerification) Name() string                 { return NameComputerVerification }
func (*ComputerVerification) Category() traversal.Category { return traversal.CategoryVerification }
func (*ComputerVerification) RunsBefore() []string         { return nil }
func (*ComputerVerification) RunsAfter() []string          { return nil }

func (v *ComputerVerification) Apply(_ context.Context, t *traversal.Traversal) error {
	for _, s := range t.Steps() {
		if s.Kind() == traversal.KindDelegating {
			return errors.PlanVerification(fmt.Sprintf("delegating step %s cannot run on a distributed computer", s.Name())).
				WithDetail("step", s.Name())
		}
		p, ok := s.(traversal.Parent)
		if !ok {
			continue
		}
		for _, c := range p.LocalChildren() {
			if c == nil {
				continue
			}
			var bad traversal.Step
			traversal.Walk(c, func(n traversal.Step) bool {
				if _, ok := n.(traversal.Computing); ok {
					bad = n
					return false
				}
				return true
			})
			if bad != nil {
				return errors.PlanVerification(fmt.Sprintf(
					"step %s requires a distributed computer and cannot be local to %s", bad.Name(), s.Name())).
					WithDetail("step", bad.Name())
			}
		}
	}
	return nil
}
