package strategy

import (
	"context"

	"github.com/kbukum/traverse/step"
	"github.com/kbukum/traverse/traversal"
)

// IdentityRemoval removes identity steps that carry no labels. A traversal
// that held at least one step keeps one.
type IdentityRemoval struct {
	traversal.Unconstrained
}

// NewIdentityRemoval creates the strategy.
func NewIdentityRemoval() *IdentityRemoval { return &IdentityRemoval{} }

func (*IdentityRemoval) Name() string                 { return NameIdentityRemoval }
func (*IdentityRemoval) Category() traversal.Category { return traversal.CategoryOptimization }

func (r *IdentityRemoval) Apply(_ context.Context, t *traversal.Traversal) error {
	for i := t.Len() - 1; i >= 0; i-- {
		if t.Len() == 1 {
			return nil
		}
		id, ok := t.Step(i).(*step.Identity)
		if !ok || len(id.Labels()) > 0 {
			continue
		}
		if _, err := t.RemoveStep(i); err != nil {
			return err
		}
	}
	return nil
}
