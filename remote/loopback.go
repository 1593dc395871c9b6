package remote

import (
	"context"

	"github.com/kbukum/traverse/errors"
	"github.com/kbukum/traverse/traversal"
	"github.com/kbukum/traverse/traverser"
)

// Loopback executes submitted traversals in process, on a goroutine, as a
// server would. It shares the submitter's side-effects.
type Loopback struct {
	name  string
	graph traversal.Graph
}

// NewLoopback creates a loopback channel. A non-nil graph replaces the
// submitted traversal's graph, standing in for the server-side data.
func NewLoopback(name string, g traversal.Graph) *Loopback {
	return &Loopback{name: name, graph: g}
}

func (l *Loopback) Name() string { return l.name }

// Submit finalizes a clone of sub without the remote strategy and streams
// its detached results. Plan errors surface here, before streaming starts.
func (l *Loopback) Submit(ctx context.Context, sub *traversal.Traversal) (traversal.Iterator[*traverser.Traverser], error) {
	c := sub.Clone()
	if err := c.SetStrategies(c.Strategies().Without(StrategyName)); err != nil {
		return nil, err
	}
	if err := c.SetSideEffects(sub.SideEffects()); err != nil {
		return nil, err
	}
	if l.graph != nil {
		if err := c.SetGraph(l.graph); err != nil {
			return nil, err
		}
	}
	if err := c.Finalize(ctx); err != nil {
		return nil, err
	}

	return traversal.Stream(ctx, func(ctx context.Context, emit func(*traverser.Traverser) error) error {
		defer c.Close()
		for {
			tr, err := c.NextTraverser(ctx)
			if errors.IsExhausted(err) {
				return nil
			}
			if err != nil {
				return err
			}
			if err := emit(tr.Detach()); err != nil {
				return err
			}
		}
	}), nil
}
