package remote

import (
	"context"
	"fmt"

	"github.com/kbukum/traverse/errors"
	"github.com/kbukum/traverse/step"
	"github.com/kbukum/traverse/strategy"
	"github.com/kbukum/traverse/traversal"
)

// StrategyName names the remote strategy.
const StrategyName = "remote"

// Strategy moves a root traversal into a delegating Step. Nested
// traversals are left alone: they travel inside their root.
type Strategy struct {
	traversal.Unconstrained
}

// NewStrategy creates the remote strategy.
func NewStrategy() *Strategy { return &Strategy{} }

func (*Strategy) Name() string                 { return StrategyName }
func (*Strategy) Category() traversal.Category { return traversal.CategoryDecoration }

// Apply fails with PLAN_VERIFICATION, leaving t untouched, when t has no
// graph or the graph exposes no channel.
func (r *Strategy) Apply(_ context.Context, t *traversal.Traversal) error {
	if !t.IsRoot() {
		return nil
	}
	conn, err := channelOf(t.Graph())
	if err != nil {
		return err
	}
	if t.Len() == 0 {
		return nil
	}
	if _, done := t.Step(0).(*Step); done && t.Len() == 1 {
		return nil
	}

	for _, s := range traversal.StepsOf[*step.Source](t) {
		s.ConvertElementsToIDs()
	}
	sub := traversal.New(
		traversal.WithGraph(t.Graph()),
		traversal.WithSideEffects(t.SideEffects()),
		traversal.WithStrategies(traversal.NewStrategies()),
		traversal.WithLogger(t.Logger()),
		traversal.WithMetrics(t.Metrics()),
	)
	if err := traversal.MoveStepsTo(t, 0, sub); err != nil {
		return err
	}
	return t.AddStep(NewStep(sub, conn))
}

func channelOf(g traversal.Graph) (Connection, error) {
	if g == nil {
		return nil, errors.PlanVerification("remote execution requires a graph")
	}
	rg, ok := g.(Graph)
	if !ok {
		return nil, errors.PlanVerification(fmt.Sprintf("graph %q cannot be reached remotely", g.Kind())).
			WithDetail("graph", g.Kind())
	}
	conn := rg.RemoteChannel()
	if conn == nil {
		return nil, errors.PlanVerification(fmt.Sprintf("graph %q has no remote channel", g.Kind())).
			WithDetail("graph", g.Kind())
	}
	return conn, nil
}

// Strategies returns the standard set plus the remote strategy, for
// registering as the default of remote graph kinds.
func Strategies() *traversal.Strategies {
	return strategy.Standard().With(NewStrategy())
}
