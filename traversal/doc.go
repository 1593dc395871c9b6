// Package traversal provides the execution core of the query engine: an
// ordered, lockable chain of steps that is rewritten by strategies before
// its first pull and then evaluated lazily, one traverser at a time.
//
// # Lifecycle
//
// A Traversal is assembled with AddStep/InsertStep/RemoveStep. The first
// pull (Next, HasNext, ToList, AddStart, ...) finalizes it: strategies are
// ordered and applied, nested children are finalized, step ids are assigned
// and the requirement set is frozen. After that the traversal is locked and
// every mutation fails with errors.ErrLockedState. First pull finalizes: a
// read-looking call can rewrite the plan.
//
// # Steps
//
// Steps embed Base, which links them to their traversal by position and
// implements the pull plumbing. Every step reports one Kind at the engine
// boundary (Transform, Barrier, Delegating, Parent); optional capabilities
// (Barrier, ReducingBarrier, Parent, Looping, ...) are discovered by interface
// assertion.
//
// # Usage
//
//	t := traversal.New(traversal.WithStrategies(strategy.Standard()))
//	_ = t.AddStep(step.NewSource(1, 2, 2, 3))
//	_ = t.AddStep(step.NewDedup())
//	values, err := t.ToList(ctx) // [1 2 3]
package traversal
