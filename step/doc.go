// Package step provides the step catalog of the traversal engine.
//
// Transform steps (Map, Filter, FlatMap, SideEffect, Identity) wrap user
// functions. Barrier steps (Dedup, Count, Sum, Fold, Reduce, Cap, Program)
// drain their upstream and support snapshot extraction and merging so their
// accumulation can be computed in shards. Repeat owns a loop body child and
// Source feeds elements into a traversal.
//
//	t := traversal.New()
//	_ = t.AddStep(step.NewSource(1, 2, 2, 3, 1, 3))
//	_ = t.AddStep(step.NewDedup())
//	values, _ := t.ToList(ctx) // [1 2 3]
package step
