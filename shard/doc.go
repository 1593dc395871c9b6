// Package shard merges barrier state computed by several execution units.
//
// Each shard is a traversal over part of the input whose end step is a
// barrier. Executor.Merge drains every shard concurrently, reconciles their
// side-effects and feeds the snapshots, in shard order, into a target
// barrier whose traversal then continues as if it had seen all input:
//
//	shards := []*traversal.Traversal{part0, part1, part2}
//	target := step.NewCount()
//	rest, _ := traversal.Of([]traversal.Step{target})
//	err := shard.New(shard.WithMaxParallel(4)).Merge(ctx, shards, target)
//	total, _, _ := rest.Next(ctx)
package shard
