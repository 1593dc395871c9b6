package shard

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/kbukum/traverse/config"
	"github.com/kbukum/traverse/errors"
	"github.com/kbukum/traverse/logger"
	"github.com/kbukum/traverse/observability"
	"github.com/kbukum/traverse/sideeffect"
	"github.com/kbukum/traverse/traversal"
	"github.com/kbukum/traverse/traverser"
)

// Executor drains shard traversals with bounded parallelism.
type Executor struct {
	maxParallel int
	log         *logger.Logger
	metrics     *observability.Metrics
}

// Option configures an Executor.
type Option func(*Executor)

// WithMaxParallel bounds how many shards drain at once. Values below 1
// mean GOMAXPROCS.
func WithMaxParallel(n int) Option {
	return func(e *Executor) { e.maxParallel = n }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(e *Executor) { e.log = l }
}

// WithMetrics sets the metric instruments.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Executor) { e.metrics = m }
}

// New creates an Executor.
func New(opts ...Option) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	if e.maxParallel < 1 {
		e.maxParallel = runtime.GOMAXPROCS(0)
	}
	if e.log == nil {
		e.log = logger.Get("shard")
	}
	return e
}

// NewFromConfig creates an Executor from the shards section of the config.
func NewFromConfig(cfg config.ShardsConfig, opts ...Option) *Executor {
	return New(append([]Option{WithMaxParallel(cfg.MaxParallel)}, opts...)...)
}

// MaxParallel returns the parallelism bound.
func (e *Executor) MaxParallel() int { return e.maxParallel }

// Merge drains the end barrier of every shard and folds the snapshots into
// target in shard order. Side-effects of all shards are merged into the
// target's store first, once per distinct store; a key held by several shards without a merge
// operation fails with CONFLICT. Nothing reaches target unless every shard
// drained and every side-effect reconciled.
func (e *Executor) Merge(ctx context.Context, shards []*traversal.Traversal, target traversal.Barrier) (err error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanShardMerge)
	observability.SetSpanAttribute(ctx, observability.AttrShards, len(shards))
	defer func() {
		observability.EndSpan(span, err)
		e.metrics.RecordShardMerge(ctx, len(shards), observability.Status(err))
		if err != nil {
			e.metrics.RecordError(ctx, string(errors.CodeOf(err)), "shard")
			e.log.Warn("shard merge failed", logger.ErrorFields("merge", err))
		}
	}()

	owner, err := e.validate(shards, target)
	if err != nil {
		return err
	}
	if err := owner.Finalize(ctx); err != nil {
		return err
	}

	snapshots := make([][]*traverser.Set, len(shards))
	p := pool.New().
		WithContext(ctx).
		WithCancelOnError().
		WithFirstError().
		WithMaxGoroutines(e.maxParallel)
	for i, sh := range shards {
		p.Go(func(ctx context.Context) error {
			sets, err := e.drain(ctx, i, sh)
			if err != nil {
				return fmt.Errorf("shard %d: %w", i, err)
			}
			snapshots[i] = sets
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return err
	}

	acc := sideeffect.New()
	merged := map[*sideeffect.Store]bool{owner.SideEffects(): true}
	for i, sh := range shards {
		if merged[sh.SideEffects()] {
			continue
		}
		merged[sh.SideEffects()] = true
		if err := acc.Merge(sh.SideEffects()); err != nil {
			return fmt.Errorf("shard %d side-effects: %w", i, err)
		}
	}
	if err := owner.SideEffects().Merge(acc); err != nil {
		return err
	}

	for _, sets := range snapshots {
		for _, set := range sets {
			target.AddBarrier(set)
		}
	}
	e.log.Debug("shards merged", logger.Fields(logger.FieldShard, len(shards), logger.FieldStep, target.Name()))
	return nil
}

func (e *Executor) validate(shards []*traversal.Traversal, target traversal.Barrier) (*traversal.Traversal, error) {
	if target == nil {
		return nil, errors.InvalidInput("target", "must not be nil")
	}
	owner := target.Traversal()
	if owner == nil {
		return nil, errors.InvalidInput("target", fmt.Sprintf("%s does not belong to a traversal", target.Name()))
	}
	for i, sh := range shards {
		if sh == nil {
			return nil, errors.InvalidInput("shards", fmt.Sprintf("shard %d is nil", i))
		}
		if sh == owner {
			return nil, errors.InvalidInput("shards", fmt.Sprintf("shard %d is the target's traversal", i))
		}
	}
	return owner, nil
}

// drain finalizes sh and collects the snapshots of its end barrier.
func (e *Executor) drain(ctx context.Context, i int, sh *traversal.Traversal) (sets []*traverser.Set, err error) {
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, observability.SpanShardDrain)
	observability.SetSpanAttribute(ctx, observability.AttrTraversalID, sh.ID())
	defer func() { observability.EndSpan(span, err) }()

	if err := sh.Finalize(ctx); err != nil {
		return nil, err
	}
	b, ok := sh.EndStep().(traversal.Barrier)
	if !ok {
		return nil, errors.InvalidInput("shards", fmt.Sprintf("shard %d does not end in a barrier: %s", i, sh))
	}
	var bulk uint64
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		has, err := b.HasNextBarrier(ctx)
		if err != nil {
			return nil, err
		}
		if !has {
			break
		}
		set, err := b.NextBarrier(ctx)
		if errors.IsExhausted(err) {
			break
		}
		if err != nil {
			return nil, err
		}
		bulk += set.BulkSize()
		sets = append(sets, set)
	}
	e.log.Debug("shard drained", logger.Fields(
		logger.FieldShard, i,
		logger.FieldTraversalID, sh.ID(),
		"bulk", bulk,
		logger.FieldDuration, time.Since(start).Milliseconds(),
	))
	return sets, nil
}
