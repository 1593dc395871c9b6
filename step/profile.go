package step

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kbukum/traverse/errors"
	"github.com/kbukum/traverse/sideeffect"
	"github.com/kbukum/traverse/traversal"
	"github.com/kbukum/traverse/traverser"
)

// MetricsKey is the side-effect key Profile records into.
const MetricsKey = "~metrics"

// Metrics is what Profile records about the traversers reaching it.
type Metrics struct {
	Traversers int64
	Bulk       int64
	Elapsed    time.Duration
}

// MergeMetrics adds two Metrics values.
func MergeMetrics(current, incoming any) any {
	c, _ := current.(Metrics)
	i, _ := incoming.(Metrics)
	return Metrics{
		Traversers: c.Traversers + i.Traversers,
		Bulk:       c.Bulk + i.Bulk,
		Elapsed:    c.Elapsed + i.Elapsed,
	}
}

// Profile passes traversers through and records counts and pull latency
// into the MetricsKey side-effect.
type Profile struct {
	traversal.Base
}

// NewProfile creates a Profile step.
func NewProfile() *Profile {
	p := &Profile{}
	p.Init(p)
	return p
}

func (p *Profile) Name() string         { return "profile" }
func (p *Profile) Kind() traversal.Kind { return traversal.KindTransform }

// Profiling marks the step as a profiler.
func (p *Profile) Profiling() {}

func (p *Profile) Process(ctx context.Context) (*traverser.Traverser, error) {
	start := time.Now()
	t, err := p.Pull(ctx)
	if err != nil {
		return nil, err
	}
	if store := p.SideEffects(); store != nil {
		if _, ok := store.Get(MetricsKey); !ok {
			store.Set(MetricsKey, Metrics{}, MergeMetrics)
		}
		sample := Metrics{Traversers: 1, Bulk: int64(t.Bulk()), Elapsed: time.Since(start)}
		if err := store.Add(MetricsKey, sample); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (p *Profile) Requirements() traverser.Requirements {
	return traverser.NewRequirements(traverser.RequirementBulk, traverser.RequirementSideEffects)
}

func (p *Profile) Clone() traversal.Step {
	c := *p
	c.Base.Fork(&c)
	return &c
}

func (p *Profile) Hash() uint64 { return p.Hasher().Sum() }

// Cap drains its input and then emits side-effect values: the value of a
// single key, or a map of key to value for several keys.
type Cap struct {
	traversal.Base
	keys []string
	done bool
}

// NewCap creates a Cap step over keys.
func NewCap(keys ...string) *Cap {
	c := &Cap{keys: keys}
	c.Init(c)
	return c
}

func (c *Cap) Name() string         { return "cap" }
func (c *Cap) Kind() traversal.Kind { return traversal.KindBarrier }

// Capping marks the step as emitting side-effects.
func (c *Cap) Capping() {}

// Keys returns the side-effect keys read.
func (c *Cap) Keys() []string { return append([]string(nil), c.keys...) }

func (c *Cap) Process(ctx context.Context) (*traverser.Traverser, error) {
	if c.done {
		return nil, errors.ErrExhausted
	}
	if _, err := drain(ctx, &c.Base); err != nil {
		return nil, err
	}
	c.done = true
	store := c.SideEffects()
	if store == nil {
		store = sideeffect.New()
	}
	var v any
	if len(c.keys) == 1 {
		v, _ = store.Get(c.keys[0])
	} else {
		m := make(map[string]any, len(c.keys))
		for _, k := range c.keys {
			m[k], _ = store.Get(k)
		}
		v = m
	}
	t := traverser.New(v)
	t.Attach(store)
	return t, nil
}

func (c *Cap) HasNextBarrier(ctx context.Context) (bool, error) { return c.HasInput(ctx) }

func (c *Cap) NextBarrier(ctx context.Context) (*traverser.Set, error) {
	return snapshot(ctx, &c.Base)
}

func (c *Cap) AddBarrier(set *traverser.Set) { inject(&c.Base, set) }

func (c *Cap) Reset() { c.done = false }

func (c *Cap) Requirements() traverser.Requirements {
	return traverser.NewRequirements(traverser.RequirementSideEffects)
}

func (c *Cap) Clone() traversal.Step {
	cc := *c
	cc.Base.Fork(&cc)
	cc.keys = append([]string(nil), c.keys...)
	cc.done = false
	return &cc
}

func (c *Cap) Hash() uint64 {
	h := c.Hasher()
	for _, k := range c.keys {
		h.String(k)
	}
	return h.Sum()
}

func (c *Cap) String() string {
	return fmt.Sprintf("cap(%s)", strings.Join(c.keys, ","))
}
