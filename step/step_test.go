package step

import (
	"context"
	"fmt"
	"math"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/kbukum/traverse/errors"
	"github.com/kbukum/traverse/sideeffect"
	"github.com/kbukum/traverse/traversal"
	"github.com/kbukum/traverse/traverser"
)

func build(t *testing.T, steps ...traversal.Step) *traversal.Traversal {
	t.Helper()
	tr, err := traversal.Of(steps, traversal.WithStrategies(traversal.NewStrategies()))
	if err != nil {
		t.Fatalf("building traversal: %v", err)
	}
	return tr
}

func run(t *testing.T, tr *traversal.Traversal) []any {
	t.Helper()
	got, err := tr.ToList(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return got
}

func inc(v int) (int, error) { return v + 1, nil }

func TestDedup_FirstOccurrenceOrder(t *testing.T) {
	got := run(t, build(t, NewSource(1, 2, 2, 3, 1, 3), NewDedup()))
	if diff := cmp.Diff([]any{1, 2, 3}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestDedup_NormalizesBulk(t *testing.T) {
	tests := []struct {
		name   string
		bypass bool
		want   []any
	}{
		{"filtering", false, []any{"x"}},
		{"bypassed", true, []any{"x", "x"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			d := NewDedup()
			d.SetBypass(tc.bypass)
			tr := build(t, d)
			for i := 0; i < 2; i++ {
				if err := tr.AddStart(ctx, traverser.NewBulk("x", 3)); err != nil {
					t.Fatal(err)
				}
			}
			if diff := cmp.Diff(tc.want, run(t, tr)); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func labeled(a, b any) *traverser.Traverser {
	return traverser.New(a).Labeled("a").Split(b).Labeled("b")
}

func TestDedup_LabelTuple(t *testing.T) {
	ctx := context.Background()
	d := NewDedup("a", "b", "a")
	tr := build(t, d)
	for _, tt := range []*traverser.Traverser{
		labeled("x", "y"),
		labeled("x", "y"),
		labeled("x", "z"),
		labeled("w", "y"),
	} {
		if err := tr.AddStart(ctx, tt); err != nil {
			t.Fatal(err)
		}
	}
	if diff := cmp.Diff([]any{"y", "z", "y"}, run(t, tr)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a", "b"}, d.KeyLabels()); diff != "" {
		t.Errorf("labels not collapsed:\n%s", diff)
	}
	if !d.Requirements().Has(traverser.RequirementLabeledPath) || !d.Requirements().Has(traverser.RequirementBulk) {
		t.Errorf("unexpected requirements %v", d.Requirements().Sorted())
	}
	if NewDedup().Requirements().Has(traverser.RequirementLabeledPath) {
		t.Error("value dedup should not need labeled paths")
	}

	t.Run("separator inside a label value", func(t *testing.T) {
		tr := build(t, NewDedup("a", "b"))
		for _, tt := range []*traverser.Traverser{
			labeled("p,string:q", "r"),
			labeled("p", "q,string:r"),
		} {
			if err := tr.AddStart(ctx, tt); err != nil {
				t.Fatal(err)
			}
		}
		if diff := cmp.Diff([]any{"r", "q,string:r"}, run(t, tr)); diff != "" {
			t.Errorf("distinct tuples merged (-want +got):\n%s", diff)
		}
	})
}

func TestDedup_MissingLabelIsNil(t *testing.T) {
	ctx := context.Background()
	tr := build(t, NewDedup("missing"))
	for _, v := range []any{1, 2} {
		if err := tr.AddStart(ctx, traverser.New(v)); err != nil {
			t.Fatal(err)
		}
	}
	if diff := cmp.Diff([]any{1}, run(t, tr)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestDedup_By(t *testing.T) {
	parity := build(t, NewMap("parity", func(v int) (int, error) { return v % 2, nil }))
	got := run(t, build(t, NewSource(1, 2, 3, 4), NewDedup().By(parity)))
	if diff := cmp.Diff([]any{1, 2}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func drainShard(t *testing.T, values []any) *traverser.Set {
	t.Helper()
	d := NewDedup()
	tr := build(t, NewSource(values...), d)
	if err := tr.Finalize(context.Background()); err != nil {
		t.Fatal(err)
	}
	snap, err := d.NextBarrier(context.Background())
	if errors.IsExhausted(err) {
		return nil
	}
	if err != nil {
		t.Fatal(err)
	}
	return snap
}

func TestDedup_MergeIsCommutative(t *testing.T) {
	input := []any{1, 2, 2, 3, 1, 3}
	want := []any{1, 2, 3}
	sortAny := cmpopts.SortSlices(func(a, b any) bool { return a.(int) < b.(int) })

	for split := 0; split <= len(input); split++ {
		left, right := input[:split], input[split:]
		for _, order := range [][2][]any{{left, right}, {right, left}} {
			t.Run(fmt.Sprintf("split=%d/%v", split, order[0]), func(t *testing.T) {
				target := NewDedup()
				tr := build(t, target)
				for _, part := range order {
					target.AddBarrier(drainShard(t, part))
				}
				if diff := cmp.Diff(want, run(t, tr), sortAny); diff != "" {
					t.Errorf("mismatch (-want +got):\n%s", diff)
				}
			})
		}
	}
}

func TestDedup_SnapshotIsDetached(t *testing.T) {
	snap := drainShard(t, []any{1, 1, 2})
	if snap.Len() != 2 {
		t.Fatalf("expected 2 distinct traversers, got %d", snap.Len())
	}
	for _, tt := range snap.Traversers() {
		if tt.SideEffects() != nil || tt.Bulk() != 1 {
			t.Errorf("snapshot traverser not detached: %v", tt)
		}
	}
}

func TestDedup_EmptyBarrierIsExhausted(t *testing.T) {
	d := NewDedup()
	build(t, d)
	if _, err := d.NextBarrier(context.Background()); !errors.IsExhausted(err) {
		t.Errorf("expected exhausted, got %v", err)
	}
	if ok, err := d.HasNextBarrier(context.Background()); ok || err != nil {
		t.Errorf("HasNextBarrier = %v, %v", ok, err)
	}
}

func TestDedup_ResetKeepsBypass(t *testing.T) {
	ctx := context.Background()
	d := NewDedup()
	tr := build(t, NewSource(1, 1), d)
	if diff := cmp.Diff([]any{1}, run(t, tr)); diff != "" {
		t.Fatalf("first run:\n%s", diff)
	}
	d.SetBypass(true)
	tr.Reset()
	if !d.Bypass() {
		t.Fatal("reset cleared bypass")
	}
	got, err := tr.ToList(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]any{1, 1}, got); diff != "" {
		t.Errorf("second run (-want +got):\n%s", diff)
	}
}

func TestDedup_HashAndClone(t *testing.T) {
	if NewDedup("a").Hash() == NewDedup("b").Hash() {
		t.Error("different labels should hash differently")
	}
	if NewDedup("a").Hash() != NewDedup("a").Hash() {
		t.Error("equal configuration should hash equally")
	}
	bypassed := NewDedup()
	bypassed.SetBypass(true)
	if bypassed.Hash() == NewDedup().Hash() {
		t.Error("bypass is part of the structure")
	}

	parity := build(t, NewMap("parity", func(v int) (int, error) { return v % 2, nil }))
	d := NewDedup().By(parity)
	c := d.Clone().(*Dedup)
	if c.by == d.by || c.Hash() != d.Hash() {
		t.Error("clone should deep-copy the By child")
	}
}

func TestCount(t *testing.T) {
	ctx := context.Background()
	if diff := cmp.Diff([]any{int64(3)}, run(t, build(t, NewSource(1, 2, 3), NewCount()))); diff != "" {
		t.Errorf("count mismatch:\n%s", diff)
	}
	if diff := cmp.Diff([]any{int64(0)}, run(t, build(t, NewSource(), NewCount()))); diff != "" {
		t.Errorf("empty count mismatch:\n%s", diff)
	}

	tr := build(t, NewCount())
	if err := tr.AddStart(ctx, traverser.NewBulk("x", 4)); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]any{int64(4)}, run(t, tr)); diff != "" {
		t.Errorf("bulk count mismatch:\n%s", diff)
	}
	tr = build(t, NewCount())
	for v, bulk := range map[string]uint64{"x": math.MaxUint64, "y": 5} {
		if err := tr.AddStart(ctx, traverser.NewBulk(v, bulk)); err != nil {
			t.Fatal(err)
		}
	}
	if diff := cmp.Diff([]any{int64(math.MaxInt64)}, run(t, tr)); diff != "" {
		t.Errorf("huge bulk count should saturate:\n%s", diff)
	}
}

func TestReduce_ShardedMerge(t *testing.T) {
	ctx := context.Background()
	partial := func(values ...any) *traverser.Set {
		c := NewCount()
		tr := build(t, NewSource(values...), c)
		if err := tr.Finalize(ctx); err != nil {
			t.Fatal(err)
		}
		snap, err := c.NextBarrier(ctx)
		if err != nil {
			t.Fatal(err)
		}
		return snap
	}

	target := NewCount()
	tr := build(t, target)
	target.AddBarrier(partial(1, 2))
	target.AddBarrier(partial("a", "b"))
	if diff := cmp.Diff([]any{int64(4)}, run(t, tr)); diff != "" {
		t.Errorf("merged count mismatch:\n%s", diff)
	}
}

func TestSumAndFold(t *testing.T) {
	if diff := cmp.Diff([]any{int64(6)}, run(t, build(t, NewSource(1, 2, 3), NewSum()))); diff != "" {
		t.Errorf("sum mismatch:\n%s", diff)
	}
	if diff := cmp.Diff([]any{[]any{"a", "b"}}, run(t, build(t, NewSource("a", "b"), NewFold()))); diff != "" {
		t.Errorf("fold mismatch:\n%s", diff)
	}
	tr := build(t, NewSum())
	if err := tr.AddStart(context.Background(), traverser.NewBulk(3, 1<<40)); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]any{int64(3) << 40}, run(t, tr)); diff != "" {
		t.Errorf("bulk sum mismatch:\n%s", diff)
	}
}

type vertex struct{ id int }

func (v vertex) ID() any { return v.id }

type memGraph map[int]vertex

func (g memGraph) Kind() string { return "memory" }

func (g memGraph) Resolve(_ context.Context, ids []any) ([]any, error) {
	out := make([]any, 0, len(ids))
	for _, id := range ids {
		if v, ok := g[id.(int)]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

func TestSource_ConvertElementsToIDs(t *testing.T) {
	src := NewSource(vertex{1}, vertex{2}, "literal")
	before := src.Hash()
	src.ConvertElementsToIDs()
	if diff := cmp.Diff([]any{1, 2, "literal"}, src.Elements()); diff != "" {
		t.Errorf("ids mismatch:\n%s", diff)
	}
	if !src.ReturnsIDs() || src.Hash() == before {
		t.Error("conversion should change the structure")
	}

	in := []any{vertex{3}, vertex{4}}
	owned := NewSource(in...)
	owned.ConvertElementsToIDs()
	if diff := cmp.Diff([]any{vertex{3}, vertex{4}}, in, cmp.AllowUnexported(vertex{})); diff != "" {
		t.Errorf("caller's slice rewritten:\n%s", diff)
	}
	if diff := cmp.Diff([]any{3, 4}, owned.Elements()); diff != "" {
		t.Errorf("ids mismatch:\n%s", diff)
	}

	// Without a resolver the ids flow through.
	if diff := cmp.Diff([]any{1, 2, "literal"}, run(t, build(t, src))); diff != "" {
		t.Errorf("unresolved mismatch:\n%s", diff)
	}

	g := memGraph{1: {1}, 2: {2}}
	resolved := NewSource(vertex{1}, vertex{2})
	resolved.ConvertElementsToIDs()
	tr, err := traversal.Of([]traversal.Step{resolved},
		traversal.WithGraph(g), traversal.WithStrategies(traversal.NewStrategies()))
	if err != nil {
		t.Fatal(err)
	}
	got := run(t, tr)
	if diff := cmp.Diff([]any{vertex{1}, vertex{2}}, got, cmp.AllowUnexported(vertex{})); diff != "" {
		t.Errorf("resolved mismatch:\n%s", diff)
	}
}

func TestLambdas(t *testing.T) {
	double := NewMap("double", func(v int) (int, error) { return v * 2, nil })
	odd := NewFilter("odd", func(v int) (bool, error) { return v%2 == 1, nil })
	repeat := NewFlatMap("twice", func(v int) ([]int, error) { return []int{v, v}, nil })

	got := run(t, build(t, NewSource(1, 2, 3), odd, repeat, double, NewIdentity()))
	if diff := cmp.Diff([]any{2, 2, 6, 6}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestMap_TypeMismatch(t *testing.T) {
	tr := build(t, NewSource("x"), NewMap("inc", inc))
	if _, err := tr.ToList(context.Background()); !errors.IsCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
}

func TestSideEffect(t *testing.T) {
	tr := build(t, NewSource(1, 2), NewSideEffect("collect", func(v any, store *sideeffect.Store) error {
		return store.Add("seen", v)
	}))
	tr.SideEffects().Set("seen", []any{}, sideeffect.AddAll)
	run(t, tr)
	got, _ := tr.SideEffects().Get("seen")
	if diff := cmp.Diff([]any{1, 2}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestRepeat(t *testing.T) {
	body := build(t, NewMap("inc", inc))
	got := run(t, build(t, NewSource(1, 10), NewRepeat(body, 3)))
	if diff := cmp.Diff([]any{4, 13}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	fan := build(t, NewFlatMap("fan", func(v int) ([]int, error) { return []int{v, v + 1}, nil }))
	got = run(t, build(t, NewSource(0), NewRepeat(fan, 2)))
	if diff := cmp.Diff([]any{0, 1, 1, 2}, got); diff != "" {
		t.Errorf("fan-out mismatch (-want +got):\n%s", diff)
	}
}

func TestProfileAndCap(t *testing.T) {
	tr := build(t, NewSource(1, 2, 3), NewProfile(), NewCap(MetricsKey))
	got := run(t, tr)
	if len(got) != 1 {
		t.Fatalf("expected one capped value, got %v", got)
	}
	m, ok := got[0].(Metrics)
	if !ok {
		t.Fatalf("unexpected cap value %T", got[0])
	}
	if m.Traversers != 3 || m.Bulk != 3 {
		t.Errorf("unexpected metrics %+v", m)
	}
}

func TestCap_MultipleKeys(t *testing.T) {
	c := NewCap("a", "b")
	tr := build(t, NewSource(1), c)
	tr.SideEffects().Set("a", 1, nil)
	got := run(t, tr)
	want := []any{map[string]any{"a": 1, "b": nil}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a", "b"}, c.Keys()); diff != "" {
		t.Errorf("keys mismatch:\n%s", diff)
	}
}

func TestProgram(t *testing.T) {
	total := NewProgram("total", func(_ context.Context, in []*traverser.Traverser) ([]*traverser.Traverser, error) {
		sum := 0
		for _, tt := range in {
			sum += tt.Value().(int) * int(tt.Bulk())
		}
		return []*traverser.Traverser{traverser.New(sum)}, nil
	})
	if diff := cmp.Diff([]any{6}, run(t, build(t, NewSource(1, 2, 3), total))); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestStepIDsAfterFinalize(t *testing.T) {
	body := build(t, NewIdentity(), NewMap("inc", inc))
	tr := build(t, NewSource(1), NewRepeat(body, 1))
	if err := tr.Finalize(context.Background()); err != nil {
		t.Fatal(err)
	}
	var ids []string
	traversal.Walk(tr, func(s traversal.Step) bool {
		ids = append(ids, s.ID())
		return true
	})
	if diff := cmp.Diff([]string{"0", "1", "1.0.0", "1.0.1"}, ids); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}
	if !slices.Contains(ids, "1.0.1") {
		t.Error("nested id missing")
	}
}
