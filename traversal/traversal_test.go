package traversal

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/kbukum/traverse/errors"
	"github.com/kbukum/traverse/sideeffect"
	"github.com/kbukum/traverse/traverser"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestToList_UnrollsBulk(t *testing.T) {
	tr := mustBuild(newTraversers(traverser.NewBulk("a", 3), traverser.New("b")))

	got, err := tr.ToList(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]any{"a", "a", "a", "b"}, got); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestNextTraverser_ReturnsRemainingBulk(t *testing.T) {
	ctx := context.Background()
	tr := mustBuild(newTraversers(traverser.NewBulk("a", 3)))

	v, ok, err := tr.Next(ctx)
	if err != nil || !ok || v != "a" {
		t.Fatalf("Next = %v, %v, %v", v, ok, err)
	}
	rest, err := tr.NextTraverser(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rest.Bulk() != 2 {
		t.Errorf("expected remaining bulk 2, got %d", rest.Bulk())
	}
	if _, err := tr.NextTraverser(ctx); !errors.IsExhausted(err) {
		t.Errorf("expected exhausted, got %v", err)
	}
}

func TestNext_EmptyTraversal(t *testing.T) {
	tr := mustBuild()
	_, ok, err := tr.Next(context.Background())
	if err != nil || ok {
		t.Errorf("expected exhausted empty traversal, got ok=%v err=%v", ok, err)
	}
}

func TestLock_RejectsMutation(t *testing.T) {
	ctx := context.Background()
	tr := mustBuild(newValues(1, 2))
	if _, err := tr.HasNext(ctx); err != nil {
		t.Fatal(err)
	}
	if !tr.IsLocked() {
		t.Fatal("expected traversal to be locked after first pull")
	}

	before := tr.String()
	err := tr.AddStep(newMap("m", func(v any) any { return v }))
	if !errors.IsCode(err, errors.ErrCodeLockedState) {
		t.Errorf("AddStep: expected LOCKED_STATE, got %v", err)
	}
	if _, err := tr.RemoveStep(0); !errors.IsCode(err, errors.ErrCodeLockedState) {
		t.Errorf("RemoveStep: expected LOCKED_STATE, got %v", err)
	}
	if err := tr.SetStrategies(NewStrategies()); !errors.IsCode(err, errors.ErrCodeLockedState) {
		t.Errorf("SetStrategies: expected LOCKED_STATE, got %v", err)
	}
	if tr.String() != before {
		t.Errorf("structure changed: %s -> %s", before, tr.String())
	}
}

func TestInsertAndRemove_Relink(t *testing.T) {
	double := newMap("double", func(v any) any { return v.(int) * 2 })
	inc := newMap("inc", func(v any) any { return v.(int) + 1 })
	tr := mustBuild(newValues(1, 2), inc)

	if err := tr.InsertStep(1, double); err != nil {
		t.Fatal(err)
	}
	if double.Previous() != tr.Step(0) || double.NextStep() != inc {
		t.Fatal("inserted step not linked to its neighbours")
	}
	removed, err := tr.RemoveStep(2)
	if err != nil || removed != inc {
		t.Fatalf("RemoveStep = %v, %v", removed, err)
	}
	if removed.Traversal() != nil {
		t.Error("removed step still attached")
	}

	got, err := tr.ToList(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]any{2, 4}, got); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestAddStep_RejectsOwnedStep(t *testing.T) {
	s := newValues(1)
	mustBuild(s)
	other := mustBuild()
	if err := other.AddStep(s); !errors.IsCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
}

func TestFinalize_AppliesStrategiesInOrder(t *testing.T) {
	var log []string
	strategies := NewStrategies(
		&fakeStrategy{name: "verify", category: CategoryVerification, log: &log},
		&fakeStrategy{name: "opt-a", category: CategoryOptimization, log: &log},
		&fakeStrategy{name: "decorate", category: CategoryDecoration, log: &log},
		&fakeStrategy{name: "provider", category: CategoryProvider, after: []string{"missing"}, log: &log},
		&fakeStrategy{name: "opt-b", category: CategoryOptimization, before: []string{"opt-a"}, log: &log},
	)
	tr, err := Of([]Step{newValues(1)}, WithStrategies(strategies))
	if err != nil {
		t.Fatal(err)
	}
	if err := tr.Finalize(context.Background()); err != nil {
		t.Fatal(err)
	}
	want := []string{"decorate", "opt-b", "opt-a", "provider", "verify"}
	if diff := cmp.Diff(want, log); diff != "" {
		t.Errorf("application order mismatch (-want +got):\n%s", diff)
	}

	// Finalize runs once.
	if err := tr.Finalize(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(log) != len(want) {
		t.Errorf("strategies re-applied: %v", log)
	}
}

func TestStrategies_OrderIsDeterministic(t *testing.T) {
	build := func() *Strategies {
		return NewStrategies(
			&fakeStrategy{name: "c", category: CategoryOptimization},
			&fakeStrategy{name: "a", category: CategoryOptimization},
			&fakeStrategy{name: "b", category: CategoryOptimization, before: []string{"c"}},
		)
	}
	first, err := build().Order()
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 20; i++ {
		again, err := build().Order()
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(names(first), names(again)); diff != "" {
			t.Fatalf("order changed between runs:\n%s", diff)
		}
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, names(first)); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestFinalize_CycleFailsBeforeAnyApply(t *testing.T) {
	var log []string
	strategies := NewStrategies(
		&fakeStrategy{name: "first", category: CategoryDecoration, log: &log},
		&fakeStrategy{name: "a", category: CategoryOptimization, before: []string{"b"}, log: &log},
		&fakeStrategy{name: "b", category: CategoryOptimization, before: []string{"a"}, log: &log},
	)
	tr, err := Of([]Step{newValues(1)}, WithStrategies(strategies))
	if err != nil {
		t.Fatal(err)
	}

	_, _, err = tr.Next(context.Background())
	if !errors.IsCode(err, errors.ErrCodeStrategyCycle) {
		t.Fatalf("expected STRATEGY_CYCLE, got %v", err)
	}
	appErr, _ := errors.AsAppError(err)
	if diff := cmp.Diff([]string{"a", "b"}, appErr.Details["strategies"]); diff != "" {
		t.Errorf("cycle members mismatch (-want +got):\n%s", diff)
	}
	if len(log) != 0 {
		t.Errorf("strategies applied despite cycle: %v", log)
	}

	// The failure sticks.
	if err2 := tr.AddStep(newValues(2)); !errors.IsCode(err2, errors.ErrCodeStrategyCycle) {
		t.Errorf("expected stored cycle error on mutation, got %v", err2)
	}
}

func TestFinalize_SelfConstraintIsCycle(t *testing.T) {
	s := NewStrategies(&fakeStrategy{name: "loop", category: CategoryProvider, before: []string{"loop"}})
	if _, err := s.Order(); !errors.IsCode(err, errors.ErrCodeStrategyCycle) {
		t.Errorf("expected STRATEGY_CYCLE, got %v", err)
	}
}

func TestFinalize_StrategyCanRewrite(t *testing.T) {
	rewrite := &fakeStrategy{name: "rewrite", category: CategoryOptimization, apply: func(tr *Traversal) error {
		return tr.AddStep(newMap("inc", func(v any) any { return v.(int) + 1 }))
	}}
	tr, err := Of([]Step{newValues(1, 2)}, WithStrategies(NewStrategies(rewrite)))
	if err != nil {
		t.Fatal(err)
	}
	got, err := tr.ToList(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]any{2, 3}, got); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestFinalize_AssignsHierarchicalIDs(t *testing.T) {
	inner := newMap("inner", func(v any) any { return v })
	child := mustBuild(newMap("first", func(v any) any { return v }), inner)
	tr := mustBuild(newValues(1), newMap("m", func(v any) any { return v }), newParent(child))

	if inner.ID() != "" {
		t.Fatalf("id assigned before finalize: %q", inner.ID())
	}
	if err := tr.Finalize(context.Background()); err != nil {
		t.Fatal(err)
	}
	if tr.Step(1).ID() != "1" {
		t.Errorf("root step id = %q", tr.Step(1).ID())
	}
	if inner.ID() != "2.0.1" {
		t.Errorf("nested step id = %q, want 2.0.1", inner.ID())
	}
	if !child.IsLocked() {
		t.Error("child not finalized with its parent")
	}
	if Root(child) != tr {
		t.Error("Root did not reach the outer traversal")
	}
}

func TestRequirements(t *testing.T) {
	tr := mustBuild(
		newValues(1),
		newMap("bulk", func(v any) any { return v }, traverser.RequirementBulk),
		newMap("one", func(v any) any { return v }, traverser.RequirementOneBulk),
	)
	tr.SideEffects().Set("seen", []any{}, sideeffect.AddAll)
	if err := tr.Finalize(context.Background()); err != nil {
		t.Fatal(err)
	}
	want := []traverser.Requirement{traverser.RequirementOneBulk, traverser.RequirementSideEffects}
	if diff := cmp.Diff(want, tr.Requirements().Sorted()); diff != "" {
		t.Errorf("requirements mismatch (-want +got):\n%s", diff)
	}
}

func TestRequirements_IncludeChildren(t *testing.T) {
	child := mustBuild(newMap("path", func(v any) any { return v }, traverser.RequirementPath))
	tr := mustBuild(newValues(1), newParent(child))
	if !tr.Requirements().Has(traverser.RequirementPath) {
		t.Error("expected child requirement to surface")
	}
}

func TestReset_AllowsRerunWithNewStarts(t *testing.T) {
	ctx := context.Background()
	tr := mustBuild(newValues(1), newMap("inc", func(v any) any { return v.(int) + 1 }))

	first, err := tr.ToList(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]any{2}, first); diff != "" {
		t.Fatalf("first run mismatch:\n%s", diff)
	}

	tr.Reset()
	if err := tr.AddStart(ctx, traverser.New(10)); err != nil {
		t.Fatal(err)
	}
	second, err := tr.ToList(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]any{2, 11}, second); diff != "" {
		t.Errorf("second run mismatch (-want +got):\n%s", diff)
	}
}

func TestClone_IsIndependent(t *testing.T) {
	ctx := context.Background()
	child := mustBuild(newMap("inner", func(v any) any { return v }))
	tr := mustBuild(newValues(1, 2), newParent(child))
	tr.SideEffects().Set("k", 1, nil)

	c := tr.Clone()
	if c.ID() == tr.ID() {
		t.Error("clone shares the traversal id")
	}
	if !c.Equal(tr) || c.Hash() != tr.Hash() {
		t.Error("clone is not structurally equal")
	}
	if c.Strategies() != tr.Strategies() {
		t.Error("clone should share strategies")
	}
	c.SideEffects().Set("k", 2, nil)
	if v, _ := tr.SideEffects().Get("k"); v != 1 {
		t.Errorf("original side-effects modified: %v", v)
	}
	cloneChild := c.Step(1).(*parentStep).child
	if cloneChild == child || cloneChild.SideEffects() != c.SideEffects() {
		t.Error("clone child not rebound to the clone")
	}

	got, err := c.ToList(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]any{1, 2}, got); diff != "" {
		t.Errorf("clone values mismatch:\n%s", diff)
	}
	if tr.IsLocked() {
		t.Error("running the clone locked the original")
	}
	orig, err := tr.ToList(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]any{1, 2}, orig); diff != "" {
		t.Errorf("original values mismatch:\n%s", diff)
	}
}

func TestHash_OrderSensitive(t *testing.T) {
	a := newMap("a", func(v any) any { return v })
	b := newMap("b", func(v any) any { return v })
	x := mustBuild(a, b)
	y := mustBuild(b.Clone(), a.Clone())
	if x.Hash() == y.Hash() || x.Equal(y) {
		t.Error("reordered traversals should differ")
	}
	if !x.Equal(mustBuild(a.Clone(), b.Clone())) {
		t.Error("same chain should be equal")
	}
}

func TestLabels_BoundOnEmit(t *testing.T) {
	ctx := context.Background()
	src := newValues("x")
	src.AddLabel("a")
	src.AddLabel("a")
	tr := mustBuild(src)
	out, err := tr.NextTraverser(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := out.Latest("a"); !ok || v != "x" {
		t.Errorf("Latest(a) = %v, %v", v, ok)
	}
	if len(src.Labels()) != 1 {
		t.Errorf("duplicate label kept: %v", src.Labels())
	}
}

func TestIter(t *testing.T) {
	tr := mustBuild(newValues(1, 2, 3))
	var got []any
	for v, err := range tr.Iter(context.Background()) {
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, v)
		if len(got) == 2 {
			break
		}
	}
	if diff := cmp.Diff([]any{1, 2}, got); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestDefaultStrategies(t *testing.T) {
	s := NewStrategies(&fakeStrategy{name: "graph-default", category: CategoryProvider})
	RegisterDefaultStrategies("test-kind", s)

	tr := New(WithGraph(kindGraph("test-kind")))
	if tr.Strategies() != s {
		t.Error("expected registered defaults for graph kind")
	}
	if New(WithGraph(kindGraph("test-kind")), WithStrategies(NewStrategies())).Strategies() == s {
		t.Error("explicit strategies should win")
	}
}

func TestStrategies_SetOperations(t *testing.T) {
	a := &fakeStrategy{name: "a", category: CategoryDecoration}
	a2 := &fakeStrategy{name: "a", category: CategoryVerification}
	b := &fakeStrategy{name: "b", category: CategoryOptimization}

	s := NewStrategies(a, b)
	replaced := s.With(a2)
	if got, _ := replaced.Get("a"); got != a2 {
		t.Error("With should replace by name")
	}
	if diff := cmp.Diff([]string{"a", "b"}, replaced.Names()); diff != "" {
		t.Errorf("replacement changed position:\n%s", diff)
	}
	if got, _ := s.Get("a"); got != a {
		t.Error("With mutated the receiver")
	}
	without := s.Without("a")
	if without.Contains("a") || !without.Contains("b") || s.Len() != 2 {
		t.Error("Without misbehaved")
	}
}

func TestParseCategory(t *testing.T) {
	for _, c := range []Category{CategoryDecoration, CategoryOptimization, CategoryProvider, CategoryFinalization, CategoryVerification} {
		got, err := ParseCategory(c.String())
		if err != nil || got != c {
			t.Errorf("ParseCategory(%q) = %v, %v", c.String(), got, err)
		}
	}
	if _, err := ParseCategory("nope"); err == nil {
		t.Error("expected error for unknown category")
	}
}

func TestHelpers(t *testing.T) {
	m := newMap("m", func(v any) any { return v })
	tr := mustBuild(newValues(1), m)
	if !HasStep[*mapStep](tr) || len(StepsOf[*valuesStep](tr)) != 1 {
		t.Error("type lookup failed")
	}
	if IndexOf(tr, m) != 1 || IndexOf(tr, newValues()) != -1 {
		t.Error("IndexOf failed")
	}

	m.AddLabel("x")
	repl := newMap("r", func(v any) any { return v })
	if err := ReplaceStep(tr, m, repl); err != nil {
		t.Fatal(err)
	}
	if tr.Step(1) != repl || len(repl.Labels()) != 1 {
		t.Error("ReplaceStep did not carry position and labels")
	}

	dst := mustBuild()
	if err := MoveStepsTo(tr, 1, dst); err != nil {
		t.Fatal(err)
	}
	if tr.Len() != 1 || dst.Len() != 1 || dst.Step(0) != repl {
		t.Errorf("MoveStepsTo: src=%s dst=%s", tr, dst)
	}
}
