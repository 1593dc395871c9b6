package traversal

// StepsOf returns the steps of t that are of type T, in order.
func StepsOf[T Step](t *Traversal) []T {
	var out []T
	for _, s := range t.steps {
		if v, ok := s.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

// HasStep reports whether t holds a step of type T.
func HasStep[T Step](t *Traversal) bool {
	for _, s := range t.steps {
		if _, ok := s.(T); ok {
			return true
		}
	}
	return false
}

// IndexOf returns the position of s in t, or -1.
func IndexOf(t *Traversal, s Step) int {
	if s == nil || s.Traversal() != t {
		return -1
	}
	return s.base().index
}

// ReplaceStep swaps old for replacement at the same position.
func ReplaceStep(t *Traversal, old, replacement Step) error {
	i := IndexOf(t, old)
	if i < 0 {
		return nil
	}
	if _, err := t.RemoveStep(i); err != nil {
		return err
	}
	labels := old.Labels()
	for _, l := range labels {
		replacement.AddLabel(l)
	}
	return t.InsertStep(i, replacement)
}

// MoveStepsTo moves every step of from, starting at position start, to
// the end of to.
func MoveStepsTo(from *Traversal, start int, to *Traversal) error {
	for from.Len() > start {
		s, err := from.RemoveStep(start)
		if err != nil {
			return err
		}
		if err := to.AddStep(s); err != nil {
			return err
		}
	}
	return nil
}

// Root walks parent links up to the outermost traversal.
func Root(t *Traversal) *Traversal {
	for t.parent != nil && t.parent.Traversal() != nil {
		t = t.parent.Traversal()
	}
	return t
}

// Walk calls fn for every step of t and of its nested children, depth first.
// Returning false stops the walk.
func Walk(t *Traversal, fn func(s Step) bool) bool {
	for _, s := range t.steps {
		if !fn(s) {
			return false
		}
		if p, ok := s.(Parent); ok {
			for _, c := range children(p) {
				if !Walk(c, fn) {
					return false
				}
			}
		}
	}
	return true
}
