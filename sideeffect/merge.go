package sideeffect

import "math"

// AddAll appends incoming to current. Both sides may be a single value or a []any.
func AddAll(current, incoming any) any {
	var out []any
	out = appendValues(out, current)
	return appendValues(out, incoming)
}

func appendValues(dst []any, v any) []any {
	switch x := v.(type) {
	case nil:
		return dst
	case []any:
		return append(dst, x...)
	default:
		return append(dst, x)
	}
}

// Sum adds numeric values. Integers stay int64; anything involving a float
// becomes float64. Unknown types keep the current value.
func Sum(current, incoming any) any {
	if current == nil {
		return incoming
	}
	if incoming == nil {
		return current
	}
	ci, cInt := toInt64(current)
	ii, iInt := toInt64(incoming)
	if cInt && iInt {
		return ci + ii
	}
	cf, cOK := toFloat64(current)
	inf, iOK := toFloat64(incoming)
	if cOK && iOK {
		return cf + inf
	}
	return current
}

// Times returns v added to itself n times. An integer product that does not
// fit int64 becomes float64. Unknown types are returned unchanged.
func Times(v any, n uint64) any {
	if n == 1 {
		return v
	}
	if i, ok := toInt64(v); ok {
		if p, ok := mulInt64(i, n); ok {
			return p
		}
		return float64(i) * float64(n)
	}
	if f, ok := toFloat64(v); ok {
		return f * float64(n)
	}
	return v
}

func mulInt64(a int64, n uint64) (int64, bool) {
	if n > math.MaxInt64 {
		return 0, a == 0
	}
	m := int64(n)
	p := a * m
	if a != 0 && p/a != m {
		return 0, false
	}
	return p, true
}

func toInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		return int64(x), true
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	if i, ok := toInt64(v); ok {
		return float64(i), true
	}
	switch x := v.(type) {
	case float32:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}
