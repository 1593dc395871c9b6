package traverser

import "sort"

// Requirement is a capability a step needs from the traversers it receives.
type Requirement string

const (
	// RequirementBulk means traversers must carry and honour bulk counts.
	RequirementBulk Requirement = "bulk"
	// RequirementOneBulk means every traverser has bulk 1. It supersedes RequirementBulk.
	RequirementOneBulk Requirement = "one_bulk"
	// RequirementLabeledPath means labeled path bindings must be tracked.
	RequirementLabeledPath Requirement = "labeled_path"
	// RequirementPath means the full path must be tracked.
	RequirementPath Requirement = "path"
	// RequirementSideEffects means traversers must reference the side-effect store.
	RequirementSideEffects Requirement = "side_effects"
	// RequirementSack means traversers carry a sack seeded from the store.
	RequirementSack Requirement = "sack"
	// RequirementObject means the traverser value itself is read.
	RequirementObject Requirement = "object"
)

// Requirements is a set of Requirement values.
type Requirements map[Requirement]struct{}

// NewRequirements creates a set holding rs.
func NewRequirements(rs ...Requirement) Requirements {
	r := make(Requirements, len(rs))
	r.Add(rs...)
	return r
}

// Add inserts rs.
func (r Requirements) Add(rs ...Requirement) {
	for _, x := range rs {
		r[x] = struct{}{}
	}
}

// Merge inserts every requirement of other.
func (r Requirements) Merge(other Requirements) {
	for x := range other {
		r[x] = struct{}{}
	}
}

// Remove deletes rs.
func (r Requirements) Remove(rs ...Requirement) {
	for _, x := range rs {
		delete(r, x)
	}
}

// Has reports whether req is present.
func (r Requirements) Has(req Requirement) bool {
	_, ok := r[req]
	return ok
}

// Clone returns an independent copy.
func (r Requirements) Clone() Requirements {
	c := make(Requirements, len(r))
	c.Merge(r)
	return c
}

// Sorted returns the requirements in lexical order.
func (r Requirements) Sorted() []Requirement {
	out := make([]Requirement, 0, len(r))
	for x := range r {
		out = append(out, x)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
