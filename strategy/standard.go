package strategy

import "github.com/kbukum/traverse/traversal"

// Standard returns the set every traversal starts with unless configured
// otherwise.
func Standard() *traversal.Strategies {
	return traversal.NewStrategies(NewIdentityRemoval(), NewStandardVerification())
}

func init() {
	traversal.RegisterDefaultStrategies("", Standard())
}
