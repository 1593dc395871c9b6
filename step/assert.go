package step

import "github.com/kbukum/traverse/traversal"

var (
	_ traversal.Barrier         = (*Dedup)(nil)
	_ traversal.Parent          = (*Dedup)(nil)
	_ traversal.ReducingBarrier = (*Reduce)(nil)
	_ traversal.Looping         = (*Repeat)(nil)
	_ traversal.Profiling       = (*Profile)(nil)
	_ traversal.Capping         = (*Cap)(nil)
	_ traversal.Barrier         = (*Cap)(nil)
	_ traversal.Computing       = (*Program)(nil)
	_ traversal.Barrier         = (*Program)(nil)
	_ traversal.Step            = (*Source)(nil)
	_ traversal.Step            = (*Map)(nil)
	_ traversal.Step            = (*Filter)(nil)
	_ traversal.Step            = (*FlatMap)(nil)
	_ traversal.Step            = (*SideEffect)(nil)
	_ traversal.Step            = (*Identity)(nil)
)
