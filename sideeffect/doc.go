// Package sideeffect provides the key-value store a traversal shares with its
// nested children.
//
// A root traversal and all of its nested children hold the same *Store.
// Writes are last-writer-wins per key. Values produced by independent shards
// are reconciled through Merge, which only folds keys that declared a
// MergeFunc.
package sideeffect
