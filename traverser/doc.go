// Package traverser defines the token that flows through a traversal.
//
// A Traverser wraps one result value plus a bulk: the number of identical
// results it stands for. Bulk is always at least 1. Traversers are immutable
// by convention; steps derive new traversers with Split, WithBulk or Labeled
// instead of mutating the one they received.
//
// Set is the insertion-ordered collection barriers use to accumulate and
// transport traversers. Adding an equal traverser merges bulks.
package traverser
