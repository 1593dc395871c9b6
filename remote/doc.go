// Package remote delegates traversal execution to another executor.
//
// The remote Strategy rewrites a root traversal bound to a Graph with a
// remote channel: every step moves into a sub-traversal which a single
// delegating Step submits through the channel on first pull. Results stream
// back through the Step as ordinary traversers.
//
//	conn := remote.WithRetry(myConn, resilience.DefaultRetryPolicy())
//	g := remote.NewGraph("graph-server", conn)
//	t, _ := traversal.Of(steps, traversal.WithGraph(g),
//	    traversal.WithStrategies(remote.Strategies()))
//	values, err := t.ToList(ctx)
//
// Loopback is an in-process Connection, useful for tests and for running
// the delegated plan next to the caller.
package remote
