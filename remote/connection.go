package remote

import (
	"context"

	"github.com/kbukum/traverse/traversal"
	"github.com/kbukum/traverse/traverser"
)

// Connection is a channel that executes traversals elsewhere.
type Connection interface {
	// Name identifies the channel in errors, logs and metrics.
	Name() string
	// Submit starts executing sub and returns its results. sub must not be
	// mutated; implementations serialize or clone it.
	Submit(ctx context.Context, sub *traversal.Traversal) (traversal.Iterator[*traverser.Traverser], error)
}

// Graph is a data source whose traversals can be delegated. A nil channel
// means the source is not reachable remotely.
type Graph interface {
	traversal.Graph
	RemoteChannel() Connection
}

// NewGraph returns a Graph of the given kind bound to conn.
func NewGraph(kind string, conn Connection) Graph {
	return &graph{kind: kind, conn: conn}
}

type graph struct {
	kind string
	conn Connection
}

func (g *graph) Kind() string              { return g.kind }
func (g *graph) RemoteChannel() Connection { return g.conn }
