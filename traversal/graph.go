package traversal

import "context"

// Graph is the data source a traversal runs against. Kind selects the
// default strategy set for traversals bound to it.
type Graph interface {
	Kind() string
}

// ElementResolver is implemented by graphs that can turn element ids back
// into elements.
type ElementResolver interface {
	Resolve(ctx context.Context, ids []any) ([]any, error)
}

func graphKind(g Graph) string {
	if g == nil {
		return ""
	}
	return g.Kind()
}
