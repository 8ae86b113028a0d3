package vector

import "context"

// Point is one node's entry in the vector index: its embedding plus the
// payload retrieval needs to render a result without touching the graph.
type Point struct {
	ID          string
	WorkspaceID string
	Name        string
	Synthesis   string
	Embedding   []float32
}

// Scored is a point with its similarity to a query vector.
type Scored struct {
	Point
	Similarity float64
}

// Index is the nearest-neighbor store consumed by retrieval and written by
// the resolver. Upserting an existing id replaces its point.
type Index interface {
	Upsert(ctx context.Context, point Point) error
	Query(ctx context.Context, workspaceID string, embedding []float32, topK int) ([]Scored, error)
	Count(ctx context.Context, workspaceID string) (int, error)
	Close() error
}
