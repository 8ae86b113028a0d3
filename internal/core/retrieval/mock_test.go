package retrieval

import (
	"context"

	"github.com/latticelabs/lattice/internal/logger"
	"github.com/latticelabs/lattice/internal/vector"
)

func testLogger() *logger.Logger { return logger.NewNop() }

// MockIndex serves canned results: Similarity for the vector stage, All for
// the exhaustive keyword scan (recognized by topK equal to Count).
type MockIndex struct {
	Similarity []vector.Scored
	All        []vector.Scored
}

func (m *MockIndex) Upsert(ctx context.Context, point vector.Point) error {
	return nil
}

func (m *MockIndex) Query(ctx context.Context, workspaceID string, embedding []float32, topK int) ([]vector.Scored, error) {
	if topK == len(m.All) {
		return m.All, nil
	}
	out := m.Similarity
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

func (m *MockIndex) Count(ctx context.Context, workspaceID string) (int, error) {
	return len(m.All), nil
}

func (m *MockIndex) Close() error { return nil }

type MockReranker struct {
	Order []int
	Err   error

	LastQuery string
	LastDocs  []string
}

func (m *MockReranker) Rank(ctx context.Context, query string, documents []string) ([]int, error) {
	m.LastQuery = query
	m.LastDocs = documents
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Order, nil
}

func scored(id, name string, similarity float64) vector.Scored {
	return vector.Scored{
		Point: vector.Point{
			ID:        id,
			Name:      name,
			Synthesis: "About " + name + ".",
		},
		Similarity: similarity,
	}
}
