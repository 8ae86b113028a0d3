package embedcache

import (
	"context"
)

type MockEmbedder struct {
	SingleCalls int
	BatchCalls  [][]string
	Err         error
}

// vectorFor returns a deterministic per-name vector so tests can tell cached
// entries apart.
func vectorFor(name string) []float32 {
	return []float32{float32(len(name)), 1}
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.SingleCalls++
	return vectorFor(text), nil
}

func (m *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	batch := make([]string, len(texts))
	copy(batch, texts)
	m.BatchCalls = append(m.BatchCalls, batch)

	vecs := make([][]float32, len(texts))
	for i, t := range texts {
		vecs[i] = vectorFor(t)
	}
	return vecs, nil
}
