package embedcache

import (
	"context"
	"fmt"

	"github.com/latticelabs/lattice/internal/core/model"
	"github.com/latticelabs/lattice/internal/llm"
)

const defaultBatchSize = 50

// Cache precomputes embeddings for every concept name in a candidate tree so
// neither the expander nor the resolver re-embeds a name it has already seen.
// A cache lives for a single document job; nothing is shared across jobs.
type Cache struct {
	embedder  llm.EmbedderClient
	batchSize int
	vectors   map[string][]float32
}

func New(embedder llm.EmbedderClient) *Cache {
	return &Cache{
		embedder:  embedder,
		batchSize: defaultBatchSize,
		vectors:   make(map[string][]float32),
	}
}

// CollectNames walks a candidate tree and returns its unique concept names in
// first-seen order.
func CollectNames(tree *model.CandidateNode) []string {
	seen := make(map[string]bool)
	var names []string
	tree.Walk(func(_, node *model.CandidateNode) {
		if !seen[node.Name] {
			seen[node.Name] = true
			names = append(names, node.Name)
		}
	})
	return names
}

// Precompute embeds the given names in bounded batches, deduplicating
// identical strings first. Already-cached names are not re-embedded.
func (c *Cache) Precompute(ctx context.Context, names []string) error {
	seen := make(map[string]bool)
	var missing []string
	for _, n := range names {
		if seen[n] {
			continue
		}
		seen[n] = true
		if _, ok := c.vectors[n]; !ok {
			missing = append(missing, n)
		}
	}

	for start := 0; start < len(missing); start += c.batchSize {
		end := start + c.batchSize
		if end > len(missing) {
			end = len(missing)
		}
		batch := missing[start:end]
		vecs, err := c.embedder.EmbedBatch(ctx, batch)
		if err != nil {
			return fmt.Errorf("embedding batch of %d names: %w", len(batch), err)
		}
		if len(vecs) != len(batch) {
			return fmt.Errorf("embedder returned %d vectors for %d names", len(vecs), len(batch))
		}
		for i, name := range batch {
			c.vectors[name] = vecs[i]
		}
	}
	return nil
}

// Vector returns the cached embedding for name, embedding it on the spot if
// the precompute pass somehow missed it.
func (c *Cache) Vector(ctx context.Context, name string) ([]float32, error) {
	if v, ok := c.vectors[name]; ok {
		return v, nil
	}
	v, err := c.embedder.Embed(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("embedding %q: %w", name, err)
	}
	c.vectors[name] = v
	return v, nil
}

// Len reports how many names are cached, for metrics and tests.
func (c *Cache) Len() int { return len(c.vectors) }
