package vector

import (
	"context"
	"fmt"
	"sync"

	chromem "github.com/philippgille/chromem-go"
)

const synthesisPayloadMax = 500

// ChromemIndex implements Index over a persistent chromem-go database with
// one collection per workspace. Embeddings are always supplied explicitly by
// the caller, so the collection's embedding function is never invoked.
type ChromemIndex struct {
	db *chromem.DB

	mu          sync.Mutex
	collections map[string]*chromem.Collection
}

func NewChromemIndex(path string) (*ChromemIndex, error) {
	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, fmt.Errorf("opening vector index at %s: %w", path, err)
	}
	return &ChromemIndex{
		db:          db,
		collections: make(map[string]*chromem.Collection),
	}, nil
}

func noEmbedding(_ context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("index requires explicit embeddings, none given for %q", text)
}

func (x *ChromemIndex) collection(workspaceID string) (*chromem.Collection, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if c, ok := x.collections[workspaceID]; ok {
		return c, nil
	}
	c, err := x.db.GetOrCreateCollection("ws-"+workspaceID, nil, noEmbedding)
	if err != nil {
		return nil, fmt.Errorf("collection for workspace %s: %w", workspaceID, err)
	}
	x.collections[workspaceID] = c
	return c, nil
}

func (x *ChromemIndex) Upsert(ctx context.Context, point Point) error {
	c, err := x.collection(point.WorkspaceID)
	if err != nil {
		return err
	}
	synthesis := point.Synthesis
	if len(synthesis) > synthesisPayloadMax {
		synthesis = synthesis[:synthesisPayloadMax]
	}
	doc := chromem.Document{
		ID:        point.ID,
		Content:   point.Name + "\n" + synthesis,
		Embedding: point.Embedding,
		Metadata: map[string]string{
			"name":      point.Name,
			"workspace": point.WorkspaceID,
		},
	}
	return c.AddDocument(ctx, doc)
}

func (x *ChromemIndex) Query(ctx context.Context, workspaceID string, embedding []float32, topK int) ([]Scored, error) {
	c, err := x.collection(workspaceID)
	if err != nil {
		return nil, err
	}
	count := c.Count()
	if count == 0 {
		return nil, nil
	}
	if topK > count || topK <= 0 {
		topK = count
	}
	results, err := c.QueryEmbedding(ctx, embedding, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}
	scored := make([]Scored, 0, len(results))
	for _, r := range results {
		name := r.Metadata["name"]
		synthesis := r.Content
		if cut := len(name) + 1; cut <= len(synthesis) {
			synthesis = synthesis[cut:]
		}
		scored = append(scored, Scored{
			Point: Point{
				ID:          r.ID,
				WorkspaceID: workspaceID,
				Name:        name,
				Synthesis:   synthesis,
				Embedding:   r.Embedding,
			},
			Similarity: float64(r.Similarity),
		})
	}
	return scored, nil
}

func (x *ChromemIndex) Count(ctx context.Context, workspaceID string) (int, error) {
	c, err := x.collection(workspaceID)
	if err != nil {
		return 0, err
	}
	return c.Count(), nil
}

func (x *ChromemIndex) Close() error { return nil }
