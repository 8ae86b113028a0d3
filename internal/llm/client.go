package llm

import (
	"context"
)

// LLMClient is the generative extraction oracle. Implementations must return
// the raw model output; callers are responsible for JSON parsing and
// validation.
type LLMClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// EmbedderClient produces fixed-length embedding vectors. EmbedBatch must
// return one vector per input, in input order.
type EmbedderClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// RerankerClient reorders documents by relevance to a query, returning
// indices into the input slice.
type RerankerClient interface {
	Rank(ctx context.Context, query string, documents []string) ([]int, error)
}
