package resolve

import (
	"context"

	"github.com/latticelabs/lattice/internal/core/model"
	"github.com/latticelabs/lattice/internal/graph"
)

// Match is a cascade hit: the existing node a candidate should merge into,
// how it was found, and the confidence boost that match strength earns.
type Match struct {
	Node       model.KnowledgeNode
	Type       model.MatchType
	Similarity float64
	Boost      float64
}

// matchQuery carries one candidate through the cascade. The similarity scan
// against the store is memoized so the three threshold tiers share one fetch.
type matchQuery struct {
	workspaceID string
	name        string
	embedding   []float32

	store   graph.Store
	scored  []graph.ScoredNode
	fetched bool
}

func (q *matchQuery) similar(ctx context.Context) ([]graph.ScoredNode, error) {
	if q.fetched {
		return q.scored, nil
	}
	scored, err := q.store.SimilarNodes(ctx, q.workspaceID, q.embedding, similarityTopK)
	if err != nil {
		return nil, err
	}
	q.scored = scored
	q.fetched = true
	return scored, nil
}

const similarityTopK = 5

// matcherFunc tries one stage of the cascade. A nil Match means no hit at
// this stage; the resolver moves to the next.
type matcherFunc func(ctx context.Context, q *matchQuery) (*Match, error)

// exactMatcher hits when an existing node's canonical name or alias equals
// the candidate name case-insensitively. Cheap and unambiguous, so it runs
// first.
func exactMatcher(ctx context.Context, q *matchQuery) (*Match, error) {
	node, err := q.store.FindByName(ctx, q.workspaceID, q.name)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, nil
	}
	return &Match{
		Node:       *node,
		Type:       model.MatchExact,
		Similarity: 1.0,
		Boost:      1.0,
	}, nil
}

// thresholdMatcher hits when the best cosine similarity in the workspace
// exceeds the given threshold. Catches paraphrases and cross-language
// equivalents that exact matching misses.
func thresholdMatcher(threshold float64, matchType model.MatchType, boost float64) matcherFunc {
	return func(ctx context.Context, q *matchQuery) (*Match, error) {
		if len(q.embedding) == 0 {
			return nil, nil
		}
		scored, err := q.similar(ctx)
		if err != nil {
			return nil, err
		}
		if len(scored) == 0 || scored[0].Similarity <= threshold {
			return nil, nil
		}
		return &Match{
			Node:       scored[0].Node,
			Type:       matchType,
			Similarity: scored[0].Similarity,
			Boost:      boost,
		}, nil
	}
}

// cascade is the ordered matcher list, first hit wins. Threshold tuning
// lives here, isolated from resolver control flow.
func cascade() []matcherFunc {
	return []matcherFunc{
		exactMatcher,
		thresholdMatcher(0.90, model.MatchVeryHigh, 0.9),
		thresholdMatcher(0.80, model.MatchHigh, 0.8),
		thresholdMatcher(0.70, model.MatchMedium, 0.6),
	}
}
