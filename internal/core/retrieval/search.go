package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/latticelabs/lattice/internal/core/model"
	"github.com/latticelabs/lattice/internal/llm"
	"github.com/latticelabs/lattice/internal/logger"
	"github.com/latticelabs/lattice/internal/vector"
)

// tier is one stage of the similarity cascade: a score cutoff and the result
// count that stage must produce to be accepted.
type tier struct {
	threshold  float64
	minResults int
	label      model.SearchTier
}

var tiers = []tier{
	{0.75, 3, model.TierHigh},
	{0.60, 2, model.TierMedium},
	{0.40, 1, model.TierLow},
}

// Engine performs smart fallback retrieval: descending similarity thresholds,
// then an unthresholded top-N, then keyword matching, so a workspace with any
// plausibly relevant content never yields an empty result set.
type Engine struct {
	index        vector.Index
	reranker     llm.RerankerClient
	defaultLimit int
	log          *logger.Logger
}

func New(index vector.Index, reranker llm.RerankerClient, defaultLimit int, log *logger.Logger) *Engine {
	return &Engine{
		index:        index,
		reranker:     reranker,
		defaultLimit: defaultLimit,
		log:          log.With("component", "retrieval"),
	}
}

// Search cascades through the tiers for the given query. queryVector drives
// every similarity stage; queryText drives only the final keyword stage.
func (e *Engine) Search(ctx context.Context, workspaceID, queryText string, queryVector []float32, limit int) ([]model.SearchResult, error) {
	if limit <= 0 {
		limit = e.defaultLimit
	}

	// One over-fetched query serves all threshold tiers.
	fetch := limit
	if fetch < 10 {
		fetch = 10
	}
	scored, err := e.index.Query(ctx, workspaceID, queryVector, fetch)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	for _, t := range tiers {
		hits := atOrAbove(scored, t.threshold)
		if len(hits) >= t.minResults {
			return toResults(hits, t.label, limit), nil
		}
	}

	if len(scored) > 0 {
		e.log.Debug("similarity tiers exhausted, using unthresholded results",
			"workspace_id", workspaceID, "results", len(scored))
		results := toResults(scored, model.TierFallback, limit)
		return e.rerank(ctx, queryText, results), nil
	}

	return e.keyword(ctx, workspaceID, queryText, queryVector, limit)
}

// keyword is the last stage: substring match of the query terms against
// names and syntheses of everything indexed for the workspace.
func (e *Engine) keyword(ctx context.Context, workspaceID, queryText string, queryVector []float32, limit int) ([]model.SearchResult, error) {
	count, err := e.index.Count(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}

	all, err := e.index.Query(ctx, workspaceID, queryVector, count)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(strings.TrimSpace(queryText))
	var hits []vector.Scored
	for _, s := range all {
		haystack := strings.ToLower(s.Name + " " + s.Synthesis)
		if needle != "" && strings.Contains(haystack, needle) {
			hits = append(hits, s)
			continue
		}
		for _, term := range strings.Fields(needle) {
			if len(term) >= 3 && strings.Contains(haystack, term) {
				hits = append(hits, s)
				break
			}
		}
	}
	if len(hits) == 0 {
		// Nothing matches even by keyword; fall back to whatever the
		// index holds rather than returning nothing.
		hits = all
	}
	results := toResults(hits, model.TierKeyword, limit)
	return e.rerank(ctx, queryText, results), nil
}

// rerank reorders low-confidence results with the LLM reranker when one is
// configured. Vector-scored tiers are left alone.
func (e *Engine) rerank(ctx context.Context, queryText string, results []model.SearchResult) []model.SearchResult {
	if e.reranker == nil || len(results) < 2 || queryText == "" {
		return results
	}
	docs := make([]string, len(results))
	for i, r := range results {
		docs[i] = r.Name + ": " + r.Synthesis
	}
	order, err := e.reranker.Rank(ctx, queryText, docs)
	if err != nil || len(order) != len(results) {
		return results
	}
	reordered := make([]model.SearchResult, 0, len(results))
	for _, idx := range order {
		if idx >= 0 && idx < len(results) {
			reordered = append(reordered, results[idx])
		}
	}
	if len(reordered) != len(results) {
		return results
	}
	return reordered
}

func atOrAbove(scored []vector.Scored, threshold float64) []vector.Scored {
	var out []vector.Scored
	for _, s := range scored {
		if s.Similarity >= threshold {
			out = append(out, s)
		}
	}
	return out
}

func toResults(scored []vector.Scored, label model.SearchTier, limit int) []model.SearchResult {
	if len(scored) > limit {
		scored = scored[:limit]
	}
	results := make([]model.SearchResult, len(scored))
	for i, s := range scored {
		results[i] = model.SearchResult{
			NodeUUID:   s.ID,
			Name:       s.Name,
			Synthesis:  s.Synthesis,
			Similarity: s.Similarity,
			Tier:       label,
		}
	}
	return results
}
