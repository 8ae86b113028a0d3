package resolve

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/latticelabs/lattice/internal/core/embedcache"
	"github.com/latticelabs/lattice/internal/core/model"
	"github.com/latticelabs/lattice/internal/graph"
	"github.com/latticelabs/lattice/internal/logger"
)

const (
	storeRetries     = 3
	storeBackoffBase = 200 * time.Millisecond
)

// Resolver persists a candidate tree into the shared workspace graph,
// merging each candidate into an existing node when the matching cascade
// finds one and creating a new node otherwise. All graph writes go through
// the store's conditional upserts; the resolver holds no cross-job state.
type Resolver struct {
	store    graph.Store
	matchers []matcherFunc
	gapTopN  int
	log      *logger.Logger
}

func New(store graph.Store, gapTopN int, log *logger.Logger) *Resolver {
	return &Resolver{
		store:    store,
		matchers: cascade(),
		gapTopN:  gapTopN,
		log:      log.With("component", "resolver"),
	}
}

// ResolvedNode names one node the tree resolution touched, for downstream
// vector index upserts.
type ResolvedNode struct {
	UUID      string
	Name      string
	Synthesis string
}

// TreeResult summarizes persisting one document's candidate tree.
type TreeResult struct {
	Created   int
	Merged    int
	Evidences int
	Gaps      int
	RootUUID  string
	Resolved  []ResolvedNode
}

// Resolve runs the matching cascade for one candidate and applies the merge
// or create, including the candidate's evidence. The returned resolution
// records how the decision was made.
func (r *Resolver) Resolve(ctx context.Context, workspaceID string, c *model.CandidateNode, embedding []float32) (model.Resolution, error) {
	q := &matchQuery{
		workspaceID: workspaceID,
		name:        c.Name,
		embedding:   embedding,
		store:       r.store,
	}

	var match *Match
	for _, m := range r.matchers {
		hit, err := withRetryValue(ctx, func() (*Match, error) { return m(ctx, q) })
		if err != nil {
			return model.Resolution{}, err
		}
		if hit != nil {
			match = hit
			break
		}
	}

	if match != nil {
		return r.merge(ctx, c, match)
	}
	return r.create(ctx, workspaceID, c, embedding)
}

func (r *Resolver) merge(ctx context.Context, c *model.CandidateNode, match *Match) (model.Resolution, error) {
	sourceName := ""
	if len(c.Evidence) > 0 {
		sourceName = c.Evidence[0].FileName
	}
	fileID := ""
	if len(c.Evidence) > 0 {
		fileID = c.Evidence[0].FileID
	}

	alias := c.Name
	if match.Node.KnownAs(c.Name) {
		alias = ""
	}

	patch := graph.MergePatch{
		NodeUUID:        match.Node.UUID,
		SynthesisAppend: fmt.Sprintf("\n\n[%s] %s", sourceName, c.Synthesis),
		FileID:          fileID,
		Alias:           alias,
		ConfidenceBoost: match.Boost,
	}
	if err := withRetry(ctx, func() error { return r.store.MergeNode(ctx, patch) }); err != nil {
		return model.Resolution{}, fmt.Errorf("merging %q into %s: %w", c.Name, match.Node.UUID, err)
	}

	if err := r.attachEvidence(ctx, c, match.Node.UUID); err != nil {
		return model.Resolution{}, err
	}

	r.log.Info("candidate merged",
		"name", c.Name,
		"node_uuid", match.Node.UUID,
		"match_type", string(match.Type),
		"similarity", match.Similarity,
	)
	return model.Resolution{
		Action:     "merged",
		NodeUUID:   match.Node.UUID,
		MatchType:  match.Type,
		Similarity: match.Similarity,
	}, nil
}

func (r *Resolver) create(ctx context.Context, workspaceID string, c *model.CandidateNode, embedding []float32) (model.Resolution, error) {
	fileID := ""
	if len(c.Evidence) > 0 {
		fileID = c.Evidence[0].FileID
	}

	now := time.Now().UTC()
	node := &model.KnowledgeNode{
		UUID:          uuid.New().String(),
		WorkspaceID:   workspaceID,
		Name:          c.Name,
		Type:          c.Type,
		Level:         c.Level,
		Synthesis:     c.Synthesis,
		FileIDs:       []string{fileID},
		EvidenceCount: 1,
		Confidence:    c.Confidence,
		Embedding:     embedding,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	var nodeUUID string
	var created bool
	err := withRetry(ctx, func() error {
		var err error
		nodeUUID, created, err = r.store.CreateNode(ctx, node)
		return err
	})
	if err != nil {
		return model.Resolution{}, fmt.Errorf("creating node %q: %w", c.Name, err)
	}

	if !created {
		// Another job created this concept between our cascade and the
		// upsert. The store's name-key constraint collapsed the race to a
		// single node; fold our contribution into it as an exact merge.
		existing, err := r.store.GetNode(ctx, nodeUUID)
		if err != nil {
			return model.Resolution{}, err
		}
		match := &Match{Node: *existing, Type: model.MatchExact, Similarity: 1.0, Boost: 1.0}
		return r.merge(ctx, c, match)
	}

	if err := r.attachEvidence(ctx, c, nodeUUID); err != nil {
		return model.Resolution{}, err
	}

	r.log.Info("candidate created", "name", c.Name, "node_uuid", nodeUUID, "level", c.Level)
	return model.Resolution{
		Action:     "created",
		NodeUUID:   nodeUUID,
		MatchType:  model.MatchNone,
		Similarity: 0,
	}, nil
}

func (r *Resolver) attachEvidence(ctx context.Context, c *model.CandidateNode, nodeUUID string) error {
	for i := range c.Evidence {
		ev := c.Evidence[i]
		ev.NodeUUID = nodeUUID
		if err := withRetry(ctx, func() error { return r.store.CreateEvidence(ctx, ev) }); err != nil {
			return fmt.Errorf("attaching evidence to %s: %w", nodeUUID, err)
		}
	}
	return nil
}

// PersistTree resolves every candidate top-down in breadth-first order so a
// child's hierarchical edge always points at an already-resolved parent id.
func (r *Resolver) PersistTree(ctx context.Context, workspaceID string, tree *model.CandidateNode, cache *embedcache.Cache) (TreeResult, error) {
	var result TreeResult
	resolved := make(map[*model.CandidateNode]string)

	var walkErr error
	tree.Walk(func(parent, node *model.CandidateNode) {
		if walkErr != nil {
			return
		}

		embedding, err := cache.Vector(ctx, node.Name)
		if err != nil {
			walkErr = err
			return
		}

		res, err := r.Resolve(ctx, workspaceID, node, embedding)
		if err != nil {
			walkErr = err
			return
		}
		resolved[node] = res.NodeUUID
		result.Evidences += len(node.Evidence)
		result.Resolved = append(result.Resolved, ResolvedNode{
			UUID:      res.NodeUUID,
			Name:      node.Name,
			Synthesis: node.Synthesis,
		})
		if res.Action == "created" {
			result.Created++
		} else {
			result.Merged++
		}
		if parent == nil {
			result.RootUUID = res.NodeUUID
		}

		if parent != nil {
			parentUUID := resolved[parent]
			err := withRetry(ctx, func() error {
				return r.store.EnsureEdge(ctx, workspaceID, parentUUID, res.NodeUUID, node.Level)
			})
			if err != nil {
				walkErr = fmt.Errorf("linking %s -> %s: %w", parentUUID, res.NodeUUID, err)
			}
		}
	})
	if walkErr != nil {
		return result, walkErr
	}

	gaps, err := r.suggestGaps(ctx, tree, resolved)
	if err != nil {
		return result, err
	}
	result.Gaps = gaps
	return result, nil
}

// suggestGaps creates gap suggestions for the most-evidenced leaf nodes once
// the document's hierarchy is final. Ranking is evidence count descending,
// then confidence descending, then node id ascending.
func (r *Resolver) suggestGaps(ctx context.Context, tree *model.CandidateNode, resolved map[*model.CandidateNode]string) (int, error) {
	leaves := tree.Leaves()

	type rankedLeaf struct {
		candidate *model.CandidateNode
		node      *model.KnowledgeNode
	}
	var ranked []rankedLeaf
	for _, leaf := range leaves {
		nodeUUID, ok := resolved[leaf]
		if !ok {
			continue
		}
		node, err := r.store.GetNode(ctx, nodeUUID)
		if err != nil {
			return 0, err
		}
		if node == nil {
			continue
		}
		ranked = append(ranked, rankedLeaf{candidate: leaf, node: node})
	}

	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i].node, ranked[j].node
		if a.EvidenceCount != b.EvidenceCount {
			return a.EvidenceCount > b.EvidenceCount
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		return a.UUID < b.UUID
	})

	count := 0
	for _, rl := range ranked {
		if count == r.gapTopN {
			break
		}
		suggestion := firstOpenQuestion(rl.candidate)
		if suggestion == "" {
			continue
		}
		gap := model.GapSuggestion{
			UUID:       uuid.New().String(),
			NodeUUID:   rl.node.UUID,
			Suggestion: suggestion,
			Reference:  scholarURL(rl.node.Name),
			Relevance:  rl.node.Confidence,
			CreatedAt:  time.Now().UTC(),
		}
		if err := withRetry(ctx, func() error { return r.store.CreateGap(ctx, gap) }); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func firstOpenQuestion(c *model.CandidateNode) string {
	if len(c.OpenQuestions) > 0 {
		return c.OpenQuestions[0]
	}
	return ""
}

func scholarURL(name string) string {
	return "https://scholar.google.com/scholar?q=" + url.QueryEscape(name)
}

// withRetry runs op with bounded exponential backoff. Store and transport
// blips recover here; exhausted retries fail the document job.
func withRetry(ctx context.Context, op func() error) error {
	var err error
	for attempt := 0; attempt < storeRetries; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(storeBackoffBase << attempt):
		}
	}
	return err
}

func withRetryValue[T any](ctx context.Context, op func() (T, error)) (T, error) {
	var val T
	var err error
	for attempt := 0; attempt < storeRetries; attempt++ {
		if val, err = op(); err == nil {
			return val, nil
		}
		select {
		case <-ctx.Done():
			return val, ctx.Err()
		case <-time.After(storeBackoffBase << attempt):
		}
	}
	return val, err
}
