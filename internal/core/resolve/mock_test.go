package resolve

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/latticelabs/lattice/internal/core/common"
	"github.com/latticelabs/lattice/internal/core/model"
	"github.com/latticelabs/lattice/internal/graph"
)

// MemoryStore is an in-memory graph.Store with the same conditional-upsert
// semantics as the Neo4j implementation.
type MemoryStore struct {
	nodes     map[string]model.KnowledgeNode
	byKey     map[string]string
	evidences []model.Evidence
	gaps      []model.GapSuggestion
	edges     map[string]bool

	// HideFromFind makes FindByName miss, simulating another job creating
	// the node between our cascade and our upsert.
	HideFromFind bool
	// MergeFailures makes the next N MergeNode calls fail, for retry tests.
	MergeFailures int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nodes: make(map[string]model.KnowledgeNode),
		byKey: make(map[string]string),
		edges: make(map[string]bool),
	}
}

func nameKey(workspaceID, name string) string {
	return workspaceID + "|" + strings.ToLower(strings.TrimSpace(name))
}

func (s *MemoryStore) Seed(node model.KnowledgeNode) {
	s.nodes[node.UUID] = node
	s.byKey[nameKey(node.WorkspaceID, node.Name)] = node.UUID
}

func (s *MemoryStore) EnsureSchema(ctx context.Context) error { return nil }

func (s *MemoryStore) FindByName(ctx context.Context, workspaceID, name string) (*model.KnowledgeNode, error) {
	if s.HideFromFind {
		return nil, nil
	}
	for _, n := range s.nodes {
		if n.WorkspaceID == workspaceID && n.KnownAs(name) {
			out := n
			return &out, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) SimilarNodes(ctx context.Context, workspaceID string, embedding []float32, topK int) ([]graph.ScoredNode, error) {
	var scored []graph.ScoredNode
	for _, n := range s.nodes {
		if n.WorkspaceID != workspaceID || len(n.Embedding) == 0 {
			continue
		}
		scored = append(scored, graph.ScoredNode{
			Node:       n,
			Similarity: common.CosineSimilarity(embedding, n.Embedding),
		})
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].Similarity > scored[j].Similarity })
	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

func (s *MemoryStore) CreateNode(ctx context.Context, node *model.KnowledgeNode) (string, bool, error) {
	key := nameKey(node.WorkspaceID, node.Name)
	if existing, ok := s.byKey[key]; ok {
		return existing, false, nil
	}
	s.nodes[node.UUID] = *node
	s.byKey[key] = node.UUID
	return node.UUID, true, nil
}

func (s *MemoryStore) MergeNode(ctx context.Context, patch graph.MergePatch) error {
	if s.MergeFailures > 0 {
		s.MergeFailures--
		return errors.New("transient store failure")
	}
	n, ok := s.nodes[patch.NodeUUID]
	if !ok {
		return fmt.Errorf("node %s not found", patch.NodeUUID)
	}
	n.Synthesis += patch.SynthesisAppend
	n.EvidenceCount++
	n.Confidence += patch.ConfidenceBoost
	if patch.FileID != "" && !n.HasFile(patch.FileID) {
		n.FileIDs = append(n.FileIDs, patch.FileID)
	}
	if patch.Alias != "" && !n.KnownAs(patch.Alias) {
		n.Aliases = append(n.Aliases, patch.Alias)
	}
	s.nodes[patch.NodeUUID] = n
	return nil
}

func (s *MemoryStore) GetNode(ctx context.Context, uuid string) (*model.KnowledgeNode, error) {
	n, ok := s.nodes[uuid]
	if !ok {
		return nil, nil
	}
	out := n
	return &out, nil
}

func (s *MemoryStore) EnsureEdge(ctx context.Context, workspaceID, parentUUID, childUUID string, childLevel int) error {
	key := parentUUID + "->" + childUUID + ":" + graph.EdgeTypeForLevel(childLevel)
	s.edges[key] = true
	return nil
}

func (s *MemoryStore) CreateEvidence(ctx context.Context, ev model.Evidence) error {
	s.evidences = append(s.evidences, ev)
	return nil
}

func (s *MemoryStore) CreateGap(ctx context.Context, gap model.GapSuggestion) error {
	s.gaps = append(s.gaps, gap)
	return nil
}

func (s *MemoryStore) WorkspaceStats(ctx context.Context, workspaceID string) (graph.Stats, error) {
	stats := graph.Stats{Evidences: len(s.evidences)}
	for _, n := range s.nodes {
		if n.WorkspaceID == workspaceID {
			stats.Nodes++
		}
	}
	return stats, nil
}

func (s *MemoryStore) Close(ctx context.Context) error { return nil }

// MockEmbedder returns a fixed vector per name so tests control every
// similarity score.
type MockEmbedder struct {
	Vectors map[string][]float32
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := m.Vectors[text]; ok {
		return v, nil
	}
	return []float32{1, 0, 0}, nil
}

func (m *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := m.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
