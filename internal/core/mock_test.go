package core

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/latticelabs/lattice/internal/core/common"
	"github.com/latticelabs/lattice/internal/core/model"
	"github.com/latticelabs/lattice/internal/graph"
	"github.com/latticelabs/lattice/internal/vector"
)

type MockLLM struct {
	mu            sync.Mutex
	Response      string
	ResponseQueue []string
}

func (m *MockLLM) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.ResponseQueue) > 0 {
		resp := m.ResponseQueue[0]
		m.ResponseQueue = m.ResponseQueue[1:]
		return resp, nil
	}
	return m.Response, nil
}

// MockEmbedder hands out orthogonal vectors, one dimension per distinct
// input, so unrelated names never look similar.
type MockEmbedder struct {
	mu   sync.Mutex
	dims map[string]int
}

const mockEmbeddingDim = 64

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dims == nil {
		m.dims = make(map[string]int)
	}
	dim, ok := m.dims[text]
	if !ok {
		dim = len(m.dims)
		m.dims[text] = dim
	}
	v := make([]float32, mockEmbeddingDim)
	v[dim%mockEmbeddingDim] = 1
	return v, nil
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

// MemoryStore mirrors the Neo4j store's conditional-upsert contract in
// memory.
type MemoryStore struct {
	mu        sync.Mutex
	nodes     map[string]model.KnowledgeNode
	byKey     map[string]string
	evidences []model.Evidence
	gaps      []model.GapSuggestion
	edges     map[string]bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nodes: make(map[string]model.KnowledgeNode),
		byKey: make(map[string]string),
		edges: make(map[string]bool),
	}
}

func storeKey(workspaceID, name string) string {
	return workspaceID + "|" + strings.ToLower(strings.TrimSpace(name))
}

func (s *MemoryStore) EnsureSchema(ctx context.Context) error { return nil }

func (s *MemoryStore) FindByName(ctx context.Context, workspaceID, name string) (*model.KnowledgeNode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.nodes {
		if n.WorkspaceID == workspaceID && n.KnownAs(name) {
			out := n
			return &out, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) SimilarNodes(ctx context.Context, workspaceID string, embedding []float32, topK int) ([]graph.ScoredNode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []graph.ScoredNode
	for _, n := range s.nodes {
		if n.WorkspaceID != workspaceID || len(n.Embedding) == 0 {
			continue
		}
		out = append(out, graph.ScoredNode{
			Node:       n,
			Similarity: common.CosineSimilarity(embedding, n.Embedding),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

func (s *MemoryStore) CreateNode(ctx context.Context, node *model.KnowledgeNode) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := storeKey(node.WorkspaceID, node.Name)
	if existing, ok := s.byKey[key]; ok {
		return existing, false, nil
	}
	s.nodes[node.UUID] = *node
	s.byKey[key] = node.UUID
	return node.UUID, true, nil
}

func (s *MemoryStore) MergeNode(ctx context.Context, patch graph.MergePatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[patch.NodeUUID]
	if !ok {
		return errors.New("node not found: " + patch.NodeUUID)
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
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[uuid]
	if !ok {
		return nil, nil
	}
	out := n
	return &out, nil
}

func (s *MemoryStore) EnsureEdge(ctx context.Context, workspaceID, parentUUID, childUUID string, childLevel int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edges[parentUUID+"->"+childUUID+":"+graph.EdgeTypeForLevel(childLevel)] = true
	return nil
}

func (s *MemoryStore) CreateEvidence(ctx context.Context, ev model.Evidence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evidences = append(s.evidences, ev)
	return nil
}

func (s *MemoryStore) CreateGap(ctx context.Context, gap model.GapSuggestion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gaps = append(s.gaps, gap)
	return nil
}

func (s *MemoryStore) WorkspaceStats(ctx context.Context, workspaceID string) (graph.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := graph.Stats{Evidences: len(s.evidences)}
	files := make(map[string]bool)
	for _, n := range s.nodes {
		if n.WorkspaceID == workspaceID {
			stats.Nodes++
			for _, f := range n.FileIDs {
				files[f] = true
			}
		}
	}
	stats.Files = len(files)
	return stats, nil
}

func (s *MemoryStore) Close(ctx context.Context) error { return nil }

// MemoryIndex is a brute-force vector.Index.
type MemoryIndex struct {
	mu     sync.Mutex
	points map[string]vector.Point
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{points: make(map[string]vector.Point)}
}

func (m *MemoryIndex) Upsert(ctx context.Context, point vector.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.points[point.ID] = point
	return nil
}

func (m *MemoryIndex) Query(ctx context.Context, workspaceID string, embedding []float32, topK int) ([]vector.Scored, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []vector.Scored
	for _, p := range m.points {
		if p.WorkspaceID != workspaceID {
			continue
		}
		out = append(out, vector.Scored{
			Point:      p,
			Similarity: common.CosineSimilarity(embedding, p.Embedding),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

func (m *MemoryIndex) Count(ctx context.Context, workspaceID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.points {
		if p.WorkspaceID == workspaceID {
			n++
		}
	}
	return n, nil
}

func (m *MemoryIndex) Close() error { return nil }
