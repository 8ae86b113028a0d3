package graph

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/latticelabs/lattice/internal/core/common"
	"github.com/latticelabs/lattice/internal/core/model"
	"github.com/latticelabs/lattice/internal/logger"
)

// Neo4jStore implements Store over a Neo4j or Memgraph instance via the bolt
// protocol.
type Neo4jStore struct {
	driver neo4j.DriverWithContext
	log    *logger.Logger
}

func NewNeo4jStore(ctx context.Context, uri, username, password string, log *logger.Logger) (*Neo4jStore, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, err
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("graph store unreachable: %w", err)
	}
	log.Info("connected to graph store", "uri", uri)
	return &Neo4jStore{driver: driver, log: log.With("component", "graph")}, nil
}

func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *Neo4jStore) execute(ctx context.Context, query string, params map[string]interface{}) (*neo4j.EagerResult, error) {
	result, err := neo4j.ExecuteQuery(ctx, s.driver, query, params, neo4j.EagerResultTransformer)
	if err != nil {
		return nil, fmt.Errorf("graph query failed: %w", err)
	}
	return result, nil
}

// EnsureSchema creates the uniqueness constraint backing the race-free create
// path plus lookup indices. Errors from already-existing schema objects are
// logged and ignored.
func (s *Neo4jStore) EnsureSchema(ctx context.Context) error {
	statements := []string{
		"CREATE CONSTRAINT knowledge_uuid IF NOT EXISTS FOR (n:Knowledge) REQUIRE n.uuid IS UNIQUE",
		"CREATE CONSTRAINT knowledge_name_key IF NOT EXISTS FOR (n:Knowledge) REQUIRE (n.workspace_id, n.name_key) IS UNIQUE",
		"CREATE INDEX knowledge_workspace IF NOT EXISTS FOR (n:Knowledge) ON (n.workspace_id)",
		"CREATE INDEX evidence_file IF NOT EXISTS FOR (ev:Evidence) ON (ev.file_id)",
	}
	for _, stmt := range statements {
		if _, err := s.execute(ctx, stmt, nil); err != nil {
			s.log.Warn("schema statement failed (may already exist)", "statement", stmt, "error", err)
		}
	}
	return nil
}

// NameKey normalizes a concept name for identity comparison.
func NameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (s *Neo4jStore) CreateNode(ctx context.Context, node *model.KnowledgeNode) (string, bool, error) {
	aliases := node.Aliases
	if aliases == nil {
		aliases = []string{}
	}
	res, err := s.execute(ctx, createNodeQuery, map[string]interface{}{
		"workspace_id":   node.WorkspaceID,
		"name_key":       NameKey(node.Name),
		"uuid":           node.UUID,
		"name":           node.Name,
		"type":           string(node.Type),
		"level":          node.Level,
		"synthesis":      node.Synthesis,
		"aliases":        aliases,
		"file_ids":       node.FileIDs,
		"evidence_count": node.EvidenceCount,
		"confidence":     node.Confidence,
		"name_embedding": node.Embedding,
		"created_at":     node.CreatedAt.Format(time.RFC3339),
		"updated_at":     node.UpdatedAt.Format(time.RFC3339),
	})
	if err != nil {
		return "", false, err
	}
	if len(res.Records) == 0 {
		return "", false, fmt.Errorf("create node returned no record")
	}
	rec := res.Records[0]
	uuidVal, _ := rec.Get("uuid")
	createdVal, _ := rec.Get("created")
	uuid, _ := uuidVal.(string)
	created, _ := createdVal.(bool)
	return uuid, created, nil
}

func (s *Neo4jStore) MergeNode(ctx context.Context, patch MergePatch) error {
	res, err := s.execute(ctx, mergeNodeQuery, map[string]interface{}{
		"uuid":             patch.NodeUUID,
		"synthesis_append": patch.SynthesisAppend,
		"file_id":          patch.FileID,
		"alias":            patch.Alias,
		"boost":            patch.ConfidenceBoost,
		"updated_at":       time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	if len(res.Records) == 0 {
		return fmt.Errorf("merge target %s not found", patch.NodeUUID)
	}
	return nil
}

func (s *Neo4jStore) FindByName(ctx context.Context, workspaceID, name string) (*model.KnowledgeNode, error) {
	res, err := s.execute(ctx, findByNameQuery, map[string]interface{}{
		"workspace_id": workspaceID,
		"name_key":     NameKey(name),
	})
	if err != nil {
		return nil, err
	}
	if len(res.Records) == 0 {
		return nil, nil
	}
	node := recordToNode(res.Records[0])
	return &node, nil
}

func (s *Neo4jStore) GetNode(ctx context.Context, uuid string) (*model.KnowledgeNode, error) {
	res, err := s.execute(ctx, getNodeQuery, map[string]interface{}{"uuid": uuid})
	if err != nil {
		return nil, err
	}
	if len(res.Records) == 0 {
		return nil, nil
	}
	node := recordToNode(res.Records[0])
	return &node, nil
}

// SimilarNodes loads the workspace's embedded nodes and ranks them by cosine
// similarity in-process. Workspaces stay small enough (hundreds of concepts)
// that a linear scan beats maintaining a server-side vector index here; the
// dedicated vector store handles retrieval-scale search.
func (s *Neo4jStore) SimilarNodes(ctx context.Context, workspaceID string, embedding []float32, topK int) ([]ScoredNode, error) {
	res, err := s.execute(ctx, embeddedNodesQuery, map[string]interface{}{
		"workspace_id": workspaceID,
	})
	if err != nil {
		return nil, err
	}
	scored := make([]ScoredNode, 0, len(res.Records))
	for _, rec := range res.Records {
		node := recordToNode(rec)
		if len(node.Embedding) == 0 {
			continue
		}
		scored = append(scored, ScoredNode{
			Node:       node,
			Similarity: common.CosineSimilarity(embedding, node.Embedding),
		})
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].Similarity > scored[j].Similarity })
	if topK > 0 && len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

func (s *Neo4jStore) EnsureEdge(ctx context.Context, workspaceID, parentUUID, childUUID string, childLevel int) error {
	query := fmt.Sprintf(ensureEdgeQueryTemplate, EdgeTypeForLevel(childLevel))
	res, err := s.execute(ctx, query, map[string]interface{}{
		"workspace_id": workspaceID,
		"parent_uuid":  parentUUID,
		"child_uuid":   childUUID,
		"created_at":   time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	if len(res.Records) == 0 {
		return fmt.Errorf("edge endpoints missing: %s -> %s", parentUUID, childUUID)
	}
	return nil
}

func (s *Neo4jStore) CreateEvidence(ctx context.Context, ev model.Evidence) error {
	res, err := s.execute(ctx, createEvidenceQuery, map[string]interface{}{
		"node_uuid":      ev.NodeUUID,
		"uuid":           ev.UUID,
		"file_id":        ev.FileID,
		"file_name":      ev.FileName,
		"chunk_index":    ev.ChunkIndex,
		"text":           ev.Text,
		"page":           ev.Page,
		"position_start": ev.Position.Start,
		"position_end":   ev.Position.End,
		"confidence":     ev.Confidence,
		"concepts":       ev.Concepts,
		"key_claims":     ev.KeyClaims,
		"open_questions": ev.OpenQuestions,
		"language":       ev.Language,
		"created_at":     ev.CreatedAt.Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	if len(res.Records) == 0 {
		return fmt.Errorf("evidence target %s not found", ev.NodeUUID)
	}
	return nil
}

func (s *Neo4jStore) CreateGap(ctx context.Context, gap model.GapSuggestion) error {
	res, err := s.execute(ctx, createGapQuery, map[string]interface{}{
		"node_uuid":  gap.NodeUUID,
		"uuid":       gap.UUID,
		"suggestion": gap.Suggestion,
		"reference":  gap.Reference,
		"relevance":  gap.Relevance,
		"created_at": gap.CreatedAt.Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	if len(res.Records) == 0 {
		return fmt.Errorf("gap target %s not found", gap.NodeUUID)
	}
	return nil
}

func (s *Neo4jStore) WorkspaceStats(ctx context.Context, workspaceID string) (Stats, error) {
	var stats Stats
	res, err := s.execute(ctx, workspaceCountsQuery, map[string]interface{}{"workspace_id": workspaceID})
	if err != nil {
		return stats, err
	}
	if len(res.Records) > 0 {
		stats.Nodes = intValue(res.Records[0], "nodes")
		stats.Evidences = intValue(res.Records[0], "evidences")
	}
	res, err = s.execute(ctx, workspaceFilesQuery, map[string]interface{}{"workspace_id": workspaceID})
	if err != nil {
		return stats, err
	}
	if len(res.Records) > 0 {
		stats.Files = intValue(res.Records[0], "files")
	}
	return stats, nil
}

func recordToNode(rec *neo4j.Record) model.KnowledgeNode {
	node := model.KnowledgeNode{
		UUID:          stringValue(rec, "uuid"),
		WorkspaceID:   stringValue(rec, "workspace_id"),
		Name:          stringValue(rec, "name"),
		Type:          model.NodeType(stringValue(rec, "type")),
		Level:         intValue(rec, "level"),
		Synthesis:     stringValue(rec, "synthesis"),
		Aliases:       stringsValue(rec, "aliases"),
		FileIDs:       stringsValue(rec, "file_ids"),
		EvidenceCount: intValue(rec, "evidence_count"),
		Confidence:    floatValue(rec, "confidence"),
		Embedding:     vectorValue(rec, "name_embedding"),
	}
	return node
}

func stringValue(rec *neo4j.Record, key string) string {
	v, _ := rec.Get(key)
	s, _ := v.(string)
	return s
}

func intValue(rec *neo4j.Record, key string) int {
	v, _ := rec.Get(key)
	switch n := v.(type) {
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

func floatValue(rec *neo4j.Record, key string) float64 {
	v, _ := rec.Get(key)
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	}
	return 0
}

func stringsValue(rec *neo4j.Record, key string) []string {
	v, _ := rec.Get(key)
	raw, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func vectorValue(rec *neo4j.Record, key string) []float32 {
	v, _ := rec.Get(key)
	raw, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]float32, 0, len(raw))
	for _, item := range raw {
		if f, ok := item.(float64); ok {
			out = append(out, float32(f))
		}
	}
	return out
}
