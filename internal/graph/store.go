package graph

import (
	"context"

	"github.com/latticelabs/lattice/internal/core/model"
)

// ScoredNode is an existing node paired with its cosine similarity to a
// candidate embedding.
type ScoredNode struct {
	Node       model.KnowledgeNode
	Similarity float64
}

// MergePatch describes one atomic merge of a candidate into an existing
// node. The store applies the whole patch in a single conditional update so
// concurrent jobs writing into the same workspace cannot interleave.
type MergePatch struct {
	NodeUUID        string
	SynthesisAppend string
	FileID          string
	Alias           string
	ConfidenceBoost float64
}

// Stats summarizes one workspace's graph for the result sink.
type Stats struct {
	Nodes     int `json:"nodes"`
	Evidences int `json:"evidences"`
	Files     int `json:"files"`
}

// Store is the workspace knowledge graph. Implementations must make
// CreateNode a conditional upsert on (workspace, normalized name): when two
// jobs race on the same concept name, exactly one node wins and both callers
// learn its id. The core holds no authoritative in-memory copy of the graph.
type Store interface {
	EnsureSchema(ctx context.Context) error

	// FindByName returns the workspace node whose canonical name or alias
	// equals name case-insensitively, or nil when there is none.
	FindByName(ctx context.Context, workspaceID, name string) (*model.KnowledgeNode, error)

	// SimilarNodes ranks existing workspace nodes by cosine similarity to
	// the given embedding, highest first, up to topK.
	SimilarNodes(ctx context.Context, workspaceID string, embedding []float32, topK int) ([]ScoredNode, error)

	// CreateNode upserts the node keyed by (workspace, normalized name).
	// The returned uuid is the node's id in the graph; created is false
	// when a concurrent job already created a node for that name, in which
	// case the caller must merge instead.
	CreateNode(ctx context.Context, node *model.KnowledgeNode) (uuid string, created bool, err error)

	// MergeNode applies a merge patch atomically: synthesis appended,
	// evidence count incremented, confidence boosted, file id and alias
	// added if absent, updated timestamp bumped. Canonical name and uuid
	// never change.
	MergeNode(ctx context.Context, patch MergePatch) error

	GetNode(ctx context.Context, uuid string) (*model.KnowledgeNode, error)

	// EnsureEdge creates or confirms the hierarchical edge from parent to
	// child for the given child level. Re-asserting an existing edge is a
	// no-op.
	EnsureEdge(ctx context.Context, workspaceID, parentUUID, childUUID string, childLevel int) error

	CreateEvidence(ctx context.Context, ev model.Evidence) error
	CreateGap(ctx context.Context, gap model.GapSuggestion) error

	WorkspaceStats(ctx context.Context, workspaceID string) (Stats, error)

	Close(ctx context.Context) error
}

// EdgeTypeForLevel names the hierarchical relationship ending at a child of
// the given level.
func EdgeTypeForLevel(childLevel int) string {
	switch childLevel {
	case 1:
		return "HAS_CATEGORY"
	case 2:
		return "HAS_CONCEPT"
	default:
		return "HAS_SUBCONCEPT"
	}
}
