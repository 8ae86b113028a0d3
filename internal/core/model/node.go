package model

import (
	"strings"
	"time"
)

// NodeType is the hierarchy level of a knowledge node.
type NodeType string

const (
	TypeDomain     NodeType = "domain"
	TypeCategory   NodeType = "category"
	TypeConcept    NodeType = "concept"
	TypeSubconcept NodeType = "subconcept"
)

// TypeForLevel maps a hierarchy depth to its node type. Levels deeper than
// subconcept are never created because expansion is depth-bounded.
func TypeForLevel(level int) NodeType {
	switch level {
	case 0:
		return TypeDomain
	case 1:
		return TypeCategory
	case 2:
		return TypeConcept
	default:
		return TypeSubconcept
	}
}

// KnowledgeNode is a persisted concept in a workspace graph. Exactly one node
// per real-world concept once merge-resolved; confidence never decreases.
type KnowledgeNode struct {
	UUID          string    `json:"uuid"`
	WorkspaceID   string    `json:"workspace_id"`
	Name          string    `json:"name"`
	Type          NodeType  `json:"type"`
	Level         int       `json:"level"`
	Synthesis     string    `json:"synthesis"`
	Aliases       []string  `json:"aliases,omitempty"`
	FileIDs       []string  `json:"file_ids"`
	EvidenceCount int       `json:"evidence_count"`
	Confidence    float64   `json:"confidence"`
	Embedding     []float32 `json:"embedding,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// KnownAs reports whether name equals the canonical name or any alias,
// case-insensitively.
func (n *KnowledgeNode) KnownAs(name string) bool {
	if strings.EqualFold(n.Name, name) {
		return true
	}
	for _, a := range n.Aliases {
		if strings.EqualFold(a, name) {
			return true
		}
	}
	return false
}

// HasFile reports whether fileID already contributed evidence to this node.
func (n *KnowledgeNode) HasFile(fileID string) bool {
	for _, id := range n.FileIDs {
		if id == fileID {
			return true
		}
	}
	return false
}
