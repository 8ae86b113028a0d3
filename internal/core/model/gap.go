package model

import "time"

// GapSuggestion points at knowledge that is missing around a leaf node. Gaps
// are created once per document after its hierarchy is finalized and are
// never mutated.
type GapSuggestion struct {
	UUID       string    `json:"uuid"`
	NodeUUID   string    `json:"node_uuid"`
	Suggestion string    `json:"suggestion"`
	Reference  string    `json:"reference,omitempty"`
	Relevance  float64   `json:"relevance"`
	CreatedAt  time.Time `json:"created_at"`
}
