package model

// MatchType identifies which tier of the deduplication cascade unified a
// candidate with an existing node. Recorded on every merge so the graph keeps
// an audit trail of why two mentions were considered the same concept.
type MatchType string

const (
	MatchExact    MatchType = "exact"
	MatchVeryHigh MatchType = "very_high"
	MatchHigh     MatchType = "high"
	MatchMedium   MatchType = "medium"
	MatchNone     MatchType = "none"
)

// Resolution is the outcome of resolving one candidate against the workspace.
type Resolution struct {
	Action     string    `json:"action"` // "created" | "merged"
	NodeUUID   string    `json:"node_uuid"`
	MatchType  MatchType `json:"match_type"`
	Similarity float64   `json:"similarity"`
}
