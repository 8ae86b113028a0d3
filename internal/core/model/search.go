package model

// SearchTier records which stage of the fallback cascade produced a result so
// downstream consumers can weight results accordingly.
type SearchTier string

const (
	TierHigh     SearchTier = "high"     // similarity >= 0.75
	TierMedium   SearchTier = "medium"   // similarity >= 0.60
	TierLow      SearchTier = "low"      // similarity >= 0.40
	TierFallback SearchTier = "fallback" // unthresholded top-N
	TierKeyword  SearchTier = "keyword"  // substring match on the query text
)

// SearchResult is one ranked hit from smart fallback retrieval.
type SearchResult struct {
	NodeUUID   string     `json:"node_uuid"`
	Name       string     `json:"name"`
	Synthesis  string     `json:"synthesis"`
	Similarity float64    `json:"similarity"`
	Tier       SearchTier `json:"tier"`
}
