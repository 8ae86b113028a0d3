package model

import "time"

// Range is an inclusive pair of paragraph indices into a document's ordered
// paragraph sequence.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Evidence is a verbatim excerpt supporting a knowledge node. It belongs to
// exactly one node and one source document and is immutable once created;
// evidence is additive across documents, never merged or deduplicated.
type Evidence struct {
	UUID          string    `json:"uuid"`
	NodeUUID      string    `json:"node_uuid"`
	FileID        string    `json:"file_id"`
	FileName      string    `json:"file_name"`
	ChunkIndex    int       `json:"chunk_index"`
	Text          string    `json:"text"`
	Page          int       `json:"page,omitempty"`
	Position      Range     `json:"position"`
	Confidence    float64   `json:"confidence"`
	Concepts      []string  `json:"concepts,omitempty"`
	KeyClaims     []string  `json:"key_claims,omitempty"`
	OpenQuestions []string  `json:"open_questions,omitempty"`
	Language      string    `json:"language,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
