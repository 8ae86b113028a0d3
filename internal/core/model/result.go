package model

// Job is one unit of work delivered by the job source: ingest a single
// document into a workspace's shared graph.
type Job struct {
	WorkspaceID string `json:"workspace_id"`
	DocumentURL string `json:"document_url"`
	FileID      string `json:"file_id"`
	FileName    string `json:"file_name"`
}

// QualityMetrics summarizes how the expansion engine behaved for one document.
type QualityMetrics struct {
	LLMCalls          int     `json:"llm_calls"`
	NodesGenerated    int     `json:"nodes_generated"`
	NodesKept         int     `json:"nodes_kept"`
	NodesFiltered     int     `json:"nodes_filtered"`
	MaxDepthAchieved  int     `json:"max_depth_achieved"`
	ExpansionsStopped int     `json:"expansions_stopped"`
	QualityPassRate   float64 `json:"quality_pass_rate"`
}

// ProcessResult is the per-document outcome handed back to the job source.
// There is no degraded-success state: a document either yields a graph that
// meets the quality bar or fails outright.
type ProcessResult struct {
	WorkspaceID      string         `json:"workspace_id"`
	FileID           string         `json:"file_id"`
	Status           string         `json:"status"` // "success" | "failed"
	NodesCreated     int            `json:"nodes_created"`
	NodesMerged      int            `json:"nodes_merged"`
	EvidencesCreated int            `json:"evidences_created"`
	GapsCreated      int            `json:"gaps_created"`
	DedupRate        float64        `json:"dedup_rate"`
	Quality          QualityMetrics `json:"quality_metrics"`
	Error            string         `json:"error,omitempty"`
}

// Failed builds a failure result for job with a human-readable reason.
func Failed(job Job, reason string) ProcessResult {
	return ProcessResult{
		WorkspaceID: job.WorkspaceID,
		FileID:      job.FileID,
		Status:      "failed",
		Error:       reason,
	}
}
