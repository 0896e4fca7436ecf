package model

import "time"

// ChunkState tracks a chunk through the compliance pipeline. A chunk never
// transitions backward; a chunk whose judge call fails is marked Failed and
// excluded from the score but reported separately.
type ChunkState string

const (
	ChunkSeeded     ChunkState = "seeded"
	ChunkDiffused   ChunkState = "diffused"
	ChunkJudged     ChunkState = "judged"
	ChunkAggregated ChunkState = "aggregated"
	ChunkFailed     ChunkState = "failed"
)

// Violation records one regulation a protocol chunk was judged to violate
type Violation struct {
	RegulationID    string   `json:"regulation_id"`
	ChunkIndex      int      `json:"chunk_index"`
	Severity        Severity `json:"severity"`
	Probability     float64  `json:"probability"`
	Explanation     string   `json:"explanation"`
	MissingElements []string `json:"missing_elements,omitempty"`
}

// ChunkResult is the per-chunk outcome of a compliance check
type ChunkResult struct {
	Index      int         `json:"index"`
	State      ChunkState  `json:"state"`
	Candidates int         `json:"candidates"`
	Violations []Violation `json:"violations,omitempty"`
	Error      string      `json:"error,omitempty"`

	// Severity-weighted accumulators over related judgments, used for the
	// overall score
	TotalWeight     float64 `json:"-"`
	CompliantWeight float64 `json:"-"`
	RelatedCount    int     `json:"related_count"`
	CompliantCount  int     `json:"compliant_count"`
}

// ChunkFailure surfaces a chunk that could not be evaluated. Failed chunks
// are never conflated with violating ones.
type ChunkFailure struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// Report statuses
const (
	StatusCompliant    = "COMPLIANT"
	StatusNonCompliant = "NON_COMPLIANT"
)

// ComplianceReport aggregates all chunk results of one compliance check.
// Immutable once produced; its lifetime is the caller's request cycle.
type ComplianceReport struct {
	ID           string    `json:"id"`
	Jurisdiction string    `json:"jurisdiction"`
	CheckedAt    time.Time `json:"checked_at"`

	TotalChunks     int            `json:"total_chunks"`
	EvaluatedChunks int            `json:"evaluated_chunks"`
	FailedChunks    []ChunkFailure `json:"failed_chunks,omitempty"`
	Chunks          []ChunkResult  `json:"chunks"`

	Violations         []Violation `json:"violations"`
	CriticalViolations []Violation `json:"critical_violations"`
	Recommendations    [][]string  `json:"recommendations,omitempty"`

	CompliantCount    int     `json:"compliant_count"`
	NonCompliantCount int     `json:"non_compliant_count"`
	OverallScore      float64 `json:"overall_compliance_score"`
	Status            string  `json:"status"`
}
