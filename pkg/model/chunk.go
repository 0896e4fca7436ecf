package model

// ProtocolChunk is one bounded segment of a clinical-trial protocol,
// produced by an external chunker. Chunks are ephemeral: they live only for
// the duration of a single compliance check.
type ProtocolChunk struct {
	Index     int       `json:"index"`
	Text      string    `json:"text" validate:"required"`
	Embedding []float32 `json:"embedding,omitempty"`
}

// Judgment is the compliance judge's verdict for one candidate requirement.
// The judge returns exactly one entry per candidate; entries citing
// requirements that were not in the candidate list are rejected at the
// boundary.
type Judgment struct {
	RegulationID    string   `json:"regulation_id" validate:"required"`
	IsRelated       bool     `json:"is_related"`
	IsCompliant     bool     `json:"is_compliant"`
	Probability     float64  `json:"non_compliance_probability" validate:"gte=0,lte=1"`
	Severity        Severity `json:"severity"`
	Explanation     string   `json:"explanation"`
	MissingElements []string `json:"missing_elements"`
}

// ChangeType classifies a proposed protocol edit
type ChangeType string

const (
	ChangeReplace ChangeType = "replace"
	ChangeAdd     ChangeType = "add"
	ChangeDelete  ChangeType = "delete"
)

// Change is one minimal protocol edit proposed by the fix generator. Every
// change carries a back-reference to the violation it addresses.
type Change struct {
	Type        ChangeType `json:"type" validate:"required,oneof=replace add delete"`
	Original    string     `json:"original,omitempty"`
	Replacement string     `json:"replacement,omitempty"`
	Reason      string     `json:"reason"`
	Diff        string     `json:"diff,omitempty"`

	// Back-reference to the violation this change addresses
	RegulationID string   `json:"regulation_id"`
	ChunkIndex   int      `json:"chunk_index"`
	Severity     Severity `json:"severity"`
}
