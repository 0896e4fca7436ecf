package model

// Severity classifies how serious a regulatory requirement is
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Weight returns the contribution of this severity to the compliance score.
// Unknown severities fall back to the medium weight.
func (s Severity) Weight() float64 {
	switch s {
	case SeverityCritical:
		return 1.0
	case SeverityHigh:
		return 0.8
	case SeverityMedium:
		return 0.5
	case SeverityLow:
		return 0.3
	default:
		return 0.5
	}
}

// ParseSeverity normalizes a severity string, defaulting to medium
func ParseSeverity(s string) Severity {
	switch Severity(s) {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return Severity(s)
	default:
		return SeverityMedium
	}
}

// Relation is the type of a knowledge-graph edge between requirements
type Relation string

const (
	// RelationRelated connects requirements the relationship extractor linked
	RelationRelated Relation = "RELATED_TO"
	// RelationSimilar connects requirements whose embeddings are close
	RelationSimilar Relation = "SIMILAR_TO"
	// RelationNearby connects requirements adjacent in document order
	RelationNearby Relation = "NEARBY"
)

// Edge weights used during personalized PageRank diffusion.
// RELATED_TO edges carry contextual LLM-derived relationships and dominate;
// SIMILAR_TO edges are sparse embedding-based backup connections;
// NEARBY edges encode document adjacency.
const (
	WeightRelated = 1.0
	WeightSimilar = 0.1
	WeightNearby  = 0.3
)

// Weight returns the PageRank edge weight for a relation type
func (r Relation) Weight() float64 {
	switch r {
	case RelationRelated:
		return WeightRelated
	case RelationSimilar:
		return WeightSimilar
	case RelationNearby:
		return WeightNearby
	default:
		return 0
	}
}

// Requirement is one atomic regulatory requirement node. Requirements are
// immutable once ingested; re-ingestion of the same id replaces the node.
type Requirement struct {
	ID              string   `json:"id" validate:"required"`
	Text            string   `json:"text" validate:"required"`
	Section         string   `json:"section"`
	Severity        Severity `json:"severity" validate:"omitempty,oneof=low medium high critical"`
	RequirementType string   `json:"requirement_type"`
	Jurisdiction    string   `json:"jurisdiction"`
}

// Triplet is a RELATED_TO relationship between two requirements, produced
// by the relationship extractor
type Triplet struct {
	Subject    string  `json:"subject_id" validate:"required"`
	Object     string  `json:"object_id" validate:"required"`
	Confidence float64 `json:"confidence" validate:"gte=0,lte=1"`
}
