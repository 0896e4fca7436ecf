package compliance

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/clinigraph/clinigraph/pkg/model"
)

// aggregate folds per-chunk results into a report. Chunk results are sorted
// by index so the report is deterministic regardless of which worker
// finished first.
func (o *Orchestrator) aggregate(jurisdiction string, results []model.ChunkResult) *model.ComplianceReport {
	sort.Slice(results, func(i, k int) bool { return results[i].Index < results[k].Index })

	report := &model.ComplianceReport{
		ID:           uuid.New().String(),
		Jurisdiction: jurisdiction,
		CheckedAt:    time.Now().UTC(),
		TotalChunks:  len(results),
		Chunks:       results,
	}

	var totalWeight, compliantWeight float64
	for _, chunk := range results {
		if chunk.State == model.ChunkFailed {
			report.FailedChunks = append(report.FailedChunks, model.ChunkFailure{
				Index:  chunk.Index,
				Reason: chunk.Error,
			})
			continue
		}
		report.EvaluatedChunks++
		totalWeight += chunk.TotalWeight
		compliantWeight += chunk.CompliantWeight

		if len(chunk.Violations) == 0 {
			report.CompliantCount++
		} else {
			report.NonCompliantCount++
			report.Violations = append(report.Violations, chunk.Violations...)
		}
	}

	// violations arrive ordered by chunk index; make the order total by
	// breaking ties on regulation id
	sort.SliceStable(report.Violations, func(i, k int) bool {
		a, b := report.Violations[i], report.Violations[k]
		if a.ChunkIndex != b.ChunkIndex {
			return a.ChunkIndex < b.ChunkIndex
		}
		return a.RegulationID < b.RegulationID
	})

	for _, v := range report.Violations {
		if v.Severity == model.SeverityCritical {
			report.CriticalViolations = append(report.CriticalViolations, v)
		}
		if len(v.MissingElements) > 0 {
			report.Recommendations = append(report.Recommendations, v.MissingElements)
		}
	}
	// critical violations are ranked by how certain the judge was
	sort.SliceStable(report.CriticalViolations, func(i, k int) bool {
		return report.CriticalViolations[i].Probability > report.CriticalViolations[k].Probability
	})

	// a protocol with nothing applicable to judge is compliant by default
	if totalWeight == 0 {
		report.OverallScore = 1.0
	} else {
		report.OverallScore = compliantWeight / totalWeight
	}

	if len(report.Violations) == 0 {
		report.Status = model.StatusCompliant
	} else {
		report.Status = model.StatusNonCompliant
	}
	return report
}
