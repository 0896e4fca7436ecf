package compliance

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/clinigraph/clinigraph/pkg/agents"
	"github.com/clinigraph/clinigraph/pkg/logging"
	"github.com/clinigraph/clinigraph/pkg/metrics"
	"github.com/clinigraph/clinigraph/pkg/model"
	"github.com/clinigraph/clinigraph/pkg/retrieval"
	"github.com/clinigraph/clinigraph/pkg/store"
)

const (
	// DefaultWorkers bounds concurrent chunk evaluations.
	DefaultWorkers = 12
	// DefaultJudgeTimeout bounds one judge call.
	DefaultJudgeTimeout = 90 * time.Second
	// DefaultViolationThreshold is the non-compliance probability a judgment
	// must strictly exceed to be retained as a violation.
	DefaultViolationThreshold = 0.85
	// DefaultCandidates is how many requirements each chunk is judged
	// against.
	DefaultCandidates = 10
)

// Judge is the verdict surface the orchestrator needs. *agents.Judge
// satisfies it; tests substitute fakes.
type Judge interface {
	JudgeChunk(ctx context.Context, chunk model.ProtocolChunk, candidates []model.Requirement) ([]model.Judgment, error)
}

// Orchestrator runs a whole-protocol compliance check: each chunk is
// embedded, diffused through the jurisdiction graph for candidate
// requirements, judged, and aggregated. Chunks are evaluated concurrently by
// a bounded worker pool; one chunk's failure never takes down the check.
type Orchestrator struct {
	repo      *store.Repository
	embedder  agents.Embedder
	retriever *retrieval.Retriever
	judge     Judge
	metrics   *metrics.Registry
	logger    logging.Logger

	workers            int
	judgeTimeout       time.Duration
	violationThreshold float64
	candidates         int
}

type Option func(*Orchestrator)

func WithWorkers(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.workers = n
		}
	}
}

func WithJudgeTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.judgeTimeout = d
		}
	}
}

func WithViolationThreshold(threshold float64) Option {
	return func(o *Orchestrator) { o.violationThreshold = threshold }
}

func WithCandidates(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.candidates = n
		}
	}
}

func WithMetrics(m *metrics.Registry) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

func New(repo *store.Repository, embedder agents.Embedder, retriever *retrieval.Retriever, judge Judge, logger logging.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	o := &Orchestrator{
		repo:               repo,
		embedder:           embedder,
		retriever:          retriever,
		judge:              judge,
		logger:             logger,
		workers:            DefaultWorkers,
		judgeTimeout:       DefaultJudgeTimeout,
		violationThreshold: DefaultViolationThreshold,
		candidates:         DefaultCandidates,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// CheckCompliance evaluates every chunk against the jurisdiction and
// aggregates the results into a report. Chunk results keep their input
// order regardless of evaluation order.
func (o *Orchestrator) CheckCompliance(ctx context.Context, jurisdiction string, chunks []model.ProtocolChunk) (*model.ComplianceReport, error) {
	if _, err := o.repo.Get(jurisdiction); err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, model.ValidationError("compliance.check", "chunks", jurisdiction, errors.New("no chunks"))
	}

	start := time.Now()
	results := make([]model.ChunkResult, len(chunks))

	workers := o.workers
	if workers > len(chunks) {
		workers = len(chunks)
	}

	var wg sync.WaitGroup
	jobs := make(chan int)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = o.evaluateChunk(ctx, jurisdiction, chunks[i])
			}
		}()
	}
	for i := range chunks {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	report := o.aggregate(jurisdiction, results)

	o.metrics.RecordComplianceCheck(jurisdiction, report.Status)
	o.logger.Info("compliance check complete",
		logging.Jurisdiction(jurisdiction),
		logging.Int("chunks", len(chunks)),
		logging.Int("violations", len(report.Violations)),
		logging.Float64("score", report.OverallScore),
		logging.String("status", report.Status),
		logging.Latency(time.Since(start)))
	return report, nil
}

// evaluateChunk drives one chunk through seeded, diffused, judged, and
// aggregated. Any failure marks the chunk failed with the state it reached.
func (o *Orchestrator) evaluateChunk(ctx context.Context, jurisdiction string, chunk model.ProtocolChunk) model.ChunkResult {
	result := model.ChunkResult{Index: chunk.Index, State: model.ChunkSeeded}

	embedding := chunk.Embedding
	if embedding == nil {
		vecs, err := o.embedder.Embed(ctx, []string{chunk.Text})
		if err != nil {
			return o.failChunk(result, "embed chunk", err)
		}
		embedding = vecs[0]
	}

	candidates, err := o.diffuse(ctx, jurisdiction, embedding)
	if err != nil {
		return o.failChunk(result, "diffuse chunk", err)
	}
	result.State = model.ChunkDiffused
	result.Candidates = len(candidates)

	// a chunk with nothing to check against is trivially compliant
	if len(candidates) == 0 {
		result.State = model.ChunkAggregated
		o.metrics.RecordChunk(string(result.State))
		return result
	}

	judgeCtx, cancel := context.WithTimeout(ctx, o.judgeTimeout)
	judgeStart := time.Now()
	judgments, err := o.judge.JudgeChunk(judgeCtx, chunk, candidates)
	cancel()
	o.metrics.RecordJudgeCall(time.Since(judgeStart), err)
	if err != nil {
		return o.failChunk(result, "judge chunk", err)
	}
	result.State = model.ChunkJudged

	for _, jd := range judgments {
		if !jd.IsRelated {
			continue
		}
		weight := jd.Severity.Weight()
		result.RelatedCount++
		result.TotalWeight += weight
		// strictly above threshold, a borderline judgment is not a finding
		if !jd.IsCompliant && jd.Probability > o.violationThreshold {
			result.Violations = append(result.Violations, model.Violation{
				RegulationID:    jd.RegulationID,
				ChunkIndex:      chunk.Index,
				Severity:        jd.Severity,
				Probability:     jd.Probability,
				Explanation:     jd.Explanation,
				MissingElements: jd.MissingElements,
			})
			o.metrics.RecordViolation(string(jd.Severity))
			continue
		}
		// a discarded borderline judgment counts as compliant
		result.CompliantCount++
		result.CompliantWeight += weight
	}

	result.State = model.ChunkAggregated
	o.metrics.RecordChunk(string(result.State))
	return result
}

// diffuse retrieves the candidate requirements for one chunk embedding.
func (o *Orchestrator) diffuse(ctx context.Context, jurisdiction string, embedding []float32) ([]model.Requirement, error) {
	hits, err := o.retriever.Retrieve(ctx, jurisdiction, embedding, o.candidates)
	if err != nil {
		return nil, err
	}
	candidates := make([]model.Requirement, len(hits))
	for i, hit := range hits {
		candidates[i] = hit.Requirement
	}
	return candidates, nil
}

func (o *Orchestrator) failChunk(result model.ChunkResult, op string, err error) model.ChunkResult {
	o.logger.Error("chunk evaluation failed",
		logging.Chunk(result.Index),
		logging.String("op", op),
		logging.Error(err))
	result.State = model.ChunkFailed
	result.Error = fmt.Sprintf("%s: %v", op, err)
	o.metrics.RecordChunk(string(model.ChunkFailed))
	return result
}
