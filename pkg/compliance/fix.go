package compliance

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/clinigraph/clinigraph/pkg/logging"
	"github.com/clinigraph/clinigraph/pkg/metrics"
	"github.com/clinigraph/clinigraph/pkg/model"
	"github.com/clinigraph/clinigraph/pkg/store"
)

// Fixer is the proposal surface the fix orchestrator needs. *agents.Fixer
// satisfies it.
type Fixer interface {
	ProposeChanges(ctx context.Context, violation model.Violation, chunkText string, requirement model.Requirement) ([]model.Change, error)
}

// FixFailure records a violation no fix could be generated for.
type FixFailure struct {
	RegulationID string `json:"regulation_id"`
	ChunkIndex   int    `json:"chunk_index"`
	Reason       string `json:"reason"`
}

// FixPlan is the full set of proposed edits for one compliance report.
type FixPlan struct {
	ReportID     string         `json:"report_id"`
	Jurisdiction string         `json:"jurisdiction"`
	GeneratedAt  time.Time      `json:"generated_at"`
	Changes      []model.Change `json:"changes"`
	Failures     []FixFailure   `json:"failures,omitempty"`
}

// FixOrchestrator turns a compliance report's violations into concrete
// protocol edits. Violations are fixed concurrently; critical findings come
// first in the plan. A violation whose fix generation fails is reported as
// such, it never aborts the rest of the plan.
type FixOrchestrator struct {
	repo    *store.Repository
	fixer   Fixer
	metrics *metrics.Registry
	logger  logging.Logger
	workers int
	timeout time.Duration
}

type FixOption func(*FixOrchestrator)

func WithFixWorkers(n int) FixOption {
	return func(f *FixOrchestrator) {
		if n > 0 {
			f.workers = n
		}
	}
}

// WithFixTimeout bounds each fix-generation collaborator call.
func WithFixTimeout(d time.Duration) FixOption {
	return func(f *FixOrchestrator) {
		if d > 0 {
			f.timeout = d
		}
	}
}

func WithFixMetrics(m *metrics.Registry) FixOption {
	return func(f *FixOrchestrator) { f.metrics = m }
}

func NewFixOrchestrator(repo *store.Repository, fixer Fixer, logger logging.Logger, opts ...FixOption) *FixOrchestrator {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	f := &FixOrchestrator{
		repo:    repo,
		fixer:   fixer,
		logger:  logger,
		workers: DefaultWorkers,
		timeout: DefaultJudgeTimeout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// ProposeFixes generates edits for every violation in the report. The
// protocol chunks must be the same ones the report was produced from, so
// each violation can be resolved against its chunk text.
func (f *FixOrchestrator) ProposeFixes(ctx context.Context, report *model.ComplianceReport, chunks []model.ProtocolChunk) (*FixPlan, error) {
	j, err := f.repo.Get(report.Jurisdiction)
	if err != nil {
		return nil, err
	}
	g, _ := j.View()

	chunkByIndex := make(map[int]string, len(chunks))
	for _, chunk := range chunks {
		chunkByIndex[chunk.Index] = chunk.Text
	}

	plan := &FixPlan{
		ReportID:     report.ID,
		Jurisdiction: report.Jurisdiction,
		GeneratedAt:  time.Now().UTC(),
	}
	if len(report.Violations) == 0 {
		return plan, nil
	}

	// critical violations first, then by judge certainty
	violations := make([]model.Violation, len(report.Violations))
	copy(violations, report.Violations)
	sort.SliceStable(violations, func(i, k int) bool {
		a, b := violations[i], violations[k]
		if (a.Severity == model.SeverityCritical) != (b.Severity == model.SeverityCritical) {
			return a.Severity == model.SeverityCritical
		}
		return a.Probability > b.Probability
	})

	type outcome struct {
		changes []model.Change
		failure *FixFailure
	}
	outcomes := make([]outcome, len(violations))

	workers := f.workers
	if workers > len(violations) {
		workers = len(violations)
	}

	var wg sync.WaitGroup
	jobs := make(chan int)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				v := violations[i]

				chunkText, ok := chunkByIndex[v.ChunkIndex]
				if !ok {
					outcomes[i] = outcome{failure: &FixFailure{
						RegulationID: v.RegulationID,
						ChunkIndex:   v.ChunkIndex,
						Reason:       "chunk not provided",
					}}
					continue
				}
				req, ok := g.Node(v.RegulationID)
				if !ok {
					outcomes[i] = outcome{failure: &FixFailure{
						RegulationID: v.RegulationID,
						ChunkIndex:   v.ChunkIndex,
						Reason:       "requirement no longer in graph",
					}}
					continue
				}

				fixCtx, cancel := context.WithTimeout(ctx, f.timeout)
				changes, err := f.fixer.ProposeChanges(fixCtx, v, chunkText, *req)
				cancel()
				if err != nil {
					f.logger.Error("fix generation failed",
						logging.Regulation(v.RegulationID),
						logging.Chunk(v.ChunkIndex),
						logging.Error(err))
					f.metrics.RecordCollaboratorFailure("fixer")
					outcomes[i] = outcome{failure: &FixFailure{
						RegulationID: v.RegulationID,
						ChunkIndex:   v.ChunkIndex,
						Reason:       fmt.Sprintf("fix generation failed: %v", err),
					}}
					continue
				}
				for k := range changes {
					changes[k].Diff = renderDiff(changes[k])
				}
				outcomes[i] = outcome{changes: changes}
			}
		}()
	}
	for i := range violations {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for _, out := range outcomes {
		if out.failure != nil {
			plan.Failures = append(plan.Failures, *out.failure)
			continue
		}
		plan.Changes = append(plan.Changes, out.changes...)
	}

	f.logger.Info("fix plan generated",
		logging.Jurisdiction(report.Jurisdiction),
		logging.Int("violations", len(violations)),
		logging.Int("changes", len(plan.Changes)),
		logging.Int("failures", len(plan.Failures)))
	return plan, nil
}

// renderDiff produces a unified-style text diff for a change so reviewers
// can see the edit without applying it.
func renderDiff(ch model.Change) string {
	before, after := ch.Original, ch.Replacement
	if ch.Type == model.ChangeDelete {
		after = ""
	}
	if ch.Type == model.ChangeAdd {
		before = ""
	}
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(before, after, false)
	dmp.DiffCleanupSemantic(diffs)
	return dmp.DiffPrettyText(diffs)
}
