package agents

import (
	"context"
	"testing"

	"github.com/clinigraph/clinigraph/pkg/model"
)

func TestJudgeChunkDropsHallucinatedIDs(t *testing.T) {
	chat := &fakeChat{replies: []string{`[
		{"regulation_id": "GCP-1", "is_related": true, "is_compliant": false, "non_compliance_probability": 0.95, "explanation": "no consent process"},
		{"regulation_id": "MADE-UP", "is_related": true, "is_compliant": false, "non_compliance_probability": 0.99}
	]`}}

	judge := NewJudge(chat, nil)
	candidates := []model.Requirement{
		{ID: "GCP-1", Text: "consent", Severity: model.SeverityCritical},
	}
	judgments, err := judge.JudgeChunk(context.Background(), model.ProtocolChunk{Index: 0, Text: "chunk"}, candidates)
	if err != nil {
		t.Fatalf("JudgeChunk failed: %v", err)
	}
	if len(judgments) != 1 {
		t.Fatalf("expected 1 judgment, got %d", len(judgments))
	}
	if judgments[0].RegulationID != "GCP-1" {
		t.Errorf("unexpected id %s", judgments[0].RegulationID)
	}
}

func TestJudgeChunkFillsOmittedCandidates(t *testing.T) {
	chat := &fakeChat{replies: []string{`[
		{"regulation_id": "GCP-1", "is_related": true, "is_compliant": true, "non_compliance_probability": 0.1}
	]`}}

	judge := NewJudge(chat, nil)
	candidates := []model.Requirement{
		{ID: "GCP-1", Text: "consent", Severity: model.SeverityCritical},
		{ID: "GCP-2", Text: "records", Severity: model.SeverityHigh},
	}
	judgments, err := judge.JudgeChunk(context.Background(), model.ProtocolChunk{Index: 3, Text: "chunk"}, candidates)
	if err != nil {
		t.Fatalf("JudgeChunk failed: %v", err)
	}
	if len(judgments) != 2 {
		t.Fatalf("expected one judgment per candidate, got %d", len(judgments))
	}
	if judgments[1].RegulationID != "GCP-2" || judgments[1].IsRelated {
		t.Errorf("omitted candidate should be recorded unrelated: %+v", judgments[1])
	}
}

func TestJudgeChunkUsesGraphSeverity(t *testing.T) {
	chat := &fakeChat{replies: []string{`[
		{"regulation_id": "GCP-1", "is_related": true, "is_compliant": false, "non_compliance_probability": 0.9, "severity": "low"}
	]`}}

	judge := NewJudge(chat, nil)
	candidates := []model.Requirement{
		{ID: "GCP-1", Text: "consent", Severity: model.SeverityCritical},
	}
	judgments, err := judge.JudgeChunk(context.Background(), model.ProtocolChunk{Text: "chunk"}, candidates)
	if err != nil {
		t.Fatalf("JudgeChunk failed: %v", err)
	}
	if judgments[0].Severity != model.SeverityCritical {
		t.Errorf("graph severity should win, got %s", judgments[0].Severity)
	}
}

func TestJudgeChunkClampsProbability(t *testing.T) {
	chat := &fakeChat{replies: []string{`[
		{"regulation_id": "GCP-1", "is_related": true, "is_compliant": false, "non_compliance_probability": 1.7}
	]`}}

	judge := NewJudge(chat, nil)
	candidates := []model.Requirement{{ID: "GCP-1", Text: "consent"}}
	judgments, err := judge.JudgeChunk(context.Background(), model.ProtocolChunk{Text: "chunk"}, candidates)
	if err != nil {
		t.Fatalf("JudgeChunk failed: %v", err)
	}
	if judgments[0].Probability != 1 {
		t.Errorf("expected clamped probability 1, got %f", judgments[0].Probability)
	}
}

func TestJudgeChunkNoCandidates(t *testing.T) {
	chat := &fakeChat{}
	judge := NewJudge(chat, nil)
	judgments, err := judge.JudgeChunk(context.Background(), model.ProtocolChunk{Text: "chunk"}, nil)
	if err != nil {
		t.Fatalf("JudgeChunk failed: %v", err)
	}
	if judgments != nil || chat.calls != 0 {
		t.Errorf("expected no judgments and no chat call")
	}
}
