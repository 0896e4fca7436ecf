package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/clinigraph/clinigraph/pkg/logging"
	"github.com/clinigraph/clinigraph/pkg/model"
)

const judgeSystemPrompt = `You are a clinical-trial compliance judge. You are given one protocol
chunk and a list of candidate regulatory requirements. For EVERY candidate,
decide whether it is related to the chunk and, if related, whether the chunk
complies with it. Respond with ONLY a JSON array, exactly one object per
candidate, in any order:
[{"regulation_id": "<candidate id>",
  "is_related": <bool>,
  "is_compliant": <bool>,
  "non_compliance_probability": <0.0-1.0>,
  "severity": "<critical|high|medium|low>",
  "explanation": "<one or two sentences>",
  "missing_elements": ["<element>", ...]}]
Only use regulation_ids from the candidate list.`

// Judge evaluates one protocol chunk against its candidate requirements.
type Judge struct {
	chat   Chat
	logger logging.Logger
}

func NewJudge(chat Chat, logger logging.Logger) *Judge {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Judge{chat: chat, logger: logger}
}

// JudgeChunk returns one judgment per candidate requirement. Judgments
// citing regulation ids outside the candidate list are dropped; candidates
// the model failed to cover are filled in as unrelated.
func (j *Judge) JudgeChunk(ctx context.Context, chunk model.ProtocolChunk, candidates []model.Requirement) ([]model.Judgment, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	sb.WriteString("PROTOCOL CHUNK:\n")
	sb.WriteString(chunk.Text)
	sb.WriteString("\n\nCANDIDATE REQUIREMENTS:\n")
	for _, req := range candidates {
		fmt.Fprintf(&sb, "%s [%s, %s]: %s\n", req.ID, req.Severity, req.Section, req.Text)
	}

	reply, err := j.chat.Complete(ctx, judgeSystemPrompt, sb.String())
	if err != nil {
		return nil, err
	}

	raw, err := extractJSON(reply)
	if err != nil {
		return nil, model.CollaboratorError("judge.chunk", err)
	}

	var parsed []model.Judgment
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, model.CollaboratorError("judge.chunk", fmt.Errorf("decode judgments: %w", err))
	}

	known := make(map[string]model.Requirement, len(candidates))
	for _, req := range candidates {
		known[req.ID] = req
	}

	byID := make(map[string]model.Judgment, len(parsed))
	for _, jd := range parsed {
		req, ok := known[jd.RegulationID]
		if !ok {
			j.logger.Warn("dropping judgment for hallucinated regulation id",
				logging.Chunk(chunk.Index),
				logging.Regulation(jd.RegulationID))
			continue
		}
		if jd.Probability < 0 {
			jd.Probability = 0
		}
		if jd.Probability > 1 {
			jd.Probability = 1
		}
		// the graph is authoritative on severity, not the judge
		jd.Severity = req.Severity
		byID[jd.RegulationID] = jd
	}

	judgments := make([]model.Judgment, 0, len(candidates))
	for _, req := range candidates {
		if jd, ok := byID[req.ID]; ok {
			judgments = append(judgments, jd)
			continue
		}
		j.logger.Warn("judge omitted a candidate, recording as unrelated",
			logging.Chunk(chunk.Index),
			logging.Regulation(req.ID))
		judgments = append(judgments, model.Judgment{
			RegulationID: req.ID,
			IsRelated:    false,
			Severity:     req.Severity,
		})
	}
	return judgments, nil
}
