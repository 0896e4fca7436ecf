package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/clinigraph/clinigraph/pkg/logging"
	"github.com/clinigraph/clinigraph/pkg/model"
)

const requirementSystemPrompt = `You are a regulatory analyst. Extract every distinct, atomic compliance
requirement from the regulation text you are given. Respond with ONLY a JSON
array, one object per requirement:
[{"id": "<short stable identifier, e.g. GCP-4.8.10>",
  "text": "<the requirement, self-contained>",
  "section": "<source section reference>",
  "severity": "<critical|high|medium|low>",
  "requirement_type": "<e.g. informed_consent, safety_reporting, data_integrity>"}]`

const relationshipSystemPrompt = `You are a regulatory analyst. Given a list of compliance requirements,
identify pairs that are substantively related (one elaborates, constrains, or
depends on the other). Respond with ONLY a JSON array:
[{"subject_id": "<requirement id>", "object_id": "<requirement id>",
  "confidence": <0.0-1.0>}]
Only use ids from the provided list.`

// Extractor pulls structured requirements and relationships out of raw
// regulation text via a chat model.
type Extractor struct {
	chat     Chat
	validate *validator.Validate
	logger   logging.Logger
}

func NewExtractor(chat Chat, logger logging.Logger) *Extractor {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Extractor{
		chat:     chat,
		validate: validator.New(),
		logger:   logger,
	}
}

// ExtractRequirements extracts atomic requirements from a regulation
// document. Entries that fail validation are skipped with a warning rather
// than failing the extraction.
func (e *Extractor) ExtractRequirements(ctx context.Context, document string) ([]model.Requirement, error) {
	reply, err := e.chat.Complete(ctx, requirementSystemPrompt, document)
	if err != nil {
		return nil, err
	}

	raw, err := extractJSON(reply)
	if err != nil {
		return nil, model.CollaboratorError("extract.requirements", err)
	}

	var candidates []model.Requirement
	if err := json.Unmarshal([]byte(raw), &candidates); err != nil {
		return nil, model.CollaboratorError("extract.requirements", fmt.Errorf("decode requirements: %w", err))
	}

	requirements := make([]model.Requirement, 0, len(candidates))
	seen := make(map[string]bool, len(candidates))
	for _, req := range candidates {
		req.ID = strings.TrimSpace(req.ID)
		req.Severity = model.ParseSeverity(string(req.Severity))
		if err := e.validate.Struct(&req); err != nil {
			e.logger.Warn("skipping invalid extracted requirement",
				logging.String("id", req.ID),
				logging.Error(err))
			continue
		}
		if seen[req.ID] {
			e.logger.Warn("skipping duplicate extracted requirement", logging.String("id", req.ID))
			continue
		}
		seen[req.ID] = true
		requirements = append(requirements, req)
	}
	return requirements, nil
}

// ExtractRelationships asks the model which of the given requirements are
// related. Triplets referencing unknown ids or carrying out-of-range
// confidence are skipped.
func (e *Extractor) ExtractRelationships(ctx context.Context, requirements []model.Requirement) ([]model.Triplet, error) {
	if len(requirements) < 2 {
		return nil, nil
	}

	var sb strings.Builder
	for _, req := range requirements {
		fmt.Fprintf(&sb, "%s: %s\n", req.ID, req.Text)
	}

	reply, err := e.chat.Complete(ctx, relationshipSystemPrompt, sb.String())
	if err != nil {
		return nil, err
	}

	raw, err := extractJSON(reply)
	if err != nil {
		return nil, model.CollaboratorError("extract.relationships", err)
	}

	var candidates []model.Triplet
	if err := json.Unmarshal([]byte(raw), &candidates); err != nil {
		return nil, model.CollaboratorError("extract.relationships", fmt.Errorf("decode triplets: %w", err))
	}

	known := make(map[string]bool, len(requirements))
	for _, req := range requirements {
		known[req.ID] = true
	}

	triplets := make([]model.Triplet, 0, len(candidates))
	for _, t := range candidates {
		if !known[t.Subject] || !known[t.Object] || t.Subject == t.Object {
			e.logger.Warn("skipping triplet with unknown or self-referential ids",
				logging.String("subject", t.Subject),
				logging.String("object", t.Object))
			continue
		}
		if t.Confidence < 0 || t.Confidence > 1 {
			e.logger.Warn("skipping triplet with out-of-range confidence",
				logging.String("subject", t.Subject),
				logging.Float64("confidence", t.Confidence))
			continue
		}
		triplets = append(triplets, t)
	}
	return triplets, nil
}
