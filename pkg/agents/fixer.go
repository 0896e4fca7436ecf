package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/clinigraph/clinigraph/pkg/logging"
	"github.com/clinigraph/clinigraph/pkg/model"
)

const fixerSystemPrompt = `You are a clinical-protocol editor. You are given one protocol chunk, the
regulatory requirement it violates, and an explanation of the violation.
Propose the SMALLEST edits that would make the chunk compliant: at most two,
usually one. Respond with ONLY a JSON array:
[{"type": "<replace|add|delete>",
  "original": "<exact text to replace or delete, empty for add>",
  "replacement": "<new text, empty for delete>",
  "reason": "<one sentence tying the edit to the requirement>"}]`

// Fixer proposes minimal protocol edits for a single violation.
type Fixer struct {
	chat       Chat
	maxChanges int
	logger     logging.Logger
}

func NewFixer(chat Chat, maxChanges int, logger logging.Logger) *Fixer {
	if maxChanges <= 0 {
		maxChanges = 2
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Fixer{chat: chat, maxChanges: maxChanges, logger: logger}
}

// ProposeChanges generates edits for one violation. Every returned change
// carries a back-reference to the violation it addresses; the change count
// is capped so fixes stay minimal.
func (f *Fixer) ProposeChanges(ctx context.Context, violation model.Violation, chunkText string, requirement model.Requirement) ([]model.Change, error) {
	var sb strings.Builder
	sb.WriteString("PROTOCOL CHUNK:\n")
	sb.WriteString(chunkText)
	fmt.Fprintf(&sb, "\n\nVIOLATED REQUIREMENT %s [%s]:\n%s\n", requirement.ID, requirement.Severity, requirement.Text)
	fmt.Fprintf(&sb, "\nVIOLATION: %s\n", violation.Explanation)
	if len(violation.MissingElements) > 0 {
		fmt.Fprintf(&sb, "MISSING ELEMENTS: %s\n", strings.Join(violation.MissingElements, "; "))
	}

	reply, err := f.chat.Complete(ctx, fixerSystemPrompt, sb.String())
	if err != nil {
		return nil, err
	}

	raw, err := extractJSON(reply)
	if err != nil {
		return nil, model.CollaboratorError("fixer.propose", err)
	}

	var parsed []model.Change
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, model.CollaboratorError("fixer.propose", fmt.Errorf("decode changes: %w", err))
	}

	changes := make([]model.Change, 0, f.maxChanges)
	for _, ch := range parsed {
		if len(changes) == f.maxChanges {
			f.logger.Warn("truncating fix proposal to change cap",
				logging.Regulation(violation.RegulationID),
				logging.Chunk(violation.ChunkIndex),
				logging.Int("proposed", len(parsed)))
			break
		}
		switch ch.Type {
		case model.ChangeReplace, model.ChangeAdd, model.ChangeDelete:
		default:
			f.logger.Warn("skipping change with unknown type",
				logging.String("type", string(ch.Type)))
			continue
		}
		if ch.Type != model.ChangeAdd && ch.Original == "" {
			f.logger.Warn("skipping change without original text",
				logging.String("type", string(ch.Type)))
			continue
		}
		ch.RegulationID = violation.RegulationID
		ch.ChunkIndex = violation.ChunkIndex
		ch.Severity = violation.Severity
		changes = append(changes, ch)
	}
	return changes, nil
}
