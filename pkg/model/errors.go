package model

import (
	"errors"
	"fmt"
)

// Common sentinel errors. Callers match with errors.Is.
var (
	// ErrValidation marks malformed input: bad triplets, unknown node
	// references, schema mismatches at the LLM boundary. Rejects only the
	// offending item unless noted otherwise.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks an unknown jurisdiction or requirement. Fails the
	// whole call.
	ErrNotFound = errors.New("not found")

	// ErrCollaborator marks a failed or timed-out external collaborator
	// call (judge, fix generator, extractor). Fails only the affected
	// chunk or violation.
	ErrCollaborator = errors.New("collaborator call failed")

	// ErrEmbedding marks an unavailable embedding provider. Aborts the
	// entire ingestion atomically.
	ErrEmbedding = errors.New("embedding provider unavailable")
)

// DomainError provides structured error information for engine operations.
type DomainError struct {
	Op     string // Operation that failed (e.g., "Build", "Retrieve")
	Entity string // Entity type (e.g., "triplet", "jurisdiction", "chunk")
	ID     string // Entity identifier (if applicable)
	Cause  error  // Underlying error
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %s %q: %v", e.Op, e.Entity, e.ID, e.Cause)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Entity, e.Cause)
}

// Unwrap returns the underlying cause for error chain support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target error matches this error or its cause.
func (e *DomainError) Is(target error) bool {
	if target == nil {
		return false
	}
	return errors.Is(e.Cause, target)
}

// ValidationError creates a validation error for the given entity.
func ValidationError(op, entity, id string, cause error) error {
	if cause == nil {
		cause = ErrValidation
	} else if !errors.Is(cause, ErrValidation) {
		cause = fmt.Errorf("%w: %w", ErrValidation, cause)
	}
	return &DomainError{Op: op, Entity: entity, ID: id, Cause: cause}
}

// JurisdictionNotFound creates an unknown-jurisdiction error.
func JurisdictionNotFound(name string) error {
	return &DomainError{Op: "lookup", Entity: "jurisdiction", ID: name, Cause: ErrNotFound}
}

// CollaboratorError wraps a failed external collaborator call.
func CollaboratorError(op string, cause error) error {
	if cause == nil {
		cause = ErrCollaborator
	} else if !errors.Is(cause, ErrCollaborator) {
		cause = fmt.Errorf("%w: %w", ErrCollaborator, cause)
	}
	return &DomainError{Op: op, Entity: "collaborator", Cause: cause}
}

// EmbeddingError wraps an embedding-provider failure.
func EmbeddingError(op string, cause error) error {
	if cause == nil {
		cause = ErrEmbedding
	} else if !errors.Is(cause, ErrEmbedding) {
		cause = fmt.Errorf("%w: %w", ErrEmbedding, cause)
	}
	return &DomainError{Op: op, Entity: "embedding", Cause: cause}
}

// IsNotFound returns true if the error is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation returns true if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}
