package entity

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain layer operations.
var (
	// ErrNotFound indicates that a requested entity was not found
	ErrNotFound = errors.New("entity not found")

	// ErrInvalidInput indicates that the provided input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrValidationFailed indicates that validation checks have failed
	ErrValidationFailed = errors.New("validation failed")

	// ErrSourceNotFound indicates initialize/tick was called for a source
	// row that no longer exists; callers must treat this as a silent no-op
	// (spec §4.5: "race-safe").
	ErrSourceNotFound = errors.New("source not found")

	// ErrCorruptState indicates a SourceState failed shape validation.
	// Callers must arm a far-future tick and take no other action.
	ErrCorruptState = errors.New("corrupt source state")

	// ErrSchedulerDestroyed indicates an operation was attempted against a
	// scheduler instance that has already been destroyed.
	ErrSchedulerDestroyed = errors.New("scheduler instance destroyed")

	// ErrRetriesExhausted wraps the final error of a bounded-retry step
	// once all attempts have been consumed.
	ErrRetriesExhausted = errors.New("retries exhausted")
)

// SkipReason is a permanent-skip error kind (spec §7: "Permanent skip"),
// distinct from a retriable failure: the item is never retried.
type SkipReason struct {
	Reason string
}

func (e *SkipReason) Error() string { return e.Reason }

// NewPDFSkip builds the SkipReason used when an article URL is a PDF.
func NewPDFSkip() *SkipReason {
	return &SkipReason{Reason: "PDF article - cannot process"}
}

// ValidationError represents a validation error with detailed field information.
// It implements the error interface and provides context about which field failed validation.
type ValidationError struct {
	Field   string
	Message string
}

// Error returns a formatted error message for the validation error.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}
