package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound         = errors.New("resource not found")
	ErrRunNotFound      = fmt.Errorf("%w: run", ErrNotFound)
	ErrWaveNotFound     = fmt.Errorf("%w: wave", ErrNotFound)
	ErrQuestionNotFound = fmt.Errorf("%w: question", ErrNotFound)
	ErrColumnNotFound   = fmt.Errorf("%w: column", ErrNotFound)

	// Survey-structure errors. Box-category resolution distinguishes three
	// conditions: no structure table loaded at all, the named category not
	// appearing in it, and the category existing but mapping to no numeric
	// codes. Callers report each differently.
	ErrNoStructure         = errors.New("no survey structure table loaded")
	ErrBoxCategoryNotFound = errors.New("box category not found in structure")
	ErrBoxCodesEmpty       = errors.New("box category has no numeric codes")

	// Statistical unavailability. Not failures: first-class result states
	// that callers must branch on rather than treat as errors.
	ErrInsufficientBase = errors.New("base size below minimum")
	ErrMetricUndefined  = errors.New("metric undefined for data present")
)

// Error constructors with context
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

func NewValidationError(field string, reason string) error {
	return fmt.Errorf("validation failed for %s: %s", field, reason)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsStructureError(err error) bool {
	return errors.Is(err, ErrNoStructure) ||
		errors.Is(err, ErrBoxCategoryNotFound) ||
		errors.Is(err, ErrBoxCodesEmpty)
}

func IsUnavailable(err error) bool {
	return errors.Is(err, ErrInsufficientBase) ||
		errors.Is(err, ErrMetricUndefined)
}
