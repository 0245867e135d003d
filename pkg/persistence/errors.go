// Package persistence provides standardized error types for storage operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrFlowNotFound indicates a flow was not found by id or slug.
	ErrFlowNotFound = errors.New("flow not found")

	// ErrFlowSlugExists indicates another flow already owns the slug.
	ErrFlowSlugExists = errors.New("flow slug already exists")

	// ErrContentTypeNotFound indicates a content type was not found by slug.
	ErrContentTypeNotFound = errors.New("content type not found")

	// ErrUniqueViolation is the driver-independent marker for unique
	// constraint failures that are not covered by a more specific error.
	ErrUniqueViolation = errors.New("unique constraint violation")
)

// StoreError wraps storage errors with the operation and subject for logs.
type StoreError struct {
	Op      string // Operation being performed (e.g. "flows.Create")
	Subject string // Row identifier if applicable
	Err     error  // Underlying error
}

func (e *StoreError) Error() string {
	if e.Subject != "" {
		return fmt.Sprintf("%s failed for %s: %v", e.Op, e.Subject, e.Err)
	}

	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewStoreError creates a new store error with context.
func NewStoreError(op, subject string, err error) *StoreError {
	return &StoreError{
		Op:      op,
		Subject: subject,
		Err:     err,
	}
}

// IsFlowNotFound checks if an error indicates a flow was not found.
func IsFlowNotFound(err error) bool {
	return errors.Is(err, ErrFlowNotFound)
}

// IsFlowSlugExists checks if an error indicates a flow slug collision.
func IsFlowSlugExists(err error) bool {
	return errors.Is(err, ErrFlowSlugExists)
}

// IsContentTypeNotFound checks if an error indicates a missing content type.
func IsContentTypeNotFound(err error) bool {
	return errors.Is(err, ErrContentTypeNotFound)
}

// IsUniqueViolation checks if an error stems from a unique constraint.
func IsUniqueViolation(err error) bool {
	return errors.Is(err, ErrUniqueViolation) || errors.Is(err, ErrFlowSlugExists)
}
