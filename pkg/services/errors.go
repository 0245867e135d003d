// Package services implements the application operations behind the flow
// API: flow management, run orchestration, and the public trigger path.
package services

import (
	"errors"
	"fmt"

	"github.com/lodecms/lode/pkg/flow"
	"github.com/lodecms/lode/pkg/models"
	"github.com/lodecms/lode/pkg/persistence"
	"github.com/lodecms/lode/pkg/slug"
)

// Business logic errors that map to client errors (4xx responses).
var (
	// Validation errors (400 Bad Request).
	ErrInvalidStatus        = errors.New("status must be draft|active|disabled")
	ErrTriggerEventRequired = errors.New("trigger_event is required")
	ErrTriggerEventTooLong  = errors.New("trigger_event must be <= 120 chars")
	ErrFlowSlugRequired     = errors.New("flow slug is required")

	// ErrFlowNotActive rejects public triggers against draft or disabled
	// flows (400 Bad Request, no run persisted).
	ErrFlowNotActive = errors.New("flow is not active")

	// ErrFlowNotFound mirrors the persistence sentinel for service callers.
	ErrFlowNotFound = persistence.ErrFlowNotFound
)

// RateLimitedError rejects a public trigger whose caller exhausted its
// budget. RetryAfter is whole seconds until the oldest attempt leaves the
// window.
type RateLimitedError struct {
	RetryAfter int
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %ds", e.RetryAfter)
}

// IsRateLimited checks if an error is a rate limit rejection (HTTP 429).
func IsRateLimited(err error) bool {
	var rateLimited *RateLimitedError

	return errors.As(err, &rateLimited)
}

// ServiceError wraps service-level errors with additional context. Message
// carries the client-facing text; Err carries the sentinel for matching.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error is a validation error that should
// return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrTriggerEventRequired) ||
		errors.Is(err, ErrTriggerEventTooLong) ||
		errors.Is(err, ErrFlowSlugRequired) ||
		errors.Is(err, ErrFlowNotActive) ||
		errors.Is(err, models.ErrInvalidDefinition) ||
		errors.Is(err, slug.ErrInvalid) ||
		errors.Is(err, slug.ErrReserved) ||
		flow.IsBadRequest(err)
}

// IsConflictError checks if an error is a slug collision that should return
// HTTP 409.
func IsConflictError(err error) bool {
	return persistence.IsFlowSlugExists(err)
}

// IsNotFoundError checks if an error indicates a missing flow (HTTP 404).
func IsNotFoundError(err error) bool {
	return persistence.IsFlowNotFound(err)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewConflictError creates a new conflict error with context.
func NewConflictError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ClientMessage extracts the text safe to show an API caller: the wrapped
// service message when present, otherwise the raw error text.
func ClientMessage(err error) string {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) && svcErr.Message != "" {
		return svcErr.Message
	}

	return err.Error()
}
