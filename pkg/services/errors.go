// Package services provides standardized error types for the orchestrator.
package services

import (
	"errors"
	"fmt"

	"github.com/vendoreval/procflow/pkg/persistence"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Validation Errors (400 Bad Request).
	ErrReasonRequired = errors.New("reason is required")
	ErrActorRequired  = errors.New("actor id is required")
	ErrInvalidRequest = errors.New("invalid request")

	// ErrInvalidTransition indicates the attempted transition is not legal
	// from the entity's committed state. Usually stale client state; the
	// caller should refresh and retry (409 Conflict).
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrStageNotActive indicates a milestone action was attempted while the
	// owning stage is not in progress.
	ErrStageNotActive = errors.New("stage is not active")
)

// Referential errors re-exported from the persistence layer (404 Not Found).
var (
	ErrTemplateNotFound  = persistence.ErrTemplateNotFound
	ErrWorkflowNotFound  = persistence.ErrWorkflowNotFound
	ErrStageNotFound     = persistence.ErrStageNotFound
	ErrMilestoneNotFound = persistence.ErrMilestoneNotFound
)

// ErrRepositoryUnavailable indicates a storage transport failure (503). The
// engine performs no side effects before the atomic write, so retrying the
// whole operation is safe.
var ErrRepositoryUnavailable = persistence.ErrUnavailable

// ServiceError wraps orchestrator errors with operation context.
type ServiceError struct {
	Op      string // Operation name
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

// IsValidationError checks if an error should map to HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrReasonRequired) ||
		errors.Is(err, ErrActorRequired) ||
		errors.Is(err, ErrInvalidRequest)
}

// IsInvalidTransition checks if an error indicates an illegal state transition.
func IsInvalidTransition(err error) bool {
	return errors.Is(err, ErrInvalidTransition)
}

// IsStageNotActive checks if an error indicates the milestone's owning stage
// is not in progress.
func IsStageNotActive(err error) bool {
	return errors.Is(err, ErrStageNotActive)
}

// IsNotFound checks if an error indicates a missing referenced entity.
func IsNotFound(err error) bool {
	return persistence.IsNotFound(err)
}

// IsUnavailable checks if an error indicates a storage transport failure.
func IsUnavailable(err error) bool {
	return persistence.IsUnavailable(err)
}
