package shared

import (
	"fmt"
	"strings"
)

// DomainError is the base error type for all domain errors
type DomainError struct {
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func NewDomainError(message string) *DomainError {
	return &DomainError{Message: message}
}

// ValidationError reports malformed or out-of-range input. It is raised
// before any transaction opens.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// NotFoundError reports that a batch or a referenced unit does not exist.
// UnitIDs is populated when specific ledger entries could not be resolved.
type NotFoundError struct {
	*DomainError
	Resource string
	UnitIDs  []string
}

func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{
		DomainError: &DomainError{Message: fmt.Sprintf("%s not found: %s", resource, id)},
		Resource:    resource,
	}
}

func NewUnitsNotFoundError(unitIDs []string) *NotFoundError {
	return &NotFoundError{
		DomainError: &DomainError{Message: fmt.Sprintf("raw units not found: %s", strings.Join(unitIDs, ", "))},
		Resource:    "raw unit",
		UnitIDs:     unitIDs,
	}
}

// ConflictError reports a unit already claimed by another batch, or a
// duplicate derivation/sequence number. UnitIDs lists the offending units
// so the caller can act on them.
type ConflictError struct {
	*DomainError
	UnitIDs []string
}

func NewConflictError(message string) *ConflictError {
	return &ConflictError{DomainError: &DomainError{Message: message}}
}

func NewUnitsClaimedError(unitIDs []string) *ConflictError {
	return &ConflictError{
		DomainError: &DomainError{Message: fmt.Sprintf("raw units already claimed by another batch: %s", strings.Join(unitIDs, ", "))},
		UnitIDs:     unitIDs,
	}
}

// InvalidTransitionError reports a status transition the state machine
// forbids (submit on cancelled, reopen on non-completed, derive from a
// non-completed source).
type InvalidTransitionError struct {
	*DomainError
	From   string
	Action string
}

func NewInvalidTransitionError(action, from string) *InvalidTransitionError {
	return &InvalidTransitionError{
		DomainError: &DomainError{Message: fmt.Sprintf("cannot %s batch in status %q", action, from)},
		From:        from,
		Action:      action,
	}
}
