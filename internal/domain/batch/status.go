package batch

import "github.com/taigaharvest/saphouse-go/internal/domain/shared"

// Status is the closed set of lifecycle states a batch moves through.
//
// Valid paths:
//
//	in_progress → completed   (submit)
//	completed   → in_progress (reopen, cascades downstream deletion)
//	in_progress → cancelled   (terminal)
//
// All transitions go through the functions below so an illegal move is a
// typed InvalidTransitionError, never an ad hoc string comparison.
type Status string

const (
	// StatusInProgress is the initial, editable state
	StatusInProgress Status = "in_progress"

	// StatusCompleted marks a submitted batch; downstream batches may derive from it
	StatusCompleted Status = "completed"

	// StatusCancelled is terminal; no further transitions are allowed
	StatusCancelled Status = "cancelled"
)

// ParseStatus validates a stored or request-supplied status value
func ParseStatus(value string) (Status, error) {
	switch Status(value) {
	case StatusInProgress:
		return StatusInProgress, nil
	case StatusCompleted:
		return StatusCompleted, nil
	case StatusCancelled:
		return StatusCancelled, nil
	default:
		return "", shared.NewValidationError("status", "must be one of: in_progress, completed, cancelled")
	}
}

// Submit returns the status after a submit request. Submitting an
// already-completed batch is a no-op success; the second return value
// reports whether the status actually changed.
func (s Status) Submit() (Status, bool, error) {
	switch s {
	case StatusInProgress:
		return StatusCompleted, true, nil
	case StatusCompleted:
		return StatusCompleted, false, nil
	case StatusCancelled:
		return s, false, shared.NewInvalidTransitionError("submit", string(s))
	default:
		return s, false, shared.NewInvalidTransitionError("submit", string(s))
	}
}

// Reopen returns the status after a reopen request. Only completed
// batches may be reopened; the caller is responsible for cascading the
// deletion of the derived downstream batch.
func (s Status) Reopen() (Status, error) {
	switch s {
	case StatusCompleted:
		return StatusInProgress, nil
	case StatusInProgress, StatusCancelled:
		return s, shared.NewInvalidTransitionError("reopen", string(s))
	default:
		return s, shared.NewInvalidTransitionError("reopen", string(s))
	}
}

// Cancel returns the status after a cancel request. Only editable
// batches may be cancelled; cancellation is terminal.
func (s Status) Cancel() (Status, error) {
	switch s {
	case StatusInProgress:
		return StatusCancelled, nil
	case StatusCompleted, StatusCancelled:
		return s, shared.NewInvalidTransitionError("cancel", string(s))
	default:
		return s, shared.NewInvalidTransitionError("cancel", string(s))
	}
}

// Editable reports whether the unit set and measurements may still change
func (s Status) Editable() bool {
	return s == StatusInProgress
}
