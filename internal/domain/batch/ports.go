package batch

import (
	"context"
	"time"
)

// UnitFilter narrows ledger reads
type UnitFilter struct {
	CollectedFrom *time.Time
	CollectedTo   *time.Time
}

// UnitLedger owns the raw units and their assignment state. Claiming is
// all-or-nothing with conflict detection; exclusivity across batches is
// enforced here and nowhere else.
type UnitLedger interface {
	// ListFree returns units with no assignment reference for the line
	ListFree(ctx context.Context, line ProductLine, filter UnitFilter) ([]RawUnit, error)

	// FindByID returns a single unit regardless of assignment state
	FindByID(ctx context.Context, unitID string) (*RawUnit, error)

	// ReplaceAssignments sets the batch's claimed set to exactly
	// desiredUnitIDs in one transaction: clear, resolve (NotFoundError
	// with the unresolved ids), conflict-check (ConflictError with the
	// offending ids), insert. Returns the resulting unit set.
	ReplaceAssignments(ctx context.Context, batchID string, line ProductLine, desiredUnitIDs []string) ([]RawUnit, error)

	// Release clears every assignment held by the batch
	Release(ctx context.Context, batchID string) error

	// CreateUnits inserts new ledger entries recorded at field collection
	CreateUnits(ctx context.Context, units []RawUnit) error

	// DeleteUnit removes a free unit; deleting a claimed unit is a
	// ConflictError
	DeleteUnit(ctx context.Context, unitID string) error
}

// ProcessingRepository persists processing batches. Status transitions
// run under a row lock on the batch row; Create reserves the dense
// sequence number inside the insert transaction.
type ProcessingRepository interface {
	Create(ctx context.Context, b *ProcessingBatch) error
	FindByID(ctx context.Context, id string) (*ProcessingBatch, error)
	List(ctx context.Context, line *ProductLine) ([]ProcessingBatch, error)
	Update(ctx context.Context, b *ProcessingBatch) error

	// Submit transitions in_progress→completed; the bool reports whether
	// the status changed (false for the idempotent re-submit)
	Submit(ctx context.Context, id string, now time.Time) (*ProcessingBatch, bool, error)

	// Reopen transitions completed→in_progress and cascades deletion of
	// the derived packaging batch (and its labeling batch). Returns the
	// ids of the deleted downstream batches, deepest first. Assigned
	// units stay claimed.
	Reopen(ctx context.Context, id string, now time.Time) (*ProcessingBatch, []string, error)

	Cancel(ctx context.Context, id string, now time.Time) (*ProcessingBatch, error)

	// Delete removes the batch, releases its units and cascades the
	// downstream chain in one transaction
	Delete(ctx context.Context, id string) error
}

// PackagingRepository persists packaging batches derived from completed
// processing batches.
type PackagingRepository interface {
	// Create derives a packaging batch from its source inside one
	// transaction: the source must be completed (InvalidTransitionError)
	// and underived (ConflictError, backed by a unique constraint)
	Create(ctx context.Context, b *PackagingBatch) error
	FindByID(ctx context.Context, id string) (*PackagingBatch, error)
	FindBySource(ctx context.Context, sourceBatchID string) (*PackagingBatch, error)
	List(ctx context.Context, line *ProductLine) ([]PackagingBatch, error)
	Update(ctx context.Context, b *PackagingBatch) error
	Submit(ctx context.Context, id string, now time.Time) (*PackagingBatch, bool, error)
	Reopen(ctx context.Context, id string, now time.Time) (*PackagingBatch, []string, error)
	Cancel(ctx context.Context, id string, now time.Time) (*PackagingBatch, error)
	Delete(ctx context.Context, id string) error

	// ListEligibleSources returns completed processing batches with no
	// packaging batch yet
	ListEligibleSources(ctx context.Context, line *ProductLine) ([]ProcessingBatch, error)
}

// LabelingRepository persists labeling batches derived from completed
// packaging batches.
type LabelingRepository interface {
	Create(ctx context.Context, b *LabelingBatch) error
	FindByID(ctx context.Context, id string) (*LabelingBatch, error)
	FindBySource(ctx context.Context, sourceBatchID string) (*LabelingBatch, error)
	List(ctx context.Context, line *ProductLine) ([]LabelingBatch, error)
	Update(ctx context.Context, b *LabelingBatch) error
	Submit(ctx context.Context, id string, now time.Time) (*LabelingBatch, bool, error)
	Reopen(ctx context.Context, id string, now time.Time) (*LabelingBatch, []string, error)
	Cancel(ctx context.Context, id string, now time.Time) (*LabelingBatch, error)
	Delete(ctx context.Context, id string) error

	ListEligibleSources(ctx context.Context, line *ProductLine) ([]PackagingBatch, error)
}

// DraftRepository persists field-collection drafts
type DraftRepository interface {
	Create(ctx context.Context, d *Draft) error
	FindByID(ctx context.Context, id string) (*Draft, error)
	List(ctx context.Context, line *ProductLine) ([]Draft, error)
}

// EventLog is the append-only audit trail of engine operations
type EventLog interface {
	Append(ctx context.Context, e *Event) error
	ListForBatch(ctx context.Context, batchID string) ([]Event, error)
}
