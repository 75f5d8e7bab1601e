package batch

import (
	"time"

	"github.com/taigaharvest/saphouse-go/internal/domain/shared"
)

// ContainerType is the physical container a raw unit was collected in
type ContainerType string

const (
	ContainerBucket ContainerType = "bucket"
	ContainerCan    ContainerType = "can"
)

// ParseContainerType validates a request-supplied container type
func ParseContainerType(value string) (ContainerType, error) {
	switch ContainerType(value) {
	case ContainerBucket:
		return ContainerBucket, nil
	case ContainerCan:
		return ContainerCan, nil
	default:
		return "", shared.NewValidationError("containerType", "must be one of: bucket, can")
	}
}

// RawUnit is a single field-collected container of material. The unit
// itself is owned by the ledger for its whole life; only the assignment
// reference moves between batches.
//
// Invariant: AssignedBatchID points to at most one processing batch at
// any instant. Reassignment clears the old reference first, inside the
// same transaction.
type RawUnit struct {
	ID            string
	Line          ProductLine
	ContainerType ContainerType
	Quantity      float64
	// Quality holds the line-specific reading: brix for sap, residual
	// moisture percent for herb. Nil until measured.
	Quality         *float64
	CollectedOn     time.Time
	DraftID         *string
	AssignedBatchID *string
	CreatedAt       time.Time
}

// Free reports whether the unit is claimable (no assignment reference)
func (u *RawUnit) Free() bool {
	return u.AssignedBatchID == nil
}

// ClaimedBy reports whether the unit is currently held by the given batch
func (u *RawUnit) ClaimedBy(batchID string) bool {
	return u.AssignedBatchID != nil && *u.AssignedBatchID == batchID
}

// ValidateNewRawUnit checks the fields recorded at field collection
func ValidateNewRawUnit(line ProductLine, containerType ContainerType, quantity float64) error {
	if !line.Valid() {
		return shared.NewValidationError("productLine", "unknown product line")
	}
	if quantity <= 0 {
		return shared.NewValidationError("quantity", "must be positive")
	}
	if containerType != ContainerBucket && containerType != ContainerCan {
		return shared.NewValidationError("containerType", "unknown container type")
	}
	return nil
}
