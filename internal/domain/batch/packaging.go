package batch

import (
	"time"

	"github.com/taigaharvest/saphouse-go/internal/domain/shared"
)

// MaterialUsage records how much of one packaging/labeling material a
// batch consumed and at what unit cost.
type MaterialUsage struct {
	Quantity int
	UnitCost float64
}

// Validate rejects negative figures
func (m *MaterialUsage) Validate(field string) error {
	if m == nil {
		return nil
	}
	if m.Quantity < 0 {
		return shared.NewValidationError(field+".quantity", "must not be negative")
	}
	if m.UnitCost < 0 {
		return shared.NewValidationError(field+".unitCost", "must not be negative")
	}
	return nil
}

// PackagingMaterials is the line-specific material set of a packaging
// batch: bottles and lids for sap, alufoil, vacuum bags and parchment
// for herb. Fields for the other line must stay nil.
type PackagingMaterials struct {
	Bottles    *MaterialUsage
	Lids       *MaterialUsage
	Alufoil    *MaterialUsage
	VacuumBags *MaterialUsage
	Parchment  *MaterialUsage
}

// Validate enforces the per-line material vocabulary
func (m *PackagingMaterials) Validate(line ProductLine) error {
	for _, check := range []struct {
		field string
		usage *MaterialUsage
	}{
		{"bottles", m.Bottles},
		{"lids", m.Lids},
		{"alufoil", m.Alufoil},
		{"vacuumBags", m.VacuumBags},
		{"parchment", m.Parchment},
	} {
		if err := check.usage.Validate(check.field); err != nil {
			return err
		}
	}
	switch line {
	case LineSap:
		if m.Alufoil != nil || m.VacuumBags != nil || m.Parchment != nil {
			return shared.NewValidationError("materials", "alufoil/vacuum-bag/parchment do not apply to the sap line")
		}
	case LineHerb:
		if m.Bottles != nil || m.Lids != nil {
			return shared.NewValidationError("materials", "bottle/lid do not apply to the herb line")
		}
	default:
		return shared.NewValidationError("productLine", "unknown product line")
	}
	return nil
}

// PackagingBatch is derived 1:1 from exactly one completed processing
// batch. At most one packaging batch references a given processing batch
// at a time; the reference is guarded by a uniqueness constraint in
// storage on top of the application-level check.
type PackagingBatch struct {
	ID            string
	Number        string
	Line          ProductLine
	SourceBatchID string
	Status        Status
	Materials     PackagingMaterials
	// FinishedQuantity is the count of packaged sellable units, nil
	// until recorded
	FinishedQuantity *int
	CreatedBy        string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
