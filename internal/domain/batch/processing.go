package batch

import (
	"time"

	"github.com/taigaharvest/saphouse-go/internal/domain/shared"
)

// MaxUnitsPerBatch caps how many raw units a processing batch may claim.
// The cap is validated before any transaction opens.
const MaxUnitsPerBatch = 15

// Measurements holds the aggregate production figures recorded while a
// processing batch runs. All fields are nil until recorded. Which fields
// apply depends on the product line: sap uses the liter/brix figures,
// herb the kilogram figures.
type Measurements struct {
	CollectedLiters *float64
	FilteredLiters  *float64
	Brix            *float64
	WetKilograms    *float64
	DryKilograms    *float64
}

// Validate rejects figures recorded against the wrong line and
// out-of-range readings.
func (m *Measurements) Validate(line ProductLine) error {
	switch line {
	case LineSap:
		if m.WetKilograms != nil || m.DryKilograms != nil {
			return shared.NewValidationError("measurements", "kilogram figures do not apply to the sap line")
		}
		if m.Brix != nil && (*m.Brix < 0 || *m.Brix > 100) {
			return shared.NewValidationError("brix", "must be between 0 and 100")
		}
		if m.CollectedLiters != nil && *m.CollectedLiters < 0 {
			return shared.NewValidationError("collectedLiters", "must not be negative")
		}
		if m.FilteredLiters != nil && *m.FilteredLiters < 0 {
			return shared.NewValidationError("filteredLiters", "must not be negative")
		}
	case LineHerb:
		if m.CollectedLiters != nil || m.FilteredLiters != nil || m.Brix != nil {
			return shared.NewValidationError("measurements", "liter/brix figures do not apply to the herb line")
		}
		if m.WetKilograms != nil && *m.WetKilograms < 0 {
			return shared.NewValidationError("wetKilograms", "must not be negative")
		}
		if m.DryKilograms != nil && *m.DryKilograms < 0 {
			return shared.NewValidationError("dryKilograms", "must not be negative")
		}
	default:
		return shared.NewValidationError("productLine", "unknown product line")
	}
	return nil
}

// Empty reports whether no figure has been recorded yet
func (m *Measurements) Empty() bool {
	return m.CollectedLiters == nil && m.FilteredLiters == nil && m.Brix == nil &&
		m.WetKilograms == nil && m.DryKilograms == nil
}

// ProcessingBatch groups raw units of one product line for a production
// run. It exclusively owns the assignment references of its units, not
// the units themselves.
type ProcessingBatch struct {
	ID            string
	Number        string
	Line          ProductLine
	ScheduledDate *time.Time
	Status        Status
	Measurements  Measurements
	CreatedBy     string
	CreatedAt     time.Time
	UpdatedAt     time.Time

	// Units is the currently claimed set, loaded with the batch
	Units []RawUnit
}

// UnitCount returns how many raw units the batch currently claims
func (b *ProcessingBatch) UnitCount() int {
	return len(b.Units)
}

// TotalQuantity sums the claimed units' quantities
func (b *ProcessingBatch) TotalQuantity() float64 {
	var total float64
	for i := range b.Units {
		total += b.Units[i].Quantity
	}
	return total
}

// ValidateUnitSet applies the pre-transaction checks on a desired unit
// set: the cap and duplicate ids.
func ValidateUnitSet(unitIDs []string) error {
	if len(unitIDs) > MaxUnitsPerBatch {
		return shared.NewValidationError("unitIds", "a batch may claim at most 15 units")
	}
	seen := make(map[string]struct{}, len(unitIDs))
	for _, id := range unitIDs {
		if id == "" {
			return shared.NewValidationError("unitIds", "unit id must not be empty")
		}
		if _, dup := seen[id]; dup {
			return shared.NewValidationError("unitIds", "duplicate unit id: "+id)
		}
		seen[id] = struct{}{}
	}
	return nil
}
