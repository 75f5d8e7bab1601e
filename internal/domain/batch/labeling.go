package batch

import (
	"time"

	"github.com/taigaharvest/saphouse-go/internal/domain/shared"
)

// LabelingMaterials is the material set of a labeling batch. Stickers
// and cartons apply to both lines; shrink sleeves and neck tags only to
// bottled sap.
type LabelingMaterials struct {
	Stickers      *MaterialUsage
	Cartons       *MaterialUsage
	ShrinkSleeves *MaterialUsage
	NeckTags      *MaterialUsage
}

// Validate enforces the per-line material vocabulary
func (m *LabelingMaterials) Validate(line ProductLine) error {
	for _, check := range []struct {
		field string
		usage *MaterialUsage
	}{
		{"stickers", m.Stickers},
		{"cartons", m.Cartons},
		{"shrinkSleeves", m.ShrinkSleeves},
		{"neckTags", m.NeckTags},
	} {
		if err := check.usage.Validate(check.field); err != nil {
			return err
		}
	}
	switch line {
	case LineSap:
		// full set allowed
	case LineHerb:
		if m.ShrinkSleeves != nil || m.NeckTags != nil {
			return shared.NewValidationError("materials", "shrink-sleeve/neck-tag do not apply to the herb line")
		}
	default:
		return shared.NewValidationError("productLine", "unknown product line")
	}
	return nil
}

// LabelingBatch is derived 1:1 from exactly one completed packaging
// batch, with the same invariants and cascade rules as the packaging
// stage.
type LabelingBatch struct {
	ID               string
	Number           string
	Line             ProductLine
	SourceBatchID    string
	Status           Status
	Materials        LabelingMaterials
	FinishedQuantity *int
	CreatedBy        string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
