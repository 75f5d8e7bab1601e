package batch

import (
	"time"

	domain "github.com/taigaharvest/saphouse-go/internal/domain/batch"
)

// Commands

// CreateProcessingBatchCommand opens a new, empty processing batch
type CreateProcessingBatchCommand struct {
	ProductLine   string `validate:"required,oneof=sap herb"`
	ScheduledDate *time.Time
	Actor         string
}

// MeasurementsPatch carries the measurement fields present in a PATCH
// request; nil fields are left unchanged.
type MeasurementsPatch struct {
	CollectedLiters *float64
	FilteredLiters  *float64
	Brix            *float64
	WetKilograms    *float64
	DryKilograms    *float64
}

// UpdateProcessingBatchCommand updates schedule and measurements
type UpdateProcessingBatchCommand struct {
	BatchID       string `validate:"required"`
	ScheduledDate *time.Time
	Measurements  *MeasurementsPatch
	Actor         string
}

// SetUnitsCommand replaces a processing batch's claimed unit set
type SetUnitsCommand struct {
	BatchID string   `validate:"required"`
	UnitIDs []string `validate:"max=15"`
	Actor   string
}

// MaterialUsageInput is one material figure in a derive/update request
type MaterialUsageInput struct {
	Quantity int     `validate:"min=0"`
	UnitCost float64 `validate:"min=0"`
}

// DerivePackagingCommand derives a packaging batch from a completed
// processing batch
type DerivePackagingCommand struct {
	SourceBatchID string `validate:"required"`
	Bottles       *MaterialUsageInput
	Lids          *MaterialUsageInput
	Alufoil       *MaterialUsageInput
	VacuumBags    *MaterialUsageInput
	Parchment     *MaterialUsageInput
	Actor         string
}

// UpdatePackagingBatchCommand updates materials and finished quantity
type UpdatePackagingBatchCommand struct {
	BatchID          string `validate:"required"`
	Bottles          *MaterialUsageInput
	Lids             *MaterialUsageInput
	Alufoil          *MaterialUsageInput
	VacuumBags       *MaterialUsageInput
	Parchment        *MaterialUsageInput
	FinishedQuantity *int `validate:"omitempty,min=0"`
	Actor            string
}

// DeriveLabelingCommand derives a labeling batch from a completed
// packaging batch
type DeriveLabelingCommand struct {
	SourceBatchID string `validate:"required"`
	Stickers      *MaterialUsageInput
	Cartons       *MaterialUsageInput
	ShrinkSleeves *MaterialUsageInput
	NeckTags      *MaterialUsageInput
	Actor         string
}

// UpdateLabelingBatchCommand updates materials and finished quantity
type UpdateLabelingBatchCommand struct {
	BatchID          string `validate:"required"`
	Stickers         *MaterialUsageInput
	Cartons          *MaterialUsageInput
	ShrinkSleeves    *MaterialUsageInput
	NeckTags         *MaterialUsageInput
	FinishedQuantity *int `validate:"omitempty,min=0"`
	Actor            string
}

// RecordDraftCommand records one field-collection day of raw units
type RecordDraftCommand struct {
	ProductLine string `validate:"required,oneof=sap herb"`
	CollectedOn time.Time
	Units       []DraftUnitInput `validate:"required,min=1,dive"`
	Actor       string
}

// DraftUnitInput is one collected container in a draft
type DraftUnitInput struct {
	ContainerType string  `validate:"required,oneof=bucket can"`
	Quantity      float64 `validate:"required,gt=0"`
	Quality       *float64
}

// Views

// UnitView is the read model of a raw unit
type UnitView struct {
	ID              string   `json:"id"`
	ProductLine     string   `json:"productLine"`
	ContainerType   string   `json:"containerType"`
	Quantity        float64  `json:"quantity"`
	Quality         *float64 `json:"quality,omitempty"`
	CollectedOn     string   `json:"collectedOn"`
	DraftID         *string  `json:"draftId,omitempty"`
	AssignedBatchID *string  `json:"assignedBatchId,omitempty"`
}

// MeasurementsView is the read model of processing measurements
type MeasurementsView struct {
	CollectedLiters *float64 `json:"collectedLiters,omitempty"`
	FilteredLiters  *float64 `json:"filteredLiters,omitempty"`
	Brix            *float64 `json:"brix,omitempty"`
	WetKilograms    *float64 `json:"wetKilograms,omitempty"`
	DryKilograms    *float64 `json:"dryKilograms,omitempty"`
}

// ProcessingBatchView is the read model of a processing batch
type ProcessingBatchView struct {
	ID            string           `json:"id"`
	Number        string           `json:"number"`
	ProductLine   string           `json:"productLine"`
	ScheduledDate *string          `json:"scheduledDate,omitempty"`
	Status        string           `json:"status"`
	Measurements  MeasurementsView `json:"measurements"`
	UnitCount     int              `json:"unitCount"`
	TotalQuantity float64          `json:"totalQuantity"`
	Units         []UnitView       `json:"units"`
	CreatedBy     string           `json:"createdBy,omitempty"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// MaterialUsageView is the read model of one material figure
type MaterialUsageView struct {
	Quantity int     `json:"quantity"`
	UnitCost float64 `json:"unitCost"`
}

// DerivedBatchView is the read model shared by packaging and labeling
// batches.
type DerivedBatchView struct {
	ID               string                        `json:"id"`
	Number           string                        `json:"number"`
	ProductLine      string                        `json:"productLine"`
	SourceBatchID    string                        `json:"sourceBatchId"`
	Status           string                        `json:"status"`
	Materials        map[string]MaterialUsageView  `json:"materials"`
	FinishedQuantity *int                          `json:"finishedQuantity,omitempty"`
	CreatedBy        string                        `json:"createdBy,omitempty"`
	CreatedAt        time.Time                     `json:"createdAt"`
	UpdatedAt        time.Time                     `json:"updatedAt"`
}

// ReopenResult reports a reopen together with the cascaded deletions
type ReopenResult struct {
	DeletedDownstreamIDs []string
}

// DraftView is the read model of a field-collection draft
type DraftView struct {
	ID          string     `json:"id"`
	ProductLine string     `json:"productLine"`
	CollectedOn string     `json:"collectedOn"`
	CreatedBy   string     `json:"createdBy,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	Units       []UnitView `json:"units,omitempty"`
}

// EventView is the read model of one audit record
type EventView struct {
	ID        int64     `json:"id"`
	BatchID   string    `json:"batchId"`
	Stage     string    `json:"stage"`
	Action    string    `json:"action"`
	Actor     string    `json:"actor,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// View mapping

const dateLayout = "2006-01-02"

func unitToView(u *domain.RawUnit) UnitView {
	return UnitView{
		ID:              u.ID,
		ProductLine:     string(u.Line),
		ContainerType:   string(u.ContainerType),
		Quantity:        u.Quantity,
		Quality:         u.Quality,
		CollectedOn:     u.CollectedOn.Format(dateLayout),
		DraftID:         u.DraftID,
		AssignedBatchID: u.AssignedBatchID,
	}
}

func unitsToViews(units []domain.RawUnit) []UnitView {
	views := make([]UnitView, 0, len(units))
	for i := range units {
		views = append(views, unitToView(&units[i]))
	}
	return views
}

// ProcessingToView maps a processing batch to its read model
func ProcessingToView(b *domain.ProcessingBatch) ProcessingBatchView {
	view := ProcessingBatchView{
		ID:          b.ID,
		Number:      b.Number,
		ProductLine: string(b.Line),
		Status:      string(b.Status),
		Measurements: MeasurementsView{
			CollectedLiters: b.Measurements.CollectedLiters,
			FilteredLiters:  b.Measurements.FilteredLiters,
			Brix:            b.Measurements.Brix,
			WetKilograms:    b.Measurements.WetKilograms,
			DryKilograms:    b.Measurements.DryKilograms,
		},
		UnitCount:     b.UnitCount(),
		TotalQuantity: b.TotalQuantity(),
		Units:         unitsToViews(b.Units),
		CreatedBy:     b.CreatedBy,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
	if b.ScheduledDate != nil {
		date := b.ScheduledDate.Format(dateLayout)
		view.ScheduledDate = &date
	}
	return view
}

// PackagingToView maps a packaging batch to its read model
func PackagingToView(b *domain.PackagingBatch) DerivedBatchView {
	materials := map[string]MaterialUsageView{}
	addMaterial(materials, "bottles", b.Materials.Bottles)
	addMaterial(materials, "lids", b.Materials.Lids)
	addMaterial(materials, "alufoil", b.Materials.Alufoil)
	addMaterial(materials, "vacuumBags", b.Materials.VacuumBags)
	addMaterial(materials, "parchment", b.Materials.Parchment)
	return DerivedBatchView{
		ID:               b.ID,
		Number:           b.Number,
		ProductLine:      string(b.Line),
		SourceBatchID:    b.SourceBatchID,
		Status:           string(b.Status),
		Materials:        materials,
		FinishedQuantity: b.FinishedQuantity,
		CreatedBy:        b.CreatedBy,
		CreatedAt:        b.CreatedAt,
		UpdatedAt:        b.UpdatedAt,
	}
}

// LabelingToView maps a labeling batch to its read model
func LabelingToView(b *domain.LabelingBatch) DerivedBatchView {
	materials := map[string]MaterialUsageView{}
	addMaterial(materials, "stickers", b.Materials.Stickers)
	addMaterial(materials, "cartons", b.Materials.Cartons)
	addMaterial(materials, "shrinkSleeves", b.Materials.ShrinkSleeves)
	addMaterial(materials, "neckTags", b.Materials.NeckTags)
	return DerivedBatchView{
		ID:               b.ID,
		Number:           b.Number,
		ProductLine:      string(b.Line),
		SourceBatchID:    b.SourceBatchID,
		Status:           string(b.Status),
		Materials:        materials,
		FinishedQuantity: b.FinishedQuantity,
		CreatedBy:        b.CreatedBy,
		CreatedAt:        b.CreatedAt,
		UpdatedAt:        b.UpdatedAt,
	}
}

func addMaterial(materials map[string]MaterialUsageView, name string, usage *domain.MaterialUsage) {
	if usage == nil {
		return
	}
	materials[name] = MaterialUsageView{Quantity: usage.Quantity, UnitCost: usage.UnitCost}
}

func usageFromInput(input *MaterialUsageInput) *domain.MaterialUsage {
	if input == nil {
		return nil
	}
	return &domain.MaterialUsage{Quantity: input.Quantity, UnitCost: input.UnitCost}
}
