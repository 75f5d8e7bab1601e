package persistence

import (
	"time"
)

// RawUnitModel represents the raw_units table. One table for both
// product lines with a product_line discriminator column; the table is
// never resolved from request input.
type RawUnitModel struct {
	ID              string     `gorm:"column:id;primaryKey"`
	ProductLine     string     `gorm:"column:product_line;not null;index"`
	ContainerType   string     `gorm:"column:container_type;not null"`
	Quantity        float64    `gorm:"column:quantity;not null"`
	Quality         *float64   `gorm:"column:quality"`
	CollectedOn     time.Time  `gorm:"column:collected_on;not null"`
	DraftID         *string    `gorm:"column:draft_id;index"`
	AssignedBatchID *string    `gorm:"column:assigned_batch_id;index"`
	CreatedAt       time.Time  `gorm:"column:created_at;not null"`
}

func (RawUnitModel) TableName() string {
	return "raw_units"
}

// ProcessingBatchModel represents the processing_batches table.
// The sequence number is dense per product line; the composite unique
// index backs the in-transaction numbering.
type ProcessingBatchModel struct {
	ID            string     `gorm:"column:id;primaryKey"`
	Number        string     `gorm:"column:number;not null;uniqueIndex:ux_processing_line_number"`
	ProductLine   string     `gorm:"column:product_line;not null;uniqueIndex:ux_processing_line_number;index"`
	ScheduledDate *time.Time `gorm:"column:scheduled_date"`
	Status        string     `gorm:"column:status;not null;default:'in_progress'"`

	CollectedLiters *float64 `gorm:"column:collected_liters"`
	FilteredLiters  *float64 `gorm:"column:filtered_liters"`
	Brix            *float64 `gorm:"column:brix"`
	WetKilograms    *float64 `gorm:"column:wet_kilograms"`
	DryKilograms    *float64 `gorm:"column:dry_kilograms"`

	CreatedBy string    `gorm:"column:created_by"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

func (ProcessingBatchModel) TableName() string {
	return "processing_batches"
}

// PackagingBatchModel represents the packaging_batches table. The unique
// index on source_batch_id enforces the 1:1 derivation in storage on top
// of the application-level check.
type PackagingBatchModel struct {
	ID            string `gorm:"column:id;primaryKey"`
	Number        string `gorm:"column:number;not null;uniqueIndex:ux_packaging_line_number"`
	ProductLine   string `gorm:"column:product_line;not null;uniqueIndex:ux_packaging_line_number;index"`
	SourceBatchID string `gorm:"column:source_batch_id;not null;uniqueIndex"`
	Status        string `gorm:"column:status;not null;default:'in_progress'"`

	BottlesQty        *int     `gorm:"column:bottles_qty"`
	BottlesUnitCost   *float64 `gorm:"column:bottles_unit_cost"`
	LidsQty           *int     `gorm:"column:lids_qty"`
	LidsUnitCost      *float64 `gorm:"column:lids_unit_cost"`
	AlufoilQty        *int     `gorm:"column:alufoil_qty"`
	AlufoilUnitCost   *float64 `gorm:"column:alufoil_unit_cost"`
	VacuumBagsQty     *int     `gorm:"column:vacuum_bags_qty"`
	VacuumBagsUnitCost *float64 `gorm:"column:vacuum_bags_unit_cost"`
	ParchmentQty      *int     `gorm:"column:parchment_qty"`
	ParchmentUnitCost *float64 `gorm:"column:parchment_unit_cost"`

	FinishedQuantity *int `gorm:"column:finished_quantity"`

	CreatedBy string    `gorm:"column:created_by"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

func (PackagingBatchModel) TableName() string {
	return "packaging_batches"
}

// LabelingBatchModel represents the labeling_batches table
type LabelingBatchModel struct {
	ID            string `gorm:"column:id;primaryKey"`
	Number        string `gorm:"column:number;not null;uniqueIndex:ux_labeling_line_number"`
	ProductLine   string `gorm:"column:product_line;not null;uniqueIndex:ux_labeling_line_number;index"`
	SourceBatchID string `gorm:"column:source_batch_id;not null;uniqueIndex"`
	Status        string `gorm:"column:status;not null;default:'in_progress'"`

	StickersQty          *int     `gorm:"column:stickers_qty"`
	StickersUnitCost     *float64 `gorm:"column:stickers_unit_cost"`
	CartonsQty           *int     `gorm:"column:cartons_qty"`
	CartonsUnitCost      *float64 `gorm:"column:cartons_unit_cost"`
	ShrinkSleevesQty     *int     `gorm:"column:shrink_sleeves_qty"`
	ShrinkSleevesUnitCost *float64 `gorm:"column:shrink_sleeves_unit_cost"`
	NeckTagsQty          *int     `gorm:"column:neck_tags_qty"`
	NeckTagsUnitCost     *float64 `gorm:"column:neck_tags_unit_cost"`

	FinishedQuantity *int `gorm:"column:finished_quantity"`

	CreatedBy string    `gorm:"column:created_by"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

func (LabelingBatchModel) TableName() string {
	return "labeling_batches"
}

// DraftModel represents the drafts table (field collection days)
type DraftModel struct {
	ID          string    `gorm:"column:id;primaryKey"`
	ProductLine string    `gorm:"column:product_line;not null;index"`
	CollectedOn time.Time `gorm:"column:collected_on;not null"`
	CreatedBy   string    `gorm:"column:created_by"`
	CreatedAt   time.Time `gorm:"column:created_at;not null"`
}

func (DraftModel) TableName() string {
	return "drafts"
}

// BatchEventModel represents the batch_events table, the append-only
// audit trail of engine operations.
type BatchEventModel struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	BatchID   string    `gorm:"column:batch_id;not null;index"`
	Stage     string    `gorm:"column:stage;not null"`
	Action    string    `gorm:"column:action;not null"`
	Actor     string    `gorm:"column:actor"`
	Detail    string    `gorm:"column:detail;type:text"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
}

func (BatchEventModel) TableName() string {
	return "batch_events"
}

// AllModels lists every model for auto-migration
func AllModels() []interface{} {
	return []interface{}{
		&RawUnitModel{},
		&ProcessingBatchModel{},
		&PackagingBatchModel{},
		&LabelingBatchModel{},
		&DraftModel{},
		&BatchEventModel{},
	}
}
