package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/taigaharvest/saphouse-go/internal/domain/batch"
	"github.com/taigaharvest/saphouse-go/internal/domain/shared"
)

// GormPackagingRepository implements batch.PackagingRepository using GORM
type GormPackagingRepository struct {
	db *gorm.DB
}

// NewGormPackagingRepository creates a new GORM packaging batch repository
func NewGormPackagingRepository(db *gorm.DB) *GormPackagingRepository {
	return &GormPackagingRepository{db: db}
}

// Create derives a packaging batch from its processing source. The
// source row is locked, required to be completed and not yet derived
// from; the sequence number is reserved in the same transaction. The
// unique index on source_batch_id backs the underived check.
func (r *GormPackagingRepository) Create(ctx context.Context, b *batch.PackagingBatch) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		source, err := findProcessingLocked(tx, b.SourceBatchID)
		if err != nil {
			return err
		}
		if source.Status != string(batch.StatusCompleted) {
			return shared.NewInvalidTransitionError("derive from", source.Status)
		}

		var count int64
		if err := tx.Model(&PackagingBatchModel{}).
			Where("source_batch_id = ?", b.SourceBatchID).
			Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check existing derivation: %w", err)
		}
		if count > 0 {
			return shared.NewConflictError(
				fmt.Sprintf("processing batch %s already has a packaging batch", b.SourceBatchID))
		}

		b.Line = batch.ProductLine(source.ProductLine)
		number, err := nextNumber(tx, batch.StagePackaging, b.Line)
		if err != nil {
			return err
		}
		b.Number = number

		model := packagingToModel(b)
		if err := tx.Create(&model).Error; err != nil {
			return fmt.Errorf("failed to create packaging batch: %w", err)
		}
		return nil
	})
}

// FindByID retrieves a packaging batch
func (r *GormPackagingRepository) FindByID(ctx context.Context, id string) (*batch.PackagingBatch, error) {
	var model PackagingBatchModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("packaging batch", id)
		}
		return nil, fmt.Errorf("failed to find packaging batch: %w", err)
	}
	return packagingToEntity(&model)
}

// FindBySource retrieves the packaging batch derived from a processing batch
func (r *GormPackagingRepository) FindBySource(ctx context.Context, sourceBatchID string) (*batch.PackagingBatch, error) {
	var model PackagingBatchModel
	if err := r.db.WithContext(ctx).Where("source_batch_id = ?", sourceBatchID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("packaging batch for source", sourceBatchID)
		}
		return nil, fmt.Errorf("failed to find packaging batch: %w", err)
	}
	return packagingToEntity(&model)
}

// List retrieves packaging batches ordered by line and number
func (r *GormPackagingRepository) List(ctx context.Context, line *batch.ProductLine) ([]batch.PackagingBatch, error) {
	q := r.db.WithContext(ctx).Model(&PackagingBatchModel{})
	if line != nil {
		q = q.Where("product_line = ?", string(*line))
	}
	var models []PackagingBatchModel
	if err := q.Order("product_line, number").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list packaging batches: %w", err)
	}
	batches := make([]batch.PackagingBatch, 0, len(models))
	for i := range models {
		entity, err := packagingToEntity(&models[i])
		if err != nil {
			return nil, err
		}
		batches = append(batches, *entity)
	}
	return batches, nil
}

// Update persists material and finished-quantity changes
func (r *GormPackagingRepository) Update(ctx context.Context, b *batch.PackagingBatch) error {
	model := packagingToModel(b)
	result := r.db.WithContext(ctx).Model(&PackagingBatchModel{}).
		Where("id = ?", b.ID).
		Select("bottles_qty", "bottles_unit_cost", "lids_qty", "lids_unit_cost",
			"alufoil_qty", "alufoil_unit_cost", "vacuum_bags_qty", "vacuum_bags_unit_cost",
			"parchment_qty", "parchment_unit_cost", "finished_quantity", "updated_at").
		Updates(&model)
	if result.Error != nil {
		return fmt.Errorf("failed to update packaging batch: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("packaging batch", b.ID)
	}
	return nil
}

// Submit transitions in_progress→completed under a row lock
func (r *GormPackagingRepository) Submit(ctx context.Context, id string, now time.Time) (*batch.PackagingBatch, bool, error) {
	var changed bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model, err := findPackagingLocked(tx, id)
		if err != nil {
			return err
		}
		status, err := batch.ParseStatus(model.Status)
		if err != nil {
			return fmt.Errorf("corrupt status on batch %s: %w", id, err)
		}
		next, ch, err := status.Submit()
		if err != nil {
			return err
		}
		changed = ch
		if !ch {
			return nil
		}
		return updateStatus(tx, &PackagingBatchModel{}, id, next, now)
	})
	if err != nil {
		return nil, false, err
	}
	updated, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return updated, changed, nil
}

// Reopen transitions completed→in_progress and deletes the derived
// labeling batch in the same transaction.
func (r *GormPackagingRepository) Reopen(ctx context.Context, id string, now time.Time) (*batch.PackagingBatch, []string, error) {
	var deleted []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model, err := findPackagingLocked(tx, id)
		if err != nil {
			return err
		}
		status, err := batch.ParseStatus(model.Status)
		if err != nil {
			return fmt.Errorf("corrupt status on batch %s: %w", id, err)
		}
		next, err := status.Reopen()
		if err != nil {
			return err
		}
		deleted, err = deleteDownstreamOf(tx, batch.StagePackaging, id)
		if err != nil {
			return err
		}
		return updateStatus(tx, &PackagingBatchModel{}, id, next, now)
	})
	if err != nil {
		return nil, nil, err
	}
	updated, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return updated, deleted, nil
}

// Cancel transitions in_progress→cancelled (terminal)
func (r *GormPackagingRepository) Cancel(ctx context.Context, id string, now time.Time) (*batch.PackagingBatch, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model, err := findPackagingLocked(tx, id)
		if err != nil {
			return err
		}
		status, err := batch.ParseStatus(model.Status)
		if err != nil {
			return fmt.Errorf("corrupt status on batch %s: %w", id, err)
		}
		next, err := status.Cancel()
		if err != nil {
			return err
		}
		return updateStatus(tx, &PackagingBatchModel{}, id, next, now)
	})
	if err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

// Delete removes the batch and cascades its derived labeling batch
func (r *GormPackagingRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findPackagingLocked(tx, id); err != nil {
			return err
		}
		if _, err := deleteDownstreamOf(tx, batch.StagePackaging, id); err != nil {
			return err
		}
		if err := tx.Delete(&PackagingBatchModel{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete packaging batch: %w", err)
		}
		return nil
	})
}

// ListEligibleSources returns completed processing batches that no
// packaging batch has been derived from yet.
func (r *GormPackagingRepository) ListEligibleSources(ctx context.Context, line *batch.ProductLine) ([]batch.ProcessingBatch, error) {
	q := r.db.WithContext(ctx).Model(&ProcessingBatchModel{}).
		Where("status = ?", string(batch.StatusCompleted)).
		Where("id NOT IN (?)", r.db.Model(&PackagingBatchModel{}).Select("source_batch_id"))
	if line != nil {
		q = q.Where("product_line = ?", string(*line))
	}

	var models []ProcessingBatchModel
	if err := q.Order("product_line, number").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list eligible sources: %w", err)
	}
	batches := make([]batch.ProcessingBatch, 0, len(models))
	for i := range models {
		entity, err := processingToEntity(&models[i])
		if err != nil {
			return nil, err
		}
		batches = append(batches, *entity)
	}
	return batches, nil
}

func findPackagingLocked(tx *gorm.DB, id string) (*PackagingBatchModel, error) {
	var model PackagingBatchModel
	if err := lockForUpdate(tx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("packaging batch", id)
		}
		return nil, fmt.Errorf("failed to find packaging batch: %w", err)
	}
	return &model, nil
}

func packagingToEntity(model *PackagingBatchModel) (*batch.PackagingBatch, error) {
	status, err := batch.ParseStatus(model.Status)
	if err != nil {
		return nil, fmt.Errorf("corrupt status on batch %s: %w", model.ID, err)
	}
	return &batch.PackagingBatch{
		ID:            model.ID,
		Number:        model.Number,
		Line:          batch.ProductLine(model.ProductLine),
		SourceBatchID: model.SourceBatchID,
		Status:        status,
		Materials: batch.PackagingMaterials{
			Bottles:    usageFromColumns(model.BottlesQty, model.BottlesUnitCost),
			Lids:       usageFromColumns(model.LidsQty, model.LidsUnitCost),
			Alufoil:    usageFromColumns(model.AlufoilQty, model.AlufoilUnitCost),
			VacuumBags: usageFromColumns(model.VacuumBagsQty, model.VacuumBagsUnitCost),
			Parchment:  usageFromColumns(model.ParchmentQty, model.ParchmentUnitCost),
		},
		FinishedQuantity: model.FinishedQuantity,
		CreatedBy:        model.CreatedBy,
		CreatedAt:        model.CreatedAt,
		UpdatedAt:        model.UpdatedAt,
	}, nil
}

func packagingToModel(b *batch.PackagingBatch) PackagingBatchModel {
	model := PackagingBatchModel{
		ID:               b.ID,
		Number:           b.Number,
		ProductLine:      string(b.Line),
		SourceBatchID:    b.SourceBatchID,
		Status:           string(b.Status),
		FinishedQuantity: b.FinishedQuantity,
		CreatedBy:        b.CreatedBy,
		CreatedAt:        b.CreatedAt,
		UpdatedAt:        b.UpdatedAt,
	}
	model.BottlesQty, model.BottlesUnitCost = usageToColumns(b.Materials.Bottles)
	model.LidsQty, model.LidsUnitCost = usageToColumns(b.Materials.Lids)
	model.AlufoilQty, model.AlufoilUnitCost = usageToColumns(b.Materials.Alufoil)
	model.VacuumBagsQty, model.VacuumBagsUnitCost = usageToColumns(b.Materials.VacuumBags)
	model.ParchmentQty, model.ParchmentUnitCost = usageToColumns(b.Materials.Parchment)
	return model
}

func usageFromColumns(qty *int, cost *float64) *batch.MaterialUsage {
	if qty == nil && cost == nil {
		return nil
	}
	usage := &batch.MaterialUsage{}
	if qty != nil {
		usage.Quantity = *qty
	}
	if cost != nil {
		usage.UnitCost = *cost
	}
	return usage
}

func usageToColumns(usage *batch.MaterialUsage) (*int, *float64) {
	if usage == nil {
		return nil, nil
	}
	qty := usage.Quantity
	cost := usage.UnitCost
	return &qty, &cost
}
