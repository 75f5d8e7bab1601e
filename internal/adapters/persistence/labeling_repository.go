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

// GormLabelingRepository implements batch.LabelingRepository using GORM
type GormLabelingRepository struct {
	db *gorm.DB
}

// NewGormLabelingRepository creates a new GORM labeling batch repository
func NewGormLabelingRepository(db *gorm.DB) *GormLabelingRepository {
	return &GormLabelingRepository{db: db}
}

// Create derives a labeling batch from its packaging source, with the
// same guards as the packaging stage: source locked, completed,
// underived; number reserved in the same transaction.
func (r *GormLabelingRepository) Create(ctx context.Context, b *batch.LabelingBatch) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		source, err := findPackagingLocked(tx, b.SourceBatchID)
		if err != nil {
			return err
		}
		if source.Status != string(batch.StatusCompleted) {
			return shared.NewInvalidTransitionError("derive from", source.Status)
		}

		var count int64
		if err := tx.Model(&LabelingBatchModel{}).
			Where("source_batch_id = ?", b.SourceBatchID).
			Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check existing derivation: %w", err)
		}
		if count > 0 {
			return shared.NewConflictError(
				fmt.Sprintf("packaging batch %s already has a labeling batch", b.SourceBatchID))
		}

		b.Line = batch.ProductLine(source.ProductLine)
		number, err := nextNumber(tx, batch.StageLabeling, b.Line)
		if err != nil {
			return err
		}
		b.Number = number

		model := labelingToModel(b)
		if err := tx.Create(&model).Error; err != nil {
			return fmt.Errorf("failed to create labeling batch: %w", err)
		}
		return nil
	})
}

// FindByID retrieves a labeling batch
func (r *GormLabelingRepository) FindByID(ctx context.Context, id string) (*batch.LabelingBatch, error) {
	var model LabelingBatchModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("labeling batch", id)
		}
		return nil, fmt.Errorf("failed to find labeling batch: %w", err)
	}
	return labelingToEntity(&model)
}

// FindBySource retrieves the labeling batch derived from a packaging batch
func (r *GormLabelingRepository) FindBySource(ctx context.Context, sourceBatchID string) (*batch.LabelingBatch, error) {
	var model LabelingBatchModel
	if err := r.db.WithContext(ctx).Where("source_batch_id = ?", sourceBatchID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("labeling batch for source", sourceBatchID)
		}
		return nil, fmt.Errorf("failed to find labeling batch: %w", err)
	}
	return labelingToEntity(&model)
}

// List retrieves labeling batches ordered by line and number
func (r *GormLabelingRepository) List(ctx context.Context, line *batch.ProductLine) ([]batch.LabelingBatch, error) {
	q := r.db.WithContext(ctx).Model(&LabelingBatchModel{})
	if line != nil {
		q = q.Where("product_line = ?", string(*line))
	}
	var models []LabelingBatchModel
	if err := q.Order("product_line, number").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list labeling batches: %w", err)
	}
	batches := make([]batch.LabelingBatch, 0, len(models))
	for i := range models {
		entity, err := labelingToEntity(&models[i])
		if err != nil {
			return nil, err
		}
		batches = append(batches, *entity)
	}
	return batches, nil
}

// Update persists material and finished-quantity changes
func (r *GormLabelingRepository) Update(ctx context.Context, b *batch.LabelingBatch) error {
	model := labelingToModel(b)
	result := r.db.WithContext(ctx).Model(&LabelingBatchModel{}).
		Where("id = ?", b.ID).
		Select("stickers_qty", "stickers_unit_cost", "cartons_qty", "cartons_unit_cost",
			"shrink_sleeves_qty", "shrink_sleeves_unit_cost", "neck_tags_qty", "neck_tags_unit_cost",
			"finished_quantity", "updated_at").
		Updates(&model)
	if result.Error != nil {
		return fmt.Errorf("failed to update labeling batch: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("labeling batch", b.ID)
	}
	return nil
}

// Submit transitions in_progress→completed under a row lock
func (r *GormLabelingRepository) Submit(ctx context.Context, id string, now time.Time) (*batch.LabelingBatch, bool, error) {
	var changed bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model, err := findLabelingLocked(tx, id)
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
		return updateStatus(tx, &LabelingBatchModel{}, id, next, now)
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

// Reopen transitions completed→in_progress. Labeling is the last stage,
// so there is nothing downstream to cascade.
func (r *GormLabelingRepository) Reopen(ctx context.Context, id string, now time.Time) (*batch.LabelingBatch, []string, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model, err := findLabelingLocked(tx, id)
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
		return updateStatus(tx, &LabelingBatchModel{}, id, next, now)
	})
	if err != nil {
		return nil, nil, err
	}
	updated, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return updated, nil, nil
}

// Cancel transitions in_progress→cancelled (terminal)
func (r *GormLabelingRepository) Cancel(ctx context.Context, id string, now time.Time) (*batch.LabelingBatch, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model, err := findLabelingLocked(tx, id)
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
		return updateStatus(tx, &LabelingBatchModel{}, id, next, now)
	})
	if err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

// Delete removes the labeling batch
func (r *GormLabelingRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findLabelingLocked(tx, id); err != nil {
			return err
		}
		if err := tx.Delete(&LabelingBatchModel{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete labeling batch: %w", err)
		}
		return nil
	})
}

// ListEligibleSources returns completed packaging batches that no
// labeling batch has been derived from yet.
func (r *GormLabelingRepository) ListEligibleSources(ctx context.Context, line *batch.ProductLine) ([]batch.PackagingBatch, error) {
	q := r.db.WithContext(ctx).Model(&PackagingBatchModel{}).
		Where("status = ?", string(batch.StatusCompleted)).
		Where("id NOT IN (?)", r.db.Model(&LabelingBatchModel{}).Select("source_batch_id"))
	if line != nil {
		q = q.Where("product_line = ?", string(*line))
	}

	var models []PackagingBatchModel
	if err := q.Order("product_line, number").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list eligible sources: %w", err)
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

func findLabelingLocked(tx *gorm.DB, id string) (*LabelingBatchModel, error) {
	var model LabelingBatchModel
	if err := lockForUpdate(tx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("labeling batch", id)
		}
		return nil, fmt.Errorf("failed to find labeling batch: %w", err)
	}
	return &model, nil
}

func labelingToEntity(model *LabelingBatchModel) (*batch.LabelingBatch, error) {
	status, err := batch.ParseStatus(model.Status)
	if err != nil {
		return nil, fmt.Errorf("corrupt status on batch %s: %w", model.ID, err)
	}
	return &batch.LabelingBatch{
		ID:            model.ID,
		Number:        model.Number,
		Line:          batch.ProductLine(model.ProductLine),
		SourceBatchID: model.SourceBatchID,
		Status:        status,
		Materials: batch.LabelingMaterials{
			Stickers:      usageFromColumns(model.StickersQty, model.StickersUnitCost),
			Cartons:       usageFromColumns(model.CartonsQty, model.CartonsUnitCost),
			ShrinkSleeves: usageFromColumns(model.ShrinkSleevesQty, model.ShrinkSleevesUnitCost),
			NeckTags:      usageFromColumns(model.NeckTagsQty, model.NeckTagsUnitCost),
		},
		FinishedQuantity: model.FinishedQuantity,
		CreatedBy:        model.CreatedBy,
		CreatedAt:        model.CreatedAt,
		UpdatedAt:        model.UpdatedAt,
	}, nil
}

func labelingToModel(b *batch.LabelingBatch) LabelingBatchModel {
	model := LabelingBatchModel{
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
	model.StickersQty, model.StickersUnitCost = usageToColumns(b.Materials.Stickers)
	model.CartonsQty, model.CartonsUnitCost = usageToColumns(b.Materials.Cartons)
	model.ShrinkSleevesQty, model.ShrinkSleevesUnitCost = usageToColumns(b.Materials.ShrinkSleeves)
	model.NeckTagsQty, model.NeckTagsUnitCost = usageToColumns(b.Materials.NeckTags)
	return model
}
