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

// GormProcessingRepository implements batch.ProcessingRepository using GORM
type GormProcessingRepository struct {
	db *gorm.DB
}

// NewGormProcessingRepository creates a new GORM processing batch repository
func NewGormProcessingRepository(db *gorm.DB) *GormProcessingRepository {
	return &GormProcessingRepository{db: db}
}

// Create inserts the batch, reserving its dense sequence number inside
// the same transaction.
func (r *GormProcessingRepository) Create(ctx context.Context, b *batch.ProcessingBatch) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		number, err := nextNumber(tx, batch.StageProcessing, b.Line)
		if err != nil {
			return err
		}
		b.Number = number

		model := processingToModel(b)
		if err := tx.Create(&model).Error; err != nil {
			return fmt.Errorf("failed to create processing batch: %w", err)
		}
		return nil
	})
}

// FindByID retrieves a batch with its claimed unit set
func (r *GormProcessingRepository) FindByID(ctx context.Context, id string) (*batch.ProcessingBatch, error) {
	var model ProcessingBatchModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("processing batch", id)
		}
		return nil, fmt.Errorf("failed to find processing batch: %w", err)
	}

	entity, err := processingToEntity(&model)
	if err != nil {
		return nil, err
	}
	if err := r.loadUnits(ctx, entity); err != nil {
		return nil, err
	}
	return entity, nil
}

// List retrieves batches ordered by line and number, with unit sets
func (r *GormProcessingRepository) List(ctx context.Context, line *batch.ProductLine) ([]batch.ProcessingBatch, error) {
	q := r.db.WithContext(ctx).Model(&ProcessingBatchModel{})
	if line != nil {
		q = q.Where("product_line = ?", string(*line))
	}

	var models []ProcessingBatchModel
	if err := q.Order("product_line, number").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list processing batches: %w", err)
	}
	if len(models) == 0 {
		return []batch.ProcessingBatch{}, nil
	}

	ids := make([]string, 0, len(models))
	for i := range models {
		ids = append(ids, models[i].ID)
	}
	var unitModels []RawUnitModel
	if err := r.db.WithContext(ctx).
		Where("assigned_batch_id IN ?", ids).
		Order("collected_on, id").
		Find(&unitModels).Error; err != nil {
		return nil, fmt.Errorf("failed to load assigned units: %w", err)
	}
	unitsByBatch := make(map[string][]batch.RawUnit)
	for i := range unitModels {
		u := unitToEntity(&unitModels[i])
		unitsByBatch[*u.AssignedBatchID] = append(unitsByBatch[*u.AssignedBatchID], u)
	}

	batches := make([]batch.ProcessingBatch, 0, len(models))
	for i := range models {
		entity, err := processingToEntity(&models[i])
		if err != nil {
			return nil, err
		}
		entity.Units = unitsByBatch[entity.ID]
		batches = append(batches, *entity)
	}
	return batches, nil
}

// Update persists scheduled date and measurement changes
func (r *GormProcessingRepository) Update(ctx context.Context, b *batch.ProcessingBatch) error {
	model := processingToModel(b)
	result := r.db.WithContext(ctx).Model(&ProcessingBatchModel{}).
		Where("id = ?", b.ID).
		Select("scheduled_date", "collected_liters", "filtered_liters", "brix",
			"wet_kilograms", "dry_kilograms", "updated_at").
		Updates(&model)
	if result.Error != nil {
		return fmt.Errorf("failed to update processing batch: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("processing batch", b.ID)
	}
	return nil
}

// Submit transitions in_progress→completed under a row lock. Submitting
// an already-completed batch is a no-op success.
func (r *GormProcessingRepository) Submit(ctx context.Context, id string, now time.Time) (*batch.ProcessingBatch, bool, error) {
	var changed bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model, err := findProcessingLocked(tx, id)
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
		return updateStatus(tx, &ProcessingBatchModel{}, id, next, now)
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
// packaging batch (and its labeling batch) in the same transaction.
// Claimed units are not released.
func (r *GormProcessingRepository) Reopen(ctx context.Context, id string, now time.Time) (*batch.ProcessingBatch, []string, error) {
	var deleted []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model, err := findProcessingLocked(tx, id)
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

		deleted, err = deleteDownstreamOf(tx, batch.StageProcessing, id)
		if err != nil {
			return err
		}
		return updateStatus(tx, &ProcessingBatchModel{}, id, next, now)
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
func (r *GormProcessingRepository) Cancel(ctx context.Context, id string, now time.Time) (*batch.ProcessingBatch, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model, err := findProcessingLocked(tx, id)
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
		return updateStatus(tx, &ProcessingBatchModel{}, id, next, now)
	})
	if err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

// Delete removes the batch, releases its claimed units and cascades the
// derived downstream chain in one transaction.
func (r *GormProcessingRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findProcessingLocked(tx, id); err != nil {
			return err
		}

		if err := tx.Model(&RawUnitModel{}).
			Where("assigned_batch_id = ?", id).
			Update("assigned_batch_id", nil).Error; err != nil {
			return fmt.Errorf("failed to release units: %w", err)
		}
		if _, err := deleteDownstreamOf(tx, batch.StageProcessing, id); err != nil {
			return err
		}
		if err := tx.Delete(&ProcessingBatchModel{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete processing batch: %w", err)
		}
		return nil
	})
}

func (r *GormProcessingRepository) loadUnits(ctx context.Context, b *batch.ProcessingBatch) error {
	var unitModels []RawUnitModel
	if err := r.db.WithContext(ctx).
		Where("assigned_batch_id = ?", b.ID).
		Order("collected_on, id").
		Find(&unitModels).Error; err != nil {
		return fmt.Errorf("failed to load assigned units: %w", err)
	}
	b.Units = unitsToEntities(unitModels)
	return nil
}

// findProcessingLocked loads the batch row under FOR UPDATE so
// concurrent submit/reopen calls serialize on it.
func findProcessingLocked(tx *gorm.DB, id string) (*ProcessingBatchModel, error) {
	var model ProcessingBatchModel
	if err := lockForUpdate(tx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("processing batch", id)
		}
		return nil, fmt.Errorf("failed to find processing batch: %w", err)
	}
	return &model, nil
}

// updateStatus writes the transitioned status and updated_at
func updateStatus(tx *gorm.DB, model interface{}, id string, next batch.Status, now time.Time) error {
	if err := tx.Model(model).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     string(next),
			"updated_at": now,
		}).Error; err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	return nil
}

func processingToEntity(model *ProcessingBatchModel) (*batch.ProcessingBatch, error) {
	status, err := batch.ParseStatus(model.Status)
	if err != nil {
		return nil, fmt.Errorf("corrupt status on batch %s: %w", model.ID, err)
	}
	return &batch.ProcessingBatch{
		ID:            model.ID,
		Number:        model.Number,
		Line:          batch.ProductLine(model.ProductLine),
		ScheduledDate: model.ScheduledDate,
		Status:        status,
		Measurements: batch.Measurements{
			CollectedLiters: model.CollectedLiters,
			FilteredLiters:  model.FilteredLiters,
			Brix:            model.Brix,
			WetKilograms:    model.WetKilograms,
			DryKilograms:    model.DryKilograms,
		},
		CreatedBy: model.CreatedBy,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}, nil
}

func processingToModel(b *batch.ProcessingBatch) ProcessingBatchModel {
	return ProcessingBatchModel{
		ID:              b.ID,
		Number:          b.Number,
		ProductLine:     string(b.Line),
		ScheduledDate:   b.ScheduledDate,
		Status:          string(b.Status),
		CollectedLiters: b.Measurements.CollectedLiters,
		FilteredLiters:  b.Measurements.FilteredLiters,
		Brix:            b.Measurements.Brix,
		WetKilograms:    b.Measurements.WetKilograms,
		DryKilograms:    b.Measurements.DryKilograms,
		CreatedBy:       b.CreatedBy,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}
