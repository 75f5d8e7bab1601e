package persistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/taigaharvest/saphouse-go/internal/domain/batch"
	"github.com/taigaharvest/saphouse-go/internal/domain/shared"
)

// GormUnitLedger implements batch.UnitLedger using GORM
type GormUnitLedger struct {
	db *gorm.DB
}

// NewGormUnitLedger creates a new GORM unit ledger
func NewGormUnitLedger(db *gorm.DB) *GormUnitLedger {
	return &GormUnitLedger{db: db}
}

// ListFree retrieves units with no assignment reference for the line
func (r *GormUnitLedger) ListFree(ctx context.Context, line batch.ProductLine, filter batch.UnitFilter) ([]batch.RawUnit, error) {
	q := r.db.WithContext(ctx).
		Where("product_line = ? AND assigned_batch_id IS NULL", string(line))
	if filter.CollectedFrom != nil {
		q = q.Where("collected_on >= ?", *filter.CollectedFrom)
	}
	if filter.CollectedTo != nil {
		q = q.Where("collected_on <= ?", *filter.CollectedTo)
	}

	var models []RawUnitModel
	if err := q.Order("collected_on, id").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list free units: %w", err)
	}
	return unitsToEntities(models), nil
}

// FindByID retrieves a single unit regardless of assignment state
func (r *GormUnitLedger) FindByID(ctx context.Context, unitID string) (*batch.RawUnit, error) {
	var model RawUnitModel
	if err := r.db.WithContext(ctx).Where("id = ?", unitID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("raw unit", unitID)
		}
		return nil, fmt.Errorf("failed to find unit: %w", err)
	}
	unit := unitToEntity(&model)
	return &unit, nil
}

// ReplaceAssignments sets the batch's claimed set to exactly
// desiredUnitIDs. The whole operation runs in one transaction with row
// locks on the desired units so two concurrent calls cannot both pass
// the conflict check; any failure rolls back with no partial claim left
// in place.
func (r *GormUnitLedger) ReplaceAssignments(ctx context.Context, batchID string, line batch.ProductLine, desiredUnitIDs []string) ([]batch.RawUnit, error) {
	var claimed []batch.RawUnit

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Clear the batch's current assignments first so re-claiming an
		// already-owned unit is a no-op rather than a self-conflict.
		if err := tx.Model(&RawUnitModel{}).
			Where("assigned_batch_id = ?", batchID).
			Update("assigned_batch_id", nil).Error; err != nil {
			return fmt.Errorf("failed to clear assignments: %w", err)
		}

		if len(desiredUnitIDs) == 0 {
			return nil
		}

		var models []RawUnitModel
		if err := lockForUpdate(tx).
			Where("id IN ?", desiredUnitIDs).
			Find(&models).Error; err != nil {
			return fmt.Errorf("failed to resolve units: %w", err)
		}

		found := make(map[string]*RawUnitModel, len(models))
		for i := range models {
			found[models[i].ID] = &models[i]
		}

		var missing []string
		for _, id := range desiredUnitIDs {
			if _, ok := found[id]; !ok {
				missing = append(missing, id)
			}
		}
		if len(missing) > 0 {
			return shared.NewUnitsNotFoundError(sortedIDs(missing))
		}

		var conflicting []string
		for i := range models {
			if models[i].ProductLine != string(line) {
				return shared.NewValidationError("unitIds",
					fmt.Sprintf("unit %s belongs to product line %q", models[i].ID, models[i].ProductLine))
			}
			// Own assignments were cleared above; anything still claimed
			// belongs to another batch.
			if models[i].AssignedBatchID != nil {
				conflicting = append(conflicting, models[i].ID)
			}
		}
		if len(conflicting) > 0 {
			return shared.NewUnitsClaimedError(sortedIDs(conflicting))
		}

		if err := tx.Model(&RawUnitModel{}).
			Where("id IN ?", desiredUnitIDs).
			Update("assigned_batch_id", batchID).Error; err != nil {
			return fmt.Errorf("failed to claim units: %w", err)
		}

		var reloaded []RawUnitModel
		if err := tx.Where("assigned_batch_id = ?", batchID).
			Order("collected_on, id").
			Find(&reloaded).Error; err != nil {
			return fmt.Errorf("failed to reload claimed units: %w", err)
		}
		claimed = unitsToEntities(reloaded)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// Release clears every assignment held by the batch
func (r *GormUnitLedger) Release(ctx context.Context, batchID string) error {
	if err := r.db.WithContext(ctx).Model(&RawUnitModel{}).
		Where("assigned_batch_id = ?", batchID).
		Update("assigned_batch_id", nil).Error; err != nil {
		return fmt.Errorf("failed to release units: %w", err)
	}
	return nil
}

// CreateUnits inserts new ledger entries recorded at field collection
func (r *GormUnitLedger) CreateUnits(ctx context.Context, units []batch.RawUnit) error {
	if len(units) == 0 {
		return nil
	}
	models := make([]RawUnitModel, 0, len(units))
	for i := range units {
		models = append(models, unitToModel(&units[i]))
	}
	if err := r.db.WithContext(ctx).Create(&models).Error; err != nil {
		return fmt.Errorf("failed to create units: %w", err)
	}
	return nil
}

// DeleteUnit removes a free unit; deleting a claimed unit is a conflict
func (r *GormUnitLedger) DeleteUnit(ctx context.Context, unitID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model RawUnitModel
		if err := lockForUpdate(tx).Where("id = ?", unitID).First(&model).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shared.NewNotFoundError("raw unit", unitID)
			}
			return fmt.Errorf("failed to find unit: %w", err)
		}
		if model.AssignedBatchID != nil {
			return shared.NewConflictError(
				fmt.Sprintf("raw unit %s is claimed by batch %s", unitID, *model.AssignedBatchID))
		}
		if err := tx.Delete(&RawUnitModel{}, "id = ?", unitID).Error; err != nil {
			return fmt.Errorf("failed to delete unit: %w", err)
		}
		return nil
	})
}

func unitToEntity(model *RawUnitModel) batch.RawUnit {
	return batch.RawUnit{
		ID:              model.ID,
		Line:            batch.ProductLine(model.ProductLine),
		ContainerType:   batch.ContainerType(model.ContainerType),
		Quantity:        model.Quantity,
		Quality:         model.Quality,
		CollectedOn:     model.CollectedOn,
		DraftID:         model.DraftID,
		AssignedBatchID: model.AssignedBatchID,
		CreatedAt:       model.CreatedAt,
	}
}

func unitsToEntities(models []RawUnitModel) []batch.RawUnit {
	units := make([]batch.RawUnit, 0, len(models))
	for i := range models {
		units = append(units, unitToEntity(&models[i]))
	}
	return units
}

func unitToModel(u *batch.RawUnit) RawUnitModel {
	return RawUnitModel{
		ID:              u.ID,
		ProductLine:     string(u.Line),
		ContainerType:   string(u.ContainerType),
		Quantity:        u.Quantity,
		Quality:         u.Quality,
		CollectedOn:     u.CollectedOn,
		DraftID:         u.DraftID,
		AssignedBatchID: u.AssignedBatchID,
		CreatedAt:       u.CreatedAt,
	}
}
