package persistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/taigaharvest/saphouse-go/internal/domain/batch"
	"github.com/taigaharvest/saphouse-go/internal/domain/shared"
)

// GormDraftRepository implements batch.DraftRepository using GORM
type GormDraftRepository struct {
	db *gorm.DB
}

// NewGormDraftRepository creates a new GORM draft repository
func NewGormDraftRepository(db *gorm.DB) *GormDraftRepository {
	return &GormDraftRepository{db: db}
}

// Create inserts the draft and its collected units in one transaction
func (r *GormDraftRepository) Create(ctx context.Context, d *batch.Draft) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model := DraftModel{
			ID:          d.ID,
			ProductLine: string(d.Line),
			CollectedOn: d.CollectedOn,
			CreatedBy:   d.CreatedBy,
			CreatedAt:   d.CreatedAt,
		}
		if err := tx.Create(&model).Error; err != nil {
			return fmt.Errorf("failed to create draft: %w", err)
		}
		if len(d.Units) == 0 {
			return nil
		}
		unitModels := make([]RawUnitModel, 0, len(d.Units))
		for i := range d.Units {
			unitModels = append(unitModels, unitToModel(&d.Units[i]))
		}
		if err := tx.Create(&unitModels).Error; err != nil {
			return fmt.Errorf("failed to create draft units: %w", err)
		}
		return nil
	})
}

// FindByID retrieves a draft with its units
func (r *GormDraftRepository) FindByID(ctx context.Context, id string) (*batch.Draft, error) {
	var model DraftModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("draft", id)
		}
		return nil, fmt.Errorf("failed to find draft: %w", err)
	}

	var unitModels []RawUnitModel
	if err := r.db.WithContext(ctx).
		Where("draft_id = ?", id).
		Order("id").
		Find(&unitModels).Error; err != nil {
		return nil, fmt.Errorf("failed to load draft units: %w", err)
	}

	return &batch.Draft{
		ID:          model.ID,
		Line:        batch.ProductLine(model.ProductLine),
		CollectedOn: model.CollectedOn,
		CreatedBy:   model.CreatedBy,
		CreatedAt:   model.CreatedAt,
		Units:       unitsToEntities(unitModels),
	}, nil
}

// List retrieves drafts ordered by collection day, newest first
func (r *GormDraftRepository) List(ctx context.Context, line *batch.ProductLine) ([]batch.Draft, error) {
	q := r.db.WithContext(ctx).Model(&DraftModel{})
	if line != nil {
		q = q.Where("product_line = ?", string(*line))
	}
	var models []DraftModel
	if err := q.Order("collected_on DESC, id").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}
	drafts := make([]batch.Draft, 0, len(models))
	for i := range models {
		drafts = append(drafts, batch.Draft{
			ID:          models[i].ID,
			Line:        batch.ProductLine(models[i].ProductLine),
			CollectedOn: models[i].CollectedOn,
			CreatedBy:   models[i].CreatedBy,
			CreatedAt:   models[i].CreatedAt,
		})
	}
	return drafts, nil
}
