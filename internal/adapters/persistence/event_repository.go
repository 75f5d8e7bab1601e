package persistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/taigaharvest/saphouse-go/internal/domain/batch"
)

// GormEventLog implements batch.EventLog using GORM. Rows are append
// only; the trail survives the hard deletion of downstream batches.
type GormEventLog struct {
	db *gorm.DB
}

// NewGormEventLog creates a new GORM event log
func NewGormEventLog(db *gorm.DB) *GormEventLog {
	return &GormEventLog{db: db}
}

// Append persists one audit record
func (r *GormEventLog) Append(ctx context.Context, e *batch.Event) error {
	model := BatchEventModel{
		BatchID:   e.BatchID,
		Stage:     string(e.Stage),
		Action:    string(e.Action),
		Actor:     e.Actor,
		Detail:    e.Detail,
		CreatedAt: e.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("failed to append batch event: %w", err)
	}
	e.ID = model.ID
	return nil
}

// ListForBatch retrieves the trail for one batch, oldest first
func (r *GormEventLog) ListForBatch(ctx context.Context, batchID string) ([]batch.Event, error) {
	var models []BatchEventModel
	if err := r.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("id").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list batch events: %w", err)
	}
	events := make([]batch.Event, 0, len(models))
	for i := range models {
		events = append(events, batch.Event{
			ID:        models[i].ID,
			BatchID:   models[i].BatchID,
			Stage:     batch.Stage(models[i].Stage),
			Action:    batch.EventAction(models[i].Action),
			Actor:     models[i].Actor,
			Detail:    models[i].Detail,
			CreatedAt: models[i].CreatedAt,
		})
	}
	return events, nil
}
