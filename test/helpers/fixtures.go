package helpers

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/taigaharvest/saphouse-go/internal/adapters/persistence"
)

// SeedUnits inserts n free raw units for the given product line and
// returns their ids in insertion order.
func SeedUnits(t *testing.T, db *gorm.DB, line string, n int) []string {
	t.Helper()

	collectedOn := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		model := &persistence.RawUnitModel{
			ID:            uuid.NewString(),
			ProductLine:   line,
			ContainerType: "bucket",
			Quantity:      float64(10 + i),
			CollectedOn:   collectedOn,
			CreatedAt:     collectedOn,
		}
		if err := db.Create(model).Error; err != nil {
			t.Fatalf("failed to seed raw unit: %v", err)
		}
		ids = append(ids, model.ID)
	}
	return ids
}

// SeedProcessingBatch inserts a processing batch row directly, bypassing
// the repository, for tests that need a batch in a specific state.
func SeedProcessingBatch(t *testing.T, db *gorm.DB, line, number, status string) string {
	t.Helper()

	now := time.Date(2025, 3, 11, 8, 0, 0, 0, time.UTC)
	model := &persistence.ProcessingBatchModel{
		ID:          uuid.NewString(),
		Number:      number,
		ProductLine: line,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := db.Create(model).Error; err != nil {
		t.Fatalf("failed to seed processing batch: %v", err)
	}
	return model.ID
}

// ClaimUnits points the given units at a batch, as if assigned
func ClaimUnits(t *testing.T, db *gorm.DB, batchID string, unitIDs []string) {
	t.Helper()

	err := db.Model(&persistence.RawUnitModel{}).
		Where("id IN ?", unitIDs).
		Update("assigned_batch_id", batchID).Error
	if err != nil {
		t.Fatalf("failed to claim units: %v", err)
	}
}

// UniqueNumber builds a zero-padded sequence number for seeding
func UniqueNumber(n int) string {
	return fmt.Sprintf("%02d", n)
}
