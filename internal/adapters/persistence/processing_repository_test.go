package persistence_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/taigaharvest/saphouse-go/internal/adapters/persistence"
	"github.com/taigaharvest/saphouse-go/internal/domain/batch"
	"github.com/taigaharvest/saphouse-go/internal/domain/shared"
	"github.com/taigaharvest/saphouse-go/test/helpers"
)

var testTime = time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC)

func newProcessingBatch(line batch.ProductLine) *batch.ProcessingBatch {
	return &batch.ProcessingBatch{
		ID:        uuid.NewString(),
		Line:      line,
		Status:    batch.StatusInProgress,
		CreatedAt: testTime,
		UpdatedAt: testTime,
	}
}

func seedPackagingRow(t *testing.T, db *gorm.DB, sourceID, line, number, status string) string {
	t.Helper()
	model := &persistence.PackagingBatchModel{
		ID:            uuid.NewString(),
		Number:        number,
		ProductLine:   line,
		SourceBatchID: sourceID,
		Status:        status,
		CreatedAt:     testTime,
		UpdatedAt:     testTime,
	}
	require.NoError(t, db.Create(model).Error)
	return model.ID
}

func seedLabelingRow(t *testing.T, db *gorm.DB, sourceID, line, number, status string) string {
	t.Helper()
	model := &persistence.LabelingBatchModel{
		ID:            uuid.NewString(),
		Number:        number,
		ProductLine:   line,
		SourceBatchID: sourceID,
		Status:        status,
		CreatedAt:     testTime,
		UpdatedAt:     testTime,
	}
	require.NoError(t, db.Create(model).Error)
	return model.ID
}

func TestProcessingRepository_Create_DenseNumbering(t *testing.T) {
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormProcessingRepository(db)
	ctx := context.Background()

	// Numbers are dense per product line, zero padded to width 2
	first := newProcessingBatch(batch.LineSap)
	require.NoError(t, repo.Create(ctx, first))
	assert.Equal(t, "01", first.Number)

	second := newProcessingBatch(batch.LineSap)
	require.NoError(t, repo.Create(ctx, second))
	assert.Equal(t, "02", second.Number)

	// The herb sequence is independent
	herb := newProcessingBatch(batch.LineHerb)
	require.NoError(t, repo.Create(ctx, herb))
	assert.Equal(t, "01", herb.Number)
}

func TestProcessingRepository_Create_NumberingSkipsGaps(t *testing.T) {
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormProcessingRepository(db)

	// A deleted batch leaves a gap; the next number continues from the max
	helpers.SeedProcessingBatch(t, db, "sap", "05", "in_progress")

	b := newProcessingBatch(batch.LineSap)
	require.NoError(t, repo.Create(context.Background(), b))
	assert.Equal(t, "06", b.Number)
}

func TestProcessingRepository_Submit_Idempotent(t *testing.T) {
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormProcessingRepository(db)
	ctx := context.Background()

	b := newProcessingBatch(batch.LineSap)
	require.NoError(t, repo.Create(ctx, b))

	submitted, changed, err := repo.Submit(ctx, b.ID, testTime)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, batch.StatusCompleted, submitted.Status)

	// Second submit is a no-op success
	again, changed, err := repo.Submit(ctx, b.ID, testTime.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, batch.StatusCompleted, again.Status)
}

func TestProcessingRepository_Submit_CancelledIsTerminal(t *testing.T) {
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormProcessingRepository(db)
	ctx := context.Background()

	id := helpers.SeedProcessingBatch(t, db, "sap", "01", "cancelled")

	_, _, err := repo.Submit(ctx, id, testTime)
	var transitionErr *shared.InvalidTransitionError
	require.ErrorAs(t, err, &transitionErr)
}

func TestProcessingRepository_Reopen_CascadesWholeChain(t *testing.T) {
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormProcessingRepository(db)
	ctx := context.Background()

	sourceID := helpers.SeedProcessingBatch(t, db, "sap", "01", "completed")
	unitIDs := helpers.SeedUnits(t, db, "sap", 2)
	helpers.ClaimUnits(t, db, sourceID, unitIDs)

	pkgID := seedPackagingRow(t, db, sourceID, "sap", "01", "completed")
	lblID := seedLabelingRow(t, db, pkgID, "sap", "01", "in_progress")

	// Act
	reopened, deleted, err := repo.Reopen(ctx, sourceID, testTime)

	// Assert - status rolled back, both downstream batches gone
	require.NoError(t, err)
	assert.Equal(t, batch.StatusInProgress, reopened.Status)
	assert.Equal(t, []string{lblID, pkgID}, deleted, "deepest stage first")

	var count int64
	require.NoError(t, db.Model(&persistence.PackagingBatchModel{}).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, db.Model(&persistence.LabelingBatchModel{}).Count(&count).Error)
	assert.Zero(t, count)

	// Claimed units stay claimed through the reopen
	assert.Len(t, reopened.Units, 2)
}

func TestProcessingRepository_Reopen_InProgressRejected(t *testing.T) {
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormProcessingRepository(db)

	id := helpers.SeedProcessingBatch(t, db, "sap", "01", "in_progress")

	_, _, err := repo.Reopen(context.Background(), id, testTime)
	var transitionErr *shared.InvalidTransitionError
	require.ErrorAs(t, err, &transitionErr)
}

func TestProcessingRepository_Cancel(t *testing.T) {
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormProcessingRepository(db)
	ctx := context.Background()

	id := helpers.SeedProcessingBatch(t, db, "sap", "01", "in_progress")

	cancelled, err := repo.Cancel(ctx, id, testTime)
	require.NoError(t, err)
	assert.Equal(t, batch.StatusCancelled, cancelled.Status)

	// Completed batches cannot be cancelled
	completed := helpers.SeedProcessingBatch(t, db, "sap", "02", "completed")
	_, err = repo.Cancel(ctx, completed, testTime)
	var transitionErr *shared.InvalidTransitionError
	require.ErrorAs(t, err, &transitionErr)
}

func TestProcessingRepository_Delete_ReleasesUnitsAndCascades(t *testing.T) {
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormProcessingRepository(db)
	ledger := persistence.NewGormUnitLedger(db)
	ctx := context.Background()

	id := helpers.SeedProcessingBatch(t, db, "sap", "01", "completed")
	unitIDs := helpers.SeedUnits(t, db, "sap", 2)
	helpers.ClaimUnits(t, db, id, unitIDs)
	seedPackagingRow(t, db, id, "sap", "01", "in_progress")

	// Act
	require.NoError(t, repo.Delete(ctx, id))

	// Assert - batch and downstream gone, units free again
	_, err := repo.FindByID(ctx, id)
	var notFoundErr *shared.NotFoundError
	require.ErrorAs(t, err, &notFoundErr)

	var count int64
	require.NoError(t, db.Model(&persistence.PackagingBatchModel{}).Count(&count).Error)
	assert.Zero(t, count)

	free, err := ledger.ListFree(ctx, batch.LineSap, batch.UnitFilter{})
	require.NoError(t, err)
	assert.Len(t, free, 2)
}

func TestProcessingRepository_Update_MissingBatch(t *testing.T) {
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormProcessingRepository(db)

	b := newProcessingBatch(batch.LineSap)
	err := repo.Update(context.Background(), b)
	var notFoundErr *shared.NotFoundError
	require.ErrorAs(t, err, &notFoundErr)
}

func TestProcessingRepository_List_FiltersByLine(t *testing.T) {
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormProcessingRepository(db)
	ctx := context.Background()

	helpers.SeedProcessingBatch(t, db, "sap", "01", "in_progress")
	helpers.SeedProcessingBatch(t, db, "herb", "01", "in_progress")

	all, err := repo.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	line := batch.LineHerb
	herbOnly, err := repo.List(ctx, &line)
	require.NoError(t, err)
	require.Len(t, herbOnly, 1)
	assert.Equal(t, batch.LineHerb, herbOnly[0].Line)
}
