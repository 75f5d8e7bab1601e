package persistence_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taigaharvest/saphouse-go/internal/adapters/persistence"
	"github.com/taigaharvest/saphouse-go/internal/domain/batch"
	"github.com/taigaharvest/saphouse-go/internal/domain/shared"
	"github.com/taigaharvest/saphouse-go/test/helpers"
)

func newPackagingBatch(sourceID string) *batch.PackagingBatch {
	return &batch.PackagingBatch{
		ID:            uuid.NewString(),
		SourceBatchID: sourceID,
		Status:        batch.StatusInProgress,
		CreatedAt:     testTime,
		UpdatedAt:     testTime,
	}
}

func TestPackagingRepository_Create_DerivesFromCompletedSource(t *testing.T) {
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormPackagingRepository(db)
	ctx := context.Background()

	sourceID := helpers.SeedProcessingBatch(t, db, "sap", "01", "completed")

	b := newPackagingBatch(sourceID)
	require.NoError(t, repo.Create(ctx, b))

	// Line and number are resolved from the source inside the transaction
	assert.Equal(t, batch.LineSap, b.Line)
	assert.Equal(t, "01", b.Number)
}

func TestPackagingRepository_Create_SourceMustBeCompleted(t *testing.T) {
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormPackagingRepository(db)
	ctx := context.Background()

	sourceID := helpers.SeedProcessingBatch(t, db, "sap", "01", "in_progress")

	err := repo.Create(ctx, newPackagingBatch(sourceID))
	var transitionErr *shared.InvalidTransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, "in_progress", transitionErr.From)
}

func TestPackagingRepository_Create_SecondDerivationConflicts(t *testing.T) {
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormPackagingRepository(db)
	ctx := context.Background()

	sourceID := helpers.SeedProcessingBatch(t, db, "sap", "01", "completed")
	require.NoError(t, repo.Create(ctx, newPackagingBatch(sourceID)))

	err := repo.Create(ctx, newPackagingBatch(sourceID))
	var conflictErr *shared.ConflictError
	require.ErrorAs(t, err, &conflictErr)
}

func TestPackagingRepository_Create_MissingSource(t *testing.T) {
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormPackagingRepository(db)

	err := repo.Create(context.Background(), newPackagingBatch("ghost"))
	var notFoundErr *shared.NotFoundError
	require.ErrorAs(t, err, &notFoundErr)
}

func TestPackagingRepository_ListEligibleSources(t *testing.T) {
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormPackagingRepository(db)
	ctx := context.Background()

	// One completed and underived, one completed and derived, one in progress
	eligible := helpers.SeedProcessingBatch(t, db, "sap", "01", "completed")
	derived := helpers.SeedProcessingBatch(t, db, "sap", "02", "completed")
	helpers.SeedProcessingBatch(t, db, "sap", "03", "in_progress")
	require.NoError(t, repo.Create(ctx, newPackagingBatch(derived)))

	sources, err := repo.ListEligibleSources(ctx, nil)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, eligible, sources[0].ID)
}

func TestPackagingRepository_Reopen_DeletesLabelingBatch(t *testing.T) {
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormPackagingRepository(db)
	ctx := context.Background()

	sourceID := helpers.SeedProcessingBatch(t, db, "sap", "01", "completed")
	pkgID := seedPackagingRow(t, db, sourceID, "sap", "01", "completed")
	lblID := seedLabelingRow(t, db, pkgID, "sap", "01", "in_progress")

	reopened, deleted, err := repo.Reopen(ctx, pkgID, testTime)
	require.NoError(t, err)
	assert.Equal(t, batch.StatusInProgress, reopened.Status)
	assert.Equal(t, []string{lblID}, deleted)

	var count int64
	require.NoError(t, db.Model(&persistence.LabelingBatchModel{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestPackagingRepository_MaterialsRoundTrip(t *testing.T) {
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormPackagingRepository(db)
	ctx := context.Background()

	sourceID := helpers.SeedProcessingBatch(t, db, "sap", "01", "completed")

	b := newPackagingBatch(sourceID)
	b.Materials.Bottles = &batch.MaterialUsage{Quantity: 120, UnitCost: 0.85}
	b.Materials.Lids = &batch.MaterialUsage{Quantity: 120, UnitCost: 0.1}
	require.NoError(t, repo.Create(ctx, b))

	found, err := repo.FindByID(ctx, b.ID)
	require.NoError(t, err)
	require.NotNil(t, found.Materials.Bottles)
	assert.Equal(t, 120, found.Materials.Bottles.Quantity)
	assert.InDelta(t, 0.85, found.Materials.Bottles.UnitCost, 0.0001)
	assert.Nil(t, found.Materials.Alufoil)
}
