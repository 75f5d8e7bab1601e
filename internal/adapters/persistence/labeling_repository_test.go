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

func newLabelingBatch(sourceID string) *batch.LabelingBatch {
	return &batch.LabelingBatch{
		ID:            uuid.NewString(),
		SourceBatchID: sourceID,
		Status:        batch.StatusInProgress,
		CreatedAt:     testTime,
		UpdatedAt:     testTime,
	}
}

func TestLabelingRepository_Create_DerivesFromCompletedPackaging(t *testing.T) {
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormLabelingRepository(db)
	ctx := context.Background()

	procID := helpers.SeedProcessingBatch(t, db, "herb", "01", "completed")
	pkgID := seedPackagingRow(t, db, procID, "herb", "01", "completed")

	b := newLabelingBatch(pkgID)
	require.NoError(t, repo.Create(ctx, b))
	assert.Equal(t, batch.LineHerb, b.Line)
	assert.Equal(t, "01", b.Number)

	// Second derivation from the same packaging batch conflicts
	err := repo.Create(ctx, newLabelingBatch(pkgID))
	var conflictErr *shared.ConflictError
	require.ErrorAs(t, err, &conflictErr)
}

func TestLabelingRepository_Create_SourceMustBeCompleted(t *testing.T) {
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormLabelingRepository(db)

	procID := helpers.SeedProcessingBatch(t, db, "sap", "01", "completed")
	pkgID := seedPackagingRow(t, db, procID, "sap", "01", "in_progress")

	err := repo.Create(context.Background(), newLabelingBatch(pkgID))
	var transitionErr *shared.InvalidTransitionError
	require.ErrorAs(t, err, &transitionErr)
}

func TestLabelingRepository_ListEligibleSources(t *testing.T) {
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormLabelingRepository(db)
	ctx := context.Background()

	procA := helpers.SeedProcessingBatch(t, db, "sap", "01", "completed")
	procB := helpers.SeedProcessingBatch(t, db, "sap", "02", "completed")

	eligible := seedPackagingRow(t, db, procA, "sap", "01", "completed")
	derived := seedPackagingRow(t, db, procB, "sap", "02", "completed")
	require.NoError(t, repo.Create(ctx, newLabelingBatch(derived)))

	sources, err := repo.ListEligibleSources(ctx, nil)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, eligible, sources[0].ID)
}

func TestLabelingRepository_Reopen_NoDownstream(t *testing.T) {
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormLabelingRepository(db)
	ctx := context.Background()

	procID := helpers.SeedProcessingBatch(t, db, "sap", "01", "completed")
	pkgID := seedPackagingRow(t, db, procID, "sap", "01", "completed")
	lblID := seedLabelingRow(t, db, pkgID, "sap", "01", "completed")

	reopened, deleted, err := repo.Reopen(ctx, lblID, testTime)
	require.NoError(t, err)
	assert.Equal(t, batch.StatusInProgress, reopened.Status)
	assert.Empty(t, deleted)
}
