package persistence_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taigaharvest/saphouse-go/internal/adapters/persistence"
	"github.com/taigaharvest/saphouse-go/internal/domain/batch"
	"github.com/taigaharvest/saphouse-go/test/helpers"
)

func TestDraftRepository_CreateAndFind(t *testing.T) {
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormDraftRepository(db)
	ledger := persistence.NewGormUnitLedger(db)
	ctx := context.Background()

	draftID := uuid.NewString()
	collectedOn := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	draft := &batch.Draft{
		ID:          draftID,
		Line:        batch.LineSap,
		CollectedOn: collectedOn,
		CreatedBy:   "field-crew",
		CreatedAt:   testTime,
		Units: []batch.RawUnit{
			{
				ID:            uuid.NewString(),
				Line:          batch.LineSap,
				ContainerType: batch.ContainerBucket,
				Quantity:      18,
				CollectedOn:   collectedOn,
				DraftID:       &draftID,
				CreatedAt:     testTime,
			},
			{
				ID:            uuid.NewString(),
				Line:          batch.LineSap,
				ContainerType: batch.ContainerCan,
				Quantity:      25,
				CollectedOn:   collectedOn,
				DraftID:       &draftID,
				CreatedAt:     testTime,
			},
		},
	}

	require.NoError(t, repo.Create(ctx, draft))

	found, err := repo.FindByID(ctx, draftID)
	require.NoError(t, err)
	assert.Equal(t, batch.LineSap, found.Line)
	assert.Len(t, found.Units, 2)

	// The collected units enter the ledger free
	free, err := ledger.ListFree(ctx, batch.LineSap, batch.UnitFilter{})
	require.NoError(t, err)
	assert.Len(t, free, 2)
}

func TestDraftRepository_List_FiltersByLine(t *testing.T) {
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormDraftRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &batch.Draft{
		ID: uuid.NewString(), Line: batch.LineSap,
		CollectedOn: testTime, CreatedAt: testTime,
	}))
	require.NoError(t, repo.Create(ctx, &batch.Draft{
		ID: uuid.NewString(), Line: batch.LineHerb,
		CollectedOn: testTime, CreatedAt: testTime,
	}))

	all, err := repo.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	line := batch.LineSap
	sapOnly, err := repo.List(ctx, &line)
	require.NoError(t, err)
	require.Len(t, sapOnly, 1)
	assert.Equal(t, batch.LineSap, sapOnly[0].Line)
}
