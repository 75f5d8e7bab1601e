package batch_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/taigaharvest/saphouse-go/internal/adapters/persistence"
	appbatch "github.com/taigaharvest/saphouse-go/internal/application/batch"
	domain "github.com/taigaharvest/saphouse-go/internal/domain/batch"
	"github.com/taigaharvest/saphouse-go/internal/domain/shared"
	"github.com/taigaharvest/saphouse-go/test/helpers"
)

type serviceFixture struct {
	db         *gorm.DB
	clock      *shared.MockClock
	lifecycle  *appbatch.LifecycleService
	assignment *appbatch.AssignmentService
	linker     *appbatch.LinkerService
	drafts     *appbatch.DraftService
	queries    *appbatch.QueryService
}

func newServiceFixture(t *testing.T) *serviceFixture {
	db := helpers.NewTestDB(t)
	clock := shared.NewMockClock(time.Date(2025, 3, 15, 7, 0, 0, 0, time.UTC))

	ledger := persistence.NewGormUnitLedger(db)
	processingRepo := persistence.NewGormProcessingRepository(db)
	packagingRepo := persistence.NewGormPackagingRepository(db)
	labelingRepo := persistence.NewGormLabelingRepository(db)
	draftRepo := persistence.NewGormDraftRepository(db)
	eventLog := persistence.NewGormEventLog(db)

	return &serviceFixture{
		db:         db,
		clock:      clock,
		lifecycle:  appbatch.NewLifecycleService(processingRepo, packagingRepo, labelingRepo, ledger, eventLog, clock),
		assignment: appbatch.NewAssignmentService(processingRepo, ledger, eventLog, clock),
		linker:     appbatch.NewLinkerService(processingRepo, packagingRepo, labelingRepo, eventLog, clock),
		drafts:     appbatch.NewDraftService(draftRepo, ledger, clock),
		queries:    appbatch.NewQueryService(processingRepo, packagingRepo, labelingRepo, eventLog),
	}
}

func TestLifecycleService_CreateProcessing(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	view, err := f.lifecycle.CreateProcessing(ctx, appbatch.CreateProcessingBatchCommand{
		ProductLine: "sap",
		Actor:       "ops",
	})
	require.NoError(t, err)
	assert.Equal(t, "01", view.Number)
	assert.Equal(t, "in_progress", view.Status)
	assert.Zero(t, view.UnitCount)

	// Creation lands in the audit trail
	events, err := f.queries.ListEvents(ctx, view.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "created", events[0].Action)
	assert.Equal(t, "ops", events[0].Actor)
}

func TestLifecycleService_CreateProcessing_UnknownLine(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.lifecycle.CreateProcessing(context.Background(), appbatch.CreateProcessingBatchCommand{
		ProductLine: "maple",
	})
	var validationErr *shared.ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestLifecycleService_UpdateProcessing_MeasurementVocabulary(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	view, err := f.lifecycle.CreateProcessing(ctx, appbatch.CreateProcessingBatchCommand{ProductLine: "herb"})
	require.NoError(t, err)

	wet := 42.0
	updated, err := f.lifecycle.UpdateProcessing(ctx, appbatch.UpdateProcessingBatchCommand{
		BatchID:      view.ID,
		Measurements: &appbatch.MeasurementsPatch{WetKilograms: &wet},
	})
	require.NoError(t, err)
	require.NotNil(t, updated.Measurements.WetKilograms)
	assert.InDelta(t, 42.0, *updated.Measurements.WetKilograms, 0.0001)

	// Sap figures on a herb batch are rejected
	brix := 66.0
	_, err = f.lifecycle.UpdateProcessing(ctx, appbatch.UpdateProcessingBatchCommand{
		BatchID:      view.ID,
		Measurements: &appbatch.MeasurementsPatch{Brix: &brix},
	})
	var validationErr *shared.ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestAssignmentService_SetBatchUnits(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	view, err := f.lifecycle.CreateProcessing(ctx, appbatch.CreateProcessingBatchCommand{ProductLine: "sap"})
	require.NoError(t, err)
	unitIDs := helpers.SeedUnits(t, f.db, "sap", 3)

	updated, err := f.assignment.SetBatchUnits(ctx, appbatch.SetUnitsCommand{
		BatchID: view.ID,
		UnitIDs: unitIDs,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, updated.UnitCount)
	assert.InDelta(t, 33, updated.TotalQuantity, 0.0001) // 10+11+12
}

func TestAssignmentService_SetBatchUnits_CapRejected(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	view, err := f.lifecycle.CreateProcessing(ctx, appbatch.CreateProcessingBatchCommand{ProductLine: "sap"})
	require.NoError(t, err)

	ids := make([]string, 0, 16)
	for i := 0; i < 16; i++ {
		ids = append(ids, fmt.Sprintf("u%d", i))
	}
	_, err = f.assignment.SetBatchUnits(ctx, appbatch.SetUnitsCommand{BatchID: view.ID, UnitIDs: ids})
	var validationErr *shared.ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestAssignmentService_SetBatchUnits_CompletedBatchRejected(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	view, err := f.lifecycle.CreateProcessing(ctx, appbatch.CreateProcessingBatchCommand{ProductLine: "sap"})
	require.NoError(t, err)
	_, err = f.lifecycle.SubmitProcessing(ctx, view.ID, "ops")
	require.NoError(t, err)

	unitIDs := helpers.SeedUnits(t, f.db, "sap", 1)
	_, err = f.assignment.SetBatchUnits(ctx, appbatch.SetUnitsCommand{BatchID: view.ID, UnitIDs: unitIDs})
	var transitionErr *shared.InvalidTransitionError
	require.ErrorAs(t, err, &transitionErr)
}

func TestLinkerService_DerivePackaging_VocabularyCheckedBeforeCreate(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	view, err := f.lifecycle.CreateProcessing(ctx, appbatch.CreateProcessingBatchCommand{ProductLine: "herb"})
	require.NoError(t, err)
	_, err = f.lifecycle.SubmitProcessing(ctx, view.ID, "ops")
	require.NoError(t, err)

	// Bottles belong to the sap line
	_, err = f.linker.DerivePackaging(ctx, appbatch.DerivePackagingCommand{
		SourceBatchID: view.ID,
		Bottles:       &appbatch.MaterialUsageInput{Quantity: 10, UnitCost: 0.8},
	})
	var validationErr *shared.ValidationError
	require.ErrorAs(t, err, &validationErr)

	// The failed derive must not consume the source
	sources, err := f.linker.ListPackagingSources(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, sources, 1)
}

func TestLinkerService_FullChain(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	proc, err := f.lifecycle.CreateProcessing(ctx, appbatch.CreateProcessingBatchCommand{ProductLine: "sap"})
	require.NoError(t, err)
	_, err = f.lifecycle.SubmitProcessing(ctx, proc.ID, "ops")
	require.NoError(t, err)

	pkg, err := f.linker.DerivePackaging(ctx, appbatch.DerivePackagingCommand{
		SourceBatchID: proc.ID,
		Bottles:       &appbatch.MaterialUsageInput{Quantity: 100, UnitCost: 0.8},
	})
	require.NoError(t, err)
	assert.Equal(t, "sap", pkg.ProductLine)
	assert.Equal(t, proc.ID, pkg.SourceBatchID)

	_, err = f.lifecycle.SubmitPackaging(ctx, pkg.ID, "ops")
	require.NoError(t, err)

	lbl, err := f.linker.DeriveLabeling(ctx, appbatch.DeriveLabelingCommand{
		SourceBatchID: pkg.ID,
		Stickers:      &appbatch.MaterialUsageInput{Quantity: 100, UnitCost: 0.05},
	})
	require.NoError(t, err)
	assert.Equal(t, pkg.ID, lbl.SourceBatchID)

	// Reopening the processing batch tears the whole chain down
	_, result, err := f.lifecycle.ReopenProcessing(ctx, proc.ID, "ops")
	require.NoError(t, err)
	assert.Equal(t, []string{lbl.ID, pkg.ID}, result.DeletedDownstreamIDs)

	_, err = f.queries.GetPackaging(ctx, pkg.ID)
	var notFoundErr *shared.NotFoundError
	require.ErrorAs(t, err, &notFoundErr)
}

func TestDraftService_RecordDraft(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	quality := 2.1
	view, err := f.drafts.RecordDraft(ctx, appbatch.RecordDraftCommand{
		ProductLine: "sap",
		CollectedOn: time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
		Units: []appbatch.DraftUnitInput{
			{ContainerType: "bucket", Quantity: 18},
			{ContainerType: "can", Quantity: 25, Quality: &quality},
		},
		Actor: "field-crew",
	})
	require.NoError(t, err)
	assert.Equal(t, "2025-03-15", view.CollectedOn)
	require.Len(t, view.Units, 2)

	free, err := f.assignment.ListFreeUnits(ctx, "sap", domain.UnitFilter{})
	require.NoError(t, err)
	assert.Len(t, free, 2)
}

func TestDraftService_RecordDraft_Invalid(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	var validationErr *shared.ValidationError

	// No units
	_, err := f.drafts.RecordDraft(ctx, appbatch.RecordDraftCommand{
		ProductLine: "sap",
		CollectedOn: time.Now(),
	})
	require.ErrorAs(t, err, &validationErr)

	// Unknown container
	_, err = f.drafts.RecordDraft(ctx, appbatch.RecordDraftCommand{
		ProductLine: "sap",
		CollectedOn: time.Now(),
		Units:       []appbatch.DraftUnitInput{{ContainerType: "barrel", Quantity: 5}},
	})
	require.ErrorAs(t, err, &validationErr)
}

func TestLifecycleService_ReopenRecordsCascadeEvents(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	proc, err := f.lifecycle.CreateProcessing(ctx, appbatch.CreateProcessingBatchCommand{ProductLine: "sap"})
	require.NoError(t, err)
	_, err = f.lifecycle.SubmitProcessing(ctx, proc.ID, "ops")
	require.NoError(t, err)
	pkg, err := f.linker.DerivePackaging(ctx, appbatch.DerivePackagingCommand{SourceBatchID: proc.ID})
	require.NoError(t, err)

	_, _, err = f.lifecycle.ReopenProcessing(ctx, proc.ID, "ops")
	require.NoError(t, err)

	// The deleted downstream batch keeps an audit trail
	events, err := f.queries.ListEvents(ctx, pkg.ID)
	require.NoError(t, err)
	actions := make([]string, 0, len(events))
	for _, e := range events {
		actions = append(actions, e.Action)
	}
	assert.Contains(t, actions, "derived")
	assert.Contains(t, actions, "cascade_deleted")
}
