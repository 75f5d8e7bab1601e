package steps

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cucumber/godog"

	"github.com/taigaharvest/saphouse-go/internal/adapters/persistence"
	appbatch "github.com/taigaharvest/saphouse-go/internal/application/batch"
	domain "github.com/taigaharvest/saphouse-go/internal/domain/batch"
	"github.com/taigaharvest/saphouse-go/internal/domain/shared"
	"github.com/taigaharvest/saphouse-go/internal/infrastructure/database"
)

type batchLifecycleContext struct {
	lifecycle  *appbatch.LifecycleService
	assignment *appbatch.AssignmentService
	linker     *appbatch.LinkerService
	drafts     *appbatch.DraftService
	queries    *appbatch.QueryService

	draft        *appbatch.DraftView
	batchID      string
	otherBatchID string
	packagingID  string
	labelingID   string
	reopenResult *appbatch.ReopenResult
	lastErr      error
}

func (bc *batchLifecycleContext) reset() error {
	db, err := database.NewTestConnection()
	if err != nil {
		return err
	}

	clock := shared.NewMockClock(time.Date(2025, 3, 25, 6, 0, 0, 0, time.UTC))
	ledger := persistence.NewGormUnitLedger(db)
	processingRepo := persistence.NewGormProcessingRepository(db)
	packagingRepo := persistence.NewGormPackagingRepository(db)
	labelingRepo := persistence.NewGormLabelingRepository(db)
	draftRepo := persistence.NewGormDraftRepository(db)
	eventLog := persistence.NewGormEventLog(db)

	bc.lifecycle = appbatch.NewLifecycleService(processingRepo, packagingRepo, labelingRepo, ledger, eventLog, clock)
	bc.assignment = appbatch.NewAssignmentService(processingRepo, ledger, eventLog, clock)
	bc.linker = appbatch.NewLinkerService(processingRepo, packagingRepo, labelingRepo, eventLog, clock)
	bc.drafts = appbatch.NewDraftService(draftRepo, ledger, clock)
	bc.queries = appbatch.NewQueryService(processingRepo, packagingRepo, labelingRepo, eventLog)

	bc.draft = nil
	bc.batchID = ""
	bc.otherBatchID = ""
	bc.packagingID = ""
	bc.labelingID = ""
	bc.reopenResult = nil
	bc.lastErr = nil
	return nil
}

// Setup steps

func (bc *batchLifecycleContext) aFieldDraftWithUnits(line string, table *godog.Table) error {
	units := make([]appbatch.DraftUnitInput, 0, len(table.Rows)-1)
	for i, row := range table.Rows {
		if i == 0 {
			continue // Skip header
		}
		quantity, err := strconv.ParseFloat(row.Cells[1].Value, 64)
		if err != nil {
			return err
		}
		units = append(units, appbatch.DraftUnitInput{
			ContainerType: row.Cells[0].Value,
			Quantity:      quantity,
		})
	}

	draft, err := bc.drafts.RecordDraft(context.Background(), appbatch.RecordDraftCommand{
		ProductLine: line,
		CollectedOn: time.Date(2025, 3, 24, 0, 0, 0, 0, time.UTC),
		Units:       units,
		Actor:       "bdd",
	})
	if err != nil {
		return err
	}
	bc.draft = draft
	return nil
}

func (bc *batchLifecycleContext) aProcessingBatch(line string) error {
	view, err := bc.lifecycle.CreateProcessing(context.Background(), appbatch.CreateProcessingBatchCommand{
		ProductLine: line,
		Actor:       "bdd",
	})
	if err != nil {
		return err
	}
	bc.batchID = view.ID
	return nil
}

func (bc *batchLifecycleContext) anotherProcessingBatch(line string) error {
	view, err := bc.lifecycle.CreateProcessing(context.Background(), appbatch.CreateProcessingBatchCommand{
		ProductLine: line,
		Actor:       "bdd",
	})
	if err != nil {
		return err
	}
	bc.otherBatchID = view.ID
	return nil
}

func (bc *batchLifecycleContext) draftUnitIDs() []string {
	if bc.draft == nil {
		return nil
	}
	ids := make([]string, 0, len(bc.draft.Units))
	for _, u := range bc.draft.Units {
		ids = append(ids, u.ID)
	}
	return ids
}

// Action steps

func (bc *batchLifecycleContext) theBatchClaimsAllDraftUnits() error {
	_, bc.lastErr = bc.assignment.SetBatchUnits(context.Background(), appbatch.SetUnitsCommand{
		BatchID: bc.batchID,
		UnitIDs: bc.draftUnitIDs(),
		Actor:   "bdd",
	})
	return nil
}

func (bc *batchLifecycleContext) theOtherBatchClaimsAllDraftUnits() error {
	_, bc.lastErr = bc.assignment.SetBatchUnits(context.Background(), appbatch.SetUnitsCommand{
		BatchID: bc.otherBatchID,
		UnitIDs: bc.draftUnitIDs(),
		Actor:   "bdd",
	})
	return nil
}

func (bc *batchLifecycleContext) theBatchIsSubmitted() error {
	_, err := bc.lifecycle.SubmitProcessing(context.Background(), bc.batchID, "bdd")
	return err
}

func (bc *batchLifecycleContext) theBatchIsSubmittedAgain() error {
	_, bc.lastErr = bc.lifecycle.SubmitProcessing(context.Background(), bc.batchID, "bdd")
	return nil
}

func (bc *batchLifecycleContext) theBatchIsCancelled() error {
	_, err := bc.lifecycle.CancelProcessing(context.Background(), bc.batchID, "bdd")
	return err
}

func (bc *batchLifecycleContext) theBatchIsReopened() error {
	_, result, err := bc.lifecycle.ReopenProcessing(context.Background(), bc.batchID, "bdd")
	if err != nil {
		return err
	}
	bc.reopenResult = result
	return nil
}

func (bc *batchLifecycleContext) aPackagingBatchDerived() error {
	view, err := bc.linker.DerivePackaging(context.Background(), appbatch.DerivePackagingCommand{
		SourceBatchID: bc.batchID,
		Actor:         "bdd",
	})
	if err != nil {
		return err
	}
	bc.packagingID = view.ID
	return nil
}

func (bc *batchLifecycleContext) anotherPackagingBatchDerived() error {
	_, bc.lastErr = bc.linker.DerivePackaging(context.Background(), appbatch.DerivePackagingCommand{
		SourceBatchID: bc.batchID,
		Actor:         "bdd",
	})
	return nil
}

func (bc *batchLifecycleContext) thePackagingBatchIsSubmitted() error {
	_, err := bc.lifecycle.SubmitPackaging(context.Background(), bc.packagingID, "bdd")
	return err
}

func (bc *batchLifecycleContext) aLabelingBatchDerived() error {
	view, err := bc.linker.DeriveLabeling(context.Background(), appbatch.DeriveLabelingCommand{
		SourceBatchID: bc.packagingID,
		Actor:         "bdd",
	})
	if err != nil {
		return err
	}
	bc.labelingID = view.ID
	return nil
}

// Assertion steps

func (bc *batchLifecycleContext) theLineHasFreeUnits(line string, count int) error {
	units, err := bc.assignment.ListFreeUnits(context.Background(), line, domain.UnitFilter{})
	if err != nil {
		return err
	}
	if len(units) != count {
		return fmt.Errorf("expected %d free units, got %d", count, len(units))
	}
	return nil
}

func (bc *batchLifecycleContext) theClaimSucceeds() error {
	if bc.lastErr != nil {
		return fmt.Errorf("expected claim to succeed, got %v", bc.lastErr)
	}
	return nil
}

func (bc *batchLifecycleContext) theClaimFailsWithConflict(count int) error {
	var conflictErr *shared.ConflictError
	if !errors.As(bc.lastErr, &conflictErr) {
		return fmt.Errorf("expected a conflict error, got %v", bc.lastErr)
	}
	if len(conflictErr.UnitIDs) != count {
		return fmt.Errorf("expected %d conflicting units, got %d", count, len(conflictErr.UnitIDs))
	}
	return nil
}

func (bc *batchLifecycleContext) theDerivationFailsWithConflict() error {
	var conflictErr *shared.ConflictError
	if !errors.As(bc.lastErr, &conflictErr) {
		return fmt.Errorf("expected a conflict error, got %v", bc.lastErr)
	}
	return nil
}

func (bc *batchLifecycleContext) theTransitionIsRejected() error {
	var transitionErr *shared.InvalidTransitionError
	if !errors.As(bc.lastErr, &transitionErr) {
		return fmt.Errorf("expected an invalid transition error, got %v", bc.lastErr)
	}
	return nil
}

func (bc *batchLifecycleContext) theBatchHoldsUnits(count int) error {
	view, err := bc.queries.GetProcessing(context.Background(), bc.batchID)
	if err != nil {
		return err
	}
	if view.UnitCount != count {
		return fmt.Errorf("expected batch to hold %d units, got %d", count, view.UnitCount)
	}
	return nil
}

func (bc *batchLifecycleContext) theReopenReportsDeletedDownstream(count int) error {
	if bc.reopenResult == nil {
		return fmt.Errorf("no reopen has run")
	}
	if len(bc.reopenResult.DeletedDownstreamIDs) != count {
		return fmt.Errorf("expected %d deleted downstream batches, got %d",
			count, len(bc.reopenResult.DeletedDownstreamIDs))
	}
	return nil
}

func (bc *batchLifecycleContext) thePackagingBatchNoLongerExists() error {
	_, err := bc.queries.GetPackaging(context.Background(), bc.packagingID)
	var notFoundErr *shared.NotFoundError
	if !errors.As(err, &notFoundErr) {
		return fmt.Errorf("expected the packaging batch to be gone, got %v", err)
	}
	return nil
}

// InitializeBatchLifecycleScenario registers the batch lifecycle steps
func InitializeBatchLifecycleScenario(sc *godog.ScenarioContext) {
	bc := &batchLifecycleContext{}

	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		return ctx, bc.reset()
	})

	sc.Step(`^a field draft on the "([^"]*)" line with units:$`, bc.aFieldDraftWithUnits)
	sc.Step(`^a processing batch on the "([^"]*)" line$`, bc.aProcessingBatch)
	sc.Step(`^another processing batch on the "([^"]*)" line$`, bc.anotherProcessingBatch)
	sc.Step(`^the batch claims all units from the draft$`, bc.theBatchClaimsAllDraftUnits)
	sc.Step(`^the other batch claims all units from the draft$`, bc.theOtherBatchClaimsAllDraftUnits)
	sc.Step(`^the batch is submitted$`, bc.theBatchIsSubmitted)
	sc.Step(`^the batch is submitted again$`, bc.theBatchIsSubmittedAgain)
	sc.Step(`^the batch is cancelled$`, bc.theBatchIsCancelled)
	sc.Step(`^the batch is reopened$`, bc.theBatchIsReopened)
	sc.Step(`^a packaging batch derived from the batch$`, bc.aPackagingBatchDerived)
	sc.Step(`^another packaging batch is derived from the batch$`, bc.anotherPackagingBatchDerived)
	sc.Step(`^the packaging batch is submitted$`, bc.thePackagingBatchIsSubmitted)
	sc.Step(`^a labeling batch derived from the packaging batch$`, bc.aLabelingBatchDerived)
	sc.Step(`^the "([^"]*)" line has (\d+) free units$`, bc.theLineHasFreeUnits)
	sc.Step(`^the claim succeeds$`, bc.theClaimSucceeds)
	sc.Step(`^the claim fails with a conflict naming (\d+) units$`, bc.theClaimFailsWithConflict)
	sc.Step(`^the derivation fails with a conflict$`, bc.theDerivationFailsWithConflict)
	sc.Step(`^the transition is rejected$`, bc.theTransitionIsRejected)
	sc.Step(`^the batch holds (\d+) units$`, bc.theBatchHoldsUnits)
	sc.Step(`^the reopen reports (\d+) deleted downstream batches$`, bc.theReopenReportsDeletedDownstream)
	sc.Step(`^the packaging batch no longer exists$`, bc.thePackagingBatchNoLongerExists)
}
