package batch

import (
	"context"
	"errors"

	"github.com/taigaharvest/saphouse-go/internal/adapters/metrics"
	domain "github.com/taigaharvest/saphouse-go/internal/domain/batch"
	"github.com/taigaharvest/saphouse-go/internal/domain/shared"
)

// AssignmentService binds a processing batch to a set of unit ledger
// entries with replace semantics. This is the only place cross-batch
// exclusivity is enforced.
type AssignmentService struct {
	processing domain.ProcessingRepository
	ledger     domain.UnitLedger
	events     domain.EventLog
	clock      shared.Clock
}

// NewAssignmentService creates a new assignment service
func NewAssignmentService(
	processing domain.ProcessingRepository,
	ledger domain.UnitLedger,
	events domain.EventLog,
	clock shared.Clock,
) *AssignmentService {
	return &AssignmentService{
		processing: processing,
		ledger:     ledger,
		events:     events,
		clock:      clock,
	}
}

// SetBatchUnits replaces the batch's claimed unit set with exactly
// cmd.UnitIDs. Units dropped from the set are released and become
// claimable by other batches immediately; units already held by this
// batch pass through as a no-op. The unit cap and duplicate check run
// before the claim transaction opens.
func (s *AssignmentService) SetBatchUnits(ctx context.Context, cmd SetUnitsCommand) (*ProcessingBatchView, error) {
	if err := validateCommand(cmd); err != nil {
		return nil, err
	}
	if err := domain.ValidateUnitSet(cmd.UnitIDs); err != nil {
		return nil, err
	}

	b, err := s.processing.FindByID(ctx, cmd.BatchID)
	if err != nil {
		return nil, err
	}
	if !b.Status.Editable() {
		return nil, shared.NewInvalidTransitionError("assign units to", string(b.Status))
	}

	units, err := s.ledger.ReplaceAssignments(ctx, b.ID, b.Line, cmd.UnitIDs)
	if err != nil {
		var conflictErr *shared.ConflictError
		if errors.As(err, &conflictErr) {
			metrics.RecordClaimConflict(len(conflictErr.UnitIDs))
		}
		return nil, err
	}
	b.Units = units

	recordEvent(ctx, s.events, s.clock, b.ID, domain.StageProcessing, domain.EventUnitsAssigned, cmd.Actor,
		map[string]interface{}{"unitIds": cmd.UnitIDs})

	view := ProcessingToView(b)
	return &view, nil
}

// ListFreeUnits returns claimable ledger entries for a product line
func (s *AssignmentService) ListFreeUnits(ctx context.Context, line string, filter domain.UnitFilter) ([]UnitView, error) {
	productLine, err := domain.ParseProductLine(line)
	if err != nil {
		return nil, err
	}
	units, err := s.ledger.ListFree(ctx, productLine, filter)
	if err != nil {
		return nil, err
	}
	return unitsToViews(units), nil
}
