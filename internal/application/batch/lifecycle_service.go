package batch

import (
	"context"

	"github.com/google/uuid"

	"github.com/taigaharvest/saphouse-go/internal/adapters/metrics"
	domain "github.com/taigaharvest/saphouse-go/internal/domain/batch"
	"github.com/taigaharvest/saphouse-go/internal/domain/shared"
)

// LifecycleService creates processing batches and drives every batch
// through the stage state machine: submit, reopen (with downstream
// cascade), cancel and delete.
type LifecycleService struct {
	processing domain.ProcessingRepository
	packaging  domain.PackagingRepository
	labeling   domain.LabelingRepository
	ledger     domain.UnitLedger
	events     domain.EventLog
	clock      shared.Clock
}

// NewLifecycleService creates a new lifecycle service
func NewLifecycleService(
	processing domain.ProcessingRepository,
	packaging domain.PackagingRepository,
	labeling domain.LabelingRepository,
	ledger domain.UnitLedger,
	events domain.EventLog,
	clock shared.Clock,
) *LifecycleService {
	return &LifecycleService{
		processing: processing,
		packaging:  packaging,
		labeling:   labeling,
		ledger:     ledger,
		events:     events,
		clock:      clock,
	}
}

// CreateProcessing opens a new, empty processing batch. The dense
// sequence number is generated inside the insert transaction.
func (s *LifecycleService) CreateProcessing(ctx context.Context, cmd CreateProcessingBatchCommand) (*ProcessingBatchView, error) {
	if err := validateCommand(cmd); err != nil {
		return nil, err
	}
	line, err := domain.ParseProductLine(cmd.ProductLine)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	b := &domain.ProcessingBatch{
		ID:            uuid.NewString(),
		Line:          line,
		ScheduledDate: cmd.ScheduledDate,
		Status:        domain.StatusInProgress,
		CreatedBy:     cmd.Actor,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.processing.Create(ctx, b); err != nil {
		return nil, err
	}

	recordEvent(ctx, s.events, s.clock, b.ID, domain.StageProcessing, domain.EventCreated, cmd.Actor,
		map[string]interface{}{"number": b.Number, "productLine": string(b.Line)})

	view := ProcessingToView(b)
	return &view, nil
}

// UpdateProcessing updates schedule and measurement figures of an
// editable batch.
func (s *LifecycleService) UpdateProcessing(ctx context.Context, cmd UpdateProcessingBatchCommand) (*ProcessingBatchView, error) {
	if err := validateCommand(cmd); err != nil {
		return nil, err
	}

	b, err := s.processing.FindByID(ctx, cmd.BatchID)
	if err != nil {
		return nil, err
	}
	if !b.Status.Editable() {
		return nil, shared.NewInvalidTransitionError("update", string(b.Status))
	}

	if cmd.ScheduledDate != nil {
		b.ScheduledDate = cmd.ScheduledDate
	}
	if cmd.Measurements != nil {
		applyMeasurementsPatch(&b.Measurements, cmd.Measurements)
		if err := b.Measurements.Validate(b.Line); err != nil {
			return nil, err
		}
	}
	b.UpdatedAt = s.clock.Now()

	if err := s.processing.Update(ctx, b); err != nil {
		return nil, err
	}

	if cmd.Measurements != nil {
		recordEvent(ctx, s.events, s.clock, b.ID, domain.StageProcessing, domain.EventMeasured, cmd.Actor, nil)
	}

	view := ProcessingToView(b)
	return &view, nil
}

// SubmitProcessing transitions the batch to completed. Submitting an
// already-completed batch is a no-op success.
func (s *LifecycleService) SubmitProcessing(ctx context.Context, id, actor string) (*ProcessingBatchView, error) {
	b, changed, err := s.processing.Submit(ctx, id, s.clock.Now())
	recordTransition(domain.StageProcessing, "submit", err)
	if err != nil {
		return nil, err
	}
	if changed {
		recordEvent(ctx, s.events, s.clock, b.ID, domain.StageProcessing, domain.EventSubmitted, actor, nil)
	}
	view := ProcessingToView(b)
	return &view, nil
}

// ReopenProcessing rolls a completed batch back to in_progress and
// cascades deletion of its derived packaging batch (and that batch's
// labeling batch). Claimed units stay claimed.
func (s *LifecycleService) ReopenProcessing(ctx context.Context, id, actor string) (*ProcessingBatchView, *ReopenResult, error) {
	b, deleted, err := s.processing.Reopen(ctx, id, s.clock.Now())
	recordTransition(domain.StageProcessing, "reopen", err)
	if err != nil {
		return nil, nil, err
	}
	metrics.RecordCascadeDeletion(string(domain.StageProcessing), len(deleted))
	recordEvent(ctx, s.events, s.clock, b.ID, domain.StageProcessing, domain.EventReopened, actor,
		map[string]interface{}{"deletedDownstream": deleted})
	for _, downstreamID := range deleted {
		recordEvent(ctx, s.events, s.clock, downstreamID, domain.StageProcessing, domain.EventCascadeDelete, actor,
			map[string]interface{}{"cause": "reopen", "sourceBatchId": id})
	}
	view := ProcessingToView(b)
	return &view, &ReopenResult{DeletedDownstreamIDs: deleted}, nil
}

// CancelProcessing moves the batch to the terminal cancelled status
func (s *LifecycleService) CancelProcessing(ctx context.Context, id, actor string) (*ProcessingBatchView, error) {
	b, err := s.processing.Cancel(ctx, id, s.clock.Now())
	recordTransition(domain.StageProcessing, "cancel", err)
	if err != nil {
		return nil, err
	}
	recordEvent(ctx, s.events, s.clock, b.ID, domain.StageProcessing, domain.EventCancelled, actor, nil)
	view := ProcessingToView(b)
	return &view, nil
}

// DeleteProcessing removes the batch, releasing its units and cascading
// the downstream chain.
func (s *LifecycleService) DeleteProcessing(ctx context.Context, id, actor string) error {
	if err := s.processing.Delete(ctx, id); err != nil {
		return err
	}
	recordEvent(ctx, s.events, s.clock, id, domain.StageProcessing, domain.EventDeleted, actor, nil)
	return nil
}

// SubmitPackaging transitions a packaging batch to completed
func (s *LifecycleService) SubmitPackaging(ctx context.Context, id, actor string) (*DerivedBatchView, error) {
	b, changed, err := s.packaging.Submit(ctx, id, s.clock.Now())
	recordTransition(domain.StagePackaging, "submit", err)
	if err != nil {
		return nil, err
	}
	if changed {
		recordEvent(ctx, s.events, s.clock, b.ID, domain.StagePackaging, domain.EventSubmitted, actor, nil)
	}
	view := PackagingToView(b)
	return &view, nil
}

// ReopenPackaging rolls a completed packaging batch back and cascades
// deletion of its derived labeling batch.
func (s *LifecycleService) ReopenPackaging(ctx context.Context, id, actor string) (*DerivedBatchView, *ReopenResult, error) {
	b, deleted, err := s.packaging.Reopen(ctx, id, s.clock.Now())
	recordTransition(domain.StagePackaging, "reopen", err)
	if err != nil {
		return nil, nil, err
	}
	metrics.RecordCascadeDeletion(string(domain.StagePackaging), len(deleted))
	recordEvent(ctx, s.events, s.clock, b.ID, domain.StagePackaging, domain.EventReopened, actor,
		map[string]interface{}{"deletedDownstream": deleted})
	for _, downstreamID := range deleted {
		recordEvent(ctx, s.events, s.clock, downstreamID, domain.StagePackaging, domain.EventCascadeDelete, actor,
			map[string]interface{}{"cause": "reopen", "sourceBatchId": id})
	}
	view := PackagingToView(b)
	return &view, &ReopenResult{DeletedDownstreamIDs: deleted}, nil
}

// CancelPackaging moves a packaging batch to cancelled
func (s *LifecycleService) CancelPackaging(ctx context.Context, id, actor string) (*DerivedBatchView, error) {
	b, err := s.packaging.Cancel(ctx, id, s.clock.Now())
	recordTransition(domain.StagePackaging, "cancel", err)
	if err != nil {
		return nil, err
	}
	recordEvent(ctx, s.events, s.clock, b.ID, domain.StagePackaging, domain.EventCancelled, actor, nil)
	view := PackagingToView(b)
	return &view, nil
}

// DeletePackaging removes a packaging batch and its labeling batch
func (s *LifecycleService) DeletePackaging(ctx context.Context, id, actor string) error {
	if err := s.packaging.Delete(ctx, id); err != nil {
		return err
	}
	recordEvent(ctx, s.events, s.clock, id, domain.StagePackaging, domain.EventDeleted, actor, nil)
	return nil
}

// SubmitLabeling transitions a labeling batch to completed
func (s *LifecycleService) SubmitLabeling(ctx context.Context, id, actor string) (*DerivedBatchView, error) {
	b, changed, err := s.labeling.Submit(ctx, id, s.clock.Now())
	recordTransition(domain.StageLabeling, "submit", err)
	if err != nil {
		return nil, err
	}
	if changed {
		recordEvent(ctx, s.events, s.clock, b.ID, domain.StageLabeling, domain.EventSubmitted, actor, nil)
	}
	view := LabelingToView(b)
	return &view, nil
}

// ReopenLabeling rolls a completed labeling batch back. Labeling is the
// last stage, so there is nothing to cascade.
func (s *LifecycleService) ReopenLabeling(ctx context.Context, id, actor string) (*DerivedBatchView, *ReopenResult, error) {
	b, _, err := s.labeling.Reopen(ctx, id, s.clock.Now())
	recordTransition(domain.StageLabeling, "reopen", err)
	if err != nil {
		return nil, nil, err
	}
	recordEvent(ctx, s.events, s.clock, b.ID, domain.StageLabeling, domain.EventReopened, actor, nil)
	view := LabelingToView(b)
	return &view, &ReopenResult{}, nil
}

// CancelLabeling moves a labeling batch to cancelled
func (s *LifecycleService) CancelLabeling(ctx context.Context, id, actor string) (*DerivedBatchView, error) {
	b, err := s.labeling.Cancel(ctx, id, s.clock.Now())
	recordTransition(domain.StageLabeling, "cancel", err)
	if err != nil {
		return nil, err
	}
	recordEvent(ctx, s.events, s.clock, b.ID, domain.StageLabeling, domain.EventCancelled, actor, nil)
	view := LabelingToView(b)
	return &view, nil
}

// DeleteLabeling removes a labeling batch
func (s *LifecycleService) DeleteLabeling(ctx context.Context, id, actor string) error {
	if err := s.labeling.Delete(ctx, id); err != nil {
		return err
	}
	recordEvent(ctx, s.events, s.clock, id, domain.StageLabeling, domain.EventDeleted, actor, nil)
	return nil
}

func applyMeasurementsPatch(m *domain.Measurements, patch *MeasurementsPatch) {
	if patch.CollectedLiters != nil {
		m.CollectedLiters = patch.CollectedLiters
	}
	if patch.FilteredLiters != nil {
		m.FilteredLiters = patch.FilteredLiters
	}
	if patch.Brix != nil {
		m.Brix = patch.Brix
	}
	if patch.WetKilograms != nil {
		m.WetKilograms = patch.WetKilograms
	}
	if patch.DryKilograms != nil {
		m.DryKilograms = patch.DryKilograms
	}
}
