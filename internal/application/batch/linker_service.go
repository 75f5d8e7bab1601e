package batch

import (
	"context"

	"github.com/google/uuid"

	domain "github.com/taigaharvest/saphouse-go/internal/domain/batch"
	"github.com/taigaharvest/saphouse-go/internal/domain/shared"
)

// LinkerService creates downstream batches against exactly one completed
// upstream batch and reports which sources are still eligible.
type LinkerService struct {
	processing domain.ProcessingRepository
	packaging  domain.PackagingRepository
	labeling   domain.LabelingRepository
	events     domain.EventLog
	clock      shared.Clock
}

// NewLinkerService creates a new pipeline linker service
func NewLinkerService(
	processing domain.ProcessingRepository,
	packaging domain.PackagingRepository,
	labeling domain.LabelingRepository,
	events domain.EventLog,
	clock shared.Clock,
) *LinkerService {
	return &LinkerService{
		processing: processing,
		packaging:  packaging,
		labeling:   labeling,
		events:     events,
		clock:      clock,
	}
}

// DerivePackaging creates the packaging batch for a completed processing
// batch. Fails if the source is not completed or already derived from.
func (s *LinkerService) DerivePackaging(ctx context.Context, cmd DerivePackagingCommand) (*DerivedBatchView, error) {
	if err := validateCommand(cmd); err != nil {
		return nil, err
	}

	source, err := s.processing.FindByID(ctx, cmd.SourceBatchID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	b := &domain.PackagingBatch{
		ID:            uuid.NewString(),
		SourceBatchID: cmd.SourceBatchID,
		Line:          source.Line,
		Status:        domain.StatusInProgress,
		Materials: domain.PackagingMaterials{
			Bottles:    usageFromInput(cmd.Bottles),
			Lids:       usageFromInput(cmd.Lids),
			Alufoil:    usageFromInput(cmd.Alufoil),
			VacuumBags: usageFromInput(cmd.VacuumBags),
			Parchment:  usageFromInput(cmd.Parchment),
		},
		CreatedBy: cmd.Actor,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := b.Materials.Validate(b.Line); err != nil {
		return nil, err
	}

	// The repository re-checks the source status and single-derivation
	// rule under lock inside its transaction.
	if err := s.packaging.Create(ctx, b); err != nil {
		return nil, err
	}

	recordEvent(ctx, s.events, s.clock, b.ID, domain.StagePackaging, domain.EventDerived, cmd.Actor,
		map[string]interface{}{"sourceBatchId": cmd.SourceBatchID, "number": b.Number})

	view := PackagingToView(b)
	return &view, nil
}

// UpdatePackaging updates materials and finished quantity
func (s *LinkerService) UpdatePackaging(ctx context.Context, cmd UpdatePackagingBatchCommand) (*DerivedBatchView, error) {
	if err := validateCommand(cmd); err != nil {
		return nil, err
	}

	b, err := s.packaging.FindByID(ctx, cmd.BatchID)
	if err != nil {
		return nil, err
	}
	if !b.Status.Editable() {
		return nil, shared.NewInvalidTransitionError("update", string(b.Status))
	}

	if cmd.Bottles != nil {
		b.Materials.Bottles = usageFromInput(cmd.Bottles)
	}
	if cmd.Lids != nil {
		b.Materials.Lids = usageFromInput(cmd.Lids)
	}
	if cmd.Alufoil != nil {
		b.Materials.Alufoil = usageFromInput(cmd.Alufoil)
	}
	if cmd.VacuumBags != nil {
		b.Materials.VacuumBags = usageFromInput(cmd.VacuumBags)
	}
	if cmd.Parchment != nil {
		b.Materials.Parchment = usageFromInput(cmd.Parchment)
	}
	if err := b.Materials.Validate(b.Line); err != nil {
		return nil, err
	}
	if cmd.FinishedQuantity != nil {
		b.FinishedQuantity = cmd.FinishedQuantity
	}
	b.UpdatedAt = s.clock.Now()

	if err := s.packaging.Update(ctx, b); err != nil {
		return nil, err
	}

	view := PackagingToView(b)
	return &view, nil
}

// DeriveLabeling creates the labeling batch for a completed packaging batch
func (s *LinkerService) DeriveLabeling(ctx context.Context, cmd DeriveLabelingCommand) (*DerivedBatchView, error) {
	if err := validateCommand(cmd); err != nil {
		return nil, err
	}

	source, err := s.packaging.FindByID(ctx, cmd.SourceBatchID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	b := &domain.LabelingBatch{
		ID:            uuid.NewString(),
		SourceBatchID: cmd.SourceBatchID,
		Line:          source.Line,
		Status:        domain.StatusInProgress,
		Materials: domain.LabelingMaterials{
			Stickers:      usageFromInput(cmd.Stickers),
			Cartons:       usageFromInput(cmd.Cartons),
			ShrinkSleeves: usageFromInput(cmd.ShrinkSleeves),
			NeckTags:      usageFromInput(cmd.NeckTags),
		},
		CreatedBy: cmd.Actor,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := b.Materials.Validate(b.Line); err != nil {
		return nil, err
	}

	if err := s.labeling.Create(ctx, b); err != nil {
		return nil, err
	}

	recordEvent(ctx, s.events, s.clock, b.ID, domain.StageLabeling, domain.EventDerived, cmd.Actor,
		map[string]interface{}{"sourceBatchId": cmd.SourceBatchID, "number": b.Number})

	view := LabelingToView(b)
	return &view, nil
}

// UpdateLabeling updates materials and finished quantity
func (s *LinkerService) UpdateLabeling(ctx context.Context, cmd UpdateLabelingBatchCommand) (*DerivedBatchView, error) {
	if err := validateCommand(cmd); err != nil {
		return nil, err
	}

	b, err := s.labeling.FindByID(ctx, cmd.BatchID)
	if err != nil {
		return nil, err
	}
	if !b.Status.Editable() {
		return nil, shared.NewInvalidTransitionError("update", string(b.Status))
	}

	if cmd.Stickers != nil {
		b.Materials.Stickers = usageFromInput(cmd.Stickers)
	}
	if cmd.Cartons != nil {
		b.Materials.Cartons = usageFromInput(cmd.Cartons)
	}
	if cmd.ShrinkSleeves != nil {
		b.Materials.ShrinkSleeves = usageFromInput(cmd.ShrinkSleeves)
	}
	if cmd.NeckTags != nil {
		b.Materials.NeckTags = usageFromInput(cmd.NeckTags)
	}
	if err := b.Materials.Validate(b.Line); err != nil {
		return nil, err
	}
	if cmd.FinishedQuantity != nil {
		b.FinishedQuantity = cmd.FinishedQuantity
	}
	b.UpdatedAt = s.clock.Now()

	if err := s.labeling.Update(ctx, b); err != nil {
		return nil, err
	}

	view := LabelingToView(b)
	return &view, nil
}

// ListPackagingSources returns completed processing batches without a
// packaging batch.
func (s *LinkerService) ListPackagingSources(ctx context.Context, line *domain.ProductLine) ([]ProcessingBatchView, error) {
	sources, err := s.packaging.ListEligibleSources(ctx, line)
	if err != nil {
		return nil, err
	}
	views := make([]ProcessingBatchView, 0, len(sources))
	for i := range sources {
		views = append(views, ProcessingToView(&sources[i]))
	}
	return views, nil
}

// ListLabelingSources returns completed packaging batches without a
// labeling batch.
func (s *LinkerService) ListLabelingSources(ctx context.Context, line *domain.ProductLine) ([]DerivedBatchView, error) {
	sources, err := s.labeling.ListEligibleSources(ctx, line)
	if err != nil {
		return nil, err
	}
	views := make([]DerivedBatchView, 0, len(sources))
	for i := range sources {
		views = append(views, PackagingToView(&sources[i]))
	}
	return views, nil
}
