package batch

import (
	"context"

	domain "github.com/taigaharvest/saphouse-go/internal/domain/batch"
)

// QueryService serves the read side: batch listings, single-batch
// lookups and the audit trail.
type QueryService struct {
	processing domain.ProcessingRepository
	packaging  domain.PackagingRepository
	labeling   domain.LabelingRepository
	events     domain.EventLog
}

// NewQueryService creates a new query service
func NewQueryService(
	processing domain.ProcessingRepository,
	packaging domain.PackagingRepository,
	labeling domain.LabelingRepository,
	events domain.EventLog,
) *QueryService {
	return &QueryService{
		processing: processing,
		packaging:  packaging,
		labeling:   labeling,
		events:     events,
	}
}

// GetProcessing returns one processing batch with its claimed units
func (s *QueryService) GetProcessing(ctx context.Context, id string) (*ProcessingBatchView, error) {
	b, err := s.processing.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	view := ProcessingToView(b)
	return &view, nil
}

// ListProcessing returns processing batches, optionally for one line
func (s *QueryService) ListProcessing(ctx context.Context, line *domain.ProductLine) ([]ProcessingBatchView, error) {
	batches, err := s.processing.List(ctx, line)
	if err != nil {
		return nil, err
	}
	views := make([]ProcessingBatchView, 0, len(batches))
	for i := range batches {
		views = append(views, ProcessingToView(&batches[i]))
	}
	return views, nil
}

// GetPackaging returns one packaging batch
func (s *QueryService) GetPackaging(ctx context.Context, id string) (*DerivedBatchView, error) {
	b, err := s.packaging.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	view := PackagingToView(b)
	return &view, nil
}

// ListPackaging returns packaging batches, optionally for one line
func (s *QueryService) ListPackaging(ctx context.Context, line *domain.ProductLine) ([]DerivedBatchView, error) {
	batches, err := s.packaging.List(ctx, line)
	if err != nil {
		return nil, err
	}
	views := make([]DerivedBatchView, 0, len(batches))
	for i := range batches {
		views = append(views, PackagingToView(&batches[i]))
	}
	return views, nil
}

// GetLabeling returns one labeling batch
func (s *QueryService) GetLabeling(ctx context.Context, id string) (*DerivedBatchView, error) {
	b, err := s.labeling.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	view := LabelingToView(b)
	return &view, nil
}

// ListLabeling returns labeling batches, optionally for one line
func (s *QueryService) ListLabeling(ctx context.Context, line *domain.ProductLine) ([]DerivedBatchView, error) {
	batches, err := s.labeling.List(ctx, line)
	if err != nil {
		return nil, err
	}
	views := make([]DerivedBatchView, 0, len(batches))
	for i := range batches {
		views = append(views, LabelingToView(&batches[i]))
	}
	return views, nil
}

// ListEvents returns the audit trail for one batch, oldest first
func (s *QueryService) ListEvents(ctx context.Context, batchID string) ([]EventView, error) {
	events, err := s.events.ListForBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	views := make([]EventView, 0, len(events))
	for _, e := range events {
		views = append(views, EventView{
			ID:        e.ID,
			BatchID:   e.BatchID,
			Stage:     string(e.Stage),
			Action:    string(e.Action),
			Actor:     e.Actor,
			Detail:    e.Detail,
			CreatedAt: e.CreatedAt,
		})
	}
	return views, nil
}
