package batch

import (
	"context"

	"github.com/google/uuid"

	domain "github.com/taigaharvest/saphouse-go/internal/domain/batch"
	"github.com/taigaharvest/saphouse-go/internal/domain/shared"
)

// DraftService records field-collection days and seeds the unit ledger
// from them.
type DraftService struct {
	drafts domain.DraftRepository
	ledger domain.UnitLedger
	clock  shared.Clock
}

// NewDraftService creates a new draft service
func NewDraftService(drafts domain.DraftRepository, ledger domain.UnitLedger, clock shared.Clock) *DraftService {
	return &DraftService{drafts: drafts, ledger: ledger, clock: clock}
}

// RecordDraft stores one collection day and creates a free ledger entry
// for every container in it.
func (s *DraftService) RecordDraft(ctx context.Context, cmd RecordDraftCommand) (*DraftView, error) {
	if err := validateCommand(cmd); err != nil {
		return nil, err
	}
	line, err := domain.ParseProductLine(cmd.ProductLine)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	draft := &domain.Draft{
		ID:          uuid.NewString(),
		Line:        line,
		CollectedOn: cmd.CollectedOn,
		CreatedBy:   cmd.Actor,
		CreatedAt:   now,
	}

	units := make([]domain.RawUnit, 0, len(cmd.Units))
	for _, input := range cmd.Units {
		containerType, err := domain.ParseContainerType(input.ContainerType)
		if err != nil {
			return nil, err
		}
		if err := domain.ValidateNewRawUnit(line, containerType, input.Quantity); err != nil {
			return nil, err
		}
		draftID := draft.ID
		units = append(units, domain.RawUnit{
			ID:            uuid.NewString(),
			Line:          line,
			ContainerType: containerType,
			Quantity:      input.Quantity,
			Quality:       input.Quality,
			CollectedOn:   cmd.CollectedOn,
			DraftID:       &draftID,
			CreatedAt:     now,
		})
	}
	draft.Units = units

	if err := s.drafts.Create(ctx, draft); err != nil {
		return nil, err
	}

	view := draftToView(draft)
	return &view, nil
}

// GetDraft returns one draft with its units
func (s *DraftService) GetDraft(ctx context.Context, id string) (*DraftView, error) {
	draft, err := s.drafts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	view := draftToView(draft)
	return &view, nil
}

// ListDrafts returns drafts, optionally narrowed to one product line
func (s *DraftService) ListDrafts(ctx context.Context, line *domain.ProductLine) ([]DraftView, error) {
	drafts, err := s.drafts.List(ctx, line)
	if err != nil {
		return nil, err
	}
	views := make([]DraftView, 0, len(drafts))
	for i := range drafts {
		views = append(views, draftToView(&drafts[i]))
	}
	return views, nil
}

// DeleteUnit removes a free ledger entry. Claimed units cannot be
// deleted; release them from their batch first.
func (s *DraftService) DeleteUnit(ctx context.Context, unitID string) error {
	return s.ledger.DeleteUnit(ctx, unitID)
}

func draftToView(d *domain.Draft) DraftView {
	return DraftView{
		ID:          d.ID,
		ProductLine: string(d.Line),
		CollectedOn: d.CollectedOn.Format(dateLayout),
		CreatedBy:   d.CreatedBy,
		CreatedAt:   d.CreatedAt,
		Units:       unitsToViews(d.Units),
	}
}
