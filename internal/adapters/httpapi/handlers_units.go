package httpapi

import (
	"net/http"

	appbatch "github.com/taigaharvest/saphouse-go/internal/application/batch"
	domain "github.com/taigaharvest/saphouse-go/internal/domain/batch"
	"github.com/taigaharvest/saphouse-go/internal/domain/shared"
)

type draftUnitPayload struct {
	ContainerType string   `json:"containerType"`
	Quantity      float64  `json:"quantity"`
	Quality       *float64 `json:"quality"`
}

type recordDraftRequest struct {
	ProductLine string             `json:"productLine"`
	CollectedOn string             `json:"collectedOn"`
	Units       []draftUnitPayload `json:"units"`
}

// handleListFreeUnits returns claimable units for one product line,
// optionally narrowed to a collection date window.
func (s *Server) handleListFreeUnits(w http.ResponseWriter, r *http.Request) {
	line := r.URL.Query().Get("productLine")
	if line == "" {
		writeError(w, shared.NewValidationError("productLine", "is required"))
		return
	}

	var filter domain.UnitFilter
	if from := r.URL.Query().Get("collectedFrom"); from != "" {
		parsed, err := parseDate("collectedFrom", from)
		if err != nil {
			writeError(w, err)
			return
		}
		filter.CollectedFrom = parsed
	}
	if to := r.URL.Query().Get("collectedTo"); to != "" {
		parsed, err := parseDate("collectedTo", to)
		if err != nil {
			writeError(w, err)
			return
		}
		filter.CollectedTo = parsed
	}

	views, err := s.services.Assignment.ListFreeUnits(r.Context(), line, filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleDeleteUnit(w http.ResponseWriter, r *http.Request) {
	if err := s.services.Drafts.DeleteUnit(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRecordDraft(w http.ResponseWriter, r *http.Request) {
	var req recordDraftRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.CollectedOn == "" {
		writeError(w, shared.NewValidationError("collectedOn", "is required"))
		return
	}
	collectedOn, err := parseDate("collectedOn", req.CollectedOn)
	if err != nil {
		writeError(w, err)
		return
	}

	units := make([]appbatch.DraftUnitInput, 0, len(req.Units))
	for _, u := range req.Units {
		units = append(units, appbatch.DraftUnitInput{
			ContainerType: u.ContainerType,
			Quantity:      u.Quantity,
			Quality:       u.Quality,
		})
	}

	view, err := s.services.Drafts.RecordDraft(r.Context(), appbatch.RecordDraftCommand{
		ProductLine: req.ProductLine,
		CollectedOn: *collectedOn,
		Units:       units,
		Actor:       actorFrom(r),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) handleListDrafts(w http.ResponseWriter, r *http.Request) {
	line, err := lineFilter(r)
	if err != nil {
		writeError(w, err)
		return
	}
	views, err := s.services.Drafts.ListDrafts(r.Context(), line)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	view, err := s.services.Drafts.GetDraft(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
