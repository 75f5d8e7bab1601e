package httpapi

import (
	"net/http"
	"time"

	appbatch "github.com/taigaharvest/saphouse-go/internal/application/batch"
	domain "github.com/taigaharvest/saphouse-go/internal/domain/batch"
	"github.com/taigaharvest/saphouse-go/internal/domain/shared"
)

const dateLayout = "2006-01-02"

// actorFrom identifies the caller for the audit trail. Empty is allowed;
// authentication is handled in front of this service.
func actorFrom(r *http.Request) string {
	return r.Header.Get("X-Actor")
}

// lineFilter parses the optional productLine query parameter
func lineFilter(r *http.Request) (*domain.ProductLine, error) {
	value := r.URL.Query().Get("productLine")
	if value == "" {
		return nil, nil
	}
	line, err := domain.ParseProductLine(value)
	if err != nil {
		return nil, err
	}
	return &line, nil
}

func parseDate(field, value string) (*time.Time, error) {
	parsed, err := time.Parse(dateLayout, value)
	if err != nil {
		return nil, shared.NewValidationError(field, "must be a date in YYYY-MM-DD form")
	}
	return &parsed, nil
}

type createProcessingRequest struct {
	ProductLine   string  `json:"productLine"`
	ScheduledDate *string `json:"scheduledDate"`
}

type measurementsPayload struct {
	CollectedLiters *float64 `json:"collectedLiters"`
	FilteredLiters  *float64 `json:"filteredLiters"`
	Brix            *float64 `json:"brix"`
	WetKilograms    *float64 `json:"wetKilograms"`
	DryKilograms    *float64 `json:"dryKilograms"`
}

type updateProcessingRequest struct {
	ScheduledDate *string              `json:"scheduledDate"`
	Measurements  *measurementsPayload `json:"measurements"`
}

type setUnitsRequest struct {
	UnitIDs []string `json:"unitIds"`
}

// reopenResponse reports the rolled-back batch and the downstream
// batches the reopen removed.
type reopenResponse struct {
	Batch                interface{} `json:"batch"`
	DeletedDownstreamIDs []string    `json:"deletedDownstreamIds"`
}

func newReopenResponse(batch interface{}, result *appbatch.ReopenResult) reopenResponse {
	ids := result.DeletedDownstreamIDs
	if ids == nil {
		ids = []string{}
	}
	return reopenResponse{Batch: batch, DeletedDownstreamIDs: ids}
}

func (s *Server) handleCreateProcessing(w http.ResponseWriter, r *http.Request) {
	var req createProcessingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	cmd := appbatch.CreateProcessingBatchCommand{
		ProductLine: req.ProductLine,
		Actor:       actorFrom(r),
	}
	if req.ScheduledDate != nil {
		date, err := parseDate("scheduledDate", *req.ScheduledDate)
		if err != nil {
			writeError(w, err)
			return
		}
		cmd.ScheduledDate = date
	}

	view, err := s.services.Lifecycle.CreateProcessing(r.Context(), cmd)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) handleListProcessing(w http.ResponseWriter, r *http.Request) {
	line, err := lineFilter(r)
	if err != nil {
		writeError(w, err)
		return
	}
	views, err := s.services.Queries.ListProcessing(r.Context(), line)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetProcessing(w http.ResponseWriter, r *http.Request) {
	view, err := s.services.Queries.GetProcessing(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleUpdateProcessing(w http.ResponseWriter, r *http.Request) {
	var req updateProcessingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	cmd := appbatch.UpdateProcessingBatchCommand{
		BatchID: r.PathValue("id"),
		Actor:   actorFrom(r),
	}
	if req.ScheduledDate != nil {
		date, err := parseDate("scheduledDate", *req.ScheduledDate)
		if err != nil {
			writeError(w, err)
			return
		}
		cmd.ScheduledDate = date
	}
	if req.Measurements != nil {
		cmd.Measurements = &appbatch.MeasurementsPatch{
			CollectedLiters: req.Measurements.CollectedLiters,
			FilteredLiters:  req.Measurements.FilteredLiters,
			Brix:            req.Measurements.Brix,
			WetKilograms:    req.Measurements.WetKilograms,
			DryKilograms:    req.Measurements.DryKilograms,
		}
	}

	view, err := s.services.Lifecycle.UpdateProcessing(r.Context(), cmd)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleDeleteProcessing(w http.ResponseWriter, r *http.Request) {
	if err := s.services.Lifecycle.DeleteProcessing(r.Context(), r.PathValue("id"), actorFrom(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetUnits(w http.ResponseWriter, r *http.Request) {
	var req setUnitsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	view, err := s.services.Assignment.SetBatchUnits(r.Context(), appbatch.SetUnitsCommand{
		BatchID: r.PathValue("id"),
		UnitIDs: req.UnitIDs,
		Actor:   actorFrom(r),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleSubmitProcessing(w http.ResponseWriter, r *http.Request) {
	view, err := s.services.Lifecycle.SubmitProcessing(r.Context(), r.PathValue("id"), actorFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleReopenProcessing(w http.ResponseWriter, r *http.Request) {
	view, result, err := s.services.Lifecycle.ReopenProcessing(r.Context(), r.PathValue("id"), actorFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newReopenResponse(view, result))
}

func (s *Server) handleCancelProcessing(w http.ResponseWriter, r *http.Request) {
	view, err := s.services.Lifecycle.CancelProcessing(r.Context(), r.PathValue("id"), actorFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	views, err := s.services.Queries.ListEvents(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}
