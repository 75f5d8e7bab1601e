package httpapi

import (
	"net/http"

	appbatch "github.com/taigaharvest/saphouse-go/internal/application/batch"
)

type materialPayload struct {
	Quantity int     `json:"quantity"`
	UnitCost float64 `json:"unitCost"`
}

func usageInput(p *materialPayload) *appbatch.MaterialUsageInput {
	if p == nil {
		return nil
	}
	return &appbatch.MaterialUsageInput{Quantity: p.Quantity, UnitCost: p.UnitCost}
}

type derivePackagingRequest struct {
	SourceBatchID string           `json:"sourceBatchId"`
	Bottles       *materialPayload `json:"bottles"`
	Lids          *materialPayload `json:"lids"`
	Alufoil       *materialPayload `json:"alufoil"`
	VacuumBags    *materialPayload `json:"vacuumBags"`
	Parchment     *materialPayload `json:"parchment"`
}

type updatePackagingRequest struct {
	Bottles          *materialPayload `json:"bottles"`
	Lids             *materialPayload `json:"lids"`
	Alufoil          *materialPayload `json:"alufoil"`
	VacuumBags       *materialPayload `json:"vacuumBags"`
	Parchment        *materialPayload `json:"parchment"`
	FinishedQuantity *int             `json:"finishedQuantity"`
}

type deriveLabelingRequest struct {
	SourceBatchID string           `json:"sourceBatchId"`
	Stickers      *materialPayload `json:"stickers"`
	Cartons       *materialPayload `json:"cartons"`
	ShrinkSleeves *materialPayload `json:"shrinkSleeves"`
	NeckTags      *materialPayload `json:"neckTags"`
}

type updateLabelingRequest struct {
	Stickers         *materialPayload `json:"stickers"`
	Cartons          *materialPayload `json:"cartons"`
	ShrinkSleeves    *materialPayload `json:"shrinkSleeves"`
	NeckTags         *materialPayload `json:"neckTags"`
	FinishedQuantity *int             `json:"finishedQuantity"`
}

func (s *Server) handleDerivePackaging(w http.ResponseWriter, r *http.Request) {
	var req derivePackagingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	view, err := s.services.Linker.DerivePackaging(r.Context(), appbatch.DerivePackagingCommand{
		SourceBatchID: req.SourceBatchID,
		Bottles:       usageInput(req.Bottles),
		Lids:          usageInput(req.Lids),
		Alufoil:       usageInput(req.Alufoil),
		VacuumBags:    usageInput(req.VacuumBags),
		Parchment:     usageInput(req.Parchment),
		Actor:         actorFrom(r),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) handleListPackaging(w http.ResponseWriter, r *http.Request) {
	line, err := lineFilter(r)
	if err != nil {
		writeError(w, err)
		return
	}
	views, err := s.services.Queries.ListPackaging(r.Context(), line)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handlePackagingSources(w http.ResponseWriter, r *http.Request) {
	line, err := lineFilter(r)
	if err != nil {
		writeError(w, err)
		return
	}
	views, err := s.services.Linker.ListPackagingSources(r.Context(), line)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetPackaging(w http.ResponseWriter, r *http.Request) {
	view, err := s.services.Queries.GetPackaging(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleUpdatePackaging(w http.ResponseWriter, r *http.Request) {
	var req updatePackagingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	view, err := s.services.Linker.UpdatePackaging(r.Context(), appbatch.UpdatePackagingBatchCommand{
		BatchID:          r.PathValue("id"),
		Bottles:          usageInput(req.Bottles),
		Lids:             usageInput(req.Lids),
		Alufoil:          usageInput(req.Alufoil),
		VacuumBags:       usageInput(req.VacuumBags),
		Parchment:        usageInput(req.Parchment),
		FinishedQuantity: req.FinishedQuantity,
		Actor:            actorFrom(r),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleDeletePackaging(w http.ResponseWriter, r *http.Request) {
	if err := s.services.Lifecycle.DeletePackaging(r.Context(), r.PathValue("id"), actorFrom(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSubmitPackaging(w http.ResponseWriter, r *http.Request) {
	view, err := s.services.Lifecycle.SubmitPackaging(r.Context(), r.PathValue("id"), actorFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleReopenPackaging(w http.ResponseWriter, r *http.Request) {
	view, result, err := s.services.Lifecycle.ReopenPackaging(r.Context(), r.PathValue("id"), actorFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newReopenResponse(view, result))
}

func (s *Server) handleCancelPackaging(w http.ResponseWriter, r *http.Request) {
	view, err := s.services.Lifecycle.CancelPackaging(r.Context(), r.PathValue("id"), actorFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleDeriveLabeling(w http.ResponseWriter, r *http.Request) {
	var req deriveLabelingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	view, err := s.services.Linker.DeriveLabeling(r.Context(), appbatch.DeriveLabelingCommand{
		SourceBatchID: req.SourceBatchID,
		Stickers:      usageInput(req.Stickers),
		Cartons:       usageInput(req.Cartons),
		ShrinkSleeves: usageInput(req.ShrinkSleeves),
		NeckTags:      usageInput(req.NeckTags),
		Actor:         actorFrom(r),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) handleListLabeling(w http.ResponseWriter, r *http.Request) {
	line, err := lineFilter(r)
	if err != nil {
		writeError(w, err)
		return
	}
	views, err := s.services.Queries.ListLabeling(r.Context(), line)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleLabelingSources(w http.ResponseWriter, r *http.Request) {
	line, err := lineFilter(r)
	if err != nil {
		writeError(w, err)
		return
	}
	views, err := s.services.Linker.ListLabelingSources(r.Context(), line)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetLabeling(w http.ResponseWriter, r *http.Request) {
	view, err := s.services.Queries.GetLabeling(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleUpdateLabeling(w http.ResponseWriter, r *http.Request) {
	var req updateLabelingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	view, err := s.services.Linker.UpdateLabeling(r.Context(), appbatch.UpdateLabelingBatchCommand{
		BatchID:          r.PathValue("id"),
		Stickers:         usageInput(req.Stickers),
		Cartons:          usageInput(req.Cartons),
		ShrinkSleeves:    usageInput(req.ShrinkSleeves),
		NeckTags:         usageInput(req.NeckTags),
		FinishedQuantity: req.FinishedQuantity,
		Actor:            actorFrom(r),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleDeleteLabeling(w http.ResponseWriter, r *http.Request) {
	if err := s.services.Lifecycle.DeleteLabeling(r.Context(), r.PathValue("id"), actorFrom(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSubmitLabeling(w http.ResponseWriter, r *http.Request) {
	view, err := s.services.Lifecycle.SubmitLabeling(r.Context(), r.PathValue("id"), actorFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleReopenLabeling(w http.ResponseWriter, r *http.Request) {
	view, result, err := s.services.Lifecycle.ReopenLabeling(r.Context(), r.PathValue("id"), actorFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newReopenResponse(view, result))
}

func (s *Server) handleCancelLabeling(w http.ResponseWriter, r *http.Request) {
	view, err := s.services.Lifecycle.CancelLabeling(r.Context(), r.PathValue("id"), actorFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
