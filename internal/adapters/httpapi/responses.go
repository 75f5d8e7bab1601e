package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/taigaharvest/saphouse-go/internal/domain/shared"
)

// errorBody is the JSON error envelope
type errorBody struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Field   string   `json:"field,omitempty"`
	UnitIDs []string `json:"unitIds,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("response encode failed: %v", err)
	}
}

// writeError maps domain errors onto the HTTP surface. Validation,
// conflict and invalid-transition failures are client errors (400); a
// missing batch is 404. A claim naming unknown unit ids is a 400 with
// the unresolved ids, because the request body, not the URL, was wrong.
func writeError(w http.ResponseWriter, err error) {
	var validationErr *shared.ValidationError
	if errors.As(err, &validationErr) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: errorBody{
			Code:    "validation_failed",
			Message: validationErr.Message,
			Field:   validationErr.Field,
		}})
		return
	}

	var transitionErr *shared.InvalidTransitionError
	if errors.As(err, &transitionErr) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: errorBody{
			Code:    "invalid_transition",
			Message: transitionErr.Error(),
		}})
		return
	}

	var conflictErr *shared.ConflictError
	if errors.As(err, &conflictErr) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: errorBody{
			Code:    "conflict",
			Message: conflictErr.Error(),
			UnitIDs: conflictErr.UnitIDs,
		}})
		return
	}

	var notFoundErr *shared.NotFoundError
	if errors.As(err, &notFoundErr) {
		if len(notFoundErr.UnitIDs) > 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: errorBody{
				Code:    "units_not_found",
				Message: notFoundErr.Error(),
				UnitIDs: notFoundErr.UnitIDs,
			}})
			return
		}
		writeJSON(w, http.StatusNotFound, errorResponse{Error: errorBody{
			Code:    "not_found",
			Message: notFoundErr.Error(),
		}})
		return
	}

	log.Printf("unexpected error: %v", err)
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: errorBody{
		Code:    "internal",
		Message: "internal server error",
	}})
}

// decodeJSON reads a request body into dst, rejecting unknown fields
func decodeJSON(r *http.Request, dst interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return shared.NewValidationError("", "malformed request body: "+err.Error())
	}
	return nil
}
