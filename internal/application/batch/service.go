// Package batch implements the batch lifecycle and exclusive resource
// assignment engine: unit claiming, stage transitions, downstream
// derivation and cascade deletion.
package batch

import (
	"context"
	"encoding/json"
	"log"

	"github.com/go-playground/validator/v10"

	"github.com/taigaharvest/saphouse-go/internal/adapters/metrics"
	domain "github.com/taigaharvest/saphouse-go/internal/domain/batch"
	"github.com/taigaharvest/saphouse-go/internal/domain/shared"
)

var validate = validator.New()

// validateCommand applies struct-tag validation before any transaction opens
func validateCommand(cmd interface{}) error {
	if err := validate.Struct(cmd); err != nil {
		return shared.NewValidationError("", err.Error())
	}
	return nil
}

// recordEvent appends an audit record. The engine operation has already
// committed; a failed audit write is logged, not propagated.
func recordEvent(ctx context.Context, events domain.EventLog, clock shared.Clock, batchID string, stage domain.Stage, action domain.EventAction, actor string, detail interface{}) {
	e := &domain.Event{
		BatchID:   batchID,
		Stage:     stage,
		Action:    action,
		Actor:     actor,
		CreatedAt: clock.Now(),
	}
	if detail != nil {
		if payload, err := json.Marshal(detail); err == nil {
			e.Detail = string(payload)
		}
	}
	if err := events.Append(ctx, e); err != nil {
		log.Printf("batch event append failed for %s/%s: %v", stage, batchID, err)
	}
}

// recordTransition feeds the metrics collector with the outcome of one
// state machine action.
func recordTransition(stage domain.Stage, action string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "rejected"
	}
	metrics.RecordTransition(string(stage), action, outcome)
}
