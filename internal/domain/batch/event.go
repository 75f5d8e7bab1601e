package batch

import "time"

// EventAction names the engine operations recorded in the audit trail
type EventAction string

const (
	EventCreated       EventAction = "created"
	EventUnitsAssigned EventAction = "units_assigned"
	EventMeasured      EventAction = "measured"
	EventSubmitted     EventAction = "submitted"
	EventReopened      EventAction = "reopened"
	EventCancelled     EventAction = "cancelled"
	EventDerived       EventAction = "derived"
	EventCascadeDelete EventAction = "cascade_deleted"
	EventDeleted       EventAction = "deleted"
)

// Event is one append-only audit record. Downstream batches are hard
// deleted on reopen, so the event trail is what preserves their history.
type Event struct {
	ID        int64
	BatchID   string
	Stage     Stage
	Action    EventAction
	Actor     string
	Detail    string
	CreatedAt time.Time
}
