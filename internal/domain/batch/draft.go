package batch

import "time"

// Draft groups the raw units collected on one calendar day for one
// product line. Drafts are the origin of ledger entries; they take no
// part in the batch lifecycle itself.
type Draft struct {
	ID          string
	Line        ProductLine
	CollectedOn time.Time
	CreatedBy   string
	CreatedAt   time.Time

	Units []RawUnit
}
