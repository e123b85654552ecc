package idempotency

import "time"

// Status values for idempotency entries
const (
	StatusInProgress = "IN_PROGRESS"
	StatusDone       = "DONE"
	StatusFailed     = "FAILED"
)

// Record remembers the outcome of one keyed request.
type Record struct {
	Key            string
	Status         string
	ResponseBody   []byte
	ResponseStatus int
	CreatedAt      time.Time
	UpdatedAt      time.Time
	ExpiresAt      time.Time
	Note           string
}
