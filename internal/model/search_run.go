package model

import "time"

// Search modes recorded in the journal.
const (
	ModeSync  = "sync"
	ModeAsync = "async"
)

// SearchRun is one finished provider search as recorded in the journal.
type SearchRun struct {
	ID            string    `json:"id"`
	CorrelationID string    `json:"pid"`
	TaskID        string    `json:"task_id,omitempty"`
	Mode          string    `json:"mode"`
	Status        string    `json:"status"`
	Success       bool      `json:"success"`
	OfferCount    int       `json:"offer_count"`
	Error         string    `json:"error,omitempty"`
	DurationMS    int       `json:"duration_ms"`
	CreatedAt     time.Time `json:"created_at"`
}
