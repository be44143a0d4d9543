package model

import (
	"time"

	"github.com/seantiz/flysearch/internal/flight"
)

// Task status constants.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Error detail types recorded on failed tasks and returned in error bodies.
const (
	ErrorTypeProviderFailure = "provider_failure"
	ErrorTypeBridgeTimeout   = "bridge_timeout"
	ErrorTypeCanceled        = "canceled"
	ErrorTypeInternal        = "internal"
)

// validTransitions maps each status to the set of statuses it may transition to.
// Completed and failed are terminal and have no entry.
var validTransitions = map[string]map[string]bool{
	StatusPending: {
		StatusProcessing: true,
		StatusFailed:     true,
	},
	StatusProcessing: {
		StatusCompleted: true,
		StatusFailed:    true,
	},
}

// ValidTransition reports whether transitioning from one status to another is allowed.
func ValidTransition(from, to string) bool {
	targets, ok := validTransitions[from]
	if !ok {
		return false
	}
	return targets[to]
}

// IsTerminal reports whether status admits no further transitions.
func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusFailed
}

// ErrorDetail is the structured failure attached to a failed task.
type ErrorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Task is the record of one background search.
type Task struct {
	ID            string           `json:"task_id"`
	CorrelationID string           `json:"pid"`
	Status        string           `json:"status"`
	Result        *flight.Response `json:"result,omitempty"`
	Error         *ErrorDetail     `json:"error,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	FinishedAt    *time.Time       `json:"finished_at,omitempty"`
}
