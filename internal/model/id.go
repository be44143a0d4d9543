package model

import (
	"strings"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// NewID generates a new ULID string for use as a task identifier.
func NewID() string {
	return ulid.Make().String()
}

// NewCorrelationID generates a correlation id (pid) for requests that did not
// supply one: a random UUID in its 32-character hex form.
func NewCorrelationID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
