package provider

import (
	"encoding/json"
	"errors"
)

// ErrSearchNotFound is returned by GetChunk for an unknown search id.
var ErrSearchNotFound = errors.New("search not found")

// Provider is the blocking, single-shot search API. Neither call can be
// cancelled: once started, each runs to completion.
type Provider interface {
	// StartSearch begins a search and reports whether the provider accepted it.
	StartSearch() (StartResponse, error)

	// GetChunk blocks until the next raw result chunk of the given search is
	// available. It returns io.EOF once the search has no more chunks.
	GetChunk(searchID string) (json.RawMessage, error)
}

// StartResponse is the provider's reply to StartSearch.
type StartResponse struct {
	Success      bool   `json:"success"`
	SearchID     string `json:"task_id"`
	ErrorMessage string `json:"error_message,omitempty"`
}
