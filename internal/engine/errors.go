package engine

import (
	"context"
	"errors"

	"github.com/seantiz/flysearch/internal/bridge"
	"github.com/seantiz/flysearch/internal/model"
)

var (
	// ErrTaskNotFound is returned for unknown or expired task identifiers.
	ErrTaskNotFound = errors.New("task not found")

	// ErrShuttingDown is returned by StartTask once Shutdown has begun.
	ErrShuttingDown = errors.New("engine is shutting down")
)

// Classify maps a search error to the structured detail recorded on failed
// tasks and returned in error responses.
func Classify(err error) model.ErrorDetail {
	detail := model.ErrorDetail{Type: model.ErrorTypeInternal, Message: err.Error()}

	switch {
	case errors.Is(err, bridge.ErrProviderFailure):
		detail.Type = model.ErrorTypeProviderFailure
	case errors.Is(err, bridge.ErrTimeout):
		detail.Type = model.ErrorTypeBridgeTimeout
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		detail.Type = model.ErrorTypeCanceled
	}
	return detail
}
