package bridge

import (
	"errors"
	"fmt"
)

// Provider interaction steps reported in ProviderError.
const (
	StepStartSearch = "start_search"
	StepGetChunk    = "get_chunk"
)

var (
	// ErrProviderFailure matches every *ProviderError via errors.Is.
	ErrProviderFailure = errors.New("provider failure")

	// ErrTimeout is returned when no result arrives within the bridge's
	// hard ceiling.
	ErrTimeout = errors.New("bridge timeout")
)

// ProviderError is a failure raised by the provider during one step of a search.
type ProviderError struct {
	Step string
	Err  error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider failure during %s: %v", e.Step, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrProviderFailure) true for any ProviderError.
func (e *ProviderError) Is(target error) bool {
	return target == ErrProviderFailure
}
