package provider

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

//go:embed fixtures/chunks.json
var fixtureChunks []byte

// Simulator defaults mirror the real provider's latency profile.
const (
	DefaultStartDelay     = 8 * time.Second
	DefaultChunkDelay     = 15 * time.Second
	DefaultFailureRate    = 0.5
	DefaultEmptyChunkRate = 0.5
)

// rejectionMessage is the error message of a rejected search.
const rejectionMessage = "some_error"

// SimulatorConfig controls the simulator's behaviour.
type SimulatorConfig struct {
	StartDelay     time.Duration
	ChunkDelay     time.Duration
	FailureRate    float64
	EmptyChunkRate float64

	// Chunks replaces the embedded fixture when non-nil.
	Chunks []json.RawMessage
}

// DefaultSimulatorConfig returns the production latency profile.
func DefaultSimulatorConfig() SimulatorConfig {
	return SimulatorConfig{
		StartDelay:     DefaultStartDelay,
		ChunkDelay:     DefaultChunkDelay,
		FailureRate:    DefaultFailureRate,
		EmptyChunkRate: DefaultEmptyChunkRate,
	}
}

// Compile-time interface satisfaction check.
var _ Provider = (*Simulator)(nil)

// Simulator is an in-process Provider that blocks with time.Sleep, randomly
// rejects searches and randomly yields empty chunks. It is safe for
// concurrent use; each search keeps its own cursor over the chunk list.
type Simulator struct {
	cfg    SimulatorConfig
	chunks []json.RawMessage

	mu      sync.Mutex
	cursors map[string]int
}

// NewSimulator creates a simulator serving cfg.Chunks, or the embedded
// fixture when cfg.Chunks is nil.
func NewSimulator(cfg SimulatorConfig) (*Simulator, error) {
	chunks := cfg.Chunks
	if chunks == nil {
		if err := json.Unmarshal(fixtureChunks, &chunks); err != nil {
			return nil, fmt.Errorf("load fixture chunks: %w", err)
		}
	}

	return &Simulator{
		cfg:     cfg,
		chunks:  chunks,
		cursors: make(map[string]int),
	}, nil
}

// StartSearch sleeps for the configured start delay and then either accepts
// the search or rejects it with probability FailureRate.
func (s *Simulator) StartSearch() (StartResponse, error) {
	time.Sleep(s.cfg.StartDelay)

	if roll(s.cfg.FailureRate) {
		return StartResponse{Success: false, ErrorMessage: rejectionMessage}, nil
	}

	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	s.mu.Lock()
	s.cursors[id] = 0
	s.mu.Unlock()

	return StartResponse{Success: true, SearchID: id}, nil
}

// GetChunk sleeps for the configured chunk delay and returns either the next
// fixture chunk or, with probability EmptyChunkRate, an empty one.
func (s *Simulator) GetChunk(searchID string) (json.RawMessage, error) {
	s.mu.Lock()
	idx, ok := s.cursors[searchID]
	if !ok {
		s.mu.Unlock()
		return nil, ErrSearchNotFound
	}
	if idx >= len(s.chunks) {
		delete(s.cursors, searchID)
		s.mu.Unlock()
		return nil, io.EOF
	}
	s.mu.Unlock()

	time.Sleep(s.cfg.ChunkDelay)

	if roll(s.cfg.EmptyChunkRate) {
		return json.RawMessage(`{}`), nil
	}

	s.mu.Lock()
	s.cursors[searchID] = idx + 1
	s.mu.Unlock()
	return s.chunks[idx], nil
}

// roll returns true with probability p.
func roll(p float64) bool {
	switch {
	case p <= 0:
		return false
	case p >= 1:
		return true
	default:
		return rand.Float64() < p
	}
}
