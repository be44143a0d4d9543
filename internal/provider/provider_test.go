package provider_test

import (
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seantiz/flysearch/internal/provider"
)

func newFastSimulator(t *testing.T, cfg provider.SimulatorConfig) *provider.Simulator {
	t.Helper()
	sim, err := provider.NewSimulator(cfg)
	require.NoError(t, err)
	return sim
}

// drain reads every chunk of a search.
func drain(t *testing.T, p provider.Provider, searchID string) []json.RawMessage {
	t.Helper()
	var chunks []json.RawMessage
	for range 100 {
		raw, err := p.GetChunk(searchID)
		if errors.Is(err, io.EOF) {
			return chunks
		}
		require.NoError(t, err)
		chunks = append(chunks, raw)
	}
	t.Fatal("search did not finish within 100 chunks")
	return nil
}

func TestSimulatorServesFixture(t *testing.T) {
	sim := newFastSimulator(t, provider.SimulatorConfig{})

	start, err := sim.StartSearch()
	require.NoError(t, err)
	require.True(t, start.Success)
	require.Len(t, start.SearchID, 32)

	chunks := drain(t, sim, start.SearchID)
	require.Len(t, chunks, 2)

	for _, raw := range chunks {
		c, err := provider.DecodeChunk(raw)
		require.NoError(t, err)
		assert.NotEmpty(t, c.Tickets)
	}

	_, err = sim.GetChunk(start.SearchID)
	assert.ErrorIs(t, err, provider.ErrSearchNotFound, "finished searches are forgotten")
}

func TestSimulatorRejectsSearch(t *testing.T) {
	sim := newFastSimulator(t, provider.SimulatorConfig{FailureRate: 1})

	start, err := sim.StartSearch()
	require.NoError(t, err)
	assert.False(t, start.Success)
	assert.Empty(t, start.SearchID)
	assert.NotEmpty(t, start.ErrorMessage)
}

func TestSimulatorUnknownSearch(t *testing.T) {
	sim := newFastSimulator(t, provider.SimulatorConfig{})

	_, err := sim.GetChunk("does-not-exist")
	assert.ErrorIs(t, err, provider.ErrSearchNotFound)
}

func TestSimulatorEmptyChunks(t *testing.T) {
	sim := newFastSimulator(t, provider.SimulatorConfig{
		EmptyChunkRate: 1,
		Chunks:         []json.RawMessage{json.RawMessage(`{"tickets":[]}`)},
	})

	start, err := sim.StartSearch()
	require.NoError(t, err)

	for range 3 {
		raw, err := sim.GetChunk(start.SearchID)
		require.NoError(t, err)
		_, err = provider.DecodeChunk(raw)
		assert.ErrorIs(t, err, provider.ErrEmptyChunk)
	}
}

func TestSimulatorIndependentSearches(t *testing.T) {
	sim := newFastSimulator(t, provider.SimulatorConfig{})

	var wg sync.WaitGroup
	counts := make([]int, 8)
	for i := range counts {
		wg.Go(func() {
			start, err := sim.StartSearch()
			if err != nil || !start.Success {
				return
			}
			for {
				_, err := sim.GetChunk(start.SearchID)
				if err != nil {
					return
				}
				counts[i]++
			}
		})
	}
	wg.Wait()

	for i, n := range counts {
		assert.Equal(t, 2, n, "search %d", i)
	}
}

func TestDecodeChunk(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr error
		invalid bool
	}{
		{name: "null", raw: `null`, wantErr: provider.ErrEmptyChunk},
		{name: "blank", raw: ` `, wantErr: provider.ErrEmptyChunk},
		{name: "empty object", raw: `{}`, wantErr: provider.ErrEmptyChunk},
		{name: "unrelated keys", raw: `{"meta":{"x":1}}`, wantErr: provider.ErrEmptyChunk},
		{name: "not json", raw: `{"tickets":`, invalid: true},
		{name: "wrong type", raw: `{"tickets":"nope"}`, invalid: true},
		{name: "leg without origin", raw: `{"flight_legs":[{"destination":"LED"}]}`, invalid: true},
		{name: "negative price", raw: `{"tickets":[{"proposals":[{"agent_id":1,"price":{"value":-5}}]}]}`, invalid: true},
		{name: "missing agent", raw: `{"tickets":[{"proposals":[{"price":{"value":5}}]}]}`, invalid: true},
		{name: "valid", raw: `{"tickets":[{"id":"t","proposals":[{"agent_id":"7","price":{"value":5}}]}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := provider.DecodeChunk(json.RawMessage(tt.raw))
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.invalid:
				require.Error(t, err)
				assert.NotErrorIs(t, err, provider.ErrEmptyChunk)
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func TestLocalTimeFormats(t *testing.T) {
	var leg provider.FlightLeg
	err := json.Unmarshal([]byte(`{
		"origin": "MOW",
		"destination": "LED",
		"local_departure_date_time": "2025-12-17 15:30",
		"local_arrival_date_time": 1765999560
	}`), &leg)
	require.NoError(t, err)

	assert.Equal(t, provider.LocalTime("2025-12-17T15:30"), leg.LocalDepartureDateTime)
	assert.Equal(t, provider.LocalTime("2025-12-17T19:26:00Z"), leg.LocalArrivalDateTime)
}
