package api

import (
	"net/http"
	"testing"
	"time"
)

func TestStatsAndSearchesReflectJournal(t *testing.T) {
	env := newTestEnv(t, newTestProvider(t, 0))

	env.do(t, http.MethodGet, "/get_flights?pid=a")
	env.do(t, http.MethodGet, "/get_flights?pid=a") // cache hit, not journaled
	id := startSearch(t, env, "b")
	waitForResult(t, env, id, 5*time.Second)

	// The async run is journaled before the task record turns terminal.
	resp, stats := env.do(t, http.MethodGet, "/stats")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if stats["total"] != float64(2) {
		t.Errorf("total = %v, want 2", stats["total"])
	}
	byMode, _ := stats["by_mode"].(map[string]any)
	if byMode["sync"] != float64(1) || byMode["async"] != float64(1) {
		t.Errorf("by_mode = %v, want 1 sync and 1 async", byMode)
	}

	resp, list := env.do(t, http.MethodGet, "/searches?limit=1")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if list["total"] != float64(2) {
		t.Errorf("total = %v, want 2", list["total"])
	}
	if list["limit"] != float64(1) {
		t.Errorf("limit = %v, want 1", list["limit"])
	}
	searches, _ := list["searches"].([]any)
	if len(searches) != 1 {
		t.Errorf("len(searches) = %d, want 1", len(searches))
	}
}

func TestSearchesEmpty(t *testing.T) {
	env := newTestEnv(t, newTestProvider(t, 0))

	_, list := env.do(t, http.MethodGet, "/searches?limit=500&offset=-3")
	if list["limit"] != float64(defaultListLimit) {
		t.Errorf("limit = %v, want clamped to %d", list["limit"], defaultListLimit)
	}
	if list["offset"] != float64(0) {
		t.Errorf("offset = %v, want 0", list["offset"])
	}
	searches, ok := list["searches"].([]any)
	if !ok || len(searches) != 0 {
		t.Errorf("searches = %v, want empty list", list["searches"])
	}
}
