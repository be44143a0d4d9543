package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/seantiz/flysearch/internal/bridge"
	"github.com/seantiz/flysearch/internal/cache"
	"github.com/seantiz/flysearch/internal/engine"
	"github.com/seantiz/flysearch/internal/flight"
	"github.com/seantiz/flysearch/internal/model"
	"github.com/seantiz/flysearch/internal/provider"
	"github.com/seantiz/flysearch/internal/search"
	"github.com/seantiz/flysearch/internal/store"
)

// testProvider wraps a zero-latency simulator. StartSearch counts calls,
// blocks on gate when set and fails with startErr when set.
type testProvider struct {
	provider.Provider
	gate     chan struct{}
	startErr error
	starts   atomic.Int32
}

func (p *testProvider) StartSearch() (provider.StartResponse, error) {
	p.starts.Add(1)
	if p.gate != nil {
		<-p.gate
	}
	if p.startErr != nil {
		return provider.StartResponse{}, p.startErr
	}
	return p.Provider.StartSearch()
}

func newTestProvider(t *testing.T, failureRate float64) *testProvider {
	t.Helper()
	sim, err := provider.NewSimulator(provider.SimulatorConfig{FailureRate: failureRate})
	if err != nil {
		t.Fatalf("NewSimulator: %v", err)
	}
	return &testProvider{Provider: sim}
}

type testEnv struct {
	srv      *Server
	ts       *httptest.Server
	provider *testProvider
	store    *store.SQLiteStore
}

func newTestEnv(t *testing.T, p *testProvider) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	st, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}

	br := bridge.New(p, bridge.Config{MaxWorkers: 4, Timeout: 5 * time.Second, JoinTimeout: time.Second}, logger)
	responses := cache.New[string, *flight.Response]("api_test_responses", time.Minute, 10)
	svc := search.NewService(br, responses, st, logger)
	tasks := cache.New[string, model.Task]("api_test_tasks", time.Hour, 100)
	eng := engine.NewEngine(svc, tasks, logger)

	srv := NewServer(":0", svc, eng, st, logger)
	ts := httptest.NewServer(srv.Router())

	t.Cleanup(func() {
		ts.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		eng.Shutdown(ctx)
		br.Close()
		st.Close()
	})

	return &testEnv{srv: srv, ts: ts, provider: p, store: st}
}

// do performs a request and decodes the JSON body into a map.
func (e *testEnv) do(t *testing.T, method, path string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, e.ts.URL+path, nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode %s %s: %v", method, path, err)
	}
	return resp, body
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, newTestProvider(t, 0))

	resp, body := env.do(t, http.MethodGet, "/health")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v, want ok", body["status"])
	}
	if n := env.provider.starts.Load(); n != 0 {
		t.Errorf("health check reached provider %d times", n)
	}
}

func TestHealthWhileSearchInFlight(t *testing.T) {
	p := newTestProvider(t, 0)
	p.gate = make(chan struct{})
	env := newTestEnv(t, p)

	done := make(chan struct{})
	go func() {
		defer close(done)
		resp, err := http.Get(env.ts.URL + "/get_flights?pid=slow")
		if err == nil {
			resp.Body.Close()
		}
	}()

	// Wait for the search to reach the provider.
	deadline := time.Now().Add(5 * time.Second)
	for p.starts.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	resp, _ := env.do(t, http.MethodGet, "/health")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d while search in flight", resp.StatusCode)
	}

	close(p.gate)
	<-done
}

func TestRequestIDHeader(t *testing.T) {
	env := newTestEnv(t, newTestProvider(t, 0))
	env.srv.Router().Get("/test", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	resp, err := http.Get(env.ts.URL + "/test")
	if err != nil {
		t.Fatalf("GET /test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestPanicRecovery(t *testing.T) {
	env := newTestEnv(t, newTestProvider(t, 0))
	env.srv.Router().Get("/panic", func(w http.ResponseWriter, r *http.Request) {
		panic("test panic")
	})

	resp, err := http.Get(env.ts.URL + "/panic")
	if err != nil {
		t.Fatalf("GET /panic: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
}

func TestCORSHeaders(t *testing.T) {
	env := newTestEnv(t, newTestProvider(t, 0))

	req, _ := http.NewRequest("OPTIONS", env.ts.URL+"/get_flights", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("OPTIONS /get_flights: %v", err)
	}
	defer resp.Body.Close()

	if v := resp.Header.Get("Access-Control-Allow-Origin"); v != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want %q", v, "*")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, newTestProvider(t, 0))
	env.do(t, http.MethodGet, "/health")

	resp, err := http.Get(env.ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	body := string(raw)

	for _, name := range []string{
		"flysearch_http_requests_total",
		"flysearch_bridge_results_total",
		"flysearch_cache_events_total",
	} {
		if !strings.Contains(body, name) {
			t.Errorf("metrics output missing %s", name)
		}
	}
}
