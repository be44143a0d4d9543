// Package search composes the response cache, the worker bridge and
// normalization into the service's two search paths: a synchronous,
// cached lookup and a single uncached execution used by background tasks.
package search

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/seantiz/flysearch/internal/bridge"
	"github.com/seantiz/flysearch/internal/cache"
	"github.com/seantiz/flysearch/internal/flight"
	"github.com/seantiz/flysearch/internal/model"
)

const journalTimeout = 5 * time.Second

// Runner executes one provider search. *bridge.Bridge satisfies it.
type Runner interface {
	Do(ctx context.Context, req bridge.Request) (bridge.Result, error)
}

// Journal records finished searches. *store.SQLiteStore satisfies it.
type Journal interface {
	RecordSearchRun(ctx context.Context, run *model.SearchRun) error
}

// Run describes one execution.
type Run struct {
	CorrelationID string
	Mode          string
	TaskID        string
}

// Service is the flight search orchestrator.
type Service struct {
	runner    Runner
	responses *cache.TTL[string, *flight.Response]
	journal   Journal
	logger    *slog.Logger
}

// NewService creates a search service. journal may be nil.
func NewService(runner Runner, responses *cache.TTL[string, *flight.Response], journal Journal, logger *slog.Logger) *Service {
	return &Service{
		runner:    runner,
		responses: responses,
		journal:   journal,
		logger:    logger,
	}
}

// CacheKey returns the response cache key for pid. Requests without a pid
// share one key.
func CacheKey(pid string) string {
	sum := md5.Sum([]byte("flights:pid=" + pid))
	return "flights:" + hex.EncodeToString(sum[:])
}

// GetFlights returns the cached response for pid or runs a search and caches
// its outcome. The second return value reports a cache hit. A search the
// provider rejected is cached like any other response; failures are not.
func (s *Service) GetFlights(ctx context.Context, pid string) (*flight.Response, bool, error) {
	key := CacheKey(pid)
	if resp, ok := s.responses.Get(key); ok {
		s.logger.Info("flights served from cache", "pid", pid, "cache_key", key)
		return resp, true, nil
	}

	resp, err := s.Execute(ctx, Run{CorrelationID: pid, Mode: model.ModeSync})
	if err != nil {
		return nil, false, err
	}

	s.responses.Set(key, resp)
	return resp, false, nil
}

// Execute runs one search through the bridge and normalizes the result. An
// empty correlation id is replaced with a generated one. The outcome is
// journaled on a best-effort basis.
func (s *Service) Execute(ctx context.Context, run Run) (*flight.Response, error) {
	if run.CorrelationID == "" {
		run.CorrelationID = model.NewCorrelationID()
	}
	logger := s.logger.With("pid", run.CorrelationID, "mode", run.Mode)
	if run.TaskID != "" {
		logger = logger.With("task_id", run.TaskID)
	}

	start := time.Now()
	res, err := s.runner.Do(ctx, bridge.Request{CorrelationID: run.CorrelationID})
	if err != nil {
		logger.Error("search failed", "error", err)
		s.record(ctx, run, start, nil, err)
		return nil, err
	}

	var resp *flight.Response
	if res.Accepted {
		resp = flight.BuildResponse(run.CorrelationID, res.Chunks)
	} else {
		logger.Warn("search rejected by provider", "message", res.Message)
		resp = &flight.Response{Pid: run.CorrelationID, Result: map[string][]flight.Offer{}}
	}

	logger.Info("search completed",
		"success", resp.Success,
		"offers", resp.OfferCount(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	s.record(ctx, run, start, resp, nil)
	return resp, nil
}

// record writes the run to the journal. Journal failures are logged only.
func (s *Service) record(ctx context.Context, run Run, start time.Time, resp *flight.Response, runErr error) {
	if s.journal == nil {
		return
	}

	entry := &model.SearchRun{
		ID:            model.NewID(),
		CorrelationID: run.CorrelationID,
		TaskID:        run.TaskID,
		Mode:          run.Mode,
		Status:        model.StatusCompleted,
		DurationMS:    int(time.Since(start).Milliseconds()),
		CreatedAt:     start.UTC(),
	}
	if runErr != nil {
		entry.Status = model.StatusFailed
		entry.Error = runErr.Error()
	} else {
		entry.Success = resp.Success
		entry.OfferCount = resp.OfferCount()
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), journalTimeout)
	defer cancel()

	if err := s.journal.RecordSearchRun(ctx, entry); err != nil {
		s.logger.Warn("failed to journal search run", "pid", run.CorrelationID, "error", err)
	}
}
