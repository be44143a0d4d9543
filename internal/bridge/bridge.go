package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/seantiz/flysearch/internal/provider"
)

// Defaults for Config fields left at zero.
const (
	DefaultMaxWorkers  = 10
	DefaultTimeout     = 5 * time.Minute
	DefaultJoinTimeout = time.Second
)

// Config tunes a Bridge.
type Config struct {
	// MaxWorkers caps how many provider searches run at once.
	MaxWorkers int

	// Timeout is the hard ceiling Do waits for a result, measured from
	// submission.
	Timeout time.Duration

	// JoinTimeout bounds how long Close waits for in-flight workers.
	JoinTimeout time.Duration
}

// Request is one search submission.
type Request struct {
	CorrelationID string
}

// Result is the outcome of one submission. When Err is nil, Accepted reports
// whether the provider accepted the search; a rejected search carries the
// provider's message and no chunks.
type Result struct {
	CorrelationID string
	Accepted      bool
	Message       string
	Chunks        []provider.Chunk
	Err           error
}

// Bridge executes provider searches off the caller's goroutine with bounded
// concurrency. It is safe for concurrent use.
type Bridge struct {
	provider provider.Provider
	sem      *semaphore.Weighted
	cfg      Config
	logger   *slog.Logger
	wg       sync.WaitGroup
}

// New creates a bridge over p.
func New(p provider.Provider, cfg Config, logger *slog.Logger) *Bridge {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = DefaultMaxWorkers
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.JoinTimeout <= 0 {
		cfg.JoinTimeout = DefaultJoinTimeout
	}

	return &Bridge{
		provider: p,
		sem:      semaphore.NewWeighted(int64(cfg.MaxWorkers)),
		cfg:      cfg,
		logger:   logger,
	}
}

// Submit schedules a search and returns immediately. The returned channel
// receives exactly one Result. If ctx ends before a worker permit is
// granted, the search is never started and the Result carries ctx's error.
func (b *Bridge) Submit(ctx context.Context, req Request) <-chan Result {
	out := make(chan Result, 1)

	workersWaiting.Inc()
	b.wg.Go(func() {
		if err := b.sem.Acquire(ctx, 1); err != nil {
			workersWaiting.Dec()
			resultsTotal.WithLabelValues(outcomeCanceled).Inc()
			out <- Result{
				CorrelationID: req.CorrelationID,
				Err:           fmt.Errorf("acquire worker permit: %w", err),
			}
			return
		}
		workersWaiting.Dec()
		defer b.sem.Release(1)

		out <- b.run(req)
	})

	return out
}

// Do submits a search and waits for its result, for ctx to end, or for the
// bridge timeout, whichever comes first. A search that is already running
// when Do gives up keeps running and its result is discarded.
func (b *Bridge) Do(ctx context.Context, req Request) (Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	timer := time.NewTimer(b.cfg.Timeout)
	defer timer.Stop()

	select {
	case res := <-b.Submit(ctx, req):
		return res, res.Err
	case <-timer.C:
		resultsTotal.WithLabelValues(outcomeTimeout).Inc()
		b.logger.Warn("bridge timed out waiting for provider",
			"pid", req.CorrelationID,
			"timeout", b.cfg.Timeout.String(),
		)
		return Result{CorrelationID: req.CorrelationID}, fmt.Errorf("%w after %s", ErrTimeout, b.cfg.Timeout)
	case <-ctx.Done():
		return Result{CorrelationID: req.CorrelationID}, ctx.Err()
	}
}

// Close waits up to the join timeout for in-flight workers. Workers still
// running afterwards are abandoned, not interrupted. Close reports whether
// every worker finished in time.
func (b *Bridge) Close() bool {
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(b.cfg.JoinTimeout):
		b.logger.Warn("bridge workers did not finish within join timeout",
			"join_timeout", b.cfg.JoinTimeout.String(),
		)
		return false
	}
}

// run performs the provider's two-step interaction. Panics raised by the
// provider are captured as ProviderError.
func (b *Bridge) run(req Request) (res Result) {
	logger := b.logger.With("pid", req.CorrelationID)
	start := time.Now()
	step := StepStartSearch

	workersActive.Inc()
	defer func() {
		workersActive.Dec()
		providerDuration.Observe(time.Since(start).Seconds())
	}()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("provider panicked", "step", step, "panic", fmt.Sprint(r))
			resultsTotal.WithLabelValues(outcomeFailed).Inc()
			res = Result{
				CorrelationID: req.CorrelationID,
				Err:           &ProviderError{Step: step, Err: fmt.Errorf("panic: %v", r)},
			}
		}
	}()

	res.CorrelationID = req.CorrelationID

	started, err := b.provider.StartSearch()
	if err != nil {
		logger.Error("start search failed", "error", err)
		resultsTotal.WithLabelValues(outcomeFailed).Inc()
		res.Err = &ProviderError{Step: StepStartSearch, Err: err}
		return res
	}
	if !started.Success || started.SearchID == "" {
		logger.Warn("provider rejected search", "message", started.ErrorMessage)
		resultsTotal.WithLabelValues(outcomeRejected).Inc()
		res.Message = started.ErrorMessage
		return res
	}

	logger = logger.With("search_id", started.SearchID)
	logger.Debug("search started")

	step = StepGetChunk
	for {
		raw, err := b.provider.GetChunk(started.SearchID)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			logger.Error("get chunk failed", "error", err)
			resultsTotal.WithLabelValues(outcomeFailed).Inc()
			res.Err = &ProviderError{Step: StepGetChunk, Err: err}
			return res
		}

		chunk, err := provider.DecodeChunk(raw)
		if errors.Is(err, provider.ErrEmptyChunk) {
			continue
		}
		if err != nil {
			logger.Warn("skipping invalid chunk", "error", err)
			continue
		}
		res.Chunks = append(res.Chunks, chunk)
	}

	logger.Info("search finished",
		"chunks", len(res.Chunks),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	resultsTotal.WithLabelValues(outcomeCompleted).Inc()
	res.Accepted = true
	return res
}
