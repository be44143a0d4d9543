// testserver starts a flysearch API server backed by a fast simulator and
// an in-memory journal, for local and end-to-end testing.
// Usage: go run ./cmd/testserver
package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/seantiz/flysearch/internal/api"
	"github.com/seantiz/flysearch/internal/bridge"
	"github.com/seantiz/flysearch/internal/cache"
	"github.com/seantiz/flysearch/internal/config"
	"github.com/seantiz/flysearch/internal/engine"
	"github.com/seantiz/flysearch/internal/flight"
	"github.com/seantiz/flysearch/internal/model"
	"github.com/seantiz/flysearch/internal/provider"
	"github.com/seantiz/flysearch/internal/search"
	"github.com/seantiz/flysearch/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := config.NewLogger(os.Stdout, cfg.Level())

	db, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	sim, err := provider.NewSimulator(provider.SimulatorConfig{
		StartDelay:     200 * time.Millisecond,
		ChunkDelay:     300 * time.Millisecond,
		FailureRate:    0,
		EmptyChunkRate: 0.2,
	})
	if err != nil {
		log.Fatalf("failed to create simulator: %v", err)
	}

	br := bridge.New(sim, bridge.Config{
		MaxWorkers:  cfg.MaxConcurrentWorkers,
		Timeout:     30 * time.Second,
		JoinTimeout: time.Second,
	}, logger)
	defer br.Close()

	responses := cache.New[string, *flight.Response]("responses", 10*time.Second, cfg.CacheResponseSize)
	tasks := cache.New[string, model.Task]("tasks", 10*time.Minute, cfg.CacheTaskSize)

	svc := search.NewService(br, responses, db, logger)
	eng := engine.NewEngine(svc, tasks, logger)

	srv := api.NewServer(cfg.ListenAddr(), svc, eng, db, logger)

	logger.Info("testserver: starting", "addr", cfg.ListenAddr())
	if err := srv.Run(); err != nil {
		log.Fatalf("server error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := eng.Shutdown(ctx); err != nil {
		logger.Warn("engine shutdown incomplete", "error", err)
	}
}
