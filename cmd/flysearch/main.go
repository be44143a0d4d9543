package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"runtime"
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

const (
	// engineShutdownTimeout bounds how long in-flight tasks get to record
	// their final state after the HTTP server stops.
	engineShutdownTimeout = 5 * time.Second

	// writeTimeoutSlack is added to the bridge timeout so a synchronous
	// search can always deliver its response.
	writeTimeoutSlack = 30 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := config.NewLogger(os.Stdout, cfg.Level())

	if err := run(cfg, logger); err != nil {
		logger.Error("flysearch: exiting", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	if cfg.Workers > 0 {
		runtime.GOMAXPROCS(cfg.Workers)
	}

	logger.Info("flysearch: starting",
		"listen_addr", cfg.ListenAddr(),
		"db_path", cfg.DBPath,
		"max_concurrent_workers", cfg.MaxConcurrentWorkers,
		"gomaxprocs", runtime.GOMAXPROCS(0),
	)

	db, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	sim, err := provider.NewSimulator(provider.SimulatorConfig{
		StartDelay:     config.Seconds(cfg.ProviderStartDelayS),
		ChunkDelay:     config.Seconds(cfg.ProviderChunkDelayS),
		FailureRate:    cfg.ProviderFailureRate,
		EmptyChunkRate: cfg.ProviderEmptyChunkRate,
	})
	if err != nil {
		return fmt.Errorf("create provider: %w", err)
	}

	bridgeTimeout := config.Seconds(cfg.BridgeTimeoutS)
	br := bridge.New(sim, bridge.Config{
		MaxWorkers:  cfg.MaxConcurrentWorkers,
		Timeout:     bridgeTimeout,
		JoinTimeout: config.Seconds(cfg.WorkerJoinTimeoutS),
	}, logger)
	defer br.Close()

	responses := cache.New[string, *flight.Response]("responses",
		config.Seconds(cfg.CacheResponseTTLS), cfg.CacheResponseSize)
	tasks := cache.New[string, model.Task]("tasks",
		config.Seconds(cfg.CacheTaskTTLS), cfg.CacheTaskSize)

	svc := search.NewService(br, responses, db, logger)
	eng := engine.NewEngine(svc, tasks, logger)

	srv := api.NewServer(cfg.ListenAddr(), svc, eng, db, logger,
		api.WithWriteTimeout(bridgeTimeout+writeTimeoutSlack))

	runErr := srv.Run()

	ctx, cancel := context.WithTimeout(context.Background(), engineShutdownTimeout)
	defer cancel()
	if err := eng.Shutdown(ctx); err != nil {
		logger.Warn("engine shutdown incomplete", "error", err)
	}

	return runErr
}
