package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"
)

// clearEnv unsets every FLY_SEARCH_* variable for the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for key := range defaults {
		t.Setenv(envPrefix+"_"+strings.ToUpper(key), "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ListenAddr() != "0.0.0.0:8000" {
		t.Errorf("ListenAddr = %q, want %q", cfg.ListenAddr(), "0.0.0.0:8000")
	}
	if cfg.DBPath != "flysearch.db" {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, "flysearch.db")
	}
	if cfg.Level() != slog.LevelInfo {
		t.Errorf("Level = %v, want %v", cfg.Level(), slog.LevelInfo)
	}
	if cfg.Workers != 0 {
		t.Errorf("Workers = %d, want 0", cfg.Workers)
	}
	if cfg.CacheResponseTTLS != 180 || cfg.CacheResponseSize != 100 {
		t.Errorf("response cache = %v/%d, want 180/100", cfg.CacheResponseTTLS, cfg.CacheResponseSize)
	}
	if cfg.CacheTaskTTLS != 3600 || cfg.CacheTaskSize != 1000 {
		t.Errorf("task cache = %v/%d, want 3600/1000", cfg.CacheTaskTTLS, cfg.CacheTaskSize)
	}
	if cfg.MaxConcurrentWorkers != 10 {
		t.Errorf("MaxConcurrentWorkers = %d, want 10", cfg.MaxConcurrentWorkers)
	}
	if Seconds(cfg.BridgeTimeoutS) != 5*time.Minute {
		t.Errorf("BridgeTimeout = %v, want 5m", Seconds(cfg.BridgeTimeoutS))
	}
	if Seconds(cfg.WorkerJoinTimeoutS) != time.Second {
		t.Errorf("WorkerJoinTimeout = %v, want 1s", Seconds(cfg.WorkerJoinTimeoutS))
	}
	if cfg.ProviderStartDelayS != 8 || cfg.ProviderChunkDelayS != 15 {
		t.Errorf("provider delays = %v/%v, want 8/15", cfg.ProviderStartDelayS, cfg.ProviderChunkDelayS)
	}
	if cfg.ProviderFailureRate != 0.5 || cfg.ProviderEmptyChunkRate != 0.5 {
		t.Errorf("provider rates = %v/%v, want 0.5/0.5", cfg.ProviderFailureRate, cfg.ProviderEmptyChunkRate)
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("FLY_SEARCH_HOST", "127.0.0.1")
	t.Setenv("FLY_SEARCH_PORT", "9090")
	t.Setenv("FLY_SEARCH_LOG_LEVEL", "DEBUG")
	t.Setenv("FLY_SEARCH_DB_PATH", "/tmp/test.db")
	t.Setenv("FLY_SEARCH_MAX_CONCURRENT_WORKERS", "3")
	t.Setenv("FLY_SEARCH_WORKER_JOIN_TIMEOUT", "0.25")
	t.Setenv("FLY_SEARCH_CACHE_TASK_SIZE", "5")
	t.Setenv("FLY_SEARCH_PROVIDER_FAILURE_RATE", "0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ListenAddr() != "127.0.0.1:9090" {
		t.Errorf("ListenAddr = %q, want %q", cfg.ListenAddr(), "127.0.0.1:9090")
	}
	if cfg.Level() != slog.LevelDebug {
		t.Errorf("Level = %v, want %v", cfg.Level(), slog.LevelDebug)
	}
	if cfg.DBPath != "/tmp/test.db" {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, "/tmp/test.db")
	}
	if cfg.MaxConcurrentWorkers != 3 {
		t.Errorf("MaxConcurrentWorkers = %d, want 3", cfg.MaxConcurrentWorkers)
	}
	if Seconds(cfg.WorkerJoinTimeoutS) != 250*time.Millisecond {
		t.Errorf("WorkerJoinTimeout = %v, want 250ms", Seconds(cfg.WorkerJoinTimeoutS))
	}
	if cfg.CacheTaskSize != 5 {
		t.Errorf("CacheTaskSize = %d, want 5", cfg.CacheTaskSize)
	}
	if cfg.ProviderFailureRate != 0 {
		t.Errorf("ProviderFailureRate = %v, want 0", cfg.ProviderFailureRate)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"port out of range", "FLY_SEARCH_PORT", "70000"},
		{"zero workers", "FLY_SEARCH_MAX_CONCURRENT_WORKERS", "0"},
		{"too many workers", "FLY_SEARCH_MAX_CONCURRENT_WORKERS", "101"},
		{"negative cache size", "FLY_SEARCH_CACHE_RESPONSE_SIZE", "-1"},
		{"zero task ttl", "FLY_SEARCH_CACHE_TASK_TTL", "0"},
		{"unknown log level", "FLY_SEARCH_LOG_LEVEL", "verbose"},
		{"rate above one", "FLY_SEARCH_PROVIDER_EMPTY_CHUNK_RATE", "1.5"},
		{"not a number", "FLY_SEARCH_PORT", "eighty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			if _, err := Load(); err == nil {
				t.Fatalf("Load with %s=%s: expected error", tt.key, tt.value)
			}
		})
	}
}

func TestSeconds(t *testing.T) {
	tests := []struct {
		in   float64
		want time.Duration
	}{
		{0, 0},
		{0.1, 100 * time.Millisecond},
		{1, time.Second},
		{180, 3 * time.Minute},
	}

	for _, tt := range tests {
		if got := Seconds(tt.in); got != tt.want {
			t.Errorf("Seconds(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"invalid", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		got := parseLogLevel(tt.input)
		if got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNewLoggerOutputsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo)
	if logger == nil {
		t.Fatal("NewLogger returned nil")
	}

	logger.Info("test message", "key", "value")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("logger output is not valid JSON: %v\noutput: %s", err, buf.String())
	}

	for _, key := range []string{"time", "level", "msg"} {
		if _, ok := entry[key]; !ok {
			t.Errorf("JSON output missing expected key %q", key)
		}
	}
	if entry["msg"] != "test message" {
		t.Errorf("msg = %v, want %q", entry["msg"], "test message")
	}
	if entry["key"] != "value" {
		t.Errorf("key = %v, want %q", entry["key"], "value")
	}
}
