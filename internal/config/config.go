// Package config loads service settings from FLY_SEARCH_* environment
// variables and builds the process logger.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const envPrefix = "FLY_SEARCH"

var validate = validator.New()

// defaults maps every setting key to its default value. Only keys listed
// here are read from the environment.
var defaults = map[string]any{
	"host":                      "0.0.0.0",
	"port":                      8000,
	"workers":                   0,
	"log_level":                 "info",
	"cache_response_ttl":        180,
	"cache_response_size":       100,
	"cache_task_ttl":            3600,
	"cache_task_size":           1000,
	"max_concurrent_workers":    10,
	"bridge_timeout":            300,
	"worker_join_timeout":       1,
	"db_path":                   "flysearch.db",
	"provider_start_delay":      8,
	"provider_chunk_delay":      15,
	"provider_failure_rate":     0.5,
	"provider_empty_chunk_rate": 0.5,
}

// Config holds application configuration. Fields ending in S are seconds.
type Config struct {
	Host     string `mapstructure:"host" validate:"required"`
	Port     int    `mapstructure:"port" validate:"gte=1,lte=65535"`
	Workers  int    `mapstructure:"workers" validate:"gte=0"`
	LogLevel string `mapstructure:"log_level" validate:"oneof=debug info warn error"`

	CacheResponseTTLS float64 `mapstructure:"cache_response_ttl" validate:"gt=0"`
	CacheResponseSize int     `mapstructure:"cache_response_size" validate:"gte=1"`
	CacheTaskTTLS     float64 `mapstructure:"cache_task_ttl" validate:"gt=0"`
	CacheTaskSize     int     `mapstructure:"cache_task_size" validate:"gte=1"`

	MaxConcurrentWorkers int     `mapstructure:"max_concurrent_workers" validate:"gte=1,lte=100"`
	BridgeTimeoutS       float64 `mapstructure:"bridge_timeout" validate:"gt=0"`
	WorkerJoinTimeoutS   float64 `mapstructure:"worker_join_timeout" validate:"gte=0"`

	DBPath string `mapstructure:"db_path" validate:"required"`

	ProviderStartDelayS    float64 `mapstructure:"provider_start_delay" validate:"gte=0"`
	ProviderChunkDelayS    float64 `mapstructure:"provider_chunk_delay" validate:"gte=0"`
	ProviderFailureRate    float64 `mapstructure:"provider_failure_rate" validate:"gte=0,lte=1"`
	ProviderEmptyChunkRate float64 `mapstructure:"provider_empty_chunk_rate" validate:"gte=0,lte=1"`
}

// Load reads configuration from the environment, applying defaults for
// unset variables, and validates the result.
func Load() (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))

	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ListenAddr returns the host:port the HTTP server binds to.
func (c Config) ListenAddr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Level returns the configured log level.
func (c Config) Level() slog.Level {
	return parseLogLevel(c.LogLevel)
}

// Seconds converts a fractional number of seconds to a duration.
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a structured JSON logger writing to w at the configured level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}
