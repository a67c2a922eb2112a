package config

import (
	"time"

	"golang-signal-pipeline/pkg/config"
)

// Executor holds executor-worker configuration. Categories selects the
// dedicated streams this worker consumes in addition to nothing else; an
// empty list keeps the worker on the shared default stream. AllowedSymbols
// is an optional static filter; entries for other symbols are requeued for a
// differently-configured worker.
type Executor struct {
	Categories            []string      `mapstructure:"categories"`
	AllowedSymbols        []string      `mapstructure:"allowed_symbols"`
	StreamReadTimeout     time.Duration `mapstructure:"stream_read_timeout"`
	StreamRetryInterval   time.Duration `mapstructure:"stream_retry_interval"`
	StreamMaxIdleDuration time.Duration `mapstructure:"stream_max_idle_duration"`
	StreamMaxRetry        int           `mapstructure:"stream_max_retry"`
	MaxDispatchAttempts   int           `mapstructure:"max_dispatch_attempts"`
	OrderMaxPerMinute     int           `mapstructure:"order_max_per_minute"`
}

// Venue holds the configuration for the order-execution venue adapter.
type Venue struct {
	SupportedSymbols []string `mapstructure:"supported_symbols"`
}

// Config holds the full configuration for the execution service.
type Config struct {
	App      config.App      `mapstructure:"app"`
	Logger   config.Logger   `mapstructure:"logger"`
	Database config.Database `mapstructure:"database"`
	Redis    config.Redis    `mapstructure:"redis"`
	Telegram config.Telegram `mapstructure:"telegram"`
	Executor Executor        `mapstructure:"executor"`
	Venue    Venue           `mapstructure:"venue"`
}

// Load loads the executor configuration from the given path.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := config.Load(path, &cfg); err != nil {
		return nil, err
	}
	if cfg.Executor.StreamReadTimeout == 0 {
		cfg.Executor.StreamReadTimeout = 30 * time.Second
	}
	if cfg.Executor.StreamRetryInterval == 0 {
		cfg.Executor.StreamRetryInterval = 30 * time.Second
	}
	if cfg.Executor.StreamMaxIdleDuration == 0 {
		cfg.Executor.StreamMaxIdleDuration = time.Minute
	}
	if cfg.Executor.StreamMaxRetry == 0 {
		cfg.Executor.StreamMaxRetry = 3
	}
	if cfg.Executor.MaxDispatchAttempts == 0 {
		cfg.Executor.MaxDispatchAttempts = 5
	}
	if cfg.Executor.OrderMaxPerMinute == 0 {
		cfg.Executor.OrderMaxPerMinute = 60
	}
	return &cfg, nil
}
