package config

import (
	"time"

	"golang-signal-pipeline/pkg/config"
)

// WatchItem is one symbol the detection loop analyzes on every run.
type WatchItem struct {
	Symbol   string `mapstructure:"symbol"`
	Category string `mapstructure:"category"`
}

// Detection holds the configuration for the scheduled detection runs.
type Detection struct {
	CronExpression    string        `mapstructure:"cron_expression"`
	Timeframe         string        `mapstructure:"timeframe"`
	SpecialistTimeout time.Duration `mapstructure:"specialist_timeout"`
	Watchlist         []WatchItem   `mapstructure:"watchlist"`
}

// Specialist holds the configuration for one analyzer endpoint.
type Specialist struct {
	Name                string `mapstructure:"name"`
	URL                 string `mapstructure:"url"`
	MaxRequestPerMinute int    `mapstructure:"max_request_per_minute"`
}

// Consensus holds the aggregation thresholds. MinConfidence is the single
// confidence gate for the whole pipeline.
type Consensus struct {
	MinConfidence float64            `mapstructure:"min_confidence"`
	MinVotes      int                `mapstructure:"min_votes"`
	Margin        int                `mapstructure:"margin"`
	Weights       map[string]float64 `mapstructure:"weights"`
}

// Broadcast holds the configuration for agent classification.
type Broadcast struct {
	MinBalance          float64       `mapstructure:"min_balance"`
	AgentCacheTTL       time.Duration `mapstructure:"agent_cache_ttl"`
	DedicatedCategories []string      `mapstructure:"dedicated_categories"`
}

// Health holds the volume targets used for full credit on each health axis.
type Health struct {
	SignalsPerHour       int `mapstructure:"signals_per_hour"`
	DispositionsPer10Min int `mapstructure:"dispositions_per_10min"`
	ExecutionsPer10Min   int `mapstructure:"executions_per_10min"`
}

// Config holds the full configuration for the signal service.
type Config struct {
	App         config.App      `mapstructure:"app"`
	Logger      config.Logger   `mapstructure:"logger"`
	Database    config.Database `mapstructure:"database"`
	Redis       config.Redis    `mapstructure:"redis"`
	API         config.API      `mapstructure:"api"`
	Telegram    config.Telegram `mapstructure:"telegram"`
	Detection   Detection       `mapstructure:"detection"`
	Specialists []Specialist    `mapstructure:"specialists"`
	Consensus   Consensus       `mapstructure:"consensus"`
	Broadcast   Broadcast       `mapstructure:"broadcast"`
	Health      Health          `mapstructure:"health"`
}

// Load loads the signal service configuration from the given path.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := config.Load(path, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Consensus.MinConfidence == 0 {
		cfg.Consensus.MinConfidence = 0.70
	}
	if cfg.Consensus.MinVotes == 0 {
		cfg.Consensus.MinVotes = 2
	}
	if cfg.Consensus.Margin == 0 {
		cfg.Consensus.Margin = 1
	}
	if cfg.Detection.SpecialistTimeout == 0 {
		cfg.Detection.SpecialistTimeout = 30 * time.Second
	}
	if cfg.Broadcast.AgentCacheTTL == 0 {
		cfg.Broadcast.AgentCacheTTL = 30 * time.Second
	}
	if cfg.Health.SignalsPerHour == 0 {
		cfg.Health.SignalsPerHour = 3
	}
	if cfg.Health.DispositionsPer10Min == 0 {
		cfg.Health.DispositionsPer10Min = 5
	}
	if cfg.Health.ExecutionsPer10Min == 0 {
		cfg.Health.ExecutionsPer10Min = 1
	}
}
