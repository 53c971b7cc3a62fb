// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the server process configuration.
type Config struct {
	HTTPAddr       string `env:"MEME_LEDGER_HTTP_ADDR" envDefault:":8080"`
	MetricsAddr    string `env:"MEME_LEDGER_METRICS_ADDR"` // empty serves /metrics on HTTPAddr
	ManifestPath   string `env:"MEME_LEDGER_MANIFEST"`     // empty uses the dev manifest
	UseMemory      bool   `env:"MEME_LEDGER_USE_MEMORY" envDefault:"true"`
	PostgresDSN    string `env:"MEME_LEDGER_POSTGRES_DSN"`
	ClickhouseDSN  string `env:"MEME_LEDGER_CLICKHOUSE_DSN"`
	SkipMigrations bool   `env:"MEME_LEDGER_SKIP_MIGRATIONS"`

	LogLevel  string `env:"MEME_LEDGER_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"MEME_LEDGER_LOG_FORMAT" envDefault:"console"`

	JournalFlushInterval time.Duration `env:"MEME_LEDGER_JOURNAL_FLUSH_INTERVAL" envDefault:"1s"`
	JournalBatchSize     int           `env:"MEME_LEDGER_JOURNAL_BATCH_SIZE" envDefault:"256"`
	JournalQueueSize     int           `env:"MEME_LEDGER_JOURNAL_QUEUE_SIZE" envDefault:"4096"`

	ShutdownTimeout time.Duration `env:"MEME_LEDGER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// LoadFrom parses the given variables instead of the process environment.
func LoadFrom(vars map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: vars}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate checks cross-field constraints. Call it after flag overrides.
func (c Config) Validate() error {
	if c.HTTPAddr == "" {
		return errors.New("config: http address is required")
	}
	if !c.UseMemory {
		if c.PostgresDSN == "" {
			return errors.New("config: postgres dsn is required unless using memory storage")
		}
	}
	if c.JournalBatchSize <= 0 || c.JournalQueueSize <= 0 {
		return errors.New("config: journal batch and queue sizes must be positive")
	}
	if c.JournalFlushInterval <= 0 {
		return errors.New("config: journal flush interval must be positive")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("config: shutdown timeout must be positive")
	}
	return nil
}
