package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all runtime settings. Every field can be set through the
// environment; the zero DSN / redis address select the in-memory
// adapters, which is the default for local development.
type Config struct {
	ListenAddr string `env:"TRADECORE_LISTEN_ADDR" envDefault:":8080"`
	Host       string `env:"TRADECORE_HOST" envDefault:"local"`

	DBDSN     string `env:"TRADECORE_DB_DSN"`
	RedisAddr string `env:"TRADECORE_REDIS_ADDR"`

	MigrationsDir string `env:"TRADECORE_MIGRATIONS_DIR" envDefault:"migrations"`

	TradeTimeout        time.Duration `env:"TRADECORE_TRADE_TIMEOUT" envDefault:"15m"`
	ExpireCheckInterval time.Duration `env:"TRADECORE_EXPIRE_CHECK_INTERVAL" envDefault:"5s"`
	StagingTimeout      time.Duration `env:"TRADECORE_STAGING_TIMEOUT" envDefault:"30s"`
	ActorIdleAfter      time.Duration `env:"TRADECORE_ACTOR_IDLE_AFTER" envDefault:"10m"`

	MaxItemsPerSide       int  `env:"TRADECORE_MAX_ITEMS_PER_SIDE" envDefault:"50"`
	AllowUnknownItemTypes bool `env:"TRADECORE_ALLOW_UNKNOWN_ITEM_TYPES" envDefault:"false"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.TradeTimeout <= 0 {
		return fmt.Errorf("trade timeout must be positive, got %s", c.TradeTimeout)
	}
	if c.ExpireCheckInterval <= 0 {
		return fmt.Errorf("expire check interval must be positive, got %s", c.ExpireCheckInterval)
	}
	if c.StagingTimeout <= 0 {
		return fmt.Errorf("staging timeout must be positive, got %s", c.StagingTimeout)
	}
	if c.MaxItemsPerSide <= 0 {
		return fmt.Errorf("max items per side must be positive, got %d", c.MaxItemsPerSide)
	}
	return nil
}
