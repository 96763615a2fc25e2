package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	Port          string `envconfig:"PORT" default:"8080"`
	AllowedOrigin string `envconfig:"ALLOWED_ORIGIN" default:"http://127.0.0.1:3000"`
	DatabaseURL   string `envconfig:"DATABASE_URL"`

	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	AuthSecret     string        `envconfig:"AUTH_SECRET"`
	AccessTokenTTL time.Duration `envconfig:"ACCESS_TOKEN_TTL" default:"8h"`

	// PointsPerEuro converts loaded points into the cash a member handed over;
	// it feeds the open register's expected-cash total on every load.
	PointsPerEuro string `envconfig:"POINTS_PER_EURO" default:"1"`

	SummaryCacheTTL time.Duration `envconfig:"SUMMARY_CACHE_TTL" default:"30s"`

	// FieldKey is the hex-encoded 32-byte key sealing member PII columns.
	// Empty disables sealing (dev/in-memory runs).
	FieldKey string `envconfig:"FIELD_KEY"`

	// BackupOnClose triggers the archiver asynchronously whenever a cash
	// register is closed.
	BackupOnClose bool   `envconfig:"BACKUP_ON_CLOSE" default:"false"`
	BackupDir     string `envconfig:"BACKUP_DIR" default:""`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

// PointsPerEuroRatio parses POINTS_PER_EURO, rejecting zero and negatives so
// the load path can divide by it safely.
func (c *Config) PointsPerEuroRatio() (decimal.Decimal, error) {
	ratio, err := decimal.NewFromString(c.PointsPerEuro)
	if err != nil {
		return decimal.Zero, fmt.Errorf("POINTS_PER_EURO: %w", err)
	}
	if !ratio.IsPositive() {
		return decimal.Zero, fmt.Errorf("POINTS_PER_EURO must be positive, got %s", ratio)
	}
	return ratio, nil
}
