package app

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is loaded from the environment with the CNHD prefix.
type Config struct {
	Env      string `envconfig:"ENV" default:"development"`
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	RedisAddr   string `envconfig:"REDIS_ADDR" default:"localhost:6379"`

	SessionSecret string        `envconfig:"SESSION_SECRET" required:"true"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"12h"`
	SecureCookies bool          `envconfig:"SECURE_COOKIES" default:"false"`

	RateLimitPerMinute int `envconfig:"RATE_LIMIT_PER_MINUTE" default:"300"`

	// NormalizeLooseBottles rolls loose bottles up into cases after every
	// ledger mutation. Off by default.
	NormalizeLooseBottles bool `envconfig:"NORMALIZE_LOOSE_BOTTLES" default:"false"`

	// DiscountCap is the fallback cases allowance for shops without a cap
	// of their own.
	DiscountCapPolicy string        `envconfig:"DISCOUNT_CAP_POLICY" default:"per_request"`
	DiscountCap       int           `envconfig:"DISCOUNT_CAP" default:"50"`
	DiscountCapPeriod time.Duration `envconfig:"DISCOUNT_CAP_PERIOD" default:"720h"`

	ReportCacheTTL time.Duration `envconfig:"REPORT_CACHE_TTL" default:"1m"`
}

// LoadConfig reads configuration from CNHD_* environment variables.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("cnhd", &cfg); err != nil {
		return Config{}, fmt.Errorf("app: load config: %w", err)
	}
	return cfg, nil
}

// IsProduction reports whether the service runs with production hardening.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}
