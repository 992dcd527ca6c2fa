package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Port                 string        `mapstructure:"PORT" validate:"required,numeric"`
	Env                  string        `mapstructure:"ENV" validate:"oneof=development staging production"`
	BackendURL           string        `mapstructure:"BACKEND_URL" validate:"omitempty,url"`
	APIPrefix            string        `mapstructure:"API_PREFIX" validate:"omitempty,startswith=/"`
	FetchTimeout         time.Duration `mapstructure:"FETCH_TIMEOUT" validate:"gt=0"`
	RequestTimeout       time.Duration `mapstructure:"REQUEST_TIMEOUT" validate:"gt=0"`
	MaxConcurrentFetches int           `mapstructure:"MAX_CONCURRENT_FETCHES" validate:"gte=0"`
	DefaultRangeDays     int           `mapstructure:"DEFAULT_RANGE_DAYS" validate:"gte=0"`
	CORSOrigins          []string      `mapstructure:"CORS_ORIGINS"`
	DatabaseURL          string        `mapstructure:"DATABASE_URL"`
	DBMaxConns           int32         `mapstructure:"DB_MAX_CONNS" validate:"gte=1"`
	DBMinConns           int32         `mapstructure:"DB_MIN_CONNS" validate:"gte=0,ltefield=DBMaxConns"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("API_PREFIX", "/api")
	v.SetDefault("FETCH_TIMEOUT", "15s")
	v.SetDefault("REQUEST_TIMEOUT", "60s")
	v.SetDefault("MAX_CONCURRENT_FETCHES", 0) // 0 = fire every request at once
	v.SetDefault("DEFAULT_RANGE_DAYS", 30)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("BACKEND_URL")
	v.BindEnv("API_PREFIX")
	v.BindEnv("FETCH_TIMEOUT")
	v.BindEnv("REQUEST_TIMEOUT")
	v.BindEnv("MAX_CONCURRENT_FETCHES")
	v.BindEnv("DEFAULT_RANGE_DAYS")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}
	cfg.BackendURL = strings.TrimRight(cfg.BackendURL, "/")

	if cfg.IsDev() {
		log.Println("WARNING: dashboard is running in DEVELOPMENT mode (ENV=development).")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the service is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks the struct tags above and the cross-field rules the tags
// cannot express. DATABASE_URL is only needed by the reference backend, so it
// is checked separately by RequireDatabase.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if c.IsProduction() && strings.HasPrefix(c.BackendURL, "http://") {
		return fmt.Errorf("BACKEND_URL must use https in production, got %q", c.BackendURL)
	}
	return nil
}

// RequireBackend reports an error when BACKEND_URL is missing. Every command
// that talks to the stats backend calls it; the reference backend and the
// migrations do not.
func (c *Config) RequireBackend() error {
	if c.BackendURL == "" {
		return fmt.Errorf("BACKEND_URL is required")
	}
	return nil
}

// RequireDatabase reports an error when DATABASE_URL is missing.
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	return nil
}
