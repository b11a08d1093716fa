// Package config loads application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"golang.org/x/crypto/bcrypt"
)

// MinJWTSecretLength matches what the token service accepts.
const MinJWTSecretLength = 16

// StoreKind names the storage backend selected by DATABASE_URL.
type StoreKind string

const (
	StoreSQLite   StoreKind = "sqlite"
	StoreMongo    StoreKind = "mongodb"
	StorePostgres StoreKind = "postgres"
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	AppEnv string `env:"APP_ENV" envDefault:"development"`
	Port   int    `env:"PORT" envDefault:"8080"`

	// mongodb://... or postgres://... select those backends; anything else is
	// treated as a SQLite file path.
	DatabaseURL string `env:"DATABASE_URL" envDefault:"data/bookmarks.db"`

	JWTSecret  string `env:"JWT_SECRET,required"`
	BcryptCost int    `env:"BCRYPT_COST" envDefault:"10"`

	// Comma-separated list of allowed browser origins.
	CORSOrigin string `env:"CORS_ORIGIN" envDefault:"http://localhost:5173"`

	GitHubToken   string        `env:"GITHUB_TOKEN"`
	GitHubAPIURL  string        `env:"GITHUB_API_URL" envDefault:"https://api.github.com"`
	GitHubTimeout time.Duration `env:"GITHUB_TIMEOUT" envDefault:"10s"`

	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	// text or json. Unset picks text in development and json elsewhere.
	LogFormat string `env:"LOG_FORMAT"`

	// Per-IP limit on signup and login. 0 disables it.
	AuthRateLimitRPS   float64 `env:"AUTH_RATE_LIMIT_RPS" envDefault:"1"`
	AuthRateLimitBurst int     `env:"AUTH_RATE_LIMIT_BURST" envDefault:"10"`
}

// Load parses environment variables and validates the result.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if len(c.JWTSecret) < MinJWTSecretLength {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d characters", MinJWTSecretLength))
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}
	if c.AuthRateLimitRPS < 0 || c.AuthRateLimitBurst < 0 {
		errs = append(errs, errors.New("AUTH_RATE_LIMIT_RPS and AUTH_RATE_LIMIT_BURST must not be negative"))
	}
	if c.AuthRateLimitRPS > 0 && c.AuthRateLimitBurst == 0 {
		errs = append(errs, errors.New("AUTH_RATE_LIMIT_BURST must be positive when rate limiting is enabled"))
	}
	if c.GitHubTimeout <= 0 || c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("GITHUB_TIMEOUT and REQUEST_TIMEOUT must be positive"))
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

// StoreKind picks the backend from the DATABASE_URL scheme.
func (c *Config) StoreKind() StoreKind {
	u := strings.ToLower(c.DatabaseURL)
	switch {
	case strings.HasPrefix(u, "mongodb://"), strings.HasPrefix(u, "mongodb+srv://"):
		return StoreMongo
	case strings.HasPrefix(u, "postgres://"), strings.HasPrefix(u, "postgresql://"):
		return StorePostgres
	default:
		return StoreSQLite
	}
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// LogJSON reports whether logs should be written as JSON.
func (c *Config) LogJSON() bool {
	if c.LogFormat == "" {
		return !c.IsDevelopment()
	}
	return strings.EqualFold(c.LogFormat, "json")
}

// CORSOrigins parses the comma-separated CORS_ORIGIN value.
func (c *Config) CORSOrigins() []string {
	parts := strings.Split(c.CORSOrigin, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// SlogLevel maps LOG_LEVEL to a slog.Level; unknown values fall back to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Addr is the listen address for net/http.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
