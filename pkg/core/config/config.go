// Package config loads the service configuration from a YAML file, optional
// .env files and environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"pnl_forecast/pkg/core/projection"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Environment variables that override file settings.
const (
	EnvHTTPAddr       = "FORECAST_HTTP_ADDR"
	EnvDatabaseURL    = "DATABASE_URL"
	EnvLogLevel       = "FORECAST_LOG_LEVEL"
	EnvLogFormat      = "FORECAST_LOG_FORMAT"
	EnvRateLimitRPS   = "FORECAST_RATE_LIMIT_RPS"
	EnvRateLimitBurst = "FORECAST_RATE_LIMIT_BURST"
)

type Config struct {
	HTTP      HTTPConfig        `yaml:"http"`
	Database  DatabaseConfig    `yaml:"database"`
	Logging   LoggingConfig     `yaml:"logging"`
	RateLimit RateLimitConfig   `yaml:"rate_limit"`
	Forecast  projection.Config `yaml:"forecast"`
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
}

// DatabaseConfig is optional: with an empty URL the tenant endpoint is
// disabled and only the stateless compute endpoint is served.
type DatabaseConfig struct {
	URL             string        `yaml:"url"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	QueryTimeout    time.Duration `yaml:"query_timeout"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or console
}

// RateLimitConfig bounds requests per second across the API. Zero disables
// limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// Default returns a configuration that runs locally without any file.
func Default() Config {
	return Config{
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			AllowedOrigins:  []string{"*"},
		},
		Database: DatabaseConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			QueryTimeout:    5 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 20,
			Burst:             40,
		},
		Forecast: projection.DefaultConfig(),
	}
}

// Load builds the configuration. path may be empty to skip the YAML file.
// Values from envFiles apply only where the process environment does not
// already define the variable; missing env files are ignored.
func Load(path string, envFiles ...string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	dotenv := map[string]string{}
	for _, f := range envFiles {
		vals, err := godotenv.Read(f)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return Config{}, fmt.Errorf("read env file %s: %w", f, err)
		}
		for k, v := range vals {
			if _, seen := dotenv[k]; !seen {
				dotenv[k] = v
			}
		}
	}

	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides settings from the variables visible through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvHTTPAddr); ok && v != "" {
		c.HTTP.Addr = v
	}
	if v, ok := lookup(EnvDatabaseURL); ok {
		c.Database.URL = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v, ok := lookup(EnvLogFormat); ok && v != "" {
		c.Logging.Format = strings.ToLower(v)
	}
	if v, ok := lookup(EnvRateLimitRPS); ok && v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalid, EnvRateLimitRPS, v, err)
		}
		c.RateLimit.RequestsPerSecond = rps
	}
	if v, ok := lookup(EnvRateLimitBurst); ok && v != "" {
		burst, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalid, EnvRateLimitBurst, v, err)
		}
		c.RateLimit.Burst = burst
	}
	return nil
}

// Validate rejects settings the service cannot run with.
func (c Config) Validate() error {
	var problems []string

	if c.HTTP.Addr == "" {
		problems = append(problems, "http.addr is empty")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q is not json or console", c.Logging.Format))
	}
	if c.RateLimit.RequestsPerSecond < 0 {
		problems = append(problems, "rate_limit.requests_per_second is negative")
	}
	if c.RateLimit.RequestsPerSecond > 0 && c.RateLimit.Burst < 1 {
		problems = append(problems, "rate_limit.burst must be at least 1")
	}
	if c.Database.QueryTimeout < 0 {
		problems = append(problems, "database.query_timeout is negative")
	}

	f := c.Forecast
	if f.LookbackMonths < 1 || f.LookbackMonths > 120 {
		problems = append(problems, fmt.Sprintf("forecast.lookback_months %d outside 1..120", f.LookbackMonths))
	}
	if f.DriverWindow < 1 || f.DriverWindow > f.LookbackMonths {
		problems = append(problems, fmt.Sprintf("forecast.driver_window %d outside 1..lookback_months", f.DriverWindow))
	}
	if projection.NormalizeHorizon(f.DefaultHorizon) != f.DefaultHorizon {
		problems = append(problems, fmt.Sprintf("forecast.default_horizon %d is not 3, 6 or 12", f.DefaultHorizon))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}
