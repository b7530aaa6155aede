package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func mapLookup(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 36, cfg.Forecast.LookbackMonths)
	assert.Equal(t, 12, cfg.Forecast.DriverWindow)
	assert.Equal(t, 6, cfg.Forecast.DefaultHorizon)
	assert.Equal(t, 30, cfg.Forecast.Models.ForestTrees)
}

func TestLoadYAMLOverlaysDefaults(t *testing.T) {
	path := writeFile(t, "forecast.yaml", `
http:
  addr: ":9090"
  read_timeout: 3s
logging:
  level: debug
forecast:
  default_horizon: 12
  models:
    forest_trees: 50
    hw_alpha: 0.5
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, 3*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.HTTP.WriteTimeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 12, cfg.Forecast.DefaultHorizon)
	assert.Equal(t, 36, cfg.Forecast.LookbackMonths)
	assert.Equal(t, 50, cfg.Forecast.Models.ForestTrees)
	assert.Equal(t, 0.5, cfg.Forecast.Models.HWAlpha)
	assert.Equal(t, 0.45, cfg.Forecast.Models.HoltAlpha)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoadMalformedYAML(t *testing.T) {
	path := writeFile(t, "bad.yaml", "http: [unclosed")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := writeFile(t, "invalid.yaml", `
forecast:
  default_horizon: 7
  lookback_months: 6
  driver_window: 12
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalid))
	assert.Contains(t, err.Error(), "default_horizon")
	assert.Contains(t, err.Error(), "driver_window")
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(mapLookup(map[string]string{
		EnvHTTPAddr:       ":7000",
		EnvDatabaseURL:    "postgres://forecast@localhost/ledger",
		EnvLogLevel:       "WARN",
		EnvLogFormat:      "console",
		EnvRateLimitRPS:   "2.5",
		EnvRateLimitBurst: "5",
	}))
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.HTTP.Addr)
	assert.Equal(t, "postgres://forecast@localhost/ledger", cfg.Database.URL)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, 2.5, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 5, cfg.RateLimit.Burst)
	assert.NoError(t, cfg.Validate())
}

func TestApplyEnvBadNumber(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(mapLookup(map[string]string{EnvRateLimitRPS: "fast"}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalid))
}

func TestLoadDotEnv(t *testing.T) {
	env := writeFile(t, ".env", "FORECAST_LOG_FORMAT=console\n")
	cfg, err := Load("", filepath.Join(t.TempDir(), "missing.env"), env)
	require.NoError(t, err)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestProcessEnvWinsOverDotEnv(t *testing.T) {
	t.Setenv(EnvHTTPAddr, ":6060")
	env := writeFile(t, ".env", "FORECAST_HTTP_ADDR=:5050\n")
	cfg, err := Load("", env)
	require.NoError(t, err)
	assert.Equal(t, ":6060", cfg.HTTP.Addr)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"empty addr":     func(c *Config) { c.HTTP.Addr = "" },
		"bad level":      func(c *Config) { c.Logging.Level = "trace" },
		"bad format":     func(c *Config) { c.Logging.Format = "xml" },
		"negative rps":   func(c *Config) { c.RateLimit.RequestsPerSecond = -1 },
		"zero burst":     func(c *Config) { c.RateLimit.Burst = 0 },
		"zero lookback":  func(c *Config) { c.Forecast.LookbackMonths = 0 },
		"bad horizon":    func(c *Config) { c.Forecast.DefaultHorizon = 4 },
		"neg query time": func(c *Config) { c.Database.QueryTimeout = -time.Second },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalid))
		})
	}

	cfg := Default()
	cfg.RateLimit = RateLimitConfig{}
	assert.NoError(t, cfg.Validate(), "rate limiting may be disabled")
}
