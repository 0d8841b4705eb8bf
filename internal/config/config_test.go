package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Port:            "10000",
		LogLevel:        "info",
		ShutdownTimeout: 30 * time.Second,
		MaxBodySize:     8 << 20,
		DataDir:         "/data",
		Strategy:        "auto",
		Browser: BrowserConfig{
			LoginURL:       DefaultLoginURL,
			ExtractTimeout: 15 * time.Second,
			WaitTimeout:    10 * time.Minute,
		},
		Fetch:    FetchConfig{Timeout: 30 * time.Second, MaxRetries: 3},
		Calendar: CalendarConfig{Timezone: "UTC", TotalWeeks: 20},
	}
}

func TestLoad(t *testing.T) {
	t.Setenv(EnvDataDir, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "10000", cfg.Port)
	assert.Equal(t, "auto", cfg.Strategy)
	assert.Equal(t, DefaultLoginURL, cfg.Browser.LoginURL)
	assert.Equal(t, 3, cfg.Fetch.MaxRetries)
	assert.Equal(t, 20, cfg.Calendar.TotalWeeks)
	assert.Equal(t, "prometheus", cfg.MetricsUsername)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 30, cfg.RateLimit)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv(EnvDataDir, t.TempDir())
	t.Setenv(EnvPort, "8080")
	t.Setenv(EnvStrategy, "GRID")
	t.Setenv(EnvHeadless, "true")
	t.Setenv(EnvFetchMaxRetries, "not-a-number")
	t.Setenv(EnvExtractTimeout, "45s")
	t.Setenv(EnvSemesterStart, "2026-09-07")

	cfg, err := LoadForMode(CLIMode)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "grid", cfg.Strategy, "strategy is case-insensitive")
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 3, cfg.Fetch.MaxRetries, "malformed ints fall back to the default")
	assert.Equal(t, 45*time.Second, cfg.Browser.ExtractTimeout)
	assert.Equal(t, 7, cfg.SemesterStart().Day())
}

func TestLoadForMode_Invalid(t *testing.T) {
	t.Setenv(EnvDataDir, t.TempDir())
	t.Setenv(EnvStrategy, "magic")

	_, err := LoadForMode(CLIMode)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STRATEGY")
}

func TestValidateForMode(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		mutate      func(*Config)
		mode        ValidationMode
		errContains string
	}{
		{name: "valid server config", mutate: func(*Config) {}, mode: ServerMode},
		{name: "cli ignores port", mutate: func(c *Config) { c.Port = "" }, mode: CLIMode},
		{name: "server requires port", mutate: func(c *Config) { c.Port = "" }, mode: ServerMode, errContains: "PORT"},
		{name: "negative rate limit", mutate: func(c *Config) { c.RateLimit = -1 }, mode: ServerMode, errContains: "RATE_LIMIT"},
		{name: "missing data dir", mutate: func(c *Config) { c.DataDir = "" }, mode: CLIMode, errContains: "DATA_DIR"},
		{name: "negative retries", mutate: func(c *Config) { c.Fetch.MaxRetries = -1 }, mode: CLIMode, errContains: "FETCH_MAX_RETRIES"},
		{name: "bad semester start", mutate: func(c *Config) { c.Calendar.SemesterStart = "9/7/2026" }, mode: CLIMode, errContains: "SEMESTER_START"},
		{name: "bad timezone", mutate: func(c *Config) { c.Calendar.Timezone = "Mars/Olympus" }, mode: CLIMode, errContains: "TIMEZONE"},
		{name: "too many weeks", mutate: func(c *Config) { c.Calendar.TotalWeeks = 31 }, mode: CLIMode, errContains: "TOTAL_WEEKS"},
		{name: "r2 incomplete", mutate: func(c *Config) { c.R2Enabled = true; c.R2BucketName = "b" }, mode: CLIMode, errContains: "R2"},
		{name: "sentry without host", mutate: func(c *Config) { c.SentryEnabled = true; c.SentryToken = "t" }, mode: ServerMode, errContains: "SENTRY_HOST"},
		{name: "metrics auth without password", mutate: func(c *Config) { c.MetricsAuthEnabled = true }, mode: ServerMode, errContains: "METRICS_PASSWORD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.ValidateForMode(tt.mode)
			if tt.errContains == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Port = ""
	cfg.DataDir = ""
	cfg.Fetch.Timeout = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Equal(t, 3, len(strings.Split(err.Error(), "\n")))
}

func TestDerivedValues(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.DataDir = "/var/lib/coursetable"
	cfg.Calendar.Timezone = "Asia/Shanghai"
	cfg.Calendar.SemesterStart = "2026-09-07"

	assert.Equal(t, "/var/lib/coursetable/coursetable.db", cfg.SQLitePath())
	assert.Equal(t, "Asia/Shanghai", cfg.Location().String())
	start := cfg.SemesterStart()
	assert.Equal(t, time.September, start.Month())
	assert.Equal(t, "Asia/Shanghai", start.Location().String())

	cfg.Calendar.SemesterStart = ""
	assert.True(t, cfg.SemesterStart().IsZero())
}

func TestValidationModeString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "server", ServerMode.String())
	assert.Equal(t, "cli", CLIMode.String())
	assert.Equal(t, "mode(9)", ValidationMode(9).String())
}
