// Package config provides application configuration management.
// It loads settings from environment variables (and an optional .env file)
// and provides defaults for the HTTP server and the coursetable CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // Calendar time zones must resolve on hosts without zoneinfo.

	"github.com/joho/godotenv"
)

// DefaultLoginURL is the unified login entry of the educational
// administration system. The timetable page is reachable after login.
const DefaultLoginURL = "https://jwxt.whut.edu.cn/jwapp/sys/jjsrzfwapp/dblLogin/main.do"

// ValidationMode selects which settings are required.
type ValidationMode int

const (
	// ServerMode requires everything the HTTP server needs.
	ServerMode ValidationMode = iota
	// CLIMode only validates settings that are present.
	CLIMode
)

func (m ValidationMode) String() string {
	switch m {
	case ServerMode:
		return "server"
	case CLIMode:
		return "cli"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Config holds all application configuration
type Config struct {
	// Server Configuration
	Port            string
	LogLevel        string
	ShutdownTimeout time.Duration
	MaxBodySize     int64 // Upper bound for posted timetable pages in bytes
	RateLimit       int   // Parse/import requests per minute per client; 0 disables

	// Data Configuration
	DataDir string // Data directory for the SQLite database

	// Import Configuration
	Strategy string // auto, attribute or grid
	Charset  string // Forced page encoding, empty = detect

	Browser  BrowserConfig
	Fetch    FetchConfig
	Calendar CalendarConfig

	// R2 Backup
	R2Enabled         bool
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2SnapshotKey     string

	// Sentry (Better Stack Errors)
	SentryEnabled     bool
	SentryToken       string
	SentryHost        string
	SentryEnvironment string
	SentrySampleRate  float64

	// Better Stack Logs
	BetterStackEnabled  bool
	BetterStackToken    string
	BetterStackEndpoint string

	// Metrics Authentication
	MetricsAuthEnabled bool
	MetricsUsername    string // Username for /metrics Basic Auth (default: "prometheus")
	MetricsPassword    string

	// PushgatewayURL receives CLI run metrics; empty disables pushing.
	PushgatewayURL string
}

// BrowserConfig configures the chromedp session used by `coursetable fetch`.
type BrowserConfig struct {
	ChromePath     string // Empty = search the usual install locations
	Headless       bool
	LoginURL       string
	ExtractTimeout time.Duration
	WaitTimeout    time.Duration
}

// FetchConfig configures plain HTTP retrieval of the timetable page with an
// existing session cookie.
type FetchConfig struct {
	URL        string
	Cookie     string
	Timeout    time.Duration
	MaxRetries int
}

// CalendarConfig configures ICS export.
type CalendarConfig struct {
	SemesterStart string // YYYY-MM-DD, any day of week 1
	Timezone      string
	TotalWeeks    int
	Periods       string // "08:00-08:45,08:50-09:35,...", empty = built-in clock
}

// Load reads configuration for the HTTP server.
func Load() (*Config, error) {
	return LoadForMode(ServerMode)
}

// LoadForMode reads configuration from environment variables and validates
// it for mode. It attempts to load a .env file first.
func LoadForMode(mode ValidationMode) (*Config, error) {
	// Try to load .env file (ignore error if file doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv(EnvPort, "10000"),
		LogLevel:        getEnv(EnvLogLevel, "info"),
		ShutdownTimeout: getDurationEnv(EnvShutdownTimeout, GracefulShutdown),
		MaxBodySize:     int64(getIntEnv(EnvMaxBodySize, 8<<20)),
		RateLimit:       getIntEnv(EnvRateLimit, 30),

		DataDir: getEnv(EnvDataDir, getDefaultDataDir()),

		Strategy: strings.ToLower(getEnv(EnvStrategy, "auto")),
		Charset:  getEnv(EnvCharset, ""),

		Browser: BrowserConfig{
			ChromePath:     getEnv(EnvChromePath, ""),
			Headless:       getBoolEnv(EnvHeadless, false),
			LoginURL:       getEnv(EnvLoginURL, DefaultLoginURL),
			ExtractTimeout: getDurationEnv(EnvExtractTimeout, BrowserExtract),
			WaitTimeout:    getDurationEnv(EnvWaitTimeout, BrowserWait),
		},

		Fetch: FetchConfig{
			URL:        getEnv(EnvFetchURL, ""),
			Cookie:     getEnv(EnvFetchCookie, ""),
			Timeout:    getDurationEnv(EnvFetchTimeout, FetchRequest),
			MaxRetries: getIntEnv(EnvFetchMaxRetries, 3),
		},

		Calendar: CalendarConfig{
			SemesterStart: getEnv(EnvSemesterStart, ""),
			Timezone:      getEnv(EnvTimezone, "Asia/Shanghai"),
			TotalWeeks:    getIntEnv(EnvTotalWeeks, 20),
			Periods:       getEnv(EnvPeriods, ""),
		},

		R2Enabled:         getBoolEnv(EnvR2Enabled, false),
		R2AccountID:       getEnv(EnvR2AccountID, ""),
		R2AccessKeyID:     getEnv(EnvR2AccessKeyID, ""),
		R2SecretAccessKey: getEnv(EnvR2SecretAccessKey, ""),
		R2BucketName:      getEnv(EnvR2BucketName, ""),
		R2SnapshotKey:     getEnv(EnvR2SnapshotKey, "snapshots/courses.json.zst"),

		SentryEnabled:     getBoolEnv(EnvSentryEnabled, false),
		SentryToken:       getEnv(EnvSentryToken, ""),
		SentryHost:        getEnv(EnvSentryHost, ""),
		SentryEnvironment: getEnv(EnvSentryEnvironment, "production"),
		SentrySampleRate:  getFloatEnv(EnvSentrySampleRate, 1.0),

		BetterStackEnabled:  getBoolEnv(EnvBetterStackEnabled, false),
		BetterStackToken:    getEnv(EnvBetterStackToken, ""),
		BetterStackEndpoint: getEnv(EnvBetterStackEndpoint, ""),

		MetricsAuthEnabled: getBoolEnv(EnvMetricsAuthEnabled, false),
		MetricsUsername:    getEnv(EnvMetricsUsername, "prometheus"),
		MetricsPassword:    getEnv(EnvMetricsPassword, ""),

		PushgatewayURL: getEnv(EnvPushgatewayURL, ""),
	}

	if err := cfg.ValidateForMode(mode); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for server mode.
func (c *Config) Validate() error {
	return c.ValidateForMode(ServerMode)
}

// ValidateForMode checks that required configuration values are set and
// that every value present is well formed. All problems are reported.
func (c *Config) ValidateForMode(mode ValidationMode) error {
	var errs []error

	if mode == ServerMode {
		if c.Port == "" {
			errs = append(errs, errors.New("PORT is required"))
		}
		if c.MaxBodySize <= 0 {
			errs = append(errs, fmt.Errorf("MAX_BODY_SIZE must be positive, got %d", c.MaxBodySize))
		}
		if c.RateLimit < 0 {
			errs = append(errs, fmt.Errorf("RATE_LIMIT cannot be negative, got %d", c.RateLimit))
		}
		if c.ShutdownTimeout <= 0 {
			errs = append(errs, fmt.Errorf("SHUTDOWN_TIMEOUT must be positive, got %v", c.ShutdownTimeout))
		}
	}
	if c.DataDir == "" {
		errs = append(errs, errors.New("DATA_DIR is required"))
	}

	switch c.Strategy {
	case "auto", "attribute", "grid":
	default:
		errs = append(errs, fmt.Errorf("STRATEGY must be auto, attribute or grid, got %q", c.Strategy))
	}

	if c.Browser.ExtractTimeout <= 0 {
		errs = append(errs, fmt.Errorf("EXTRACT_TIMEOUT must be positive, got %v", c.Browser.ExtractTimeout))
	}
	if c.Browser.WaitTimeout <= 0 {
		errs = append(errs, fmt.Errorf("WAIT_TIMEOUT must be positive, got %v", c.Browser.WaitTimeout))
	}
	if c.Fetch.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("FETCH_TIMEOUT must be positive, got %v", c.Fetch.Timeout))
	}
	if c.Fetch.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("FETCH_MAX_RETRIES cannot be negative, got %d", c.Fetch.MaxRetries))
	}

	if c.Calendar.SemesterStart != "" {
		if _, err := time.Parse(time.DateOnly, c.Calendar.SemesterStart); err != nil {
			errs = append(errs, fmt.Errorf("SEMESTER_START must be YYYY-MM-DD: %w", err))
		}
	}
	if _, err := time.LoadLocation(c.Calendar.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("TIMEZONE: %w", err))
	}
	if c.Calendar.TotalWeeks < 1 || c.Calendar.TotalWeeks > 30 {
		errs = append(errs, fmt.Errorf("TOTAL_WEEKS must be between 1 and 30, got %d", c.Calendar.TotalWeeks))
	}

	if c.R2Enabled {
		if c.R2AccountID == "" || c.R2AccessKeyID == "" || c.R2SecretAccessKey == "" || c.R2BucketName == "" {
			errs = append(errs, errors.New("R2 is enabled but R2_ACCOUNT_ID, R2_ACCESS_KEY_ID, R2_SECRET_ACCESS_KEY and R2_BUCKET_NAME are not all set"))
		}
	}
	if c.SentryEnabled {
		if c.SentryToken == "" || c.SentryHost == "" {
			errs = append(errs, errors.New("sentry is enabled but SENTRY_TOKEN or SENTRY_HOST is missing"))
		}
		if c.SentrySampleRate < 0 || c.SentrySampleRate > 1 {
			errs = append(errs, fmt.Errorf("SENTRY_SAMPLE_RATE must be within [0, 1], got %v", c.SentrySampleRate))
		}
	}
	if c.BetterStackEnabled && (c.BetterStackToken == "" || c.BetterStackEndpoint == "") {
		errs = append(errs, errors.New("better stack is enabled but BETTERSTACK_TOKEN or BETTERSTACK_ENDPOINT is missing"))
	}
	if c.MetricsAuthEnabled && c.MetricsPassword == "" {
		errs = append(errs, errors.New("metrics auth is enabled but METRICS_PASSWORD is empty"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// getEnv retrieves environment variable with fallback to default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv retrieves integer environment variable with fallback to default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getBoolEnv retrieves boolean environment variable with fallback to default value
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getDurationEnv retrieves duration environment variable with fallback to default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getFloatEnv retrieves float64 environment variable with fallback to default value
func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getDefaultDataDir returns platform-specific default data directory
func getDefaultDataDir() string {
	if runtime.GOOS == "windows" {
		return "./data"
	}
	return "/data"
}

// SQLitePath returns the full path to the SQLite database file
func (c *Config) SQLitePath() string {
	return filepath.Join(c.DataDir, "coursetable.db")
}

// Location returns the calendar time zone. Validate guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Calendar.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// SemesterStart returns the parsed first day of the semester in the
// calendar time zone, or the zero time when unset.
func (c *Config) SemesterStart() time.Time {
	if c.Calendar.SemesterStart == "" {
		return time.Time{}
	}
	t, err := time.ParseInLocation(time.DateOnly, c.Calendar.SemesterStart, c.Location())
	if err != nil {
		return time.Time{}
	}
	return t
}
