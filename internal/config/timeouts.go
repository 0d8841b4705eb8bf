// Package config provides centralized timeout constants for the application.
//
// The browser values are sized for a human logging in to the educational
// administration system by hand: the session stays open until the student
// reaches the timetable page, then a single extraction runs.
package config

import "time"

// HTTP server timeouts
const (
	// HTTPRead is the HTTP server read timeout. Saved timetable pages are a
	// few hundred kilobytes at most.
	HTTPRead = 15 * time.Second

	// HTTPWrite is the HTTP server write timeout.
	HTTPWrite = 30 * time.Second

	// HTTPIdle is the HTTP server idle timeout for keep-alive connections.
	HTTPIdle = 120 * time.Second

	// ImportProcessing bounds a single parse or import request.
	ImportProcessing = 20 * time.Second

	// ReadinessCheck bounds the database probe behind /readyz.
	ReadinessCheck = 3 * time.Second
)

// Background jobs
const (
	// MetricsUpdateInterval is how often the stored course gauge is refreshed.
	MetricsUpdateInterval = 5 * time.Minute

	// RateLimiterCleanup is how often idle API clients are forgotten.
	RateLimiterCleanup = 5 * time.Minute
)

// Browser timeouts
const (
	// BrowserExtract is the timeout for evaluating the extraction script.
	BrowserExtract = 15 * time.Second

	// BrowserWait is how long fetch waits for the user to reach the
	// timetable page after the login page opens.
	BrowserWait = 10 * time.Minute

	// BrowserPollInterval is how often the open tab is checked for the
	// timetable page.
	BrowserPollInterval = 2 * time.Second
)

// Fetch timeouts
const (
	// FetchRequest is the timeout for a single HTTP request to the
	// timetable page.
	FetchRequest = 30 * time.Second

	// FetchRetryInitial is the initial delay before retrying a failed request.
	// Uses exponential backoff: 2s -> 4s -> 8s
	FetchRetryInitial = 2 * time.Second
)

// Database timeouts
const (
	// DatabaseBusyTimeout is SQLite busy_timeout pragma value.
	DatabaseBusyTimeout = 30 * time.Second

	// DatabaseConnMaxLifetime is the maximum lifetime of database connections.
	DatabaseConnMaxLifetime = time.Hour
)

// Backup timeouts
const (
	// BackupTransfer bounds one snapshot upload or download.
	BackupTransfer = 2 * time.Minute
)

// Graceful shutdown
const (
	// GracefulShutdown is the timeout for graceful server shutdown.
	// Allows in-flight requests to complete before forceful termination.
	GracefulShutdown = 30 * time.Second

	// TelemetryFlush bounds flushing Sentry events and shipped logs on exit.
	TelemetryFlush = 5 * time.Second
)
