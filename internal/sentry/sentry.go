// Package sentry provides Sentry SDK initialization for Better Stack error
// tracking and reports failed timetable imports.
package sentry

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/garyellow/coursetable/internal/ctxutil"
	"github.com/garyellow/coursetable/internal/timetable"
)

// Config describes the Better Stack Errors project events are sent to.
type Config struct {
	Token       string // application token; empty disables reporting
	Host        string // ingesting host, e.g. "errors.betterstack.com"
	Environment string
	Release     string
	SampleRate  float64 // 0 means 1
	Debug       bool
}

// Initialize configures the global hub. Better Stack accepts the Sentry
// protocol with a DSN of the form https://TOKEN@HOST/1; the project ID is
// ignored.
func Initialize(cfg Config) error {
	if cfg.Token == "" {
		return nil
	}
	if cfg.Host == "" {
		return fmt.Errorf("sentry host is required when token is provided")
	}

	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = 1
	}
	return sentry.Init(sentry.ClientOptions{
		Dsn:              fmt.Sprintf("https://%s@%s/1", cfg.Token, cfg.Host),
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		SampleRate:       sampleRate,
		Debug:            cfg.Debug,
		AttachStacktrace: true,
	})
}

// Flush blocks until buffered events are sent or timeout passes.
func Flush(timeout time.Duration) bool {
	return sentry.Flush(timeout)
}

// IsEnabled reports whether Initialize installed a client.
func IsEnabled() bool {
	return sentry.CurrentHub().Client() != nil
}

// CaptureException captures an error with the hub bound to ctx, falling
// back to the global hub.
func CaptureException(ctx context.Context, err error) {
	hubFromContext(ctx).CaptureException(err)
}

// CaptureImportFailure reports an import that failed for an unexpected
// reason. Gate rejections and empty pages are user errors and are not sent.
func CaptureImportFailure(ctx context.Context, result timetable.Result) {
	if result.Reason != timetable.ReasonParseFailed && result.Reason != timetable.ReasonTooManyCourses {
		return
	}

	hub := hubFromContext(ctx)
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("import.reason", result.Reason.String())
		scope.SetTag("import.strategy", result.Strategy)
		if source := ctxutil.GetSource(ctx); source != "" {
			scope.SetTag("import.source", source)
		}
		if importID := ctxutil.GetImportID(ctx); importID != "" {
			scope.SetTag("import.id", importID)
		}
		if requestID, ok := ctxutil.GetRequestID(ctx); ok && requestID != "" {
			scope.SetTag("request_id", requestID)
		}
		scope.SetExtra("found", strconv.Itoa(result.Found))
		hub.CaptureException(result.Err())
	})
}

func hubFromContext(ctx context.Context) *sentry.Hub {
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		return hub
	}
	return sentry.CurrentHub()
}
