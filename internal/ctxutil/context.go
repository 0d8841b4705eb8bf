// Package ctxutil provides type-safe context value management.
// Uses private key types to prevent collisions.
package ctxutil

import (
	"context"
)

type contextKey string

const (
	requestIDKey contextKey = "ctxutil.requestID"
	importIDKey  contextKey = "ctxutil.importID"
	sourceKey    contextKey = "ctxutil.source"
)

// WithRequestID adds a request ID to the context for tracing.
// Request ID is generated per HTTP request for log correlation.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
// Returns the request ID and true if found, empty string and false otherwise.
func GetRequestID(ctx context.Context) (string, bool) {
	requestID, ok := ctx.Value(requestIDKey).(string)
	return requestID, ok
}

// MustGetRequestID retrieves the request ID from the context.
// Panics if the request ID is not found.
func MustGetRequestID(ctx context.Context) string {
	requestID, ok := ctx.Value(requestIDKey).(string)
	if !ok || requestID == "" {
		panic("ctxutil: requestID not found")
	}
	return requestID
}

// WithImportID tags the context with the ID of one import attempt. Every
// log line written while parsing that page carries it.
func WithImportID(ctx context.Context, importID string) context.Context {
	return context.WithValue(ctx, importIDKey, importID)
}

// GetImportID retrieves the import ID from the context.
// Returns the import ID if found, empty string otherwise.
func GetImportID(ctx context.Context) string {
	if v := ctx.Value(importIDKey); v != nil {
		if importID, ok := v.(string); ok && importID != "" {
			return importID
		}
	}
	return ""
}

// WithSource records where the page being imported came from
// (file, http, browser, api).
func WithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, sourceKey, source)
}

// GetSource retrieves the page source from the context.
func GetSource(ctx context.Context) string {
	if v := ctx.Value(sourceKey); v != nil {
		if source, ok := v.(string); ok {
			return source
		}
	}
	return ""
}

// PreserveTracing creates a detached context that preserves tracing values.
// The new context is independent of the parent's cancellation and deadlines.
//
// Use for work that must outlive the request, such as recording import
// history after the response has been written.
func PreserveTracing(ctx context.Context) context.Context {
	newCtx := context.Background()

	if requestID, ok := GetRequestID(ctx); ok && requestID != "" {
		newCtx = WithRequestID(newCtx, requestID)
	}
	if importID := GetImportID(ctx); importID != "" {
		newCtx = WithImportID(newCtx, importID)
	}
	if source := GetSource(ctx); source != "" {
		newCtx = WithSource(newCtx, source)
	}

	return newCtx
}
