package logger

import (
	"context"
	"log/slog"

	"github.com/garyellow/coursetable/internal/ctxutil"
)

// contextAttrs lists the tracing values copied from a context onto every
// record: the API request, the import run and where its page came from.
func contextAttrs(ctx context.Context) []slog.Attr {
	var attrs []slog.Attr
	if id, ok := ctxutil.GetRequestID(ctx); ok && id != "" {
		attrs = append(attrs, slog.String("request_id", id))
	}
	if id := ctxutil.GetImportID(ctx); id != "" {
		attrs = append(attrs, slog.String("import_id", id))
	}
	if source := ctxutil.GetSource(ctx); source != "" {
		attrs = append(attrs, slog.String("source", source))
	}
	return attrs
}

// ContextHandler decorates a slog.Handler with contextAttrs, so packages
// that log through slog.*Context get request and import IDs for free.
type ContextHandler struct {
	next slog.Handler
}

// NewContextHandler wraps next.
func NewContextHandler(next slog.Handler) *ContextHandler {
	return &ContextHandler{next: next}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if attrs := contextAttrs(ctx); len(attrs) > 0 {
		r.AddAttrs(attrs...)
	}
	return h.next.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{next: h.next.WithAttrs(attrs)}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{next: h.next.WithGroup(name)}
}
