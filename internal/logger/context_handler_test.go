package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/coursetable/internal/ctxutil"
)

func TestContextAttrs(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		ctx  func(context.Context) context.Context
		want map[string]string
	}{
		{
			name: "all values",
			ctx: func(ctx context.Context) context.Context {
				ctx = ctxutil.WithRequestID(ctx, "req-abc-123")
				ctx = ctxutil.WithImportID(ctx, "imp-1")
				return ctxutil.WithSource(ctx, "browser")
			},
			want: map[string]string{"request_id": "req-abc-123", "import_id": "imp-1", "source": "browser"},
		},
		{
			name: "import only",
			ctx:  func(ctx context.Context) context.Context { return ctxutil.WithImportID(ctx, "imp-2") },
			want: map[string]string{"import_id": "imp-2"},
		},
		{
			name: "empty values are skipped",
			ctx: func(ctx context.Context) context.Context {
				return ctxutil.WithSource(ctxutil.WithRequestID(ctx, ""), "file")
			},
			want: map[string]string{"source": "file"},
		},
		{
			name: "bare context",
			ctx:  func(ctx context.Context) context.Context { return ctx },
			want: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := map[string]string{}
			for _, a := range contextAttrs(tt.ctx(context.Background())) {
				got[a.Key] = a.Value.String()
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestContextHandler(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	handler := NewContextHandler(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	assert.False(t, handler.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, handler.Enabled(context.Background(), slog.LevelWarn))

	log := slog.New(handler.WithAttrs([]slog.Attr{slog.String("service", "coursetable")}).WithGroup("import"))
	ctx := ctxutil.WithImportID(context.Background(), "imp-3")
	log.InfoContext(ctx, "Import finished", "courses", 12)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record), buf.String())
	assert.Equal(t, "coursetable", record["service"])
	group, ok := record["import"].(map[string]any)
	require.True(t, ok, buf.String())
	assert.Equal(t, float64(12), group["courses"])
	assert.Equal(t, "imp-3", group["import_id"], "context attributes land in the open group")
}
