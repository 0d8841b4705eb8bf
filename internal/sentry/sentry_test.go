package sentry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/coursetable/internal/ctxutil"
	"github.com/garyellow/coursetable/internal/timetable"
)

// captureHub returns a context carrying a hub whose client records events
// instead of sending them.
func captureHub(t *testing.T) (context.Context, func() []*sentry.Event) {
	t.Helper()
	var mu sync.Mutex
	var events []*sentry.Event

	client, err := sentry.NewClient(sentry.ClientOptions{
		SampleRate: 1.0,
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			mu.Lock()
			defer mu.Unlock()
			events = append(events, event)
			return nil
		},
	})
	require.NoError(t, err)

	hub := sentry.NewHub(client, sentry.NewScope())
	ctx := sentry.SetHubOnContext(context.Background(), hub)
	return ctx, func() []*sentry.Event {
		mu.Lock()
		defer mu.Unlock()
		return append([]*sentry.Event(nil), events...)
	}
}

func TestInitialize_EmptyToken(t *testing.T) {
	err := Initialize(Config{Token: ""})
	assert.NoError(t, err, "empty token disables sentry")
}

func TestInitialize_MissingHost(t *testing.T) {
	t.Parallel()
	err := Initialize(Config{Token: "test-token", Host: ""})
	assert.Error(t, err)
}

func TestInitialize_ValidConfig(t *testing.T) {
	// Cannot use t.Parallel() as Sentry uses global state
	err := Initialize(Config{
		Token:       "test-token",
		Host:        "errors.betterstack.com",
		Environment: "test",
	})
	require.NoError(t, err)
	assert.True(t, IsEnabled())

	Flush(time.Second)
}

func TestCaptureImportFailure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		result   timetable.Result
		captured bool
	}{
		{"ok is not reported", timetable.Result{Reason: timetable.ReasonOK}, false},
		{"gate rejection is not reported", timetable.Result{Reason: timetable.ReasonNotTimetablePage}, false},
		{"empty page is not reported", timetable.Result{Reason: timetable.ReasonNoCourses, Strategy: "none"}, false},
		{"implausible result", timetable.Result{Reason: timetable.ReasonTooManyCourses, Strategy: "grid", Found: 80}, true},
		{"parse failure", timetable.Result{Reason: timetable.ReasonParseFailed, Strategy: "attribute", Cause: errors.New("boom")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx, events := captureHub(t)
			ctx = ctxutil.WithImportID(ctx, "imp-7")
			ctx = ctxutil.WithSource(ctx, "api")

			CaptureImportFailure(ctx, tt.result)

			got := events()
			if !tt.captured {
				assert.Empty(t, got)
				return
			}
			require.Len(t, got, 1)
			assert.Equal(t, tt.result.Reason.String(), got[0].Tags["import.reason"])
			assert.Equal(t, tt.result.Strategy, got[0].Tags["import.strategy"])
			assert.Equal(t, "imp-7", got[0].Tags["import.id"])
			assert.Equal(t, "api", got[0].Tags["import.source"])
		})
	}
}

func TestCaptureException_UsesContextHub(t *testing.T) {
	t.Parallel()
	ctx, events := captureHub(t)

	CaptureException(ctx, errors.New("snapshot upload failed"))

	require.Len(t, events(), 1)
}
