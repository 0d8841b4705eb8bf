package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"

	domerrors "github.com/garyellow/coursetable/internal/errors"
	"github.com/garyellow/coursetable/internal/htmlsource"
)

func newTestClient(maxRetries int) *Client {
	c := NewClient(5*time.Second, maxRetries)
	c.initialDelay = time.Millisecond
	return c
}

func TestFetch_RetriesServerErrors(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		assert.Equal(t, "JSESSIONID=abc", r.Header.Get("Cookie"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprint(w, "<h1>学生课表</h1>")
	}))
	defer srv.Close()

	page, err := newTestClient(3).Fetch(context.Background(), Request{URL: srv.URL, Cookie: "JSESSIONID=abc"})
	require.NoError(t, err)
	assert.Equal(t, "<h1>学生课表</h1>", page)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetch_SessionRejectedIsPermanent(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := newTestClient(5).Fetch(context.Background(), Request{URL: srv.URL})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())

	var extractErr *domerrors.ExtractionError
	require.True(t, errors.As(err, &extractErr))
	assert.Equal(t, srv.URL, extractErr.URL)
	assert.Contains(t, err.Error(), "session rejected")
}

func TestFetch_GzipAndCharset(t *testing.T) {
	t.Parallel()
	body, err := simplifiedchinese.GBK.NewEncoder().String("<td>线性代数</td>")
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=GBK")
		w.Header().Set("Content-Encoding", "gzip")
		zw := gzip.NewWriter(w)
		_, _ = zw.Write([]byte(body))
		_ = zw.Close()
	}))
	defer srv.Close()

	page, err := newTestClient(0).Fetch(context.Background(), Request{URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, "<td>线性代数</td>", page)
}

func TestFetch_TruncatedBodyIsRetried(t *testing.T) {
	t.Parallel()
	var full bytes.Buffer
	zw := gzip.NewWriter(&full)
	_, _ = zw.Write([]byte("<h1>学生课表</h1>"))
	require.NoError(t, zw.Close())
	// Dropping the trailer makes the reader fail mid-stream.
	truncated := full.Bytes()[:full.Len()-8]

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Content-Encoding", "gzip")
		if calls.Add(1) == 1 {
			_, _ = w.Write(truncated)
			return
		}
		_, _ = w.Write(full.Bytes())
	}))
	defer srv.Close()

	page, err := newTestClient(2).Fetch(context.Background(), Request{URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, "<h1>学生课表</h1>", page)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetch_UnknownCharsetIsPermanent(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = fmt.Fprint(w, "<h1>学生课表</h1>")
	}))
	defer srv.Close()

	_, err := newTestClient(3).Fetch(context.Background(), Request{URL: srv.URL, Charset: "klingon"})
	require.Error(t, err)
	assert.ErrorIs(t, err, htmlsource.ErrUnknownCharset)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetch_ContextCanceled(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(3).Fetch(ctx, Request{URL: srv.URL})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsNetworkError(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"permanent error", &permanentError{err: errors.New("client error")}, false},
		{"wrapped permanent error", fmt.Errorf("wrapped: %w", &permanentError{err: errors.New("client error")}), false},
		{"timeout error", &netTimeError{timeout: true}, true},
		{"connection refused", errors.New("dial tcp 127.0.0.1:8080: connection refused"), true},
		{"connection reset", errors.New("read: connection reset by peer"), true},
		{"server error", errors.New("server error: status 503"), true},
		{"rate limited", errors.New("rate limited: status 429"), true},
		{"unknown generic error", errors.New("something went wrong"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, IsNetworkError(tt.err))
		})
	}
}

// netTimeError mocks a net.Error with Timeout() support
type netTimeError struct {
	timeout bool
}

func (e *netTimeError) Error() string   { return "net error" }
func (e *netTimeError) Timeout() bool   { return e.timeout }
func (e *netTimeError) Temporary() bool { return false }
