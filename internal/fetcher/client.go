// Package fetcher downloads timetable pages over HTTP using an existing
// authenticated session cookie.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/corpix/uarand"
	"github.com/klauspost/compress/gzip"

	domerrors "github.com/garyellow/coursetable/internal/errors"
	"github.com/garyellow/coursetable/internal/htmlsource"
)

// Request describes one page download.
type Request struct {
	URL     string
	Cookie  string // raw Cookie header copied from a logged-in browser
	Charset string // "" or "auto" to detect
}

// Recorder receives fetch telemetry.
type Recorder interface {
	RecordFetch(status string, duration time.Duration)
}

// Client is an HTTP client for timetable pages with retries.
type Client struct {
	httpClient   *http.Client
	maxRetries   int
	initialDelay time.Duration
	userAgent    string
	recorder     Recorder
}

// NewClient creates a client. One random desktop User-Agent is chosen per
// client so a session keeps a stable fingerprint.
func NewClient(timeout time.Duration, maxRetries int) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
				DisableCompression:  true,
			},
		},
		maxRetries:   maxRetries,
		initialDelay: time.Second,
		userAgent:    uarand.GetRandom(),
	}
}

// SetRecorder attaches a metrics recorder. Call before first use.
func (c *Client) SetRecorder(r Recorder) {
	c.recorder = r
}

// Fetch downloads req.URL and returns the page as UTF-8 markup.
func (c *Client) Fetch(ctx context.Context, req Request) (string, error) {
	var page string
	start := time.Now()

	err := RetryWithBackoff(ctx, c.maxRetries, c.initialDelay, func() error {
		var err error
		page, err = c.fetchOnce(ctx, req)
		if err != nil {
			slog.DebugContext(ctx, "Timetable fetch attempt failed", "url", req.URL, "error", err)
		}
		return err
	})
	if c.recorder != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		c.recorder.RecordFetch(status, time.Since(start))
	}
	if err != nil {
		return "", domerrors.NewExtractionError(req.URL, err)
	}
	return page, nil
}

func (c *Client) fetchOnce(ctx context.Context, req Request) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return "", &permanentError{err: fmt.Errorf("failed to create request: %w", err)}
	}
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	httpReq.Header.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.7")
	httpReq.Header.Set("Accept-Encoding", "gzip")
	if req.Cookie != "" {
		httpReq.Header.Set("Cookie", req.Cookie)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		switch resp.StatusCode {
		case http.StatusTooManyRequests:
			return "", fmt.Errorf("rate limited: status %d", resp.StatusCode)
		case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return "", fmt.Errorf("server error: status %d", resp.StatusCode)
		case http.StatusUnauthorized, http.StatusForbidden:
			return "", &permanentError{err: fmt.Errorf("session rejected: status %d", resp.StatusCode)}
		case http.StatusNotFound:
			return "", &permanentError{err: fmt.Errorf("page not found: status %d", resp.StatusCode)}
		default:
			return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
	}

	var body io.Reader = resp.Body
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return "", fmt.Errorf("failed to decompress gzip: %w", err)
		}
		defer func() { _ = zr.Close() }()
		body = zr
	}

	page, err := htmlsource.Decode(body, req.Charset, resp.Header.Get("Content-Type"))
	if errors.Is(err, htmlsource.ErrUnknownCharset) || errors.Is(err, htmlsource.ErrTooLarge) {
		return "", &permanentError{err: err}
	}
	if err != nil {
		return "", err
	}
	return page, nil
}
