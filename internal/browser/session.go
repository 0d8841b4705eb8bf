package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/corpix/uarand"

	domerrors "github.com/garyellow/coursetable/internal/errors"
	"github.com/garyellow/coursetable/internal/timetable"
)

// Recorder counts captures by source.
type Recorder interface {
	RecordCapture(source string)
}

// Options configure a browser session.
type Options struct {
	ExecPath  string        // empty: look up google-chrome / chromium on PATH
	Headless  bool          // false shows the window so the user can log in
	UserAgent string        // empty: random desktop user agent
	Timeout   time.Duration // per Extract call
	Recorder  Recorder
}

// lookPath is replaced in tests.
var lookPath = exec.LookPath

var chromeCandidates = []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser"}

func findExecPath(configured string) string {
	if configured != "" {
		return configured
	}
	for _, name := range chromeCandidates {
		if path, _ := lookPath(name); path != "" {
			return path
		}
	}
	return ""
}

// Session owns one Chrome process and its first tab.
type Session struct {
	ctx         context.Context
	allocCancel context.CancelFunc
	tabCancel   context.CancelFunc
	opts        Options
}

// Open starts Chrome. The returned session must be closed.
func Open(ctx context.Context, opts Options) (*Session, error) {
	if opts.UserAgent == "" {
		opts.UserAgent = uarand.GetRandom()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.UserAgent(opts.UserAgent),
	)
	if path := findExecPath(opts.ExecPath); path != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(path))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocOpts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			slog.Debug(fmt.Sprintf(format, args...), "component", "chromedp")
		}),
	)

	// First Run launches the browser.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	slog.InfoContext(ctx, "Browser started", "headless", opts.Headless)
	return &Session{ctx: tabCtx, allocCancel: allocCancel, tabCancel: tabCancel, opts: opts}, nil
}

// Navigate loads url in the session tab.
func (s *Session) Navigate(ctx context.Context, url string) error {
	runCtx, cancel := s.runContext(ctx)
	defer cancel()
	if err := chromedp.Run(runCtx, chromedp.Navigate(url)); err != nil {
		return domerrors.NewExtractionError(url, err)
	}
	return nil
}

// Extract evaluates the capture script against the current page.
func (s *Session) Extract(ctx context.Context) (Capture, error) {
	runCtx, cancel := s.runContext(ctx)
	defer cancel()

	var raw, location string
	err := chromedp.Run(runCtx,
		chromedp.Location(&location),
		chromedp.Evaluate(extractScript, &raw),
	)
	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %w", domerrors.ErrTimeout, err)
		}
		return Capture{}, domerrors.NewExtractionError(location, err)
	}

	capture := DecodeCapture(raw)
	capture.URL = location
	if s.opts.Recorder != nil {
		s.opts.Recorder.RecordCapture(string(capture.Source))
	}
	slog.DebugContext(ctx, "Page captured", "source", capture.Source, "bytes", len(capture.HTML), "url", location)
	return capture, nil
}

// WaitForTimetable captures the page every interval until the capture passes
// timetable.IsTimetablePage or ctx ends. It is meant for interactive use,
// where the user logs in and opens the timetable in the visible window.
func (s *Session) WaitForTimetable(ctx context.Context, interval time.Duration) (Capture, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		capture, err := s.Extract(ctx)
		switch {
		case err != nil:
			slog.DebugContext(ctx, "Capture attempt failed", "error", err)
		case timetable.IsTimetablePage(capture.HTML):
			return capture, nil
		}

		select {
		case <-ctx.Done():
			return Capture{}, fmt.Errorf("waiting for timetable page: %w", ctx.Err())
		case <-s.ctx.Done():
			return Capture{}, errors.New("browser closed before the timetable page was reached")
		case <-ticker.C:
		}
	}
}

// Close shuts Chrome down.
func (s *Session) Close() {
	s.tabCancel()
	s.allocCancel()
}

// runContext bounds a call by the session timeout and by the caller's ctx.
func (s *Session) runContext(ctx context.Context) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithTimeout(s.ctx, s.opts.Timeout)
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}
