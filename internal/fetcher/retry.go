package fetcher

import (
	"context"
	"crypto/rand"
	"errors"
	"math"
	"math/big"
	"net"
	"strings"
	"time"
)

// permanentError marks a failure that retrying cannot fix (bad credentials,
// missing page).
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// RetryWithBackoff retries fn with exponential backoff and jitter.
// A permanentError stops the loop immediately.
//
// maxRetries: retry attempts after the first try (0 = try once)
// initialDelay: delay before the first retry
//
// Backoff formula: delay = initialDelay * 2^attempt ± 25% jitter
func RetryWithBackoff(ctx context.Context, maxRetries int, initialDelay time.Duration, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		var permErr *permanentError
		if errors.As(err, &permErr) {
			return permErr.Unwrap()
		}

		if attempt == maxRetries {
			break
		}

		delay := time.Duration(float64(initialDelay) * math.Pow(2, float64(attempt)))
		halfDelay := int64(delay) / 2
		if halfDelay == 0 {
			halfDelay = 1
		}
		jitterBig, err := rand.Int(rand.Reader, big.NewInt(halfDelay))
		if err != nil {
			jitterBig = big.NewInt(0)
		}
		delay = delay - delay/4 + time.Duration(jitterBig.Int64())

		if err := Sleep(ctx, delay); err != nil {
			return err
		}
	}

	return lastErr
}

// Sleep waits for d, returning early with the context error on cancellation.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsNetworkError reports whether err looks like a transient transport failure.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	var permErr *permanentError
	if errors.As(err, &permErr) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"connection refused",
		"connection reset",
		"no such host",
		"server error",
		"rate limited",
		"eof",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
