package app

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/garyellow/coursetable/internal/ctxutil"
	"github.com/garyellow/coursetable/internal/logger"
	"github.com/garyellow/coursetable/internal/metrics"
	"github.com/garyellow/coursetable/internal/ratelimit"
)

// requestIDHeaders are checked in order for a caller-supplied request ID.
var requestIDHeaders = []string{"X-Request-Id", "X-Correlation-Id"}

// requestIDMiddleware puts a request ID on the request context, reusing the
// caller's when present, and echoes it back.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		var requestID string
		for _, h := range requestIDHeaders {
			if requestID = c.GetHeader(h); requestID != "" {
				break
			}
		}
		if requestID == "" || len(requestID) > 128 {
			requestID = uuid.NewString()
		}

		c.Request = c.Request.WithContext(ctxutil.WithRequestID(c.Request.Context(), requestID))
		c.Header("X-Request-Id", requestID)
		c.Next()
	}
}

// securityHeadersMiddleware adds security headers to responses.
func securityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", "default-src 'none'")
		c.Header("X-Permitted-Cross-Domain-Policies", "none")
		c.Next()
	}
}

// loggingMiddleware logs HTTP requests with status-based log levels
// (5xx=Error, 4xx=Warn except 404, otherwise Debug) and records request
// metrics by route template.
func loggingMiddleware(log *logger.Logger, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()
		if m != nil {
			m.RecordHTTPRequest(c.FullPath(), status, duration)
		}

		entry := log.WithField("http_method", method).
			WithField("http_path", path).
			WithField("http_status", status).
			WithField("duration_ms", duration.Milliseconds()).
			WithField("client_ip", c.ClientIP())
		if requestID, ok := ctxutil.GetRequestID(c.Request.Context()); ok {
			entry = entry.WithRequestID(requestID)
		}
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}

		switch {
		case status >= 500:
			entry.Error("HTTP request failed")
		case status == 404:
			entry.Debug("HTTP request not found")
		case status >= 400:
			entry.Warn("HTTP request rejected")
		default:
			entry.Debug("HTTP request completed")
		}
	}
}

// rateLimitMiddleware throttles each client IP. A nil limiter lets every
// request through.
func rateLimitMiddleware(limiter *ratelimit.KeyedLimiter, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		key := c.ClientIP()
		if limiter.Allow(key) {
			c.Next()
			return
		}

		m.RecordRateLimited(c.FullPath())
		retry := int(math.Ceil(limiter.RetryAfter(key).Seconds()))
		c.Header("Retry-After", strconv.Itoa(max(retry, 1)))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests, try again later"})
	}
}
