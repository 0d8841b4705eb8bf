// Package metrics exposes Prometheus metrics for imports, page retrieval
// and the HTTP API.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Import metrics
	ImportsTotal          *prometheus.CounterVec
	ImportDurationSeconds *prometheus.HistogramVec
	CoursesParsed         *prometheus.HistogramVec
	SkippedCellsTotal     *prometheus.CounterVec
	StoredCourses         prometheus.Gauge

	// Page retrieval metrics
	BrowserCapturesTotal *prometheus.CounterVec
	FetchRequestsTotal   *prometheus.CounterVec
	FetchDurationSeconds prometheus.Histogram

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPDurationSeconds *prometheus.HistogramVec
	RateLimitedTotal    *prometheus.CounterVec
	RateLimiterClients  prometheus.Gauge

	// Backup metrics
	BackupOperationsTotal *prometheus.CounterVec
}

// New creates a new Metrics instance with all metrics registered
func New(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		ImportsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coursetable_imports_total",
				Help: "Total number of timetable imports by winning strategy and outcome",
			},
			[]string{"strategy", "outcome"}, // strategy: attribute, grid, none
		),

		ImportDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "coursetable_import_duration_seconds",
				Help:    "Timetable parse duration in seconds by winning strategy",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"strategy"},
		),

		CoursesParsed: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "coursetable_courses_parsed",
				Help:    "Number of course records produced per import",
				Buckets: []float64{0, 1, 5, 10, 15, 20, 30, 40, 60},
			},
			[]string{"strategy"},
		),

		SkippedCellsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coursetable_skipped_cells_total",
				Help: "Total number of timetable elements skipped by strategy and reason",
			},
			[]string{"strategy", "reason"}, // reason: bad_attribute, out_of_range, placeholder, panic, ...
		),

		StoredCourses: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "coursetable_stored_courses",
				Help: "Number of courses in the stored timetable",
			},
		),

		BrowserCapturesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coursetable_browser_extractions_total",
				Help: "Total number of browser captures by markup source",
			},
			[]string{"source"}, // source: container, table, body_fallback, raw
		),

		FetchRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coursetable_fetch_requests_total",
				Help: "Total number of HTTP page fetches by status",
			},
			[]string{"status"}, // status: success, error
		),

		FetchDurationSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "coursetable_fetch_duration_seconds",
				Help:    "HTTP page fetch duration in seconds, retries included",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
		),

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coursetable_http_requests_total",
				Help: "Total HTTP API requests by route and status code",
			},
			[]string{"route", "status"},
		),

		HTTPDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "coursetable_http_duration_seconds",
				Help:    "HTTP API request duration in seconds by route",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"route"},
		),

		RateLimitedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coursetable_http_rate_limited_total",
				Help: "Total API requests rejected by the per-client rate limiter",
			},
			[]string{"route"},
		),

		RateLimiterClients: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "coursetable_http_rate_limiter_clients",
				Help: "Clients currently tracked by the rate limiter",
			},
		),

		BackupOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coursetable_backup_operations_total",
				Help: "Total number of snapshot backup operations by operation and status",
			},
			[]string{"operation", "status"}, // operation: push, pull
		),
	}
}

// RecordImport records the outcome of one import.
func (m *Metrics) RecordImport(strategy, outcome string, duration time.Duration, courses int) {
	m.ImportsTotal.WithLabelValues(strategy, outcome).Inc()
	m.ImportDurationSeconds.WithLabelValues(strategy).Observe(duration.Seconds())
	m.CoursesParsed.WithLabelValues(strategy).Observe(float64(courses))
}

// RecordSkippedCell records one timetable element dropped during extraction.
func (m *Metrics) RecordSkippedCell(strategy, reason string) {
	m.SkippedCellsTotal.WithLabelValues(strategy, reason).Inc()
}

// RecordCapture records where a browser capture's markup came from.
func (m *Metrics) RecordCapture(source string) {
	m.BrowserCapturesTotal.WithLabelValues(source).Inc()
}

// RecordFetch records one HTTP page fetch.
func (m *Metrics) RecordFetch(status string, duration time.Duration) {
	m.FetchRequestsTotal.WithLabelValues(status).Inc()
	m.FetchDurationSeconds.Observe(duration.Seconds())
}

// RecordHTTPRequest records a served API request. route is the matched
// route pattern, never the raw path.
func (m *Metrics) RecordHTTPRequest(route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.HTTPDurationSeconds.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordRateLimited records one request rejected by the rate limiter.
func (m *Metrics) RecordRateLimited(route string) {
	m.RateLimitedTotal.WithLabelValues(route).Inc()
}

// SetRateLimiterClients updates the number of tracked clients.
func (m *Metrics) SetRateLimiterClients(n int) {
	m.RateLimiterClients.Set(float64(n))
}

// RecordBackup records a snapshot push or pull.
func (m *Metrics) RecordBackup(operation string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.BackupOperationsTotal.WithLabelValues(operation, status).Inc()
}

// SetStoredCourses updates the stored timetable size.
func (m *Metrics) SetStoredCourses(n int) {
	m.StoredCourses.Set(float64(n))
}
