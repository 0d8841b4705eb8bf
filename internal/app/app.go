// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/garyellow/coursetable/internal/buildinfo"
	"github.com/garyellow/coursetable/internal/config"
	"github.com/garyellow/coursetable/internal/logger"
	"github.com/garyellow/coursetable/internal/metrics"
	"github.com/garyellow/coursetable/internal/r2client"
	"github.com/garyellow/coursetable/internal/ratelimit"
	"github.com/garyellow/coursetable/internal/sentry"
	"github.com/garyellow/coursetable/internal/storage"
	"github.com/garyellow/coursetable/internal/timetable"
)

// Application manages the application lifecycle and dependencies.
type Application struct {
	cfg      *config.Config
	logger   *logger.Logger
	db       *storage.DB
	metrics  *metrics.Metrics
	registry *prometheus.Registry
	importer *timetable.Importer
	backup   *r2client.Client        // nil when R2 backup is disabled
	limiter  *ratelimit.KeyedLimiter // nil when rate limiting is disabled
	server   *http.Server

	backupMu   sync.Mutex
	backupETag string         // ETag of the last snapshot this process pushed
	backups    sync.WaitGroup // snapshot uploads triggered by imports

	wg sync.WaitGroup // Track background goroutines for graceful shutdown
}

// Initialize creates and initializes a new application with all dependencies.
func Initialize(ctx context.Context, cfg *config.Config) (*Application, error) {
	logOpts := logger.Options{Level: cfg.LogLevel, Writer: os.Stdout}
	if cfg.BetterStackEnabled {
		logOpts.BetterStackToken = cfg.BetterStackToken
		logOpts.BetterStackEndpoint = cfg.BetterStackEndpoint
	}
	log := logger.NewWithOptions(logOpts).WithField("service", "coursetable")
	if host, err := os.Hostname(); err == nil && host != "" {
		log = log.WithField("instance_id", host)
	}

	// Package-level slog calls in timetable and storage go through the
	// ContextHandler and pick up request and import IDs.
	log.SetDefault()

	log.WithField("version", buildinfo.String()).Info("Initializing application...")
	if cfg.BetterStackEnabled {
		log.WithField("endpoint", cfg.BetterStackEndpoint).Info("Better Stack logging enabled")
	}

	if cfg.SentryEnabled {
		if err := sentry.Initialize(sentry.Config{
			Token:       cfg.SentryToken,
			Host:        cfg.SentryHost,
			Environment: cfg.SentryEnvironment,
			Release:     buildinfo.Version,
			SampleRate:  cfg.SentrySampleRate,
		}); err != nil {
			return nil, fmt.Errorf("sentry: %w", err)
		}
		log.WithField("host", cfg.SentryHost).Info("Error tracking enabled")
	}

	db, err := storage.New(ctx, cfg.SQLitePath())
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	log.WithField("path", cfg.SQLitePath()).Info("Database connected")

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewBuildInfoCollector(),
	)
	m := metrics.New(registry)

	extractors, err := timetable.Strategies(cfg.Strategy, m)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("strategy: %w", err)
	}

	var backup *r2client.Client
	if cfg.R2Enabled {
		backup, err = r2client.New(ctx, r2client.Config{
			AccountID:   cfg.R2AccountID,
			AccessKeyID: cfg.R2AccessKeyID,
			SecretKey:   cfg.R2SecretAccessKey,
			BucketName:  cfg.R2BucketName,
		})
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("r2: %w", err)
		}
		log.WithField("bucket", cfg.R2BucketName).Info("Snapshot backup enabled")
	}

	app := &Application{
		cfg:      cfg,
		logger:   log,
		db:       db,
		metrics:  m,
		registry: registry,
		importer: timetable.NewImporter(m, extractors...),
		backup:   backup,
	}
	if cfg.RateLimit > 0 {
		app.limiter = ratelimit.NewKeyedLimiter(ratelimit.KeyedConfig{
			Burst:         float64(cfg.RateLimit),
			RefillRate:    float64(cfg.RateLimit) / 60,
			CleanupPeriod: config.RateLimiterCleanup,
			Recorder:      m,
		})
	}

	gin.SetMode(gin.ReleaseMode)
	app.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           app.newRouter(),
		ReadHeaderTimeout: config.HTTPRead,
		ReadTimeout:       config.HTTPRead,
		WriteTimeout:      config.HTTPWrite,
		IdleTimeout:       config.HTTPIdle,
	}

	log.WithField("strategy", cfg.Strategy).Info("Initialization complete")
	return app, nil
}

// newRouter builds the gin engine with middleware and all routes.
func (a *Application) newRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	router.Use(requestIDMiddleware())
	router.Use(securityHeadersMiddleware())
	router.Use(loggingMiddleware(a.logger, a.metrics))

	router.GET("/livez", a.livenessCheck)
	router.HEAD("/livez", a.livenessCheck)
	router.GET("/readyz", a.readinessCheck)
	router.HEAD("/readyz", a.readinessCheck)
	router.GET("/metrics",
		basicAuth("metrics", a.cfg.MetricsAuthEnabled, a.cfg.MetricsUsername, a.cfg.MetricsPassword),
		gin.WrapH(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))

	api := router.Group("/api/v1")
	limited := rateLimitMiddleware(a.limiter, a.metrics)
	api.POST("/timetable/parse", limited, a.handleParse)
	api.POST("/timetable/import", limited, a.handleImport)
	api.GET("/courses", a.handleListCourses)
	api.GET("/courses/:id", a.handleGetCourse)
	api.PUT("/courses/:id", a.handleReplaceCourse)
	api.DELETE("/courses/:id", a.handleDeleteCourse)
	api.GET("/imports", a.handleListImports)
	api.GET("/calendar.ics", a.handleCalendar)

	return router
}

func (a *Application) livenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}

func (a *Application) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), config.ReadinessCheck)
	defer cancel()

	if err := a.db.Ready(ctx); err != nil {
		a.logger.WithError(err).Warn("Readiness check failed: database unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "database unavailable",
		})
		return
	}

	count, err := a.db.CountCourses(ctx)
	if err != nil {
		a.logger.WithError(err).Warn("Failed to count courses in readiness check")
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ready",
		"database": "connected",
		"courses":  count,
		"version":  buildinfo.String(),
		"features": gin.H{
			"backup":         a.backup != nil,
			"error_tracking": sentry.IsEnabled(),
		},
	})
}

// Run starts the HTTP server and background jobs and blocks until SIGINT or
// SIGTERM.
//
// Background jobs are stopped and awaited before resources close, so a
// snapshot upload never races the database shutdown.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.startBackgroundJobs(ctx)
	a.startHTTPServer()

	sig := a.waitForShutdownSignal()
	a.logger.WithField("signal", sig.String()).Info("Received shutdown signal")

	cancel()

	a.logger.Info("Waiting for background jobs to finish...")
	start := time.Now()
	a.wg.Wait()
	a.logger.WithField("duration_ms", time.Since(start).Milliseconds()).
		Info("All background jobs completed")

	return a.shutdown()
}

func (a *Application) startBackgroundJobs(ctx context.Context) {
	a.wg.Go(func() {
		a.updateStoredCoursesMetric(ctx)
	})
}

func (a *Application) startHTTPServer() {
	go func() {
		a.logger.WithField("port", a.cfg.Port).Info("Starting HTTP server")
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.WithError(err).Error("HTTP server error")
		}
	}()
}

func (a *Application) waitForShutdownSignal() os.Signal {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	return <-quit
}

// shutdown stops accepting requests, waits for in-flight ones and closes
// resources. Call it after background jobs have completed.
func (a *Application) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	a.logger.Info("Stopping HTTP server...")
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Error("HTTP server shutdown error")
	}

	if a.limiter != nil {
		a.limiter.Stop()
	}

	// Uploads started by the last imports must finish before the database closes.
	a.backups.Wait()

	a.logger.Info("Closing resources...")
	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).WithField("component", "database").Error("Component close error")
	}

	if sentry.IsEnabled() && !sentry.Flush(config.TelemetryFlush) {
		a.logger.Warn("Sentry flush timed out")
	}

	a.logger.Info("Shutdown complete")

	flushCtx, flushCancel := context.WithTimeout(context.Background(), config.TelemetryFlush)
	defer flushCancel()
	if err := a.logger.Shutdown(flushCtx); err != nil {
		a.logger.WithError(err).Warn("Logger shutdown timed out")
	}
	return nil
}

// updateStoredCoursesMetric keeps the stored course gauge in line with the
// database, including edits made by the CLI against the same file.
func (a *Application) updateStoredCoursesMetric(ctx context.Context) {
	a.logger.Debug("Course metrics job started")
	defer a.logger.Debug("Course metrics job stopped")

	a.recordStoredCourses(ctx)

	ticker := time.NewTicker(config.MetricsUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.recordStoredCourses(ctx)
		}
	}
}

func (a *Application) recordStoredCourses(ctx context.Context) {
	count, err := a.db.CountCourses(ctx)
	if err != nil {
		a.logger.WithError(err).Warn("Failed to count stored courses")
		return
	}
	a.metrics.SetStoredCourses(count)
}
