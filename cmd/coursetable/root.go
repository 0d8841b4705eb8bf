package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/spf13/cobra"

	"github.com/garyellow/coursetable/internal/buildinfo"
	"github.com/garyellow/coursetable/internal/config"
	"github.com/garyellow/coursetable/internal/ctxutil"
	"github.com/garyellow/coursetable/internal/logger"
	"github.com/garyellow/coursetable/internal/metrics"
	"github.com/garyellow/coursetable/internal/sentry"
	"github.com/garyellow/coursetable/internal/storage"
	"github.com/garyellow/coursetable/internal/timetable"
)

// skipSetup marks commands that run without configuration or a database.
const skipSetup = "coursetable/skip-setup"

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#2E7D32")).Bold(true)
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C62828")).Bold(true)
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
)

// app carries what every subcommand shares. It is filled in by the root
// command's PersistentPreRunE.
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	db       *storage.DB

	command  string // name of the command being run
	logLevel string
	out      io.Writer
	errOut   io.Writer
}

// run executes the CLI with args. Resources opened during setup are released
// even when the command fails.
func run(ctx context.Context, args []string, out, errOut io.Writer) error {
	a := &app{out: out, errOut: errOut}
	root := newRootCmd(a)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if teardownErr := a.teardown(); err == nil {
		err = teardownErr
	}
	return err
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "coursetable",
		Short: "Import, browse and export a university timetable",
		Long: `coursetable turns the timetable page of the educational administration
system into course records. Pages can come from saved HTML files, a logged-in
browser window or a plain HTTP request with a session cookie. Imported
timetables are stored locally and can be exported to an .ics calendar.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.SetOut(a.out)
	root.SetErr(a.errOut)
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error); defaults to COURSETABLE_LOG_LEVEL or warn")

	root.AddCommand(
		newParseCmd(a),
		newFetchCmd(a),
		newListCmd(a),
		newExportCmd(a),
		newHistoryCmd(a),
		newBackupCmd(a),
		newVersionCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if cmd.Annotations[skipSetup] != "" {
		return nil
	}

	cfg, err := config.LoadForMode(config.CLIMode)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.command = cmd.Name()
	a.registry = prometheus.NewRegistry()
	a.metrics = metrics.New(a.registry)

	level := a.logLevel
	if level == "" {
		level = os.Getenv(config.EnvLogLevel)
	}
	if level == "" {
		level = "warn"
	}
	logOpts := logger.Options{Level: level, Writer: a.errOut}
	if cfg.BetterStackEnabled {
		logOpts.BetterStackToken = cfg.BetterStackToken
		logOpts.BetterStackEndpoint = cfg.BetterStackEndpoint
	}
	a.log = logger.NewWithOptions(logOpts).WithField("service", "coursetable-cli").WithField("command", cmd.Name())
	a.log.SetDefault()

	if cfg.SentryEnabled {
		if err := sentry.Initialize(sentry.Config{
			Token:       cfg.SentryToken,
			Host:        cfg.SentryHost,
			Environment: cfg.SentryEnvironment,
			Release:     buildinfo.Version,
			SampleRate:  cfg.SentrySampleRate,
		}); err != nil {
			return fmt.Errorf("sentry: %w", err)
		}
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	a.db, err = storage.New(cmd.Context(), cfg.SQLitePath())
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	a.log.WithField("path", cfg.SQLitePath()).Debug("Database opened")
	return nil
}

// teardown pushes run metrics when a Pushgateway is configured, then closes
// the database and flushes telemetry.
func (a *app) teardown() error {
	if a.cfg == nil || a.log == nil {
		return nil
	}

	if a.cfg.PushgatewayURL != "" {
		err := push.New(a.cfg.PushgatewayURL, "coursetable_cli").
			Grouping("command", a.command).
			Gatherer(a.registry).
			Push()
		if err != nil {
			a.log.WithError(err).Warn("Failed to push metrics")
		}
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.WithError(err).Warn("Failed to close database")
		}
	}
	if sentry.IsEnabled() {
		sentry.Flush(config.TelemetryFlush)
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.TelemetryFlush)
	defer cancel()
	return a.log.Shutdown(ctx)
}

// importer returns the importer for name, or the configured strategy when
// name is empty.
func (a *app) importer(name string) (*timetable.Importer, error) {
	if name == "" {
		name = a.cfg.Strategy
	}
	extractors, err := timetable.Strategies(name, a.metrics)
	if err != nil {
		return nil, err
	}
	return timetable.NewImporter(a.metrics, extractors...), nil
}

// importOptions describe one page going through the importer.
type importOptions struct {
	Importer *timetable.Importer
	Source   string // file, http, browser, backup
	Save     bool   // replace the stored timetable and record history
}

// importPage parses page and, when opts.Save is set, replaces the stored
// timetable with the result. Rejected pages are recorded in the history but
// never touch stored courses.
func (a *app) importPage(ctx context.Context, page string, opts importOptions) (timetable.Result, error) {
	ctx = ctxutil.WithImportID(ctx, timetable.NewID())
	ctx = ctxutil.WithSource(ctx, opts.Source)

	start := time.Now()
	result := opts.Importer.Import(ctx, page)
	elapsed := time.Since(start)

	if !result.OK() {
		sentry.CaptureImportFailure(ctx, result)
	}
	if !opts.Save {
		return result, nil
	}

	if result.OK() {
		if err := a.db.ReplaceCourses(ctx, result.Courses); err != nil {
			return result, fmt.Errorf("store courses: %w", err)
		}
	}

	rec := &storage.ImportRecord{
		ID:         ctxutil.GetImportID(ctx),
		Strategy:   result.Strategy,
		Outcome:    result.Reason.String(),
		Source:     opts.Source,
		Found:      result.Found,
		Message:    result.Message(),
		DurationMs: elapsed.Milliseconds(),
	}
	if result.OK() {
		rec.Courses = len(result.Courses)
	}
	if err := a.db.RecordImport(ctx, rec); err != nil {
		a.log.WithError(err).Warn("Failed to record import history")
	}
	if result.OK() {
		a.metrics.SetStoredCourses(len(result.Courses))
	}
	return result, nil
}

// report prints the outcome line of an import.
func (a *app) report(label string, result timetable.Result) {
	prefix := ""
	if label != "" {
		prefix = dimStyle.Render(label) + " "
	}
	if result.OK() {
		_, _ = fmt.Fprintln(a.out, prefix+okStyle.Render("✓ "+result.Message()))
		return
	}
	_, _ = fmt.Fprintln(a.out, prefix+failStyle.Render("✗ "+result.Message()))
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print build information",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipSetup: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(a.out, buildinfo.String())
			return err
		},
	}
}
