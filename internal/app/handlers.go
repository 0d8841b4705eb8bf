package app

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyellow/coursetable/internal/browser"
	"github.com/garyellow/coursetable/internal/config"
	"github.com/garyellow/coursetable/internal/ctxutil"
	domerrors "github.com/garyellow/coursetable/internal/errors"
	"github.com/garyellow/coursetable/internal/exporter"
	"github.com/garyellow/coursetable/internal/htmlsource"
	"github.com/garyellow/coursetable/internal/sentry"
	"github.com/garyellow/coursetable/internal/storage"
	"github.com/garyellow/coursetable/internal/timetable"
)

const (
	defaultImportsLimit = 20
	maxImportsLimit     = 100
)

// pageRequest is the JSON form of a submitted page. HTML may be the raw
// result of the in-page extraction script, source tag and escapes included.
type pageRequest struct {
	HTML string `json:"html" binding:"required"`
}

// readPage returns the submitted markup as UTF-8 together with the part of
// the page it was captured from. JSON bodies carry a capture; anything else
// is treated as the page itself, decoded with ?charset= or the configured
// charset, falling back to detection.
func (a *Application) readPage(c *gin.Context) (browser.Capture, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, a.cfg.MaxBodySize)

	if c.ContentType() == gin.MIMEJSON {
		var req pageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return browser.Capture{}, err
		}
		capture := browser.DecodeCapture(req.HTML)
		a.metrics.RecordCapture(string(capture.Source))
		return capture, nil
	}

	charsetName := c.Query("charset")
	if charsetName == "" {
		charsetName = a.cfg.Charset
	}
	page, err := htmlsource.Decode(c.Request.Body, charsetName, c.GetHeader("Content-Type"))
	if err != nil {
		return browser.Capture{}, err
	}
	return browser.Capture{HTML: page, Source: browser.SourceRaw}, nil
}

// importerFor returns the importer selected by ?strategy=, or the
// configured one.
func (a *Application) importerFor(c *gin.Context) (*timetable.Importer, error) {
	name := c.Query("strategy")
	if name == "" {
		return a.importer, nil
	}
	extractors, err := timetable.Strategies(name, a.metrics)
	if err != nil {
		return nil, domerrors.NewValidationError("strategy", err.Error())
	}
	return timetable.NewImporter(a.metrics, extractors...), nil
}

// runImport reads the page and parses it. It writes the error response
// itself and returns ok=false when the request could not be parsed at all.
func (a *Application) runImport(c *gin.Context) (ctx context.Context, result timetable.Result, elapsed time.Duration, ok bool) {
	importer, err := a.importerFor(c)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return nil, result, 0, false
	}
	capture, err := a.readPage(c)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			abortWithError(c, http.StatusRequestEntityTooLarge, domerrors.NewValidationError("body", "page is too large"))
			return nil, result, 0, false
		}
		abortWithError(c, http.StatusBadRequest, domerrors.NewValidationError("body", err.Error()))
		return nil, result, 0, false
	}

	ctx = ctxutil.WithImportID(c.Request.Context(), timetable.NewID())
	ctx = ctxutil.WithSource(ctx, "api")

	parseCtx, cancel := context.WithTimeout(ctx, config.ImportProcessing)
	defer cancel()

	start := time.Now()
	result = importer.Import(parseCtx, capture.HTML)
	return ctx, result, time.Since(start), true
}

func rejectImport(c *gin.Context, importID string, result timetable.Result) {
	c.JSON(http.StatusUnprocessableEntity, gin.H{
		"import_id": importID,
		"reason":    result.Reason.String(),
		"strategy":  result.Strategy,
		"found":     result.Found,
		"message":   result.Message(),
	})
}

// handleParse parses a page and returns the courses without storing them.
func (a *Application) handleParse(c *gin.Context) {
	ctx, result, _, ok := a.runImport(c)
	if !ok {
		return
	}
	importID := ctxutil.GetImportID(ctx)
	if !result.OK() {
		sentry.CaptureImportFailure(ctx, result)
		rejectImport(c, importID, result)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"import_id": importID,
		"strategy":  result.Strategy,
		"count":     len(result.Courses),
		"courses":   result.Courses,
		"message":   result.Message(),
	})
}

// handleImport parses a page and replaces the stored timetable with the
// result. A rejected page leaves the stored timetable untouched. Every
// attempt is written to the import history.
func (a *Application) handleImport(c *gin.Context) {
	ctx, result, elapsed, ok := a.runImport(c)
	if !ok {
		return
	}
	importID := ctxutil.GetImportID(ctx)

	rec := &storage.ImportRecord{
		ID:         importID,
		Strategy:   result.Strategy,
		Outcome:    result.Reason.String(),
		Source:     ctxutil.GetSource(ctx),
		Found:      result.Found,
		Message:    result.Message(),
		DurationMs: elapsed.Milliseconds(),
	}

	if result.OK() {
		if err := a.db.ReplaceCourses(ctx, result.Courses); err != nil {
			a.logger.WithError(err).WithField("import_id", importID).Error("Failed to store imported courses")
			sentry.CaptureException(ctx, err)
			abortWithError(c, http.StatusInternalServerError, err)
			return
		}
		rec.Courses = len(result.Courses)
	}

	if err := a.db.RecordImport(ctx, rec); err != nil {
		a.logger.WithError(err).WithField("import_id", importID).Warn("Failed to record import history")
	}

	if !result.OK() {
		sentry.CaptureImportFailure(ctx, result)
		rejectImport(c, importID, result)
		return
	}

	a.metrics.SetStoredCourses(len(result.Courses))
	a.scheduleBackup(ctx)

	c.JSON(http.StatusOK, gin.H{
		"import_id": importID,
		"strategy":  result.Strategy,
		"count":     len(result.Courses),
		"courses":   result.Courses,
		"message":   result.Message(),
	})
}

func (a *Application) handleListCourses(c *gin.Context) {
	courses, err := a.db.SearchCourses(c.Request.Context(), c.Query("q"))
	if err != nil {
		abortWithError(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":   len(courses),
		"courses": courses,
	})
}

func (a *Application) handleGetCourse(c *gin.Context) {
	course, err := a.db.GetCourse(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, course)
}

// handleReplaceCourse stores an edited course under a new ID in place of the
// old one. An omitted color keeps the old color.
func (a *Application) handleReplaceCourse(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	var edited timetable.Course
	if err := c.ShouldBindJSON(&edited); err != nil {
		abortWithError(c, http.StatusBadRequest, domerrors.NewValidationError("body", err.Error()))
		return
	}

	old, err := a.db.GetCourse(ctx, id)
	if err != nil {
		abortWithError(c, statusFor(err), err)
		return
	}
	if edited.Color == 0 {
		edited.Color = old.Color
	}

	stored, err := a.db.ReplaceCourse(ctx, id, edited)
	if err != nil {
		abortWithError(c, statusFor(err), err)
		return
	}
	a.scheduleBackup(ctx)
	c.JSON(http.StatusOK, stored)
}

func (a *Application) handleDeleteCourse(c *gin.Context) {
	ctx := c.Request.Context()
	if err := a.db.DeleteCourse(ctx, c.Param("id")); err != nil {
		abortWithError(c, statusFor(err), err)
		return
	}
	a.recordStoredCourses(ctx)
	a.scheduleBackup(ctx)
	c.Status(http.StatusNoContent)
}

func (a *Application) handleListImports(c *gin.Context) {
	limit := defaultImportsLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			abortWithError(c, http.StatusBadRequest, domerrors.NewValidationError("limit", "must be a positive integer"))
			return
		}
		limit = min(n, maxImportsLimit)
	}

	records, err := a.db.ListImports(c.Request.Context(), limit)
	if err != nil {
		abortWithError(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":   len(records),
		"imports": records,
	})
}

// handleCalendar exports the stored timetable as an iCalendar file.
func (a *Application) handleCalendar(c *gin.Context) {
	semesterStart := a.cfg.SemesterStart()
	if semesterStart.IsZero() {
		abortWithError(c, http.StatusConflict, domerrors.NewValidationError("semester_start", "semester start is not configured"))
		return
	}
	var periods []exporter.Period
	if a.cfg.Calendar.Periods != "" {
		var err error
		if periods, err = exporter.ParsePeriods(a.cfg.Calendar.Periods); err != nil {
			abortWithError(c, http.StatusInternalServerError, err)
			return
		}
	}

	courses, err := a.db.ListCourses(c.Request.Context())
	if err != nil {
		abortWithError(c, statusFor(err), err)
		return
	}

	var buf bytes.Buffer
	if err := exporter.GenerateICS(courses, &buf, exporter.Options{
		SemesterStart: semesterStart,
		Location:      a.cfg.Location(),
		TotalWeeks:    a.cfg.Calendar.TotalWeeks,
		Periods:       periods,
	}); err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="coursetable.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", buf.Bytes())
}

// statusFor maps storage errors to HTTP status codes.
func statusFor(err error) int {
	var validation *domerrors.ValidationError
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case domerrors.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// abortWithError attaches err for the logging middleware and writes a JSON
// error body. Server errors never expose the underlying message.
func abortWithError(c *gin.Context, status int, err error) {
	_ = c.Error(err)
	message := domerrors.GetUserMessage(err)
	if status >= http.StatusInternalServerError {
		message = "internal server error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}
