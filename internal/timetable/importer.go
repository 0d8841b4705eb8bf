package timetable

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	domerrors "github.com/garyellow/coursetable/internal/errors"
)

// Reason tags the outcome of an import.
type Reason int

const (
	ReasonOK Reason = iota
	ReasonNotTimetablePage
	ReasonNoCourses
	ReasonTooManyCourses
	ReasonParseFailed
)

// String returns the metric label for r.
func (r Reason) String() string {
	switch r {
	case ReasonOK:
		return "ok"
	case ReasonNotTimetablePage:
		return "not_timetable_page"
	case ReasonNoCourses:
		return "no_courses"
	case ReasonTooManyCourses:
		return "too_many_courses"
	case ReasonParseFailed:
		return "parse_failed"
	default:
		return fmt.Sprintf("reason(%d)", int(r))
	}
}

// Result is the outcome of one import. Exactly one of Courses (when OK) or a
// non-OK Reason is meaningful; there is no partial success.
type Result struct {
	Courses  []Course
	Reason   Reason
	Strategy string // extractor that produced Courses or the failure, empty if none ran
	Found    int    // records found before the plausibility gate discarded them
	Cause    error  // set for ReasonParseFailed
}

// OK reports whether the import produced a usable batch.
func (r Result) OK() bool { return r.Reason == ReasonOK }

// Message returns the user-facing message for the outcome.
func (r Result) Message() string {
	switch r.Reason {
	case ReasonOK:
		return fmt.Sprintf("成功导入 %d 门课程！", len(r.Courses))
	case ReasonNotTimetablePage, ReasonNoCourses:
		return "未检测到课表数据，请先进入【学生课表】页面"
	case ReasonTooManyCourses:
		return fmt.Sprintf("解析结果异常：检测到 %d 门课程，请确认是否在正确的课表页面", r.Found)
	default:
		if r.Cause != nil {
			return "课表解析失败: " + r.Cause.Error()
		}
		return "课表解析失败"
	}
}

// Err returns nil for a successful import and otherwise an error wrapping the
// matching sentinel from the errors package, carrying Message as the user
// message.
func (r Result) Err() error {
	var sentinel error
	switch r.Reason {
	case ReasonOK:
		return nil
	case ReasonNotTimetablePage:
		sentinel = domerrors.ErrNotTimetablePage
	case ReasonNoCourses:
		sentinel = domerrors.ErrNoCourses
	case ReasonTooManyCourses:
		sentinel = fmt.Errorf("%w: %d", domerrors.ErrTooManyCourses, r.Found)
	default:
		sentinel = domerrors.ErrParseFailed
		if r.Cause != nil {
			sentinel = fmt.Errorf("%w: %w", domerrors.ErrParseFailed, r.Cause)
		}
	}
	return domerrors.WithUserMessage(sentinel, "timetable.import", r.Message())
}

// Importer runs the page gate, the extraction strategies in order and the
// plausibility gate. It is stateless apart from its configuration.
type Importer struct {
	extractors []Extractor
	recorder   Recorder
	maxCourses int
}

// NewImporter creates an importer trying extractors in order. With no
// extractors it uses the attribute strategy with the grid strategy as fallback.
// rec may be nil.
func NewImporter(rec Recorder, extractors ...Extractor) *Importer {
	if len(extractors) == 0 {
		extractors, _ = Strategies(StrategyAuto, rec)
	}
	return &Importer{
		extractors: extractors,
		recorder:   rec,
		maxCourses: MaxCourses,
	}
}

// Import parses html into a batch of courses. It never panics; a panic in a
// strategy is reported as ReasonParseFailed.
func (im *Importer) Import(ctx context.Context, html string) (result Result) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "Timetable parse panicked", "panic", r)
			result = Result{Reason: ReasonParseFailed, Strategy: result.Strategy, Cause: fmt.Errorf("panic: %v", r)}
		}
		im.record(ctx, result, time.Since(start))
	}()

	if !IsTimetablePage(html) {
		return Result{Reason: ReasonNotTimetablePage}
	}

	for _, ex := range im.extractors {
		result.Strategy = ex.Name()
		courses, err := ex.Extract(ctx, html)
		if err != nil {
			return Result{Reason: ReasonParseFailed, Strategy: ex.Name(), Cause: err}
		}
		if len(courses) == 0 {
			slog.DebugContext(ctx, "Strategy found no courses", "strategy", ex.Name())
			continue
		}
		if len(courses) > im.maxCourses {
			return Result{Reason: ReasonTooManyCourses, Strategy: ex.Name(), Found: len(courses)}
		}
		return Result{Courses: courses, Strategy: ex.Name(), Found: len(courses)}
	}
	return Result{Reason: ReasonNoCourses}
}

func (im *Importer) record(ctx context.Context, result Result, d time.Duration) {
	attrs := []any{
		"strategy", result.Strategy,
		"outcome", result.Reason.String(),
		"courses", len(result.Courses),
		"duration_ms", d.Milliseconds(),
	}
	if result.OK() {
		slog.InfoContext(ctx, "Timetable imported", attrs...)
	} else {
		if result.Cause != nil {
			attrs = append(attrs, "error", result.Cause)
		}
		slog.WarnContext(ctx, "Timetable import rejected", attrs...)
	}

	if im.recorder != nil {
		strategy := result.Strategy
		if strategy == "" {
			strategy = "none"
		}
		im.recorder.RecordImport(strategy, result.Reason.String(), d, len(result.Courses))
	}
}
