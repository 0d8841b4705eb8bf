package timetable

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Strategy names, also used as metric labels.
const (
	StrategyAttribute = "attribute"
	StrategyGrid      = "grid"
	StrategyAuto      = "auto"
)

// Reasons a candidate element is skipped.
const (
	SkipBadAttribute   = "bad_attribute"
	SkipEndBeforeBegin = "end_before_begin"
	SkipMissingName    = "missing_name"
	SkipEmptyName      = "empty_name"
	SkipOutOfRange     = "out_of_range"
	SkipPlaceholder    = "placeholder_name"
	SkipPanic          = "panic"
)

// Extractor turns timetable markup into course records.
//
// Extract returns an empty slice, not an error, when nothing matches. An error
// means the markup could not be parsed at all.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, html string) ([]Course, error)
}

// Recorder receives parse telemetry. Implementations must be safe for
// concurrent use.
type Recorder interface {
	RecordImport(strategy, outcome string, duration time.Duration, courses int)
	RecordSkippedCell(strategy, reason string)
}

// Strategies returns the extractors for a strategy name in the order the
// importer should try them.
func Strategies(name string, rec Recorder) ([]Extractor, error) {
	switch name {
	case "", StrategyAuto:
		return []Extractor{&AttributeExtractor{Recorder: rec}, &GridExtractor{Recorder: rec}}, nil
	case StrategyAttribute:
		return []Extractor{&AttributeExtractor{Recorder: rec}}, nil
	case StrategyGrid:
		return []Extractor{&GridExtractor{Recorder: rec}}, nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", name)
	}
}

// StrategyNames lists the accepted strategy names.
func StrategyNames() []string {
	return []string{StrategyAuto, StrategyAttribute, StrategyGrid}
}

// ValidStrategy reports whether name is an accepted strategy name.
func ValidStrategy(name string) bool {
	return name == "" || slices.Contains(StrategyNames(), name)
}

// collector gathers records for one extraction pass and assigns colors in
// emission order.
type collector struct {
	ctx      context.Context
	strategy string
	rec      Recorder
	courses  []Course
}

func newCollector(ctx context.Context, strategy string, rec Recorder, capacity int) *collector {
	return &collector{
		ctx:      ctx,
		strategy: strategy,
		rec:      rec,
		courses:  make([]Course, 0, capacity),
	}
}

func (c *collector) add(course Course) {
	course.ID = NewID()
	course.Color = PaletteColor(len(c.courses))
	c.courses = append(c.courses, course)
}

func (c *collector) skip(reason string, attrs ...any) {
	slog.DebugContext(c.ctx, "Skipping timetable element",
		append([]any{"strategy", c.strategy, "reason", reason}, attrs...)...)
	if c.rec != nil {
		c.rec.RecordSkippedCell(c.strategy, reason)
	}
}

// visit runs fn for one candidate element. A panic inside fn only loses that
// element.
func (c *collector) visit(s *goquery.Selection, fn func(*goquery.Selection)) {
	defer func() {
		if r := recover(); r != nil {
			c.skip(SkipPanic, "panic", r)
		}
	}()
	fn(s)
}
