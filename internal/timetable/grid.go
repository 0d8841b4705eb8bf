package timetable

import (
	"context"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	// Tables with fewer rows are layout tables, not timetables.
	minGridRows = 5

	unknownCourseName = "未知课程"
)

// GridExtractor reads a plain table where row i (from 1) is period i and
// column j (from 1) is day j. Row 0 and column 0 are headers.
//
// Cells after a rowspan in later rows are not shifted back into place; such
// grids come out with the wrong day for those cells. Only td cells are
// counted, so a period label written as th leaves Monday's td at column 0:
// Monday is dropped and every later day comes out one too low.
type GridExtractor struct {
	Recorder Recorder
}

// Name implements Extractor.
func (e *GridExtractor) Name() string { return StrategyGrid }

// Extract implements Extractor. Markup that fails IsTimetablePage yields no
// records.
func (e *GridExtractor) Extract(ctx context.Context, src string) ([]Course, error) {
	if !IsTimetablePage(src) {
		return nil, nil
	}
	doc, err := parseDocument(src)
	if err != nil {
		return nil, err
	}

	c := newCollector(ctx, StrategyGrid, e.Recorder, 0)
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		rows := table.Find("tr")
		if rows.Length() < minGridRows {
			return
		}
		rows.Each(func(r int, row *goquery.Selection) {
			if r == 0 {
				return
			}
			row.Find("td").Each(func(col int, cell *goquery.Selection) {
				if col == 0 {
					return
				}
				c.visit(cell, func(cell *goquery.Selection) {
					c.gridCell(cell, col, r)
				})
			})
		})
	})
	return c.courses, nil
}

// ExtractByGridPosition runs the grid strategy without telemetry.
func ExtractByGridPosition(ctx context.Context, html string) ([]Course, error) {
	return (&GridExtractor{}).Extract(ctx, html)
}

func (c *collector) gridCell(cell *goquery.Selection, day, period int) {
	lines := textLines(cell)
	if len(lines) == 0 {
		return
	}
	if day > MaxDayOfWeek || period > MaxPeriod {
		c.skip(SkipOutOfRange, "day", day, "period", period)
		return
	}

	name := lines[0]
	if name == unknownCourseName {
		c.skip(SkipPlaceholder, "day", day, "period", period)
		return
	}

	c.add(Course{
		Name:        name,
		Room:        roomLine(lines),
		DayOfWeek:   day,
		StartPeriod: period,
		PeriodSpan:  rowspan(cell),
	})
}

// roomLine returns the first line that mentions a teaching building or a number.
func roomLine(lines []string) string {
	for _, line := range lines {
		if strings.ContainsAny(line, "教楼0123456789") {
			return line
		}
	}
	return ""
}

func rowspan(cell *goquery.Selection) int {
	n, err := strconv.Atoi(strings.TrimSpace(cell.AttrOr("rowspan", "")))
	if err != nil || n < 1 {
		return 1
	}
	return n
}
