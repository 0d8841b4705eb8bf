package exporter

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/garyellow/coursetable/internal/timetable"
)

// Period is one teaching slot as offsets from midnight.
type Period struct {
	Start time.Duration
	End   time.Duration
}

// DefaultPeriods is the twelve-period daily clock.
var DefaultPeriods = mustParsePeriods(
	"08:00-08:45,08:50-09:35,09:55-10:40,10:45-11:30,11:35-12:20," +
		"14:00-14:45,14:50-15:35,15:40-16:25,16:45-17:30,17:35-18:20," +
		"19:00-19:45,19:50-20:35")

// ParsePeriods parses "HH:MM-HH:MM" slots separated by commas.
func ParsePeriods(s string) ([]Period, error) {
	var periods []Period
	for i, slot := range strings.Split(s, ",") {
		start, end, ok := strings.Cut(strings.TrimSpace(slot), "-")
		if !ok {
			return nil, fmt.Errorf("period %d: expected HH:MM-HH:MM, got %q", i+1, slot)
		}
		from, err := clock(start)
		if err != nil {
			return nil, fmt.Errorf("period %d: %w", i+1, err)
		}
		to, err := clock(end)
		if err != nil {
			return nil, fmt.Errorf("period %d: %w", i+1, err)
		}
		if to <= from {
			return nil, fmt.Errorf("period %d ends before it starts", i+1)
		}
		periods = append(periods, Period{Start: from, End: to})
	}
	return periods, nil
}

func mustParsePeriods(s string) []Period {
	p, err := ParsePeriods(s)
	if err != nil {
		panic(err)
	}
	return p
}

func clock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// Options control calendar generation.
type Options struct {
	SemesterStart time.Time      // any day in week 1; the Monday of that week is used
	Location      *time.Location // defaults to SemesterStart's location
	TotalWeeks    int            // weeks used when a course has no week annotation
	Periods       []Period       // defaults to DefaultPeriods
	Now           func() time.Time
}

// GenerateICS writes one event per course per active week.
func GenerateICS(courses []timetable.Course, w io.Writer, opts Options) error {
	if opts.SemesterStart.IsZero() {
		return fmt.Errorf("semester start is required")
	}
	loc := opts.Location
	if loc == nil {
		loc = opts.SemesterStart.Location()
	}
	periods := opts.Periods
	if len(periods) == 0 {
		periods = DefaultPeriods
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	monday := weekMonday(opts.SemesterStart.In(loc))

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//coursetable//timetable export//ZH")
	cal.SetXWRCalName("课程表")
	cal.SetXWRTimezone(loc.String())

	for _, c := range courses {
		if c.StartPeriod < 1 || c.StartPeriod > len(periods) {
			slog.Warn("Course outside the period clock, skipped", "course", c.Name, "start_period", c.StartPeriod)
			continue
		}
		endPeriod := min(c.EndPeriod(), len(periods))

		weeks, err := ParseWeeks(c.Weeks)
		if err != nil {
			slog.Warn("Unreadable week annotation, using every week", "course", c.Name, "weeks", c.Weeks, "error", err)
			weeks = nil
		}
		if len(weeks) == 0 {
			weeks = allWeeks(opts.TotalWeeks)
		}

		for _, week := range weeks {
			day := monday.AddDate(0, 0, (week-1)*7+c.DayOfWeek-1)
			start := day.Add(periods[c.StartPeriod-1].Start)
			end := day.Add(periods[endPeriod-1].End)

			event := cal.AddEvent(fmt.Sprintf("%s-w%d@coursetable", c.ID, week))
			event.SetDtStampTime(now())
			event.SetStartAt(start)
			event.SetEndAt(end)
			event.SetSummary(c.Name)
			if c.Room != "" {
				event.SetLocation(c.Room)
			}
			event.SetDescription(fmt.Sprintf("第%d周 第%d-%d节", week, c.StartPeriod, endPeriod))
		}
	}

	_, err := io.WriteString(w, cal.Serialize())
	return err
}

func weekMonday(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	y, m, d := t.AddDate(0, 0, -offset).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func allWeeks(total int) []int {
	weeks := make([]int, total)
	for i := range weeks {
		weeks[i] = i + 1
	}
	return weeks
}
