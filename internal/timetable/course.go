// Package timetable turns a captured timetable page into course records.
//
// Two extraction strategies cover the markup shapes seen on the academic
// affairs system: cells tagged with positional data attributes, and plain
// grids where the day and period are implied by the cell position. Both sit
// behind a page-validity gate and a plausibility gate (see Importer).
//
// Everything in this package is a pure function of its input string. No state
// is kept between calls, so any goroutine may call it.
package timetable

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Bounds of a weekly timetable.
const (
	MinDayOfWeek = 1
	MaxDayOfWeek = 7
	MinPeriod    = 1
	MaxPeriod    = 12

	// MaxCourses is the plausibility bound for a single import.
	MaxCourses = 40
)

// Color is an ARGB presentation hint.
type Color uint32

// Palette is the fixed set of course colors, assigned round-robin in emission order.
var Palette = []Color{
	0xFF64B5F6, 0xFF81C784, 0xFFFFB74D,
	0xFFE57373, 0xFFBA68C8, 0xFF4DB6AC, 0xFF90A4AE,
}

// PaletteColor returns the palette entry for the i-th emitted course.
func PaletteColor(i int) Color {
	if i < 0 {
		i = -i
	}
	return Palette[i%len(Palette)]
}

// Hex returns the color as "#RRGGBB".
func (c Color) Hex() string {
	return fmt.Sprintf("#%06X", uint32(c)&0xFFFFFF)
}

// MarshalText encodes the color as "#RRGGBB".
func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.Hex()), nil
}

// UnmarshalText accepts "#RRGGBB" (opaque) or "#AARRGGBB".
func (c *Color) UnmarshalText(text []byte) error {
	s := strings.TrimPrefix(strings.TrimSpace(string(text)), "#")
	if len(s) != 6 && len(s) != 8 {
		return fmt.Errorf("invalid color %q", string(text))
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return fmt.Errorf("invalid color %q: %w", string(text), err)
	}
	if len(s) == 6 {
		v |= 0xFF000000
	}
	*c = Color(v)
	return nil
}

// Course is one parsed timetable entry.
type Course struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Room        string `json:"room"`
	Weeks       string `json:"weeks,omitempty"` // raw week-range annotation, e.g. "1-5,7,8-17"
	DayOfWeek   int    `json:"day_of_week"`     // 1 = Monday
	StartPeriod int    `json:"start_period"`
	PeriodSpan  int    `json:"period_span"`
	Color       Color  `json:"color"`
}

// EndPeriod returns the last period the course occupies.
func (c Course) EndPeriod() int {
	return c.StartPeriod + c.PeriodSpan - 1
}

// Validate checks the record invariants.
func (c Course) Validate() error {
	switch {
	case strings.TrimSpace(c.Name) == "" || c.Name == unknownCourseName:
		return fmt.Errorf("course name is empty")
	case c.DayOfWeek < MinDayOfWeek || c.DayOfWeek > MaxDayOfWeek:
		return fmt.Errorf("day of week %d out of range", c.DayOfWeek)
	case c.StartPeriod < MinPeriod || c.StartPeriod > MaxPeriod:
		return fmt.Errorf("start period %d out of range", c.StartPeriod)
	case c.PeriodSpan < 1:
		return fmt.Errorf("period span %d must be positive", c.PeriodSpan)
	}
	return nil
}

// NewID returns a time-ordered unique identifier for a course.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
