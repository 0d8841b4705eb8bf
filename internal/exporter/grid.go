package exporter

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/garyellow/coursetable/internal/timetable"
)

var (
	dayHeaders = []string{"", "周一", "周二", "周三", "周四", "周五", "周六", "周日"}

	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1).Align(lipgloss.Center)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	labelStyle  = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("#626262"))
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#0043a8"))
)

// RenderGrid draws the weekly timetable as a period-by-day table. A course
// spanning several periods is repeated in each of them; the first row also
// carries its room.
func RenderGrid(courses []timetable.Course) string {
	cells := make([][]string, timetable.MaxPeriod)
	colors := make([][]lipgloss.Color, timetable.MaxPeriod)
	for p := range cells {
		cells[p] = make([]string, len(dayHeaders))
		colors[p] = make([]lipgloss.Color, len(dayHeaders))
		cells[p][0] = fmt.Sprintf("%d", p+1)
	}

	for _, c := range courses {
		if c.DayOfWeek < timetable.MinDayOfWeek || c.DayOfWeek > timetable.MaxDayOfWeek {
			continue
		}
		for p := c.StartPeriod; p <= min(c.EndPeriod(), timetable.MaxPeriod); p++ {
			if p < timetable.MinPeriod {
				continue
			}
			text := c.Name
			if p == c.StartPeriod && c.Room != "" {
				text += "\n@" + c.Room
			}
			cell := &cells[p-1][c.DayOfWeek]
			if *cell != "" {
				*cell += "\n"
			}
			*cell += text
			colors[p-1][c.DayOfWeek] = lipgloss.Color(c.Color.Hex())
		}
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		BorderRow(true).
		Headers(dayHeaders...).
		Rows(cells...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 0:
				return labelStyle
			case row >= 0 && row < len(colors) && colors[row][col] != "":
				return cellStyle.Foreground(colors[row][col])
			default:
				return cellStyle
			}
		})
	return t.String()
}

// RenderList draws one line per course, ordered as given.
func RenderList(courses []timetable.Course) string {
	var b strings.Builder
	for _, c := range courses {
		fmt.Fprintf(&b, "%s  %s 第%d-%d节", c.Name, dayHeaders[clampDay(c.DayOfWeek)], c.StartPeriod, c.EndPeriod())
		if c.Room != "" {
			fmt.Fprintf(&b, "  %s", c.Room)
		}
		if c.Weeks != "" {
			fmt.Fprintf(&b, "  [%s]", c.Weeks)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func clampDay(d int) int {
	if d < timetable.MinDayOfWeek || d > timetable.MaxDayOfWeek {
		return 0
	}
	return d
}
