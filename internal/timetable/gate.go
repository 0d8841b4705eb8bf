package timetable

import "strings"

// pageMarkers are matched case-insensitively; any one of them is enough.
var pageMarkers = []string{
	"data-week", // positional attribute on course cells
	"wut_table", // timetable table class
	"学生课表",      // page title: student timetable
	"课程表",       // page title: course schedule
}

// IsTimetablePage reports whether html looks like a timetable page.
//
// It is a cheap pre-filter, not a validator: dashboards, login pages and error
// pages fail it, while a real timetable page passes no matter how its markup
// is cased or ordered.
func IsTimetablePage(html string) bool {
	lower := strings.ToLower(html)
	for _, marker := range pageMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
