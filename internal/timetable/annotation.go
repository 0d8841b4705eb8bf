package timetable

import (
	"regexp"
	"strings"
)

var (
	weeksPattern = regexp.MustCompile(`\[(.*?)\]`)

	// Campus names are sometimes glued to the room segment itself.
	campusPrefix = regexp.MustCompile(`^(?:南湖校区|黄家湖校区|马房山校区|South Lake Campus|Huangjiahu Campus|Mafangshan Campus)\s*[,，]\s*`)
)

// ParseRoomAndWeeks splits a room annotation such as
//
//	[1-5周,7周,8-17周],第1-2节,南湖校区,南湖南-博学主楼-107
//
// into its room ("南湖南-博学主楼-107") and week list ("1-5周,7周,8-17周").
//
// The bracketed week list is removed before the remainder is split on commas.
// With four or more segments the room is the fourth, with three it is the
// third (the campus segment is missing), otherwise it is the last one.
// Unrecognized input never fails; it yields empty strings.
func ParseRoomAndWeeks(annotation string) (room, weeks string) {
	remainder := annotation
	if loc := weeksPattern.FindStringSubmatchIndex(annotation); loc != nil {
		weeks = strings.TrimSpace(annotation[loc[2]:loc[3]])
		remainder = annotation[:loc[0]] + annotation[loc[1]:]
	}

	parts := strings.Split(remainder, ",")
	switch {
	case len(parts) >= 4:
		room = parts[3]
	case len(parts) == 3:
		room = parts[2]
	default:
		room = parts[len(parts)-1]
	}

	room = campusPrefix.ReplaceAllString(strings.TrimSpace(room), "")
	return strings.TrimSpace(room), weeks
}
