// Package exporter turns stored courses into calendar files and terminal views.
package exporter

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// MaxWeek is the last teaching week an annotation may name.
const MaxWeek = 30

var (
	weekSeparators = strings.NewReplacer("，", ",", "、", ",", ";", ",", "；", ",")
	weekNoise      = strings.NewReplacer("第", "", "周", "", "(", "", ")", "", "（", "", "）", "", " ", "", "单", "", "双", "")
	weekRange      = regexp.MustCompile(`^(\d+)(?:[-~～至](\d+))?$`)
)

// ParseWeeks expands a week annotation such as "1-5周,7周,9-17(单)" into
// sorted, distinct week numbers. 单 keeps odd weeks of its range and 双 keeps
// even weeks. An empty annotation yields nil. Weeks past MaxWeek are an
// error.
func ParseWeeks(s string) ([]int, error) {
	s = strings.TrimSpace(weekSeparators.Replace(s))
	if s == "" {
		return nil, nil
	}

	seen := make(map[int]bool)
	var weeks []int
	for _, token := range strings.Split(s, ",") {
		if strings.TrimSpace(token) == "" {
			continue
		}
		odd := strings.Contains(token, "单")
		even := strings.Contains(token, "双")

		m := weekRange.FindStringSubmatch(weekNoise.Replace(token))
		if m == nil {
			return nil, fmt.Errorf("invalid week token %q", token)
		}
		from, _ := strconv.Atoi(m[1])
		to := from
		if m[2] != "" {
			to, _ = strconv.Atoi(m[2])
		}
		if from < 1 || to < from || to > MaxWeek {
			return nil, fmt.Errorf("invalid week range %q", token)
		}

		for w := from; w <= to; w++ {
			if (odd && w%2 == 0) || (even && w%2 == 1) || seen[w] {
				continue
			}
			seen[w] = true
			weeks = append(weeks, w)
		}
	}
	slices.Sort(weeks)
	return weeks, nil
}
