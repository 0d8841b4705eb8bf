package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeSearchTerm(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain course name", "高等数学", "高等数学"},
		{"percent", "100%", `100\%`},
		{"underscore in room", "教1_101", `教1\_101`},
		{"backslash", `A\B`, `A\\B`},
		{"everything", `楼%_\室`, `楼\%\_\\室`},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, sanitizeSearchTerm(tt.input))
		})
	}
}

func TestSanitizeSearchTerm_Long(t *testing.T) {
	t.Parallel()
	got := sanitizeSearchTerm(strings.Repeat(`a%_\`, 500))
	assert.Equal(t, 500, strings.Count(got, `\%`))
	assert.Equal(t, 500, strings.Count(got, `\_`))
	assert.Len(t, got, 500*7)
}
