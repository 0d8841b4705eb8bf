package browser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/garyellow/coursetable/internal/timetable"
)

// ltEscape is the JSON escape web views use for "<".
const ltEscape = "\\" + "u003C"

func TestDecodeCapture(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		raw        string
		wantHTML   string
		wantSource Source
	}{
		{
			name:       "container",
			raw:        `TAG:CONTAINER<table><tr><td data-week="1"></td></tr></table>`,
			wantHTML:   `<table><tr><td data-week="1"></td></tr></table>`,
			wantSource: SourceContainer,
		},
		{
			name:       "table",
			raw:        `TAG:TABLE<table class="wut_table"></table>`,
			wantHTML:   `<table class="wut_table"></table>`,
			wantSource: SourceTable,
		},
		{
			name:       "body fallback",
			raw:        `TAG:BODY_FALLBACK<div>login</div>`,
			wantHTML:   `<div>login</div>`,
			wantSource: SourceBodyFallback,
		},
		{
			name:       "json quoted",
			raw:        `"TAG:TABLE` + ltEscape + `td class=\"x\">课程表` + ltEscape + `/td>"`,
			wantHTML:   `<td class="x">课程表</td>`,
			wantSource: SourceTable,
		},
		{
			name:       "escaped without quotes",
			raw:        `TAG:CONTAINER` + ltEscape + `div class=\"mtt_item_kcmc\">高数` + ltEscape + `/div>`,
			wantHTML:   `<div class="mtt_item_kcmc">高数</div>`,
			wantSource: SourceContainer,
		},
		{
			name:       "broken json quoting falls back to replacement",
			raw:        `"TAG:TABLE` + ltEscape + `td>\x"`,
			wantHTML:   `<td>\x`,
			wantSource: SourceTable,
		},
		{
			name:       "untagged",
			raw:        "  <td>x</td>\n",
			wantHTML:   "<td>x</td>",
			wantSource: SourceRaw,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := DecodeCapture(tt.raw)
			assert.Equal(t, tt.wantHTML, got.HTML)
			assert.Equal(t, tt.wantSource, got.Source)
		})
	}
}

func TestExtractScript(t *testing.T) {
	t.Parallel()
	for _, want := range []string{"kcb_container", "innerHTML.length > 100", ".wut_table", "iframe", "TAG:BODY_FALLBACK"} {
		assert.Contains(t, extractScript, want)
	}
	// Container must be checked before the table.
	assert.Less(t, strings.Index(extractScript, "kcb_container"), strings.Index(extractScript, ".wut_table"))
}

func TestCaptureFeedsImporter(t *testing.T) {
	t.Parallel()
	capture := DecodeCapture(`TAG:CONTAINER<td data-week="2" data-begin-unit="3" data-end-unit="4">` +
		`<div class="mtt_item_kcmc">Linear Algebra</div>` +
		`<div class="mtt_item_room">[1-16],period 3-4,Main Campus,Block A-201</div></td>`)

	courses, err := timetable.ExtractByAttributes(t.Context(), capture.HTML)
	assert.NoError(t, err)
	if assert.Len(t, courses, 1) {
		assert.Equal(t, "Block A-201", courses[0].Room)
	}
}

func TestFindExecPath(t *testing.T) {
	// Not parallel: swaps the package lookPath.
	orig := lookPath
	t.Cleanup(func() { lookPath = orig })

	assert.Equal(t, "/opt/chrome", findExecPath("/opt/chrome"))

	lookPath = func(name string) (string, error) {
		if name == "chromium" {
			return "/usr/bin/chromium", nil
		}
		return "", assert.AnError
	}
	assert.Equal(t, "/usr/bin/chromium", findExecPath(""))

	lookPath = func(string) (string, error) { return "", assert.AnError }
	assert.Equal(t, "", findExecPath(""))
}
