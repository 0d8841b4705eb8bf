package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/coursetable/internal/config"
	"github.com/garyellow/coursetable/internal/storage"
	"github.com/garyellow/coursetable/internal/timetable"
)

func courseCell(day, begin, end, name, room string) string {
	return fmt.Sprintf(`<td data-week="%s" data-begin-unit="%s" data-end-unit="%s">`+
		`<div class="mtt_item_kcmc">%s</div><div class="mtt_item_room">%s</div></td>`,
		day, begin, end, name, room)
}

func timetablePage(cells ...string) string {
	return `<html><head><title>学生课表</title></head><body><table class="wut_table"><tr>` +
		strings.Join(cells, "") + `</tr></table></body></html>`
}

var linearAlgebraPage = timetablePage(
	courseCell("2", "3", "4", "线性代数", "博学主楼-107"),
	courseCell("4", "1", "2", "大学物理", "教1-204"),
)

const loginPage = `<html><body><form id="login">统一身份认证</form></body></html>`

// setupEnv points the CLI at a fresh data directory with every optional
// integration switched off. Tests using it cannot run in parallel.
func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(config.EnvDataDir, dir)
	t.Setenv(config.EnvStrategy, "auto")
	t.Setenv(config.EnvCharset, "")
	t.Setenv(config.EnvSemesterStart, "")
	t.Setenv(config.EnvTimezone, "Asia/Shanghai")
	t.Setenv(config.EnvTotalWeeks, "16")
	t.Setenv(config.EnvPeriods, "")
	t.Setenv(config.EnvR2Enabled, "false")
	t.Setenv(config.EnvSentryEnabled, "false")
	t.Setenv(config.EnvBetterStackEnabled, "false")
	t.Setenv(config.EnvPushgatewayURL, "")
	return dir
}

func writePage(t *testing.T, dir, name, page string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(page), 0o600))
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := run(context.Background(), args, &out, &errOut)
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.NotEmpty(t, strings.TrimSpace(out))
}

func TestParse_PrintsCourses(t *testing.T) {
	dir := setupEnv(t)
	path := writePage(t, dir, "page.html", linearAlgebraPage)

	out, err := runCLI(t, "parse", path)
	require.NoError(t, err)
	assert.Contains(t, out, "成功导入 2 门课程！")
	assert.Contains(t, out, "线性代数")

	// Without --save nothing is stored.
	out, err = runCLI(t, "list", "--json")
	require.NoError(t, err)
	var courses []timetable.Course
	require.NoError(t, json.Unmarshal([]byte(out), &courses))
	assert.Empty(t, courses)
}

func TestParse_JSON(t *testing.T) {
	dir := setupEnv(t)
	good := writePage(t, dir, "good.html", linearAlgebraPage)
	bad := writePage(t, dir, "login.html", loginPage)

	out, err := runCLI(t, "parse", "--json", good, bad)
	require.EqualError(t, err, "1 of 2 pages rejected")

	var results []pageResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)

	assert.Equal(t, good, results[0].File)
	assert.Equal(t, "ok", results[0].Outcome)
	assert.Equal(t, "attribute", results[0].Strategy)
	require.Len(t, results[0].Courses, 2)
	assert.Equal(t, "线性代数", results[0].Courses[0].Name)
	assert.Equal(t, 2, results[0].Courses[0].DayOfWeek)
	assert.Equal(t, 3, results[0].Courses[0].StartPeriod)
	assert.Equal(t, 2, results[0].Courses[0].PeriodSpan)
	assert.Equal(t, "博学主楼-107", results[0].Courses[0].Room)
	assert.Equal(t, timetable.Palette[0], results[0].Courses[0].Color)

	assert.Equal(t, bad, results[1].File)
	assert.Equal(t, "not_timetable_page", results[1].Outcome)
	assert.Empty(t, results[1].Courses)
}

func TestParse_Flags(t *testing.T) {
	dir := setupEnv(t)
	path := writePage(t, dir, "page.html", linearAlgebraPage)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no files", []string{"parse"}, "requires at least 1 arg"},
		{"save with two files", []string{"parse", "--save", path, path}, "--save takes exactly one page"},
		{"unknown charset", []string{"parse", "--charset", "klingon", path}, `unknown charset "klingon"`},
		{"unknown strategy", []string{"parse", "--strategy", "ocr", path}, "ocr"},
		{"missing file", []string{"parse", filepath.Join(dir, "missing.html")}, "missing.html"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParse_SaveThenList(t *testing.T) {
	dir := setupEnv(t)
	path := writePage(t, dir, "page.html", linearAlgebraPage)

	_, err := runCLI(t, "parse", "--save", path)
	require.NoError(t, err)

	out, err := runCLI(t, "list", "--json")
	require.NoError(t, err)
	var courses []timetable.Course
	require.NoError(t, json.Unmarshal([]byte(out), &courses))
	require.Len(t, courses, 2)
	assert.Equal(t, "线性代数", courses[0].Name)
	assert.Equal(t, "大学物理", courses[1].Name)

	out, err = runCLI(t, "list", "--json", "--search", "教1")
	require.NoError(t, err)
	courses = nil
	require.NoError(t, json.Unmarshal([]byte(out), &courses))
	require.Len(t, courses, 1)
	assert.Equal(t, "大学物理", courses[0].Name)

	out, err = runCLI(t, "list", "--format", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "线性代数")

	_, err = runCLI(t, "list", "--format", "table")
	require.EqualError(t, err, `unknown format "table" (want grid or list)`)
}

func TestParse_RejectedSaveKeepsTimetable(t *testing.T) {
	dir := setupEnv(t)
	good := writePage(t, dir, "good.html", linearAlgebraPage)
	bad := writePage(t, dir, "login.html", loginPage)

	_, err := runCLI(t, "parse", "--save", good)
	require.NoError(t, err)

	out, err := runCLI(t, "parse", "--save", bad)
	require.EqualError(t, err, "1 of 1 pages rejected")
	assert.Contains(t, out, "未检测到课表数据")

	out, err = runCLI(t, "list", "--json")
	require.NoError(t, err)
	var courses []timetable.Course
	require.NoError(t, json.Unmarshal([]byte(out), &courses))
	assert.Len(t, courses, 2)

	out, err = runCLI(t, "history", "--json")
	require.NoError(t, err)
	var records []storage.ImportRecord
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 2)
	assert.Equal(t, "not_timetable_page", records[0].Outcome)
	assert.Equal(t, "file", records[0].Source)
	assert.Zero(t, records[0].Courses)
	assert.Equal(t, "ok", records[1].Outcome)
	assert.Equal(t, 2, records[1].Courses)
}

func TestHistory(t *testing.T) {
	dir := setupEnv(t)
	path := writePage(t, dir, "page.html", linearAlgebraPage)

	out, err := runCLI(t, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "No imports yet.")

	_, err = runCLI(t, "parse", "--save", path)
	require.NoError(t, err)

	out, err = runCLI(t, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "OUTCOME")
	assert.Contains(t, out, "attribute")

	_, err = runCLI(t, "history", "--limit", "0")
	require.EqualError(t, err, "--limit must be positive, got 0")
}

func TestExport(t *testing.T) {
	dir := setupEnv(t)
	path := writePage(t, dir, "page.html", linearAlgebraPage)
	ics := filepath.Join(dir, "out.ics")

	_, err := runCLI(t, "export", "-o", ics)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "semester start is not set")

	_, err = runCLI(t, "export", "-o", ics, "--semester-start", "2026-02-23")
	require.EqualError(t, err, "no courses stored")

	_, err = runCLI(t, "parse", "--save", path)
	require.NoError(t, err)

	out, err := runCLI(t, "export", "-o", ics, "--semester-start", "2026-02-23")
	require.NoError(t, err)
	assert.Contains(t, out, "2 courses written")

	data, err := os.ReadFile(ics)
	require.NoError(t, err)
	cal := string(data)
	assert.Contains(t, cal, "BEGIN:VCALENDAR")
	assert.Equal(t, 32, strings.Count(cal, "BEGIN:VEVENT"))
	assert.Contains(t, cal, "线性代数")

	out, err = runCLI(t, "export", "-o", "-", "--semester-start", "2026-02-23", "--weeks", "2")
	require.NoError(t, err)
	assert.Equal(t, 4, strings.Count(out, "BEGIN:VEVENT"))

	_, err = runCLI(t, "export", "--semester-start", "23/02/2026")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "want YYYY-MM-DD")
}

func TestBackup_Disabled(t *testing.T) {
	setupEnv(t)

	for _, sub := range []string{"push", "pull"} {
		t.Run(sub, func(t *testing.T) {
			_, err := runCLI(t, "backup", sub)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "backup is disabled")
		})
	}
}

func TestFetch_HTTPNeedsURL(t *testing.T) {
	setupEnv(t)
	t.Setenv(config.EnvFetchURL, "")

	_, err := runCLI(t, "fetch", "--http")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no timetable URL")
}
