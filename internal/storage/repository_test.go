package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domerrors "github.com/garyellow/coursetable/internal/errors"
	"github.com/garyellow/coursetable/internal/timetable"
)

func sampleCourses() []timetable.Course {
	return []timetable.Course{
		{ID: "c1", Name: "高等数学", Room: "教1-101", Weeks: "1-16", DayOfWeek: 1, StartPeriod: 1, PeriodSpan: 2, Color: timetable.Palette[0]},
		{ID: "c2", Name: "大学英语", Room: "博学主楼-107", DayOfWeek: 3, StartPeriod: 3, PeriodSpan: 2, Color: timetable.Palette[1]},
		{ID: "c3", Name: "体育_篮球", DayOfWeek: 5, StartPeriod: 7, PeriodSpan: 1, Color: timetable.Palette[2]},
	}
}

func TestReplaceCourses(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := setupTestDB(t)

	require.NoError(t, db.ReplaceCourses(ctx, sampleCourses()))

	got, err := db.ListCourses(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleCourses(), got, "round trip keeps order and every field")

	// A second import replaces the first entirely.
	require.NoError(t, db.ReplaceCourses(ctx, []timetable.Course{
		{Name: "线性代数", DayOfWeek: 2, StartPeriod: 3, PeriodSpan: 2},
	}))
	got, err = db.ListCourses(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "线性代数", got[0].Name)
	assert.NotEmpty(t, got[0].ID, "missing IDs are assigned")
}

func TestReplaceCourses_RollsBackOnInvalidRecord(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := setupTestDB(t)
	require.NoError(t, db.ReplaceCourses(ctx, sampleCourses()))

	bad := []timetable.Course{
		{ID: "ok", Name: "A", DayOfWeek: 1, StartPeriod: 1, PeriodSpan: 1},
		{ID: "bad", Name: "B", DayOfWeek: 9, StartPeriod: 1, PeriodSpan: 1},
	}
	assert.Error(t, db.ReplaceCourses(ctx, bad))

	count, err := db.CountCourses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count, "previous timetable survives a failed replace")
}

func TestReplaceCourses_Empty(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := setupTestDB(t)
	require.NoError(t, db.ReplaceCourses(ctx, sampleCourses()))
	require.NoError(t, db.ReplaceCourses(ctx, nil))

	got, err := db.ListCourses(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestGetCourse(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := setupTestDB(t)
	require.NoError(t, db.ReplaceCourses(ctx, sampleCourses()))

	c, err := db.GetCourse(ctx, "c2")
	require.NoError(t, err)
	assert.Equal(t, "大学英语", c.Name)
	assert.Equal(t, timetable.Palette[1], c.Color)

	_, err = db.GetCourse(ctx, "missing")
	assert.True(t, domerrors.IsNotFound(err))
}

func TestReplaceCourse(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := setupTestDB(t)
	require.NoError(t, db.ReplaceCourses(ctx, sampleCourses()))

	edited := sampleCourses()[1]
	edited.Room = "博学北楼-201"
	stored, err := db.ReplaceCourse(ctx, "c2", edited)
	require.NoError(t, err)
	assert.NotEqual(t, "c2", stored.ID, "an edit is a new record")

	got, err := db.ListCourses(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, stored.ID, got[1].ID, "position is preserved")
	assert.Equal(t, "博学北楼-201", got[1].Room)

	_, err = db.GetCourse(ctx, "c2")
	assert.True(t, domerrors.IsNotFound(err))

	_, err = db.ReplaceCourse(ctx, "missing", edited)
	assert.True(t, domerrors.IsNotFound(err))

	invalid := edited
	invalid.Name = ""
	_, err = db.ReplaceCourse(ctx, stored.ID, invalid)
	var verr *domerrors.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestDeleteCourse(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := setupTestDB(t)
	require.NoError(t, db.ReplaceCourses(ctx, sampleCourses()))

	require.NoError(t, db.DeleteCourse(ctx, "c1"))
	count, err := db.CountCourses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	assert.True(t, domerrors.IsNotFound(db.DeleteCourse(ctx, "c1")))
}

func TestSearchCourses(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := setupTestDB(t)
	require.NoError(t, db.ReplaceCourses(ctx, sampleCourses()))

	tests := []struct {
		term string
		want []string
	}{
		{"数学", []string{"c1"}},
		{"博学", []string{"c2"}},
		{"_", []string{"c3"}},
		{"%", nil},
		{"", []string{"c1", "c2", "c3"}},
	}
	for _, tt := range tests {
		got, err := db.SearchCourses(ctx, tt.term)
		require.NoError(t, err, tt.term)
		var ids []string
		for _, c := range got {
			ids = append(ids, c.ID)
		}
		assert.Equal(t, tt.want, ids, "term %q", tt.term)
	}
}

func TestImportHistory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := setupTestDB(t)

	base := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	for i, outcome := range []string{"ok", "too_many_courses", "not_timetable_page"} {
		require.NoError(t, db.RecordImport(ctx, &ImportRecord{
			Strategy:   "attribute",
			Outcome:    outcome,
			Source:     "file",
			Courses:    10 - i,
			Found:      10 + i,
			DurationMs: int64(i),
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}))
	}

	records, err := db.ListImports(ctx, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "not_timetable_page", records[0].Outcome, "newest first")
	assert.Equal(t, "too_many_courses", records[1].Outcome)
	assert.NotEmpty(t, records[0].ID)
	assert.True(t, records[0].CreatedAt.Equal(base.Add(2*time.Minute)))

	all, err := db.ListImports(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
