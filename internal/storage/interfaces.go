package storage

import (
	"context"

	"github.com/garyellow/coursetable/internal/timetable"
)

// CourseRepository defines the operations on the stored timetable.
type CourseRepository interface {
	ReplaceCourses(ctx context.Context, courses []timetable.Course) error
	ListCourses(ctx context.Context) ([]timetable.Course, error)
	SearchCourses(ctx context.Context, term string) ([]timetable.Course, error)
	GetCourse(ctx context.Context, id string) (*timetable.Course, error)
	ReplaceCourse(ctx context.Context, oldID string, c timetable.Course) (*timetable.Course, error)
	DeleteCourse(ctx context.Context, id string) error
	CountCourses(ctx context.Context) (int, error)
}

// ImportRepository defines the operations on the import history.
type ImportRepository interface {
	RecordImport(ctx context.Context, rec *ImportRecord) error
	ListImports(ctx context.Context, limit int) ([]ImportRecord, error)
}

// Repository is everything the server and CLI need from storage.
type Repository interface {
	CourseRepository
	ImportRepository
	Ready(ctx context.Context) error
}

var _ Repository = (*DB)(nil)
