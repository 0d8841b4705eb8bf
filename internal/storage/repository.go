package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	domerrors "github.com/garyellow/coursetable/internal/errors"
	"github.com/garyellow/coursetable/internal/timetable"
)

const courseColumns = `id, name, room, weeks, day_of_week, start_period, period_span, color`

// ReplaceCourses swaps the whole stored timetable for courses in one
// transaction. Readers see either the old list or the new one.
func (db *DB) ReplaceCourses(ctx context.Context, courses []timetable.Course) error {
	query := `
		INSERT INTO courses (` + courseColumns + `, position, imported_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	start := time.Now()
	importedAt := start.Unix()
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM courses`); err != nil {
			return fmt.Errorf("failed to clear courses: %w", err)
		}
		return execBatchTx(ctx, tx, query, func(stmt *sql.Stmt) error {
			for i, c := range courses {
				if c.ID == "" {
					c.ID = timetable.NewID()
				}
				if _, err := stmt.ExecContext(ctx,
					c.ID, c.Name, c.Room, c.Weeks,
					c.DayOfWeek, c.StartPeriod, c.PeriodSpan, int64(c.Color),
					i, importedAt,
				); err != nil {
					slog.ErrorContext(ctx, "failed to save course in batch",
						"course_id", c.ID,
						"error", err)
					return fmt.Errorf("failed to save course %s: %w", c.ID, err)
				}
			}
			return nil
		})
	})
	if err != nil {
		return err
	}

	duration := time.Since(start)
	slog.DebugContext(ctx, "batch operation completed",
		"operation", "ReplaceCourses",
		"count", len(courses),
		"duration_ms", duration.Milliseconds())
	if duration > 500*time.Millisecond {
		slog.WarnContext(ctx, "slow batch operation",
			"operation", "ReplaceCourses",
			"count", len(courses),
			"duration_ms", duration.Milliseconds())
	}
	return nil
}

// ListCourses returns the stored timetable in import order.
func (db *DB) ListCourses(ctx context.Context) ([]timetable.Course, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT `+courseColumns+` FROM courses ORDER BY position, rowid`)
	if err != nil {
		return nil, fmt.Errorf("query courses: %w", err)
	}
	return scanCourses(rows)
}

// SearchCourses returns courses whose name or room contains term.
func (db *DB) SearchCourses(ctx context.Context, term string) ([]timetable.Course, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return db.ListCourses(ctx)
	}
	pattern := "%" + sanitizeSearchTerm(term) + "%"
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+courseColumns+` FROM courses
		WHERE name LIKE ? ESCAPE '\' OR room LIKE ? ESCAPE '\'
		ORDER BY position, rowid`,
		pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("search courses: %w", err)
	}
	return scanCourses(rows)
}

// GetCourse returns the course with id or an error wrapping ErrNotFound.
func (db *DB) GetCourse(ctx context.Context, id string) (*timetable.Course, error) {
	var c timetable.Course
	var color int64
	err := db.conn.QueryRowContext(ctx, `SELECT `+courseColumns+` FROM courses WHERE id = ?`, id).Scan(
		&c.ID, &c.Name, &c.Room, &c.Weeks,
		&c.DayOfWeek, &c.StartPeriod, &c.PeriodSpan, &color,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("course %s: %w", id, domerrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query course: %w", err)
	}
	c.Color = timetable.Color(color)
	return &c, nil
}

// ReplaceCourse swaps the stored course oldID for c, keeping its position.
// Stored records are never edited in place; an edit is a new record. When c
// has no ID a fresh one is assigned. The stored record is returned.
func (db *DB) ReplaceCourse(ctx context.Context, oldID string, c timetable.Course) (*timetable.Course, error) {
	if err := c.Validate(); err != nil {
		return nil, domerrors.NewValidationError("course", err.Error())
	}
	if c.ID == "" || c.ID == oldID {
		c.ID = timetable.NewID()
	}

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		var position int
		err := tx.QueryRowContext(ctx, `SELECT position FROM courses WHERE id = ?`, oldID).Scan(&position)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("course %s: %w", oldID, domerrors.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("query course position: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM courses WHERE id = ?`, oldID); err != nil {
			return fmt.Errorf("failed to delete course: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO courses (`+courseColumns+`, position, imported_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.Name, c.Room, c.Weeks, c.DayOfWeek, c.StartPeriod, c.PeriodSpan, int64(c.Color),
			position, time.Now().Unix())
		if err != nil {
			return fmt.Errorf("failed to insert course: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// DeleteCourse removes one course.
func (db *DB) DeleteCourse(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM courses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete course: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("course %s: %w", id, domerrors.ErrNotFound)
	}
	return nil
}

// CountCourses returns the number of stored courses.
func (db *DB) CountCourses(ctx context.Context) (int, error) {
	var count int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM courses`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count courses: %w", err)
	}
	return count, nil
}

func scanCourses(rows *sql.Rows) ([]timetable.Course, error) {
	defer func() { _ = rows.Close() }()

	courses := make([]timetable.Course, 0)
	for rows.Next() {
		var c timetable.Course
		var color int64
		if err := rows.Scan(&c.ID, &c.Name, &c.Room, &c.Weeks,
			&c.DayOfWeek, &c.StartPeriod, &c.PeriodSpan, &color); err != nil {
			return nil, fmt.Errorf("scan course: %w", err)
		}
		c.Color = timetable.Color(color)
		courses = append(courses, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate courses: %w", err)
	}
	return courses, nil
}
