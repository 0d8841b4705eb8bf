package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// InitSchema creates all necessary tables and indexes.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if err := createCoursesTable(ctx, db); err != nil {
		return err
	}
	return createImportsTable(ctx, db)
}

func createCoursesTable(ctx context.Context, db *sql.DB) error {
	// position keeps the document order of the import that produced the row.
	query := `
	CREATE TABLE IF NOT EXISTS courses (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL CHECK(length(trim(name)) > 0),
		room TEXT NOT NULL DEFAULT '',
		weeks TEXT NOT NULL DEFAULT '',
		day_of_week INTEGER NOT NULL CHECK(day_of_week BETWEEN 1 AND 7),
		start_period INTEGER NOT NULL CHECK(start_period BETWEEN 1 AND 12),
		period_span INTEGER NOT NULL CHECK(period_span >= 1),
		color INTEGER NOT NULL,
		position INTEGER NOT NULL,
		imported_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_courses_position ON courses(position);
	CREATE INDEX IF NOT EXISTS idx_courses_slot ON courses(day_of_week, start_period);
	CREATE INDEX IF NOT EXISTS idx_courses_name ON courses(name);
	`

	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create courses table: %w", err)
	}
	return nil
}

func createImportsTable(ctx context.Context, db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS imports (
		id TEXT PRIMARY KEY,
		strategy TEXT NOT NULL,
		outcome TEXT NOT NULL,
		source TEXT NOT NULL DEFAULT '',
		courses INTEGER NOT NULL DEFAULT 0,
		found INTEGER NOT NULL DEFAULT 0,
		message TEXT NOT NULL DEFAULT '',
		duration_ms INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_imports_created_at ON imports(created_at);
	`

	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create imports table: %w", err)
	}
	return nil
}
