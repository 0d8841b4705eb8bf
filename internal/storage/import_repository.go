package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/garyellow/coursetable/internal/timetable"
)

// RecordImport appends an entry to the import history. ID and CreatedAt are
// filled in when empty.
func (db *DB) RecordImport(ctx context.Context, rec *ImportRecord) error {
	if rec.ID == "" {
		rec.ID = timetable.NewID()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO imports (id, strategy, outcome, source, courses, found, message, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Strategy, rec.Outcome, rec.Source, rec.Courses, rec.Found,
		rec.Message, rec.DurationMs, rec.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to record import: %w", err)
	}
	return nil
}

// ListImports returns the newest limit entries of the import history.
func (db *DB) ListImports(ctx context.Context, limit int) ([]ImportRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, strategy, outcome, source, courses, found, message, duration_ms, created_at
		FROM imports ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query imports: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := make([]ImportRecord, 0)
	for rows.Next() {
		var r ImportRecord
		var createdAt int64
		if err := rows.Scan(&r.ID, &r.Strategy, &r.Outcome, &r.Source, &r.Courses, &r.Found,
			&r.Message, &r.DurationMs, &createdAt); err != nil {
			return nil, fmt.Errorf("scan import: %w", err)
		}
		r.CreatedAt = time.UnixMilli(createdAt)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate imports: %w", err)
	}
	return records, nil
}
