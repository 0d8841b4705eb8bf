package app

import (
	"context"
	"errors"
	"os"

	"github.com/garyellow/coursetable/internal/config"
	"github.com/garyellow/coursetable/internal/ctxutil"
	"github.com/garyellow/coursetable/internal/r2client"
	"github.com/garyellow/coursetable/internal/sentry"
)

// scheduleBackup uploads a snapshot of the stored timetable in the
// background. It is a no-op when backup is disabled.
func (a *Application) scheduleBackup(ctx context.Context) {
	if a.backup == nil {
		return
	}
	ctx = ctxutil.PreserveTracing(ctx)
	a.backups.Go(func() {
		a.pushSnapshot(ctx)
	})
}

// pushSnapshot writes the stored timetable to R2. Uploads are serialized and
// guarded by the ETag of this process's previous upload, so one snapshot
// written meanwhile by `coursetable backup push` is not silently replaced.
func (a *Application) pushSnapshot(ctx context.Context) {
	a.backupMu.Lock()
	defer a.backupMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, config.BackupTransfer)
	defer cancel()

	log := a.logger.WithField("key", a.cfg.R2SnapshotKey)

	courses, err := a.db.ListCourses(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to read courses for snapshot")
		a.metrics.RecordBackup("push", err)
		return
	}

	host, _ := os.Hostname()
	etag, err := a.backup.PushSnapshot(ctx, a.cfg.R2SnapshotKey, &r2client.Snapshot{
		Host:    host,
		Courses: courses,
	}, a.backupETag)
	a.metrics.RecordBackup("push", err)

	switch {
	case errors.Is(err, r2client.ErrPreconditionFailed):
		log.Warn("Snapshot changed remotely, skipping upload")
		// The next change in this process uploads unconditionally.
		a.backupETag = ""
	case err != nil:
		log.WithError(err).Error("Snapshot upload failed")
		sentry.CaptureException(ctx, err)
	default:
		a.backupETag = etag
		log.WithField("courses", len(courses)).WithField("etag", etag).Info("Snapshot uploaded")
	}
}
