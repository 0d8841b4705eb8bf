package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/garyellow/coursetable/internal/config"
	"github.com/garyellow/coursetable/internal/exporter"
	"github.com/garyellow/coursetable/internal/r2client"
	"github.com/garyellow/coursetable/internal/storage"
	"github.com/garyellow/coursetable/internal/timetable"
)

func newBackupCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Copy the stored timetable to or from R2",
	}
	cmd.AddCommand(newBackupPushCmd(a), newBackupPullCmd(a))
	return cmd
}

func (a *app) backupClient(cmd *cobra.Command) (*r2client.Client, error) {
	if !a.cfg.R2Enabled {
		return nil, errors.New("backup is disabled: set " + config.EnvR2Enabled + "=true")
	}
	return r2client.New(cmd.Context(), r2client.Config{
		AccountID:   a.cfg.R2AccountID,
		AccessKeyID: a.cfg.R2AccessKeyID,
		SecretKey:   a.cfg.R2SecretAccessKey,
		BucketName:  a.cfg.R2BucketName,
	})
}

func newBackupPushCmd(a *app) *cobra.Command {
	var ifMatch string

	cmd := &cobra.Command{
		Use:   "push",
		Short: "Upload the stored timetable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.backupClient(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := contextWithTransfer(cmd)
			defer cancel()

			courses, err := a.db.ListCourses(ctx)
			if err != nil {
				return err
			}
			host, _ := os.Hostname()
			etag, err := client.PushSnapshot(ctx, a.cfg.R2SnapshotKey, &r2client.Snapshot{
				Host:    host,
				Courses: courses,
			}, ifMatch)
			a.metrics.RecordBackup("push", err)
			if errors.Is(err, r2client.ErrPreconditionFailed) {
				return fmt.Errorf("snapshot %s changed since %s; pull it first", a.cfg.R2SnapshotKey, ifMatch)
			}
			if err != nil {
				return err
			}

			a.log.WithField("key", a.cfg.R2SnapshotKey).WithField("etag", etag).Info("Snapshot uploaded")
			_, err = fmt.Fprintln(a.out, okStyle.Render(fmt.Sprintf("✓ %d courses uploaded (etag %s)", len(courses), etag)))
			return err
		},
	}

	cmd.Flags().StringVar(&ifMatch, "if-match", "", "only overwrite the snapshot if it still has this ETag")
	return cmd
}

func newBackupPullCmd(a *app) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Replace the stored timetable with the uploaded one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.backupClient(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := contextWithTransfer(cmd)
			defer cancel()

			start := time.Now()
			snap, etag, err := client.PullSnapshot(ctx, a.cfg.R2SnapshotKey)
			a.metrics.RecordBackup("pull", err)
			if errors.Is(err, r2client.ErrNotFound) {
				return fmt.Errorf("no snapshot at %s", a.cfg.R2SnapshotKey)
			}
			if err != nil {
				return err
			}
			a.log.WithField("etag", etag).WithField("host", snap.Host).WithField("created_at", snap.CreatedAt).Info("Snapshot downloaded")

			if dryRun {
				_, _ = fmt.Fprintln(a.out, exporter.RenderGrid(snap.Courses))
				return nil
			}

			if err := a.db.ReplaceCourses(ctx, snap.Courses); err != nil {
				return fmt.Errorf("store courses: %w", err)
			}
			rec := &storage.ImportRecord{
				ID:         timetable.NewID(),
				Strategy:   "snapshot",
				Outcome:    timetable.ReasonOK.String(),
				Source:     "backup",
				Courses:    len(snap.Courses),
				Found:      len(snap.Courses),
				Message:    fmt.Sprintf("restored from %s (etag %s)", a.cfg.R2SnapshotKey, etag),
				DurationMs: time.Since(start).Milliseconds(),
			}
			if err := a.db.RecordImport(ctx, rec); err != nil {
				a.log.WithError(err).Warn("Failed to record import history")
			}
			a.metrics.SetStoredCourses(len(snap.Courses))

			_, err = fmt.Fprintln(a.out, okStyle.Render(fmt.Sprintf("✓ %d courses restored", len(snap.Courses))))
			return err
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show the snapshot without storing it")
	return cmd
}

// contextWithTransfer bounds one snapshot transfer.
func contextWithTransfer(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), config.BackupTransfer)
}
