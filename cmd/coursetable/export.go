package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/garyellow/coursetable/internal/config"
	"github.com/garyellow/coursetable/internal/exporter"
)

func newExportCmd(a *app) *cobra.Command {
	var (
		output        string
		semesterStart string
		totalWeeks    int
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the stored timetable to an iCalendar file",
		Long: `Write the stored timetable to an .ics file that calendar apps can import.
Every course becomes one event per teaching week, placed by the semester start
date and the period clock. Use "-o -" to write to standard output.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			start := a.cfg.SemesterStart()
			if semesterStart != "" {
				t, err := time.ParseInLocation(time.DateOnly, semesterStart, a.cfg.Location())
				if err != nil {
					return fmt.Errorf("--semester-start: want YYYY-MM-DD, got %q", semesterStart)
				}
				start = t
			}
			if start.IsZero() {
				return errors.New("semester start is not set: pass --semester-start or set " + config.EnvSemesterStart)
			}
			if totalWeeks <= 0 {
				totalWeeks = a.cfg.Calendar.TotalWeeks
			}

			var periods []exporter.Period
			if a.cfg.Calendar.Periods != "" {
				var err error
				if periods, err = exporter.ParsePeriods(a.cfg.Calendar.Periods); err != nil {
					return fmt.Errorf("%s: %w", config.EnvPeriods, err)
				}
			}

			courses, err := a.db.ListCourses(cmd.Context())
			if err != nil {
				return err
			}
			if len(courses) == 0 {
				return errors.New("no courses stored")
			}

			var buf bytes.Buffer
			if err := exporter.GenerateICS(courses, &buf, exporter.Options{
				SemesterStart: start,
				Location:      a.cfg.Location(),
				TotalWeeks:    totalWeeks,
				Periods:       periods,
			}); err != nil {
				return err
			}

			if output == "-" {
				_, err := a.out.Write(buf.Bytes())
				return err
			}
			if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("write calendar: %w", err)
			}
			_, err = fmt.Fprintln(a.out, okStyle.Render(fmt.Sprintf("✓ %d courses written to %s", len(courses), output)))
			return err
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "coursetable.ics", "output file, - for stdout")
	cmd.Flags().StringVar(&semesterStart, "semester-start", "", "first day of week 1 as YYYY-MM-DD (default COURSETABLE_SEMESTER_START)")
	cmd.Flags().IntVar(&totalWeeks, "weeks", 0, "teaching weeks for courses without a week range (default COURSETABLE_TOTAL_WEEKS)")
	return cmd
}
