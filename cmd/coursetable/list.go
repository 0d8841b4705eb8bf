package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/garyellow/coursetable/internal/exporter"
)

func newListCmd(a *app) *cobra.Command {
	var (
		search string
		format string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the stored timetable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format != "grid" && format != "list" {
				return fmt.Errorf("unknown format %q (want grid or list)", format)
			}

			courses, err := a.db.SearchCourses(cmd.Context(), search)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(a.out)
				enc.SetIndent("", "  ")
				return enc.Encode(courses)
			}
			if len(courses) == 0 {
				_, err := fmt.Fprintln(a.out, dimStyle.Render("No courses stored. Run `coursetable parse --save` or `coursetable fetch` first."))
				return err
			}
			if format == "list" {
				_, err = fmt.Fprintln(a.out, exporter.RenderList(courses))
			} else {
				_, err = fmt.Fprintln(a.out, exporter.RenderGrid(courses))
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&search, "search", "s", "", "only courses whose name or room contains this text")
	cmd.Flags().StringVarP(&format, "format", "f", "grid", "output layout: grid or list")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print courses as JSON")
	return cmd
}
