package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

func newHistoryCmd(a *app) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent import attempts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit < 1 {
				return fmt.Errorf("--limit must be positive, got %d", limit)
			}
			records, err := a.db.ListImports(cmd.Context(), limit)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(a.out)
				enc.SetIndent("", "  ")
				return enc.Encode(records)
			}
			if len(records) == 0 {
				_, err := fmt.Fprintln(a.out, dimStyle.Render("No imports yet."))
				return err
			}

			t := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("TIME", "SOURCE", "STRATEGY", "OUTCOME", "COURSES", "MS").
				StyleFunc(func(row, col int) lipgloss.Style {
					if row == table.HeaderRow {
						return lipgloss.NewStyle().Bold(true).Padding(0, 1)
					}
					style := lipgloss.NewStyle().Padding(0, 1)
					if col == 3 {
						if records[row].Outcome == "ok" {
							return style.Inherit(okStyle)
						}
						return style.Inherit(failStyle)
					}
					return style
				})
			for _, r := range records {
				t.Row(
					r.CreatedAt.Local().Format(time.DateTime),
					r.Source,
					r.Strategy,
					r.Outcome,
					strconv.Itoa(r.Courses),
					strconv.FormatInt(r.DurationMs, 10),
				)
			}
			_, err = fmt.Fprintln(a.out, t.Render())
			return err
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print entries as JSON")
	return cmd
}
