package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/garyellow/coursetable/internal/exporter"
	"github.com/garyellow/coursetable/internal/htmlsource"
	"github.com/garyellow/coursetable/internal/timetable"
)

// pageResult is the JSON form of one parsed page.
type pageResult struct {
	File     string             `json:"file"`
	Outcome  string             `json:"outcome"`
	Strategy string             `json:"strategy,omitempty"`
	Found    int                `json:"found"`
	Message  string             `json:"message"`
	Courses  []timetable.Course `json:"courses"`
}

func newParseCmd(a *app) *cobra.Command {
	var (
		charsetName string
		strategy    string
		save        bool
		asJSON      bool
		jobs        int
	)

	cmd := &cobra.Command{
		Use:   "parse FILE...",
		Short: "Parse saved timetable pages",
		Long: `Parse one or more saved timetable pages and print the courses found.
Use "-" to read a page from standard input. With --save the result replaces
the stored timetable; a rejected page never changes it.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if save && len(args) > 1 {
				return errors.New("--save takes exactly one page")
			}
			if charsetName == "" {
				charsetName = a.cfg.Charset
			}
			if !htmlsource.ValidEncoding(charsetName) {
				return fmt.Errorf("unknown charset %q", charsetName)
			}
			importer, err := a.importer(strategy)
			if err != nil {
				return err
			}

			results := make([]timetable.Result, len(args))
			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(max(jobs, 1))
			for i, path := range args {
				g.Go(func() error {
					page, err := htmlsource.Load(path, charsetName)
					if err != nil {
						return fmt.Errorf("%s: %w", path, err)
					}
					results[i], err = a.importPage(ctx, page, importOptions{
						Importer: importer,
						Source:   "file",
						Save:     save,
					})
					return err
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			rejected := 0
			for _, r := range results {
				if !r.OK() {
					rejected++
				}
			}

			if asJSON {
				out := make([]pageResult, len(args))
				for i, r := range results {
					out[i] = pageResult{
						File:     args[i],
						Outcome:  r.Reason.String(),
						Strategy: r.Strategy,
						Found:    r.Found,
						Message:  r.Message(),
						Courses:  r.Courses,
					}
					if out[i].Courses == nil {
						out[i].Courses = []timetable.Course{}
					}
				}
				enc := json.NewEncoder(a.out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(out); err != nil {
					return err
				}
			} else {
				for i, r := range results {
					label := ""
					if len(args) > 1 {
						label = args[i]
					}
					a.report(label, r)
					if r.OK() {
						_, _ = fmt.Fprintln(a.out, exporter.RenderGrid(r.Courses))
					}
				}
			}

			if rejected > 0 {
				return fmt.Errorf("%d of %d pages rejected", rejected, len(args))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&charsetName, "charset", "", "page encoding (gbk, gb18030, big5, ...); detected when empty")
	cmd.Flags().StringVar(&strategy, "strategy", "", "extraction strategy: auto, attribute or grid")
	cmd.Flags().BoolVar(&save, "save", false, "replace the stored timetable with the result")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print results as JSON")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", runtime.NumCPU(), "pages parsed concurrently")
	return cmd
}
