package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/garyellow/coursetable/internal/browser"
	"github.com/garyellow/coursetable/internal/config"
	"github.com/garyellow/coursetable/internal/exporter"
	"github.com/garyellow/coursetable/internal/fetcher"
	"github.com/garyellow/coursetable/internal/timetable"
)

func newFetchCmd(a *app) *cobra.Command {
	var (
		url      string
		cookie   string
		useHTTP  bool
		strategy string
		dryRun   bool
		saveHTML string
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Import the timetable from the live system",
		Long: `Fetch the timetable page and replace the stored timetable with it.

By default a Chrome window opens at the login page. Log in and open the
timetable; the page is captured as soon as it shows up. With --http (or
--cookie) the page is downloaded directly using an existing session cookie.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			importer, err := a.importer(strategy)
			if err != nil {
				return err
			}

			if cookie == "" {
				cookie = a.cfg.Fetch.Cookie
			}
			if url == "" {
				url = a.cfg.Fetch.URL
			}

			var page, source string
			if useHTTP || cmd.Flags().Changed("cookie") {
				page, err = a.fetchHTTP(ctx, url, cookie)
				source = "http"
			} else {
				page, err = a.fetchBrowser(ctx)
				source = "browser"
			}
			if err != nil {
				return err
			}

			if saveHTML != "" {
				if err := os.WriteFile(saveHTML, []byte(page), 0o644); err != nil {
					return fmt.Errorf("save page: %w", err)
				}
				a.log.WithField("path", saveHTML).Info("Page saved")
			}

			result, err := a.importPage(ctx, page, importOptions{
				Importer: importer,
				Source:   source,
				Save:     !dryRun,
			})
			if err != nil {
				return err
			}
			a.report("", result)
			if !result.OK() {
				return rejectedError(result)
			}
			_, _ = fmt.Fprintln(a.out, exporter.RenderGrid(result.Courses))
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "timetable page URL for --http (default COURSETABLE_FETCH_URL)")
	cmd.Flags().StringVar(&cookie, "cookie", "", "session Cookie header; implies --http")
	cmd.Flags().BoolVar(&useHTTP, "http", false, "download the page instead of opening a browser")
	cmd.Flags().StringVar(&strategy, "strategy", "", "extraction strategy: auto, attribute or grid")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "parse without storing anything")
	cmd.Flags().StringVar(&saveHTML, "save-html", "", "also write the captured page to this file")
	return cmd
}

func (a *app) fetchHTTP(ctx context.Context, url, cookie string) (string, error) {
	if url == "" {
		return "", errors.New("no timetable URL: pass --url or set " + config.EnvFetchURL)
	}
	client := fetcher.NewClient(a.cfg.Fetch.Timeout, a.cfg.Fetch.MaxRetries)
	client.SetRecorder(a.metrics)

	a.log.WithField("url", url).Info("Fetching timetable page")
	return client.Fetch(ctx, fetcher.Request{
		URL:     url,
		Cookie:  cookie,
		Charset: a.cfg.Charset,
	})
}

func (a *app) fetchBrowser(ctx context.Context) (string, error) {
	session, err := browser.Open(ctx, browser.Options{
		ExecPath: a.cfg.Browser.ChromePath,
		Headless: a.cfg.Browser.Headless,
		Timeout:  a.cfg.Browser.ExtractTimeout,
		Recorder: a.metrics,
	})
	if err != nil {
		return "", err
	}
	defer session.Close()

	if err := session.Navigate(ctx, a.cfg.Browser.LoginURL); err != nil {
		return "", err
	}
	_, _ = fmt.Fprintln(a.errOut, dimStyle.Render("Log in and open your timetable in the browser window..."))

	waitCtx, cancel := context.WithTimeout(ctx, a.cfg.Browser.WaitTimeout)
	defer cancel()
	capture, err := session.WaitForTimetable(waitCtx, config.BrowserPollInterval)
	if err != nil {
		return "", err
	}
	a.log.WithField("source", string(capture.Source)).WithField("url", capture.URL).Info("Timetable page captured")
	return capture.HTML, nil
}

func rejectedError(result timetable.Result) error {
	return fmt.Errorf("page rejected: %s", result.Reason)
}
