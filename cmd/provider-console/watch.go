package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/provider-console/constants"
	"github.com/joseph-ayodele/provider-console/internal/console"
	"github.com/joseph-ayodele/provider-console/internal/entity"
	"github.com/joseph-ayodele/provider-console/internal/ingest"
	"github.com/joseph-ayodele/provider-console/internal/monitor"
	"github.com/joseph-ayodele/provider-console/internal/server"
)

func newWatchCmd(a *app) *cobra.Command {
	var (
		dir        string
		healthAddr string
		skipHidden bool
		summary    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the selected job and upload files dropped into a directory",
		Long: "watch keeps the job status, provider page and statistics polls running for the\n" +
			"selected job. With --dir, new CSV and PDF files are uploaded and become the\n" +
			"selected job. With --health-addr, a gRPC health endpoint reports poll health.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			w := a.output(cmd.OutOrStdout())
			if dir == "" {
				dir = a.cfg.Upload.WatchDir
			}
			if healthAddr == "" {
				healthAddr = a.cfg.Server.HealthAddr
			}

			var hs *server.HealthServer
			if healthAddr != "" {
				var err error
				if hs, err = server.NewHealthServer(healthAddr, a.logger); err != nil {
					return err
				}
				hs.Start()
				defer func() {
					sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					hs.Shutdown(sctx)
				}()
			}

			con := console.New(a.client, a.session, a.notifier, console.Config{
				Interval:         a.cfg.Poll.Interval,
				PageSize:         a.cfg.Poll.PageSize,
				FailureThreshold: a.cfg.Poll.FailureThreshold,
				RequestTimeout:   a.cfg.API.Timeout,
			}, a.logger, console.WithMonitorOptions(
				monitor.WithOnUpdate(func(job *entity.ValidationJob) {
					if hs != nil {
						hs.MonitorHealthy()
					}
					prefix := fmt.Sprintf("[%s] job %s ", time.Now().Format(time.TimeOnly), job.ID)
					renderProgress(w, prefix, job, false)
				}),
				monitor.WithOnThreshold(func(string, error) {
					if hs != nil {
						hs.MonitorFailing()
					}
				}),
			))

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return con.Run(gctx) })
			if dir != "" {
				cfg := ingest.WatchConfig{
					Roots:      []string{dir},
					Debounce:   a.cfg.Upload.Debounce,
					SkipHidden: skipHidden,
				}
				g.Go(func() error { return ingest.Watch(gctx, cfg, a.uploader(true)) })
			}
			if summary > 0 {
				g.Go(func() error {
					t := time.NewTicker(summary)
					defer t.Stop()
					for {
						select {
						case <-gctx.Done():
							return nil
						case <-t.C:
							printSummary(w, con)
						}
					}
				})
			}
			a.logger.Info("cli.watch.started", "job_id", a.session.JobID(), "dir", dir, "health_addr", healthAddr)
			return g.Wait()
		},
	}
	f := cmd.Flags()
	f.StringVar(&dir, "dir", "", "drop directory to watch for new files (default from config)")
	f.StringVar(&healthAddr, "health-addr", "", "gRPC health listen address, e.g. :8081 (default from config)")
	f.BoolVar(&skipHidden, "skip-hidden", true, "ignore dot files and directories")
	f.DurationVar(&summary, "summary", 30*time.Second, "print a review summary this often (0 disables)")
	return cmd
}

// printSummary reports the cached page and stats without issuing requests.
// The report is written in a single Write.
func printSummary(w io.Writer, con *console.Console) {
	var buf bytes.Buffer
	writeSummary(&buf, con)
	_, _ = w.Write(buf.Bytes())
}

func writeSummary(w io.Writer, con *console.Console) {
	jobID := con.JobID()
	if jobID == "" {
		_, _ = fmt.Fprintln(w, "no job selected")
		return
	}
	review := con.Rows("", constants.FilterReview)
	suspicious := con.Rows("", constants.FilterSuspicious)
	page := con.Page()
	loaded := 0
	if page != nil {
		loaded = len(page.Providers)
	}
	status := "status unknown"
	if job, ok := con.Job(); ok {
		status = fmt.Sprintf("%s %s", job.Status, job.ProgressLabel())
	}
	_, _ = fmt.Fprintf(w, "job %s (%s): %d providers on page, %d need review, %d suspicious\n",
		jobID, status, loaded, len(review), len(suspicious))

	if s := con.Stats(); s != nil {
		_, specialties := con.Charts()
		_, _ = fmt.Fprintf(w, "  %s total, average confidence %s, %d specialties charted\n",
			humanize.Comma(int64(s.TotalProviders)), percent(s.AverageConfidence), len(specialties))
	}
}
