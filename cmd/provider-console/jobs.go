package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/provider-console/constants"
	"github.com/joseph-ayodele/provider-console/internal/common"
	"github.com/joseph-ayodele/provider-console/internal/entity"
	"github.com/joseph-ayodele/provider-console/internal/monitor"
)

func newUploadCmd(a *app) *cobra.Command {
	var (
		follow bool
		dedup  bool
	)
	cmd := &cobra.Command{
		Use:   "upload FILE...",
		Short: "Upload CSV or PDF files and start validation",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			u := a.uploader(dedup)

			var failed int
			for _, path := range args {
				out, err := u.UploadFile(ctx, path)
				if err != nil {
					failed++
					a.logger.Debug("cli.upload_failed", "path", path, "error", err)
				}
				if out != nil {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", out.Filename, out.JobID)
				}
			}
			if follow {
				if id := a.session.JobID(); id != "" {
					if err := followJob(cmd, a, id, false); err != nil {
						return err
					}
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d uploads failed", failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "follow the last uploaded job until it finishes")
	cmd.Flags().BoolVar(&dedup, "dedup", false, "skip files whose content was already uploaded")
	return cmd
}

func newIngestDirCmd(a *app) *cobra.Command {
	var (
		skipHidden bool
		dedup      bool
	)
	cmd := &cobra.Command{
		Use:   "ingest-dir DIR",
		Short: "Upload every CSV and PDF file under a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results, st, err := a.uploader(dedup).UploadDirectory(cmd.Context(), args[0], skipHidden)
			w := cmd.OutOrStdout()
			rows := make([][]string, 0, len(results))
			for _, r := range results {
				status := "ok"
				switch {
				case r.Err != "":
					status = r.Err
				case r.StartError != "":
					status = "start failed: " + r.StartError
				case r.Deduplicated:
					status = "duplicate"
				}
				rows = append(rows, []string{r.SourcePath, r.JobID, humanize.Bytes(uint64(r.SizeBytes)), status})
			}
			renderTable(w, []string{"File", "Job", "Size", "Result"}, rows)
			_, _ = fmt.Fprintf(w, "scanned %d, matched %d, uploaded %d (%d duplicate), start failed %d, failed %d\n",
				st.Scanned, st.Matched, st.Succeeded, st.Deduplicated, st.StartFailed, st.Failed)
			return err
		},
	}
	cmd.Flags().BoolVar(&skipHidden, "skip-hidden", true, "skip dot files and directories")
	cmd.Flags().BoolVar(&dedup, "dedup", true, "skip files whose content was already uploaded")
	return cmd
}

func newUseCmd(a *app) *cobra.Command {
	var clearJob bool
	cmd := &cobra.Command{
		Use:   "use [JOB_ID]",
		Short: "Select the job other commands act on",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if clearJob {
				a.session.Clear(cmd.Context())
				_, _ = fmt.Fprintln(w, "no job selected")
				return nil
			}
			if len(args) == 0 {
				if id := a.session.JobID(); id != "" {
					_, _ = fmt.Fprintln(w, id)
					return nil
				}
				return common.ErrNoJob
			}
			a.session.Set(cmd.Context(), args[0])
			_, _ = fmt.Fprintf(w, "selected job %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&clearJob, "clear", false, "clear the selected job")
	return cmd
}

func newStatusCmd(a *app) *cobra.Command {
	var (
		jobFlag string
		follow  bool
		plot    bool
	)
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the status of the selected validation job",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			jobID, err := a.jobID(jobFlag)
			if err != nil {
				return err
			}
			if follow {
				return followJob(cmd, a, jobID, plot)
			}
			ctx := common.WithJobID(cmd.Context(), jobID)
			job, err := a.client.GetJobStatus(ctx, jobID)
			if err != nil {
				return common.FetchError("job status", err)
			}
			renderJob(cmd.OutOrStdout(), job)
			return nil
		},
	}
	cmd.Flags().StringVar(&jobFlag, "job", "", "job id (default: selected job)")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "poll until the job completes or fails")
	cmd.Flags().BoolVar(&plot, "plot", false, "with --follow, plot progress when done")
	return cmd
}

// followJob polls jobID until it is terminal or the command is interrupted.
func followJob(cmd *cobra.Command, a *app, jobID string, plot bool) error {
	w := a.output(cmd.OutOrStdout())

	var (
		mu      sync.Mutex
		samples []float64
	)
	m := monitor.New(a.client, monitor.Config{
		Interval:         a.cfg.Poll.Interval,
		FailureThreshold: a.cfg.Poll.FailureThreshold,
		Timeout:          a.cfg.API.Timeout,
	}, a.notifier, a.logger, monitor.WithOnUpdate(func(job *entity.ValidationJob) {
		mu.Lock()
		samples = append(samples, job.Progress())
		mu.Unlock()
		renderProgress(w, "", job, a.tty)
	}))

	h := m.Start(jobID)
	select {
	case <-cmd.Context().Done():
	case <-h.Done():
	}
	m.Stop()
	if a.tty {
		_, _ = fmt.Fprintln(w)
	}

	mu.Lock()
	defer mu.Unlock()
	if plot && len(samples) > 1 {
		_, _ = fmt.Fprintln(w, asciigraph.Plot(samples,
			asciigraph.Height(8),
			asciigraph.Width(60),
			asciigraph.Caption("progress % for job "+jobID),
		))
	}

	job, ok := h.Snapshot()
	if ok && job.Status == constants.JobStatusFailed {
		msg := entity.StrOrEmpty(job.ErrorMessage)
		if msg == "" {
			msg = "validation failed"
		}
		return fmt.Errorf("job %s: %s", jobID, msg)
	}
	return nil
}

// renderProgress writes one progress line in a single Write.
func renderProgress(w io.Writer, prefix string, job *entity.ValidationJob, tty bool) {
	line := fmt.Sprintf("%s%-10s %7s  %d/%d providers", prefix, job.Status, job.ProgressLabel(), job.ProcessedCount, job.TotalCount)
	if tty {
		_, _ = fmt.Fprintf(w, "\r%-60s", line)
		return
	}
	_, _ = fmt.Fprintln(w, line)
}

func newHistoryCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent uploads from the local history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			uploads, err := a.uploads.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(uploads) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no uploads recorded")
				return nil
			}
			selected := a.session.JobID()
			rows := make([][]string, 0, len(uploads))
			for _, u := range uploads {
				job := u.JobID
				if job == selected {
					job += " *"
				}
				started := "yes"
				if u.StartError != nil {
					started = "no: " + *u.StartError
				}
				rows = append(rows, []string{
					humanize.Time(u.UploadedAt),
					u.Filename,
					string(u.Kind),
					job,
					humanize.Bytes(uint64(u.SizeBytes)),
					started,
				})
			}
			renderTable(cmd.OutOrStdout(), []string{"Uploaded", "File", "Kind", "Job", "Size", "Validation started"}, rows)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of uploads to show")
	return cmd
}
