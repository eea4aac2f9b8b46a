package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/provider-console/constants"
	"github.com/joseph-ayodele/provider-console/internal/artifact"
	"github.com/joseph-ayodele/provider-console/internal/stats"
)

func newStatsCmd(a *app) *cobra.Command {
	var (
		jobFlag string
		allJobs bool
		top     int
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show dashboard statistics for the selected job",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			jobID := ""
			if !allJobs {
				// Without a selected job the backend aggregates over all jobs.
				jobID, _ = a.jobID(jobFlag)
			}
			tr := stats.NewTracker(a.client, a.cfg.Poll.Interval, a.logger)
			tr.SetJob(jobID)
			if err := tr.Refresh(cmd.Context()); err != nil {
				return err
			}
			s := tr.Latest()

			w := cmd.OutOrStdout()
			scope := "all jobs"
			if jobID != "" {
				scope = "job " + jobID
			}
			_, _ = fmt.Fprintf(w, "Statistics for %s\n\n", scope)
			renderTable(w, []string{"Total", "Auto-validated", "Needs review", "Suspicious", "Avg confidence"}, [][]string{{
				humanize.Comma(int64(s.TotalProviders)),
				humanize.Comma(int64(s.AutoValidated)),
				humanize.Comma(int64(s.NeedsReview)),
				humanize.Comma(int64(s.Suspicious)),
				percent(s.AverageConfidence),
			}})

			_, _ = fmt.Fprintln(w, "\nValidation status")
			renderSeries(w, "Status", stats.StatusSeries(s.ValidationStatus))

			specialties := stats.SpecialtySeries(s.SpecialtyDistribution)
			if top > 0 {
				specialties = stats.TopN(s.SpecialtyDistribution, top)
			}
			_, _ = fmt.Fprintln(w, "\nSpecialties")
			renderSeries(w, "Specialty", specialties)

			if s.StateDistribution != nil && s.StateDistribution.Len() > 0 {
				_, _ = fmt.Fprintln(w, "\nStates")
				renderSeries(w, "State", stats.ToSeries(s.StateDistribution))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&jobFlag, "job", "", "job id (default: selected job)")
	cmd.Flags().BoolVar(&allJobs, "all", false, "aggregate over all jobs")
	cmd.Flags().IntVar(&top, "top", 0, "show the N largest specialties instead of the first ten")
	return cmd
}

func newDownloadCmd(a *app) *cobra.Command {
	var (
		jobFlag string
		format  string
		dir     string
	)
	cmd := &cobra.Command{
		Use:   "download",
		Short: "Save the validation results of a job",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			jobID, err := a.jobID(jobFlag)
			if err != nil {
				return err
			}
			if dir == "" {
				dir = a.cfg.DownloadDir
			}
			r := artifact.NewRequester(a.client, a.notifier, a.logger)
			path, err := r.SaveResults(cmd.Context(), jobID, dir, constants.ExportFormat(format))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVar(&jobFlag, "job", "", "job id (default: selected job)")
	cmd.Flags().StringVar(&format, "format", string(constants.ExportCSV), "csv or xlsx")
	cmd.Flags().StringVarP(&dir, "dir", "o", "", "output directory (default from config)")
	return cmd
}
