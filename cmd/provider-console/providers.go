package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/provider-console/constants"
	"github.com/joseph-ayodele/provider-console/internal/artifact"
	"github.com/joseph-ayodele/provider-console/internal/common"
	"github.com/joseph-ayodele/provider-console/internal/registry"
	"github.com/joseph-ayodele/provider-console/internal/triage"
)

func newProvidersCmd(a *app) *cobra.Command {
	var (
		jobFlag  string
		search   string
		status   string
		page     int
		pageSize int
	)
	cmd := &cobra.Command{
		Use:   "providers",
		Short: "List a page of providers with their triage badges",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, err := constants.ParseStatusFilter(status)
			if err != nil {
				return fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
			}
			jobID, err := a.jobID(jobFlag)
			if err != nil {
				return err
			}
			if pageSize <= 0 {
				pageSize = a.cfg.Poll.PageSize
			}

			reg := registry.New(a.client, registry.Config{PageSize: pageSize, Interval: a.cfg.Poll.Interval}, a.logger)
			p, err := reg.FetchPage(cmd.Context(), jobID, page, pageSize)
			if err != nil {
				return err
			}

			visible := triage.Filter(p.Providers, search, filter)
			rows := make([][]string, 0, len(visible))
			for _, pr := range visible {
				rows = append(rows, []string{
					strconv.FormatInt(pr.ID, 10),
					pr.DisplayName(),
					stringOr(pr.NPI, "-"),
					pr.DisplaySpecialty(),
					pr.DisplayPhone(),
					percent(pr.ConfidenceOverall),
					strings.Join(triage.Classify(pr).Labels(), ", "),
				})
			}
			w := cmd.OutOrStdout()
			renderTable(w, []string{"ID", "Name", "NPI", "Specialty", "Phone", "Confidence", "Status"}, rows)
			_, _ = fmt.Fprintf(w, "page %d: showing %d of %d on page, %d total\n", p.Page, len(visible), len(p.Providers), p.Total)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&jobFlag, "job", "", "job id (default: selected job)")
	f.StringVarP(&search, "search", "s", "", "case-insensitive match on name, NPI or specialty")
	f.StringVar(&status, "status", "all", "one of "+strings.Join(constants.FilterStrings(), ", "))
	f.IntVar(&page, "page", 1, "page number")
	f.IntVar(&pageSize, "page-size", 0, "providers per page (default from config)")
	return cmd
}

func newProviderCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "provider ID",
		Short: "Show one provider in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseProviderID(args[0])
			if err != nil {
				return err
			}
			reg := registry.New(a.client, registry.Config{PageSize: a.cfg.Poll.PageSize}, a.logger)
			p, err := reg.Provider(cmd.Context(), id)
			if err != nil {
				return err
			}
			renderProvider(cmd.OutOrStdout(), p)
			return nil
		},
	}
}

func newEmailCmd(a *app) *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "email PROVIDER_ID",
		Short: "Generate an outreach email for a provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseProviderID(args[0])
			if err != nil {
				return err
			}
			r := artifact.NewRequester(a.client, a.notifier, a.logger)
			tpl, err := r.GenerateEmailTemplate(cmd.Context(), id, constants.TemplateKind(kind))
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "To: %s\nSubject: %s\n\n%s\n", tpl.ProviderName, tpl.Subject, tpl.Body)
			if len(tpl.Issues) > 0 {
				_, _ = fmt.Fprintf(w, "\nIssues:\n  - %s\n", strings.Join(tpl.Issues, "\n  - "))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", string(constants.DefaultTemplate),
		"template kind: review_request, issue_notification or validation_summary")
	return cmd
}

func parseProviderID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: provider id %q", common.ErrInvalidInput, s)
	}
	return id, nil
}
