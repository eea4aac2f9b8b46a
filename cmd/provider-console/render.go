package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"github.com/joseph-ayodele/provider-console/internal/entity"
	"github.com/joseph-ayodele/provider-console/internal/stats"
	"github.com/joseph-ayodele/provider-console/internal/triage"
)

func renderTable(w io.Writer, header []string, rows [][]string) {
	t := tablewriter.NewWriter(w)
	t.SetHeader(header)
	t.SetAutoWrapText(false)
	t.SetAutoFormatHeaders(false)
	t.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	t.SetAlignment(tablewriter.ALIGN_LEFT)
	t.SetBorder(false)
	t.AppendBulk(rows)
	t.Render()
}

func renderSeries(w io.Writer, label string, points []stats.Point) {
	if len(points) == 0 {
		_, _ = fmt.Fprintln(w, "  (no data)")
		return
	}
	rows := make([][]string, 0, len(points))
	for _, p := range points {
		rows = append(rows, []string{p.Name, humanize.Comma(int64(p.Value))})
	}
	renderTable(w, []string{label, "Count"}, rows)
}

func renderJob(w io.Writer, job *entity.ValidationJob) {
	rows := [][]string{
		{"Job", job.ID},
		{"Status", string(job.Status)},
		{"Progress", job.ProgressLabel()},
		{"Providers", fmt.Sprintf("%d / %d", job.ProcessedCount, job.TotalCount)},
	}
	if job.CreatedAt != nil {
		rows = append(rows, []string{"Created", humanize.Time(*job.CreatedAt)})
	}
	if job.UpdatedAt != nil {
		rows = append(rows, []string{"Updated", humanize.Time(*job.UpdatedAt)})
	}
	if msg := entity.StrOrEmpty(job.ErrorMessage); msg != "" {
		rows = append(rows, []string{"Error", msg})
	}
	renderTable(w, []string{"Field", "Value"}, rows)
}

func renderProvider(w io.Writer, p *entity.Provider) {
	fields := []struct {
		name       string
		raw        *string
		validated  *string
		confidence float64
	}{
		{"Name", p.Name, p.ValidatedName, p.Confidence.Name},
		{"Phone", p.Phone, p.ValidatedPhone, p.Confidence.Phone},
		{"Address", p.Address, p.ValidatedAddress, p.Confidence.Address},
		{"Specialty", p.Specialty, p.ValidatedSpecialty, p.Confidence.Specialty},
		{"Email", p.Email, p.ValidatedEmail, p.Confidence.Email},
		{"Website", p.Website, p.ValidatedWebsite, 0},
	}
	rows := make([][]string, 0, len(fields))
	for _, f := range fields {
		conf := percent(f.confidence)
		if f.name == "Website" {
			conf = "-"
		}
		rows = append(rows, []string{f.name, stringOr(f.raw, "-"), stringOr(f.validated, "-"), conf})
	}

	_, _ = fmt.Fprintf(w, "Provider %d (job %s)\n", p.ID, p.JobID)
	_, _ = fmt.Fprintf(w, "NPI: %s  Location: %s\n", stringOr(p.NPI, "-"), location(p))
	_, _ = fmt.Fprintf(w, "Status: %s  Overall confidence: %s\n\n",
		strings.Join(triage.Classify(*p).Labels(), ", "), percent(p.ConfidenceOverall))
	renderTable(w, []string{"Field", "Submitted", "Validated", "Confidence"}, rows)

	if len(p.Issues) > 0 {
		_, _ = fmt.Fprintf(w, "\nIssues:\n  - %s\n", strings.Join(p.Issues, "\n  - "))
	}
	if notes := entity.StrOrEmpty(p.ValidationNotes); notes != "" {
		_, _ = fmt.Fprintf(w, "\nNotes: %s\n", notes)
	}
	if p.UpdatedAt != nil {
		_, _ = fmt.Fprintf(w, "\nLast updated %s\n", humanize.Time(*p.UpdatedAt))
	}
}

func location(p *entity.Provider) string {
	parts := make([]string, 0, 3)
	for _, s := range []*string{p.City, p.State, p.ZipCode} {
		if v := entity.StrOrEmpty(s); v != "" {
			parts = append(parts, v)
		}
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}

// percent renders a [0,1] score as a whole percentage.
func percent(v float64) string {
	return fmt.Sprintf("%.0f%%", entity.ClampUnit(v)*100)
}

func stringOr(s *string, fallback string) string {
	if v := entity.StrOrEmpty(s); v != "" {
		return v
	}
	return fallback
}
