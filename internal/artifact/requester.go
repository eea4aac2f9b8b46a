package artifact

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/provider-console/constants"
	"github.com/joseph-ayodele/provider-console/internal/common"
	"github.com/joseph-ayodele/provider-console/internal/entity"
	"github.com/joseph-ayodele/provider-console/internal/notify"
)

// Backend is the part of the backend client used for on-demand artifacts.
type Backend interface {
	DownloadResults(ctx context.Context, jobID string) ([]byte, error)
	GenerateEmailTemplate(ctx context.Context, providerID int64, kind constants.TemplateKind) (*entity.EmailTemplate, error)
}

// Requester issues one-shot artifact requests. Every call is independent:
// nothing is cached and no job or provider state is touched.
type Requester struct {
	client   Backend
	notifier notify.Notifier
	logger   *slog.Logger
}

func NewRequester(client Backend, notifier notify.Notifier, logger *slog.Logger) *Requester {
	if logger == nil {
		logger = slog.Default()
	}
	return &Requester{client: client, notifier: notifier, logger: logger}
}

// DownloadResults fetches the CSV export of a job. A failure is reported to
// the notifier once and returned as a DownloadError.
func (r *Requester) DownloadResults(ctx context.Context, jobID string) ([]byte, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		err := common.DownloadError("download results", fmt.Errorf("%w: job id is required", common.ErrInvalidInput))
		notify.Failure(r.notifier, "Failed to download results", err)
		return nil, err
	}

	start := time.Now()
	blob, err := r.client.DownloadResults(common.WithJobID(ctx, jobID), jobID)
	if err != nil {
		r.logger.Error("artifact.download.failed", "job_id", jobID, "error", err)
		derr := common.DownloadError(fmt.Sprintf("download results for job %s", jobID), err)
		notify.Failure(r.notifier, "Failed to download results", derr)
		return nil, derr
	}
	r.logger.Info("artifact.download.ok", "job_id", jobID, "bytes", len(blob), "elapsed_ms", time.Since(start).Milliseconds())
	return blob, nil
}

// SaveResults downloads a job's results and writes them into dir under the
// conventional file name, converting to a workbook for ExportXLSX. It returns
// the written path.
func (r *Requester) SaveResults(ctx context.Context, jobID, dir string, format constants.ExportFormat) (string, error) {
	if format == "" {
		format = constants.ExportCSV
	}
	if format != constants.ExportCSV && format != constants.ExportXLSX {
		return "", common.DownloadError("save results", fmt.Errorf("%w: unknown format %q", common.ErrInvalidInput, format))
	}

	if strings.ContainsAny(jobID, `/\`) || strings.Contains(jobID, "..") {
		derr := common.DownloadError("save results", fmt.Errorf("%w: job id %q is not a valid file name", common.ErrInvalidInput, jobID))
		notify.Failure(r.notifier, "Failed to download results", derr)
		return "", derr
	}

	blob, err := r.DownloadResults(ctx, jobID)
	if err != nil {
		return "", err
	}

	fail := func(msg string, cause error) (string, error) {
		derr := common.DownloadError(msg, cause)
		notify.Failure(r.notifier, "Failed to download results", derr)
		return "", derr
	}

	if format == constants.ExportXLSX {
		if blob, err = CSVToXLSX(blob, "Validation Results"); err != nil {
			return fail("convert results to xlsx", err)
		}
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fail("create download dir", err)
	}
	path := filepath.Join(dir, constants.ResultsFileName(strings.TrimSpace(jobID), format))
	if err := os.WriteFile(path, blob, 0o644); err != nil {
		return fail("write results", err)
	}

	r.logger.Info("artifact.save.ok", "job_id", jobID, "path", path, "format", format)
	notify.Success(r.notifier, "Results downloaded successfully", path)
	return path, nil
}

// GenerateEmailTemplate asks the backend for a fresh outreach email. An empty
// kind means the review request template.
func (r *Requester) GenerateEmailTemplate(ctx context.Context, providerID int64, kind constants.TemplateKind) (*entity.EmailTemplate, error) {
	if kind == "" {
		kind = constants.DefaultTemplate
	}
	tpl, err := r.client.GenerateEmailTemplate(ctx, providerID, kind)
	if err != nil {
		r.logger.Error("artifact.email.failed", "provider_id", providerID, "kind", kind, "error", err)
		terr := common.TemplateGenerationError(fmt.Sprintf("generate %s email for provider %d", kind, providerID), err)
		notify.Failure(r.notifier, "Failed to generate email template", terr)
		return nil, terr
	}
	r.logger.Info("artifact.email.ok", "provider_id", providerID, "kind", kind)
	notify.Success(r.notifier, "Email template generated", tpl.Subject)
	return tpl, nil
}
