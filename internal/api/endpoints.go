package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joseph-ayodele/provider-console/constants"
	"github.com/joseph-ayodele/provider-console/internal/common"
	"github.com/joseph-ayodele/provider-console/internal/entity"
)

// Upload sends a provider file to the upload endpoint matching kind.
func (c *Client) Upload(ctx context.Context, kind constants.UploadKind, filename string, r io.Reader) (*entity.UploadResult, error) {
	var path string
	switch kind {
	case constants.UploadCSV:
		path = "/upload/csv"
	case constants.UploadPDF:
		path = "/upload/pdf"
	default:
		return nil, fmt.Errorf("%w: %q", common.ErrUnsupportedFile, kind)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("copy %s: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	raw, err := c.send(ctx, request{
		method:      http.MethodPost,
		path:        path,
		body:        buf.Bytes(),
		contentType: mw.FormDataContentType(),
	})
	if err != nil {
		return nil, err
	}
	var out entity.UploadResult
	if err := decode(raw, schemaUpload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type startValidationRequest struct {
	JobID   string   `json:"job_id"`
	FileIDs []string `json:"file_ids"`
}

// StartValidation asks the backend to run validation for an uploaded job.
func (c *Client) StartValidation(ctx context.Context, jobID string) (*entity.ValidationJob, error) {
	var out entity.ValidationJob
	err := c.postJSON(ctx, "/validation/start", startValidationRequest{JobID: jobID, FileIDs: []string{}}, schemaJob, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetJobStatus fetches the current status of a validation job.
func (c *Client) GetJobStatus(ctx context.Context, jobID string) (*entity.ValidationJob, error) {
	var out entity.ValidationJob
	if err := c.getJSON(ctx, "/validation/status/"+url.PathEscape(jobID), nil, schemaJob, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetProviders fetches one page of providers for a job.
func (c *Client) GetProviders(ctx context.Context, jobID string, page, pageSize int) (*entity.ProviderPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("page_size", strconv.Itoa(pageSize))

	var out entity.ProviderPage
	if err := c.getJSON(ctx, "/validation/providers/"+url.PathEscape(jobID), q, schemaProviderPage, &out); err != nil {
		return nil, err
	}
	out.JobID = jobID
	out.FetchedAt = time.Now().UTC()
	if out.Page == 0 {
		out.Page = page
	}
	if out.PageSize == 0 {
		out.PageSize = pageSize
	}
	if out.Providers == nil {
		out.Providers = []entity.Provider{}
	}
	return &out, nil
}

// GetProvider fetches a single provider record.
func (c *Client) GetProvider(ctx context.Context, providerID int64) (*entity.Provider, error) {
	var out entity.Provider
	path := "/validation/provider/" + strconv.FormatInt(providerID, 10)
	if err := c.getJSON(ctx, path, nil, schemaProvider, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetDashboardStats fetches aggregate statistics; an empty jobID asks for all jobs.
func (c *Client) GetDashboardStats(ctx context.Context, jobID string) (*entity.DashboardStats, error) {
	var q url.Values
	if jobID != "" {
		q = url.Values{"job_id": []string{jobID}}
	}
	var out entity.DashboardStats
	if err := c.getJSON(ctx, "/dashboard/stats", q, schemaStats, &out); err != nil {
		return nil, err
	}
	if out.ValidationStatus == nil {
		out.ValidationStatus = entity.NewDistribution()
	}
	if out.SpecialtyDistribution == nil {
		out.SpecialtyDistribution = entity.NewDistribution()
	}
	out.AverageConfidence = entity.ClampUnit(out.AverageConfidence)
	return &out, nil
}

// DownloadResults returns the CSV export of a job's results.
func (c *Client) DownloadResults(ctx context.Context, jobID string) ([]byte, error) {
	return c.send(ctx, request{
		method: http.MethodGet,
		path:   "/dashboard/download-results",
		query:  url.Values{"job_id": []string{jobID}},
	})
}

type emailTemplateRequest struct {
	ProviderID   int64                  `json:"provider_id"`
	TemplateType constants.TemplateKind `json:"template_type"`
}

// GenerateEmailTemplate asks the backend to render an outreach email for a provider.
func (c *Client) GenerateEmailTemplate(ctx context.Context, providerID int64, kind constants.TemplateKind) (*entity.EmailTemplate, error) {
	if kind == "" {
		kind = constants.DefaultTemplate
	}
	var out entity.EmailTemplate
	err := c.postJSON(ctx, "/email/template", emailTemplateRequest{ProviderID: providerID, TemplateType: kind}, schemaEmail, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
