package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/provider-console/constants"
	"github.com/joseph-ayodele/provider-console/internal/common"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL + "/api/"}, nil)
}

func TestGetJobStatus_NormalizesBackendStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/validation/status/job-1", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		_, _ = io.WriteString(w, `{"job_id":"job-1","status":"processing","total_providers":200,"processed_providers":50,"progress_percentage":25.0}`)
	})

	job, err := c.GetJobStatus(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, "job-1", job.ID)
	assert.Equal(t, constants.JobStatusRunning, job.Status)
	assert.Equal(t, 50, job.ProcessedCount)
	assert.Equal(t, 200, job.TotalCount)
	assert.Equal(t, "25.0%", job.ProgressLabel())
}

func TestGetProviders_DecodesFlatRecord(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/validation/providers/job-1", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		assert.Equal(t, "100", r.URL.Query().Get("page_size"))
		_, _ = io.WriteString(w, `{"providers":[{
			"id": 7, "job_id": "job-1", "name": "Jane Doe", "npi": "123", "specialty": null,
			"validated_specialty": "Cardiology",
			"confidence_name": 0.9, "confidence_phone": 1.4, "confidence_address": -0.2,
			"confidence_specialty": 0.5, "confidence_email": 0, "confidence_overall": 0.75,
			"needs_review": true, "is_suspicious": true, "is_validated": false,
			"issues": null
		}], "total": 1, "page": 1, "page_size": 100}`)
	})

	page, err := c.GetProviders(context.Background(), "job-1", 1, 100)
	require.NoError(t, err)
	require.Len(t, page.Providers, 1)
	assert.Equal(t, "job-1", page.JobID)
	assert.False(t, page.FetchedAt.IsZero())

	p := page.Providers[0]
	assert.Equal(t, int64(7), p.ID)
	assert.Equal(t, "Jane Doe", p.DisplayName())
	assert.Nil(t, p.Specialty)
	assert.Equal(t, "Cardiology", p.DisplaySpecialty())
	assert.Equal(t, 0.9, p.Confidence.Name)
	assert.Equal(t, 1.0, p.Confidence.Phone, "confidence is clamped to [0,1]")
	assert.Equal(t, 0.0, p.Confidence.Address)
	assert.True(t, p.NeedsReview)
	assert.True(t, p.IsSuspicious)
	assert.NotNil(t, p.Issues)
	assert.Empty(t, p.Issues)
}

func TestGetDashboardStats_PreservesKeyOrder(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "abc", r.URL.Query().Get("job_id"))
		_, _ = io.WriteString(w, `{"total_providers":5,"auto_validated":2,"needs_review":2,"suspicious":1,
			"average_confidence":0.8,
			"validation_status":{"validated":2,"needs_review":2,"suspicious":1,"pending":1},
			"specialty_distribution":{"Urology":1,"Cardiology":3,"Allergy":1}}`)
	})

	stats, err := c.GetDashboardStats(context.Background(), "abc")
	require.NoError(t, err)

	var keys []string
	for pair := stats.SpecialtyDistribution.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	assert.Equal(t, []string{"Urology", "Cardiology", "Allergy"}, keys)
	v, ok := stats.ValidationStatus.Get("pending")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestGetDashboardStats_OmitsEmptyJobID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.RawQuery)
		_, _ = io.WriteString(w, `{"total_providers":0,"validation_status":{},"specialty_distribution":{}}`)
	})
	_, err := c.GetDashboardStats(context.Background(), "")
	require.NoError(t, err)
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		check   func(t *testing.T, err error)
	}{
		{
			name: "404 unwraps to ErrNotFound with backend detail",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				_, _ = io.WriteString(w, `{"detail":"Job not found"}`)
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, common.ErrNotFound)
				assert.True(t, IsStatus(err, http.StatusNotFound))
				assert.Contains(t, err.Error(), "Job not found")
			},
		},
		{
			name: "schema mismatch is a decode error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, `{"status":"running"}`)
			},
			check: func(t *testing.T, err error) {
				assert.True(t, common.HasCode(err, common.CodeDecode))
				assert.False(t, common.IsNetworkError(err))
			},
		},
		{
			name: "malformed json is a decode error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, `{not json`)
			},
			check: func(t *testing.T, err error) {
				assert.True(t, common.HasCode(err, common.CodeDecode))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.handler)
			_, err := c.GetJobStatus(context.Background(), "job-1")
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, nil)
	_, err := c.DownloadResults(context.Background(), "abc123")
	require.Error(t, err)
	assert.True(t, common.IsNetworkError(err))
	assert.True(t, common.HasCode(err, common.CodeNetwork))
}

func TestUpload_SendsMultipartFile(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/upload/csv", r.URL.Path)
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		body, _ := io.ReadAll(f)
		assert.Equal(t, "providers.csv", hdr.Filename)
		assert.Equal(t, "name,npi\n", string(body))
		_, _ = io.WriteString(w, `{"message":"CSV uploaded successfully","file_id":"f-1","filename":"providers.csv"}`)
	})

	res, err := c.Upload(context.Background(), constants.UploadCSV, "/tmp/in/providers.csv", strings.NewReader("name,npi\n"))
	require.NoError(t, err)
	assert.Equal(t, "f-1", res.FileID)

	_, err = c.Upload(context.Background(), constants.UploadKind("XLS"), "x.xls", strings.NewReader(""))
	assert.ErrorIs(t, err, common.ErrUnsupportedFile)
}

func TestStartValidationAndEmailTemplateBodies(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		switch r.URL.Path {
		case "/api/validation/start":
			assert.Equal(t, "job-9", body["job_id"])
			assert.Equal(t, []any{}, body["file_ids"])
			_, _ = io.WriteString(w, `{"job_id":"job-9","status":"pending","total_providers":3,"processed_providers":0,"progress_percentage":0}`)
		case "/api/email/template":
			assert.Equal(t, float64(42), body["provider_id"])
			assert.Equal(t, "review_request", body["template_type"])
			_, _ = io.WriteString(w, `{"provider_id":42,"provider_name":"Jane","subject":"Review Required","body":"Dear Team","issues":[]}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	job, err := c.StartValidation(context.Background(), "job-9")
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusQueued, job.Status)

	tpl, err := c.GenerateEmailTemplate(context.Background(), 42, "")
	require.NoError(t, err)
	assert.Equal(t, "Review Required", tpl.Subject)
	assert.Equal(t, "Dear Team", tpl.Body)
}
