package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeJobStatus(t *testing.T) {
	tests := map[string]JobStatus{
		"pending":    JobStatusQueued,
		"queued":     JobStatusQueued,
		"processing": JobStatusRunning,
		"RUNNING":    JobStatusRunning,
		"completed":  JobStatusCompleted,
		" failed ":   JobStatusFailed,
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeJobStatus(in), in)
	}
	assert.True(t, JobStatusCompleted.Terminal())
	assert.True(t, JobStatusFailed.Terminal())
	assert.False(t, JobStatusRunning.Terminal())
	assert.False(t, JobStatusQueued.Terminal())
}

func TestParseStatusFilter(t *testing.T) {
	tests := []struct {
		in   string
		want StatusFilter
	}{
		{"", FilterAll},
		{"all", FilterAll},
		{"Validated", FilterValidated},
		{"needs_review", FilterReview},
		{"needs-review", FilterReview},
		{"review", FilterReview},
		{"flagged", FilterSuspicious},
		{" suspicious ", FilterSuspicious},
	}
	for _, tt := range tests {
		got, err := ParseStatusFilter(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseStatusFilter("pending")
	assert.Error(t, err)
	assert.Equal(t, []string{"all", "validated", "review", "suspicious"}, FilterStrings())
}

func TestFiles(t *testing.T) {
	kind, ok := KindForExt(".CSV")
	assert.True(t, ok)
	assert.Equal(t, UploadCSV, kind)
	kind, ok = KindForExt("pdf")
	assert.True(t, ok)
	assert.Equal(t, UploadPDF, kind)
	_, ok = KindForExt(".xlsx")
	assert.False(t, ok)

	assert.Equal(t, "validation_results_abc123.csv", ResultsFileName("abc123", ""))
	assert.Equal(t, "validation_results_abc123.xlsx", ResultsFileName("abc123", ExportXLSX))
	assert.Equal(t, "validation_results_x_.._y.csv", ResultsFileName("x/../y", ExportCSV))
	assert.Equal(t, "validation_results_a_b.csv", ResultsFileName(`a\b`, ExportCSV))
}
