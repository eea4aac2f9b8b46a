package entity

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/joseph-ayodele/provider-console/constants"
)

// ValidationJob is one validation run over an uploaded file, as last reported by the backend.
type ValidationJob struct {
	ID                 string              `json:"job_id"`
	Status             constants.JobStatus `json:"status"`
	TotalCount         int                 `json:"total_providers"`
	ProcessedCount     int                 `json:"processed_providers"`
	ProgressPercentage float64             `json:"progress_percentage"`
	CreatedAt          *time.Time          `json:"created_at,omitempty"`
	UpdatedAt          *time.Time          `json:"updated_at,omitempty"`
	ErrorMessage       *string             `json:"error_message,omitempty"`
}

func (j *ValidationJob) UnmarshalJSON(data []byte) error {
	type wire ValidationJob
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*j = ValidationJob(w)
	j.Status = constants.NormalizeJobStatus(string(w.Status))
	if j.TotalCount < 0 {
		j.TotalCount = 0
	}
	if j.ProcessedCount < 0 {
		j.ProcessedCount = 0
	}
	return nil
}

// Terminal reports whether polling for this job can stop.
func (j *ValidationJob) Terminal() bool {
	return j != nil && j.Status.Terminal()
}

// Progress returns the completion percentage clamped to [0,100]. A missing
// backend value is derived from the processed/total counts.
func (j *ValidationJob) Progress() float64 {
	if j == nil {
		return 0
	}
	p := j.ProgressPercentage
	if p == 0 && j.TotalCount > 0 && j.ProcessedCount > 0 {
		p = float64(j.ProcessedCount) / float64(j.TotalCount) * 100
	}
	return ClampPercent(p)
}

// ProgressLabel renders Progress with one decimal, e.g. "25.0%".
func (j *ValidationJob) ProgressLabel() string {
	return fmt.Sprintf("%.1f%%", j.Progress())
}

// ClampPercent bounds v to [0,100]; NaN becomes 0.
func ClampPercent(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}

// ClampUnit bounds v to [0,1]; NaN becomes 0.
func ClampUnit(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
