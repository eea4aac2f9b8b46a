package ingest

import (
	"context"
	"io"
	"time"

	"github.com/joseph-ayodele/provider-console/constants"
	"github.com/joseph-ayodele/provider-console/internal/entity"
)

// UploadOutcome is the per-file upload result.
type UploadOutcome struct {
	SourcePath   string
	Filename     string
	Kind         constants.UploadKind
	JobID        string
	SHA256       string
	SizeBytes    int64
	Deduplicated bool
	UploadedAt   time.Time
	StartError   string
	Err          string
}

// DirStats summarizes a directory upload.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	StartFailed  uint32
	Failed       uint32
}

// Backend is the part of the backend client used for uploads.
type Backend interface {
	Upload(ctx context.Context, kind constants.UploadKind, filename string, r io.Reader) (*entity.UploadResult, error)
	StartValidation(ctx context.Context, jobID string) (*entity.ValidationJob, error)
}

// JobSelector receives the job id of a successful upload.
type JobSelector interface {
	Set(ctx context.Context, jobID string)
}

// Recorder keeps the local upload history.
type Recorder interface {
	Record(ctx context.Context, u entity.Upload) error
	FindBySHA256(ctx context.Context, sum string) (*entity.Upload, error)
}
