package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/provider-console/constants"
)

// UploadResult is the backend's answer to a file upload. FileID doubles as the job id.
type UploadResult struct {
	Message  string `json:"message"`
	FileID   string `json:"file_id"`
	Filename string `json:"filename"`
}

// Upload is a locally recorded upload, listed by the history command.
type Upload struct {
	ID         uuid.UUID            `json:"id"`
	Filename   string               `json:"filename"`
	Kind       constants.UploadKind `json:"kind"`
	JobID      string               `json:"job_id"`
	SHA256     string               `json:"sha256"`
	SizeBytes  int64                `json:"size_bytes"`
	UploadedAt time.Time            `json:"uploaded_at"`
	StartError *string              `json:"start_error,omitempty"`
}
