package constants

import "strings"

// JobStatus is the canonical status of a validation job as reported by the backend.
type JobStatus string

// Stable values.
const (
	JobStatusQueued    JobStatus = "queued"    // accepted, not started
	JobStatusRunning   JobStatus = "running"   // in progress
	JobStatusCompleted JobStatus = "completed" // terminal success
	JobStatusFailed    JobStatus = "failed"    // terminal failure
)

// backend spellings that predate the canonical set
var jobStatusAliases = map[string]JobStatus{
	"pending":    JobStatusQueued,
	"processing": JobStatusRunning,
}

// NormalizeJobStatus maps a backend status string onto the canonical set.
// Unknown values are kept verbatim (lowercased) and are never terminal.
func NormalizeJobStatus(raw string) JobStatus {
	s := strings.ToLower(strings.TrimSpace(raw))
	if alias, ok := jobStatusAliases[s]; ok {
		return alias
	}
	return JobStatus(s)
}

// Terminal reports whether no further progress is expected for the job.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

func (s JobStatus) String() string { return string(s) }
