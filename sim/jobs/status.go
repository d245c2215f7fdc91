// Package jobs tracks the lifecycle of simulation jobs: the status enum, a
// persistent store, and a tracker that maps run phases onto progress.
package jobs

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusQueued          Status = "queued"
	StatusStartSimulation Status = "start-simulation"

	StatusValidating      Status = "validating"
	StatusRunning         Status = "running"
	StatusGeneratingFiles Status = "generating-files"

	StatusPreparingUpload  Status = "preparing-upload"
	StatusQueuedForUpload  Status = "queued-for-upload"
	StatusUploading        Status = "uploading"
	StatusValidatingUpload Status = "validating-upload"
	StatusUploadRetrying   Status = "upload-retrying"
	StatusUploadFailed     Status = "upload-failed"
	StatusUploadCompleted  Status = "upload-completed"

	StatusCompleted Status = "completed"
	StatusError     Status = "error"
	StatusTimeout   Status = "timeout"
	StatusCancelled Status = "cancelled"
)

var knownStatuses = map[Status]bool{
	StatusQueued: true, StatusStartSimulation: true,
	StatusValidating: true, StatusRunning: true, StatusGeneratingFiles: true,
	StatusPreparingUpload: true, StatusQueuedForUpload: true, StatusUploading: true,
	StatusValidatingUpload: true, StatusUploadRetrying: true, StatusUploadFailed: true,
	StatusUploadCompleted: true,
	StatusCompleted: true, StatusError: true, StatusTimeout: true, StatusCancelled: true,
}

// ParseStatus validates s against the known statuses.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !knownStatuses[st] {
		return "", fmt.Errorf("unknown job status %q", s)
	}
	return st, nil
}

// IsTerminal reports whether no further transition is expected.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusError, StatusTimeout, StatusCancelled, StatusUploadFailed:
		return true
	}
	return false
}

// Job is the persisted view of one simulation job.
type Job struct {
	ID        string    `json:"job_id"`
	TankID    int       `json:"tank_id"`
	Status    Status    `json:"status"`
	Progress  float64   `json:"progress"`
	CacheURL  string    `json:"cache_url,omitempty"`
	ResultURL string    `json:"result_url,omitempty"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}
