// Package messaging publishes job lifecycle messages for downstream
// consumers. Two backends speak the same JSON schema: Kafka (default) and
// Redis pub/sub.
//
// Every job emits exactly one job_created message, any number of
// job_update messages while it runs, and a final job_update carrying the
// terminal status.
package messaging

import "context"

// Message type discriminators.
const (
	TypeJobCreated = "job_created"
	TypeJobUpdate  = "job_update"
)

// Terminal job statuses.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// DefaultUploader identifies the producing system in job_created messages.
const DefaultUploader = "castiron"

// Producer publishes job lifecycle messages. Sends are best-effort: the
// pipeline logs failures and moves on, so implementations must not block
// beyond their configured timeout.
type Producer interface {
	// JobCreated announces a claimed data file.
	JobCreated(ctx context.Context, jobID, filename, handler string) error
	// JobTask reports the task a job is currently working on.
	JobTask(ctx context.Context, jobID, task string) error
	// JobProgress reports completion in [0, 1].
	JobProgress(ctx context.Context, jobID string, progress float64) error
	// JobCommitted reports the number of records committed so far.
	JobCommitted(ctx context.Context, jobID string, committed int64) error
	// JobStatus reports the terminal status, success or failure.
	JobStatus(ctx context.Context, jobID, status string) error
	// Close releases backend resources.
	Close() error
}

// JobCreated is the wire form of a job_created message.
type JobCreated struct {
	Type     string `json:"type"`
	JobID    string `json:"job_id"`
	Filename string `json:"filename"`
	Handler  string `json:"handler"`
	Uploader string `json:"uploader"`
}

// JobUpdate is the wire form of a job_update message. Exactly one of the
// optional fields is set per message; pointers keep zero values such as
// progress 0.0 and committed 0 on the wire.
type JobUpdate struct {
	Type      string   `json:"type"`
	JobID     string   `json:"job_id"`
	Task      *string  `json:"task,omitempty"`
	Progress  *float64 `json:"progress,omitempty"`
	Committed *int64   `json:"committed,omitempty"`
	Status    *string  `json:"status,omitempty"`
}

// NewJobCreated builds a job_created message.
func NewJobCreated(jobID, filename, handler string) JobCreated {
	return JobCreated{
		Type:     TypeJobCreated,
		JobID:    jobID,
		Filename: filename,
		Handler:  handler,
		Uploader: DefaultUploader,
	}
}

// NewTaskUpdate builds a job_update message carrying a task name.
func NewTaskUpdate(jobID, task string) JobUpdate {
	return JobUpdate{Type: TypeJobUpdate, JobID: jobID, Task: &task}
}

// NewProgressUpdate builds a job_update message carrying progress.
func NewProgressUpdate(jobID string, progress float64) JobUpdate {
	return JobUpdate{Type: TypeJobUpdate, JobID: jobID, Progress: &progress}
}

// NewCommittedUpdate builds a job_update message carrying a committed count.
func NewCommittedUpdate(jobID string, committed int64) JobUpdate {
	return JobUpdate{Type: TypeJobUpdate, JobID: jobID, Committed: &committed}
}

// NewStatusUpdate builds a job_update message carrying a terminal status.
func NewStatusUpdate(jobID, status string) JobUpdate {
	return JobUpdate{Type: TypeJobUpdate, JobID: jobID, Status: &status}
}
