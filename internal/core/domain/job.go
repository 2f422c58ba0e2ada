package domain

import "time"

// JobStatus represents the current state of a document processing job.
// Transitions are monotonic: queued -> running -> succeeded | failed.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// DocumentProcessingJob tracks one asynchronous pipeline run for a document.
// Terminal states (succeeded, failed, cancelled) are final and immutable.
type DocumentProcessingJob struct {
	ID          string     `json:"id"`
	DocumentID  string     `json:"document_id"`
	ReportID    *string    `json:"report_id,omitempty"` // set on success
	Result      *AssemblyResult `json:"result,omitempty"` // set on success; carries overflow skips
	Status      JobStatus  `json:"status"`
	ErrorKind   ErrorKind  `json:"error_kind,omitempty"`
	Error       string     `json:"error,omitempty"`
	MLModel     string     `json:"ml_model,omitempty"`     // requested model version override
	ReportName  string     `json:"report_name,omitempty"`  // requested report name override
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewProcessingJob creates a queued job for a document.
func NewProcessingJob(documentID string) *DocumentProcessingJob {
	now := time.Now().UTC()
	return &DocumentProcessingJob{
		ID:         GenerateID(),
		DocumentID: documentID,
		Status:     JobStatusQueued,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Active reports whether the job still holds the per-document processing slot.
func (j *DocumentProcessingJob) Active() bool {
	return j.Status == JobStatusQueued || j.Status == JobStatusRunning
}

// Terminal reports whether the job reached a final state.
func (j *DocumentProcessingJob) Terminal() bool {
	switch j.Status {
	case JobStatusSucceeded, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// MarkRunning transitions queued -> running.
func (j *DocumentProcessingJob) MarkRunning() error {
	if j.Status != JobStatusQueued {
		return ErrJobTerminal
	}
	now := time.Now().UTC()
	j.Status = JobStatusRunning
	j.StartedAt = &now
	j.UpdatedAt = now
	return nil
}

// MarkSucceeded transitions running -> succeeded, recording the report and
// the assembly summary (sentence/mapping counts, overflow skips).
func (j *DocumentProcessingJob) MarkSucceeded(reportID string, result *AssemblyResult) error {
	if j.Status != JobStatusRunning {
		return ErrJobTerminal
	}
	now := time.Now().UTC()
	j.Status = JobStatusSucceeded
	j.ReportID = &reportID
	j.Result = result
	j.CompletedAt = &now
	j.UpdatedAt = now
	return nil
}

// MarkFailed transitions running -> failed carrying the error kind and the
// message surfaced verbatim to status queries.
func (j *DocumentProcessingJob) MarkFailed(kind ErrorKind, message string) error {
	if j.Terminal() {
		return ErrJobTerminal
	}
	now := time.Now().UTC()
	j.Status = JobStatusFailed
	j.ErrorKind = kind
	j.Error = message
	j.CompletedAt = &now
	j.UpdatedAt = now
	return nil
}

// Cancel transitions queued -> cancelled. A running job must run to a
// terminal state and cannot be cancelled.
func (j *DocumentProcessingJob) Cancel() error {
	if j.Status != JobStatusQueued {
		return ErrJobNotCancellable
	}
	now := time.Now().UTC()
	j.Status = JobStatusCancelled
	j.CompletedAt = &now
	j.UpdatedAt = now
	return nil
}
