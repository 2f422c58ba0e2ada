package driving

import (
	"context"

	"github.com/veridian-labs/ttpmap-core/internal/core/domain"
)

// SubmitRequest carries an uploaded file plus optional override metadata.
type SubmitRequest struct {
	Filename   string
	MimeType   string
	Content    []byte
	ReportName string // optional, defaults to the filename
	MLModel    string // optional model version override
	CreatedBy  string
}

// JobService is the processing job tracker: it accepts document submissions,
// enforces one active job per document, and answers status polls.
type JobService interface {
	// Submit stores the document, creates a queued job and enqueues the
	// pipeline task. Returns ErrJobAlreadyInProgress if the document already
	// has a queued or running job.
	Submit(ctx context.Context, req SubmitRequest) (*domain.DocumentProcessingJob, error)

	// Resubmit queues a new processing job for an already stored document.
	Resubmit(ctx context.Context, documentID string, reportName, mlModel, createdBy string) (*domain.DocumentProcessingJob, error)

	// Status retrieves current job state; on success it includes the report id,
	// on failure the error kind and message verbatim.
	Status(ctx context.Context, jobID string) (*domain.DocumentProcessingJob, error)

	// Cancel cancels a job that is still queued. Running jobs run to a
	// terminal state.
	Cancel(ctx context.Context, jobID string) error

	// List retrieves jobs, newest first.
	List(ctx context.Context, limit, offset int) ([]*domain.DocumentProcessingJob, error)
}
