package driven

import (
	"context"

	"github.com/veridian-labs/ttpmap-core/internal/core/domain"
)

// JobStore handles document processing job persistence (PostgreSQL).
type JobStore interface {
	// Create stores a new job. Fails with ErrJobAlreadyInProgress if another
	// job for the same document is queued or running (enforced atomically).
	Create(ctx context.Context, job *domain.DocumentProcessingJob) error

	// Get retrieves a job by ID
	Get(ctx context.Context, id string) (*domain.DocumentProcessingJob, error)

	// Update persists job state changes
	Update(ctx context.Context, job *domain.DocumentProcessingJob) error

	// GetActiveForDocument retrieves the queued or running job for a
	// document, or ErrNotFound
	GetActiveForDocument(ctx context.Context, documentID string) (*domain.DocumentProcessingJob, error)

	// List retrieves jobs with pagination, newest first
	List(ctx context.Context, limit, offset int) ([]*domain.DocumentProcessingJob, error)
}
