package driven

import (
	"context"

	"github.com/veridian-labs/ttpmap-core/internal/core/domain"
)

// DocumentStore handles uploaded file persistence (PostgreSQL).
type DocumentStore interface {
	// Save stores a document blob
	Save(ctx context.Context, doc *domain.Document) error

	// Get retrieves a document with its content
	Get(ctx context.Context, id string) (*domain.Document, error)

	// GetMeta retrieves a document without loading its content
	GetMeta(ctx context.Context, id string) (*domain.Document, error)

	// Delete removes a document. Dependent reports are detached, not deleted,
	// unless cascade is set.
	Delete(ctx context.Context, id string, cascade bool) error
}
