package driving

import (
	"context"

	"github.com/veridian-labs/ttpmap-core/internal/core/domain"
)

// ReportService exposes assembled reports and the review workflow.
type ReportService interface {
	// Get retrieves a report without its children
	Get(ctx context.Context, id string) (*domain.Report, error)

	// GetGraph retrieves a report with its full sentence/mapping/indicator
	// graph, sentences in order
	GetGraph(ctx context.Context, id string) (*domain.ReportGraph, error)

	// List retrieves reports, newest first
	List(ctx context.Context, limit, offset int) ([]*domain.Report, error)

	// CreateFromText assembles a report synchronously from raw text with no
	// backing document.
	CreateFromText(ctx context.Context, name, text, createdBy string) (*domain.Report, *domain.AssemblyResult, error)

	// GetSentence retrieves one sentence
	GetSentence(ctx context.Context, id string) (*domain.Sentence, error)

	// SetDisposition records the reviewer verdict on a sentence. nil clears
	// it back to pending.
	SetDisposition(ctx context.Context, sentenceID string, d *domain.Disposition) error

	// Delete removes a report and everything it owns
	Delete(ctx context.Context, id string) error
}
