package driven

import (
	"context"

	"github.com/veridian-labs/ttpmap-core/internal/core/domain"
)

// ReportStore handles report aggregate persistence (PostgreSQL).
type ReportStore interface {
	// SaveGraph persists a full report aggregate (report, sentences,
	// mappings, indicators) in ONE transaction. Either the whole graph
	// commits or nothing does; readers never see a partial report.
	SaveGraph(ctx context.Context, graph *domain.ReportGraph) error

	// Get retrieves a report without its children
	Get(ctx context.Context, id string) (*domain.Report, error)

	// GetGraph retrieves a report with sentences (ordered), mappings and
	// indicators
	GetGraph(ctx context.Context, id string) (*domain.ReportGraph, error)

	// List retrieves reports with pagination, newest first
	List(ctx context.Context, limit, offset int) ([]*domain.Report, error)

	// GetSentence retrieves one sentence
	GetSentence(ctx context.Context, id string) (*domain.Sentence, error)

	// UpdateSentenceDisposition records the reviewer verdict. A nil
	// disposition returns the sentence to pending review.
	UpdateSentenceDisposition(ctx context.Context, sentenceID string, d *domain.Disposition) error

	// Delete removes a report, cascading to its sentences, mappings and
	// indicators
	Delete(ctx context.Context, id string) error

	// Count returns total report count
	Count(ctx context.Context) (int, error)
}
