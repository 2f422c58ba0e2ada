package services

import (
	"context"

	"github.com/veridian-labs/ttpmap-core/internal/core/domain"
	"github.com/veridian-labs/ttpmap-core/internal/core/ports/driven"
	"github.com/veridian-labs/ttpmap-core/internal/core/ports/driving"
)

// Ensure reportService implements ReportService
var _ driving.ReportService = (*reportService)(nil)

// reportService exposes assembled reports and the disposition review flow.
type reportService struct {
	reportStore driven.ReportStore
	pipeline    *Pipeline
}

// NewReportService creates a ReportService.
func NewReportService(reportStore driven.ReportStore, pipeline *Pipeline) driving.ReportService {
	return &reportService{
		reportStore: reportStore,
		pipeline:    pipeline,
	}
}

func (s *reportService) Get(ctx context.Context, id string) (*domain.Report, error) {
	return s.reportStore.Get(ctx, id)
}

func (s *reportService) GetGraph(ctx context.Context, id string) (*domain.ReportGraph, error) {
	return s.reportStore.GetGraph(ctx, id)
}

func (s *reportService) List(ctx context.Context, limit, offset int) ([]*domain.Report, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 1000 {
		limit = 1000
	}
	return s.reportStore.List(ctx, limit, offset)
}

// CreateFromText assembles a report synchronously from raw text. Used for
// paste-in submissions that have no backing file and need no job.
func (s *reportService) CreateFromText(ctx context.Context, name, text, createdBy string) (*domain.Report, *domain.AssemblyResult, error) {
	return s.pipeline.Assemble(ctx, AssembleInput{
		Name:      name,
		Text:      text,
		CreatedBy: createdBy,
	})
}

func (s *reportService) GetSentence(ctx context.Context, id string) (*domain.Sentence, error) {
	return s.reportStore.GetSentence(ctx, id)
}

func (s *reportService) SetDisposition(ctx context.Context, sentenceID string, d *domain.Disposition) error {
	if d != nil && *d != domain.DispositionAccept && *d != domain.DispositionReject {
		return domain.ErrInvalidInput
	}
	return s.reportStore.UpdateSentenceDisposition(ctx, sentenceID, d)
}

func (s *reportService) Delete(ctx context.Context, id string) error {
	return s.reportStore.Delete(ctx, id)
}
