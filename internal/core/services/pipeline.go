package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/veridian-labs/ttpmap-core/internal/core/domain"
	"github.com/veridian-labs/ttpmap-core/internal/core/ports/driven"
	"github.com/veridian-labs/ttpmap-core/internal/indicators"
	"github.com/veridian-labs/ttpmap-core/internal/runtime"
)

// Pipeline is the report assembler. It drives one document (or raw text)
// through extract → segment → infer → decide → persist, committing the whole
// Report/Sentence/Mapping graph in one transaction or nothing at all.
type Pipeline struct {
	extractors    driven.ExtractorRegistry
	segmenter     driven.Segmenter
	models        *runtime.Models
	policy        *DecisionPolicy
	reportStore   driven.ReportStore
	documentStore driven.DocumentStore
	jobStore      driven.JobStore
	logger        *slog.Logger

	inferConcurrency int
}

// PipelineConfig holds dependencies for Pipeline.
type PipelineConfig struct {
	Extractors    driven.ExtractorRegistry
	Segmenter     driven.Segmenter
	Models        *runtime.Models
	Policy        *DecisionPolicy
	ReportStore   driven.ReportStore
	DocumentStore driven.DocumentStore
	JobStore      driven.JobStore
	Logger        *slog.Logger

	// InferConcurrency bounds parallel sentence inference within one job.
	// Sentence order is fixed before inference starts, so completion order
	// does not matter.
	InferConcurrency int
}

// NewPipeline creates a report assembler.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	concurrency := cfg.InferConcurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	policy := cfg.Policy
	if policy == nil {
		policy = NewDecisionPolicy(DefaultConfidenceThreshold)
	}
	return &Pipeline{
		extractors:       cfg.Extractors,
		segmenter:        cfg.Segmenter,
		models:           cfg.Models,
		policy:           policy,
		reportStore:      cfg.ReportStore,
		documentStore:    cfg.DocumentStore,
		jobStore:         cfg.JobStore,
		logger:           logger,
		inferConcurrency: concurrency,
	}
}

// AssembleInput selects the report source: a stored document, or raw text.
type AssembleInput struct {
	Document  *domain.Document // nil for raw-text reports
	Name      string           // report name; defaults to the document name
	Text      string           // used when Document is nil
	MLModel   string           // optional model label override
	CreatedBy string
}

// Assemble runs the full pipeline and persists the resulting graph. On any
// error nothing is persisted and the error carries the originating stage's
// kind for job status reporting.
func (p *Pipeline) Assemble(ctx context.Context, in AssembleInput) (*domain.Report, *domain.AssemblyResult, error) {
	started := time.Now()

	// The model is resolved up front: without a classifier there is nothing
	// to map and the job must fail before any work is done.
	classifier, err := p.models.Classifier()
	if err != nil {
		return nil, nil, domain.NewPipelineError(domain.ErrorKindModelUnavailable, "inference", err)
	}

	text, err := p.extractText(ctx, in)
	if err != nil {
		return nil, nil, err
	}

	segments := p.segmenter.Segment(text)

	name := in.Name
	if name == "" && in.Document != nil {
		name = in.Document.Name
	}
	modelVersion := classifier.Version()
	mlModel := in.MLModel
	if mlModel == "" {
		mlModel = modelVersion
	}

	report := domain.NewReport(name, text, mlModel)
	report.CreatedBy = in.CreatedBy
	if in.Document != nil {
		report.DocumentID = &in.Document.ID
	}

	sentences := make([]*domain.Sentence, len(segments))
	now := time.Now().UTC()
	for i, seg := range segments {
		sentences[i] = &domain.Sentence{
			ID:         domain.GenerateID(),
			ReportID:   report.ID,
			Text:       seg.Text,
			Order:      seg.Order,
			DocumentID: report.DocumentID,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
	}

	candidates := p.inferAll(ctx, classifier, sentences)

	var (
		mappings []*domain.Mapping
		overflow []int
	)
	for i, s := range sentences {
		decision := p.policy.Decide(s, candidates[i])
		if decision.SkippedOverflow {
			overflow = append(overflow, s.Order)
			continue
		}
		for _, c := range decision.Accepted {
			mappings = append(mappings, &domain.Mapping{
				ID:             domain.GenerateID(),
				ReportID:       report.ID,
				SentenceID:     s.ID,
				AttackObjectID: c.AttackObjectID,
				Confidence:     c.Confidence,
				CreatedAt:      now,
				UpdatedAt:      now,
			})
		}
	}

	graph := &domain.ReportGraph{
		Report:     report,
		Sentences:  sentences,
		Mappings:   mappings,
		Indicators: indicators.Extract(report.ID, text),
	}

	if err := graph.Validate(); err != nil {
		return nil, nil, domain.NewPipelineError(domain.ErrorKindInternal, "assemble", err)
	}

	if err := p.reportStore.SaveGraph(ctx, graph); err != nil {
		return nil, nil, domain.NewPipelineError(domain.ErrorKindPersistence, "persist", err)
	}

	result := &domain.AssemblyResult{
		ReportID:          report.ID,
		SentenceCount:     len(sentences),
		MappingCount:      len(mappings),
		IndicatorCount:    len(graph.Indicators),
		OverflowSentences: overflow,
		ModelVersion:      modelVersion,
	}

	p.logger.Info("report assembled",
		"report_id", report.ID,
		"sentences", result.SentenceCount,
		"mappings", result.MappingCount,
		"indicators", result.IndicatorCount,
		"overflow", len(overflow),
		"duration", time.Since(started),
	)

	return report, result, nil
}

// extractText resolves the report text: the raw input, or the document run
// through the extractor matching its MIME type.
func (p *Pipeline) extractText(ctx context.Context, in AssembleInput) (string, error) {
	if in.Document == nil {
		return in.Text, nil
	}

	extractor := p.extractors.Get(in.Document.MimeType)
	if extractor == nil {
		return "", domain.NewParseError("extract",
			fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, in.Document.MimeType))
	}

	text, err := extractor.Extract(ctx, in.Document.Name, in.Document.MimeType, in.Document.Content)
	if err != nil {
		var pe *domain.PipelineError
		if errors.As(err, &pe) {
			return "", err
		}
		return "", domain.NewParseError("extract", err)
	}
	return text, nil
}

// inferAll runs the classifier over every non-overflow sentence with bounded
// parallelism. Results land by index so ordering is unaffected.
func (p *Pipeline) inferAll(ctx context.Context, classifier driven.Classifier, sentences []*domain.Sentence) [][]domain.Candidate {
	results := make([][]domain.Candidate, len(sentences))
	sem := make(chan struct{}, p.inferConcurrency)
	var wg sync.WaitGroup

	for i, s := range sentences {
		if s.TooLong() {
			continue // exempt from mapping; flagged by the policy
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, text string) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = classifier.Infer(text)
		}(i, s.Text)
	}
	wg.Wait()

	return results
}

// ProcessJob is the worker entry point for one queued task. Pipeline failures
// are recorded on the processing job and do not bubble up; an error return
// means the outcome could not be recorded and the task should be retried or
// failed at the queue level.
func (p *Pipeline) ProcessJob(ctx context.Context, task *domain.Task) error {
	job, err := p.jobStore.Get(ctx, task.JobID())
	if err != nil {
		return fmt.Errorf("load job %s: %w", task.JobID(), err)
	}

	if job.Status == domain.JobStatusCancelled {
		p.logger.Info("skipping cancelled job", "job_id", job.ID)
		return nil
	}

	if err := job.MarkRunning(); err != nil {
		return fmt.Errorf("job %s: %w", job.ID, err)
	}
	if err := p.jobStore.Update(ctx, job); err != nil {
		// A cancel can land between the load above and this write; the
		// store rejects the stale transition and the task is done.
		if errors.Is(err, domain.ErrJobTerminal) {
			p.logger.Info("job cancelled before processing started", "job_id", job.ID)
			return nil
		}
		return fmt.Errorf("update job %s: %w", job.ID, err)
	}

	doc, err := p.documentStore.Get(ctx, job.DocumentID)
	if err != nil {
		return p.failJob(ctx, job, domain.ErrorKindInternal, fmt.Errorf("load document %s: %w", job.DocumentID, err))
	}

	report, result, err := p.Assemble(ctx, AssembleInput{
		Document:  doc,
		Name:      job.ReportName,
		MLModel:   job.MLModel,
		CreatedBy: job.ID,
	})
	if err != nil {
		return p.failJob(ctx, job, domain.KindOf(err), err)
	}

	if err := job.MarkSucceeded(report.ID, result); err != nil {
		return fmt.Errorf("job %s: %w", job.ID, err)
	}
	if err := p.jobStore.Update(ctx, job); err != nil {
		return fmt.Errorf("update job %s: %w", job.ID, err)
	}

	return nil
}

// failJob records a terminal failure on the job. The message reaches status
// queries verbatim; nothing beyond it is exposed.
func (p *Pipeline) failJob(ctx context.Context, job *domain.DocumentProcessingJob, kind domain.ErrorKind, cause error) error {
	p.logger.Error("processing job failed",
		"job_id", job.ID,
		"document_id", job.DocumentID,
		"kind", string(kind),
		"error", cause,
	)

	if err := job.MarkFailed(kind, cause.Error()); err != nil {
		return fmt.Errorf("job %s: %w", job.ID, err)
	}
	if err := p.jobStore.Update(ctx, job); err != nil {
		return fmt.Errorf("record failure for job %s: %w", job.ID, err)
	}
	return nil
}
