package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/veridian-labs/ttpmap-core/internal/core/domain"
	"github.com/veridian-labs/ttpmap-core/internal/core/ports/driven"
	"github.com/veridian-labs/ttpmap-core/internal/core/ports/driving"
)

// Ensure jobService implements JobService
var _ driving.JobService = (*jobService)(nil)

// jobService is the processing job tracker: it stores uploads, creates queued
// jobs (one active per document) and hands them to the task queue.
type jobService struct {
	jobStore      driven.JobStore
	documentStore driven.DocumentStore
	queue         driven.TaskQueue
	logger        *slog.Logger
}

// NewJobService creates a JobService.
func NewJobService(
	jobStore driven.JobStore,
	documentStore driven.DocumentStore,
	queue driven.TaskQueue,
	logger *slog.Logger,
) driving.JobService {
	if logger == nil {
		logger = slog.Default()
	}
	return &jobService{
		jobStore:      jobStore,
		documentStore: documentStore,
		queue:         queue,
		logger:        logger,
	}
}

func (s *jobService) Submit(ctx context.Context, req driving.SubmitRequest) (*domain.DocumentProcessingJob, error) {
	if len(req.Content) == 0 {
		return nil, fmt.Errorf("%w: empty upload", domain.ErrInvalidInput)
	}
	name := strings.TrimSpace(req.Filename)
	if name == "" {
		return nil, fmt.Errorf("%w: missing filename", domain.ErrInvalidInput)
	}

	doc := domain.NewDocument(name, req.MimeType, req.Content)
	if err := s.documentStore.Save(ctx, doc); err != nil {
		return nil, fmt.Errorf("store document: %w", err)
	}

	return s.queueJob(ctx, doc.ID, req.ReportName, req.MLModel, req.CreatedBy)
}

func (s *jobService) Resubmit(ctx context.Context, documentID, reportName, mlModel, createdBy string) (*domain.DocumentProcessingJob, error) {
	// Verify the document exists before creating a job for it.
	if _, err := s.documentStore.GetMeta(ctx, documentID); err != nil {
		return nil, err
	}
	return s.queueJob(ctx, documentID, reportName, mlModel, createdBy)
}

// queueJob creates the job row and enqueues the pipeline task. The store
// enforces the one-active-job-per-document invariant atomically: a duplicate
// submission fails with ErrJobAlreadyInProgress before anything is queued.
func (s *jobService) queueJob(ctx context.Context, documentID, reportName, mlModel, createdBy string) (*domain.DocumentProcessingJob, error) {
	job := domain.NewProcessingJob(documentID)
	job.ReportName = reportName
	job.MLModel = mlModel

	if err := s.jobStore.Create(ctx, job); err != nil {
		return nil, err
	}

	task := domain.NewProcessDocumentTask(documentID, job.ID)
	task.ID = job.ID // one task per job; shared id makes cancellation direct
	if err := s.queue.Enqueue(ctx, task); err != nil {
		// The job would sit queued forever without a task; fail it now so
		// status polls see the truth.
		_ = job.MarkFailed(domain.ErrorKindInternal, fmt.Sprintf("enqueue: %v", err))
		_ = s.jobStore.Update(ctx, job)
		return nil, fmt.Errorf("enqueue processing task: %w", err)
	}

	s.logger.Info("processing job queued",
		"job_id", job.ID,
		"document_id", documentID,
		"created_by", createdBy,
	)
	return job, nil
}

func (s *jobService) Status(ctx context.Context, jobID string) (*domain.DocumentProcessingJob, error) {
	return s.jobStore.Get(ctx, jobID)
}

func (s *jobService) Cancel(ctx context.Context, jobID string) error {
	job, err := s.jobStore.Get(ctx, jobID)
	if err != nil {
		return err
	}

	if err := job.Cancel(); err != nil {
		return err
	}
	if err := s.jobStore.Update(ctx, job); err != nil {
		return fmt.Errorf("update job %s: %w", jobID, err)
	}

	// Best effort: the worker also skips cancelled jobs it dequeues.
	if err := s.queue.CancelTask(ctx, jobID); err != nil {
		s.logger.Warn("could not cancel queued task", "job_id", jobID, "error", err)
	}

	s.logger.Info("processing job cancelled", "job_id", jobID)
	return nil
}

func (s *jobService) List(ctx context.Context, limit, offset int) ([]*domain.DocumentProcessingJob, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 1000 {
		limit = 1000
	}
	return s.jobStore.List(ctx, limit, offset)
}
