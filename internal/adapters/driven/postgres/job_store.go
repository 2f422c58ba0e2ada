package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/veridian-labs/ttpmap-core/internal/core/domain"
	"github.com/veridian-labs/ttpmap-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.JobStore = (*JobStore)(nil)

// JobStore implements driven.JobStore using PostgreSQL
type JobStore struct {
	db *DB
}

// NewJobStore creates a new JobStore
func NewJobStore(db *DB) *JobStore {
	return &JobStore{db: db}
}

// Create stores a new job. The partial unique index on active jobs turns a
// concurrent second submission for the same document into a constraint
// violation, which is mapped to ErrJobAlreadyInProgress.
func (s *JobStore) Create(ctx context.Context, job *domain.DocumentProcessingJob) error {
	resultJSON, err := marshalResult(job.Result)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO processing_jobs (
			id, document_id, report_id, result, status, error_kind, error,
			ml_model, report_name, created_at, updated_at, started_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err = s.db.ExecContext(ctx, query,
		job.ID,
		job.DocumentID,
		NullString(job.ReportID),
		resultJSON,
		job.Status,
		job.ErrorKind,
		job.Error,
		job.MLModel,
		job.ReportName,
		job.CreatedAt,
		job.UpdatedAt,
		NullTime(job.StartedAt),
		NullTime(job.CompletedAt),
	)
	if IsUniqueViolation(err, "processing_jobs_active_document_key") {
		return domain.ErrJobAlreadyInProgress
	}
	return err
}

// Get retrieves a job by ID
func (s *JobStore) Get(ctx context.Context, id string) (*domain.DocumentProcessingJob, error) {
	row := s.db.QueryRowContext(ctx, selectJob+` WHERE id = $1`, id)
	return scanJob(row)
}

// Update persists job state changes. The status guard makes the write a
// compare-and-swap: every transition originates from queued or running, so a
// caller holding a stale copy cannot clobber a row another writer already
// moved to a terminal state.
func (s *JobStore) Update(ctx context.Context, job *domain.DocumentProcessingJob) error {
	resultJSON, err := marshalResult(job.Result)
	if err != nil {
		return err
	}

	query := `
		UPDATE processing_jobs SET
			report_id = $1, result = $2, status = $3, error_kind = $4, error = $5,
			updated_at = $6, started_at = $7, completed_at = $8
		WHERE id = $9 AND status IN ('queued', 'running')
	`

	result, err := s.db.ExecContext(ctx, query,
		NullString(job.ReportID),
		resultJSON,
		job.Status,
		job.ErrorKind,
		job.Error,
		job.UpdatedAt,
		NullTime(job.StartedAt),
		NullTime(job.CompletedAt),
		job.ID,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows != 0 {
		return nil
	}

	// No row matched: either the job does not exist, or it is already
	// terminal and the stale write must be rejected.
	var status string
	err = s.db.QueryRowContext(ctx,
		`SELECT status FROM processing_jobs WHERE id = $1`, job.ID).Scan(&status)
	if err == sql.ErrNoRows {
		return domain.ErrNotFound
	}
	if err != nil {
		return err
	}
	return domain.ErrJobTerminal
}

// GetActiveForDocument retrieves the queued or running job for a document
func (s *JobStore) GetActiveForDocument(ctx context.Context, documentID string) (*domain.DocumentProcessingJob, error) {
	row := s.db.QueryRowContext(ctx,
		selectJob+` WHERE document_id = $1 AND status IN ('queued', 'running')`, documentID)
	return scanJob(row)
}

// List retrieves jobs with pagination, newest first
func (s *JobStore) List(ctx context.Context, limit, offset int) ([]*domain.DocumentProcessingJob, error) {
	query := selectJob + ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*domain.DocumentProcessingJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	return jobs, rows.Err()
}

const selectJob = `
	SELECT id, document_id, report_id, result, status, error_kind, error,
		ml_model, report_name, created_at, updated_at, started_at, completed_at
	FROM processing_jobs`

func scanJob(row scanner) (*domain.DocumentProcessingJob, error) {
	var job domain.DocumentProcessingJob
	var reportID sql.NullString
	var resultJSON []byte
	var startedAt, completedAt sql.NullTime

	err := row.Scan(
		&job.ID,
		&job.DocumentID,
		&reportID,
		&resultJSON,
		&job.Status,
		&job.ErrorKind,
		&job.Error,
		&job.MLModel,
		&job.ReportName,
		&job.CreatedAt,
		&job.UpdatedAt,
		&startedAt,
		&completedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	job.ReportID = StringPtr(reportID)
	job.StartedAt = TimePtr(startedAt)
	job.CompletedAt = TimePtr(completedAt)

	if len(resultJSON) > 0 {
		var result domain.AssemblyResult
		if err := json.Unmarshal(resultJSON, &result); err != nil {
			return nil, err
		}
		job.Result = &result
	}

	return &job, nil
}

func marshalResult(r *domain.AssemblyResult) ([]byte, error) {
	if r == nil {
		return nil, nil
	}
	return json.Marshal(r)
}
