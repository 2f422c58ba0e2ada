package postgres

import (
	"context"
	"database/sql"

	"github.com/veridian-labs/ttpmap-core/internal/core/domain"
	"github.com/veridian-labs/ttpmap-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ReportStore = (*ReportStore)(nil)

// ReportStore implements driven.ReportStore using PostgreSQL
type ReportStore struct {
	db *DB
}

// NewReportStore creates a new ReportStore
func NewReportStore(db *DB) *ReportStore {
	return &ReportStore{db: db}
}

// SaveGraph persists a full report aggregate in one transaction. If any row
// fails the whole graph is rolled back, so readers never see a report with a
// partial sentence or mapping set.
func (s *ReportStore) SaveGraph(ctx context.Context, graph *domain.ReportGraph) error {
	if err := graph.Validate(); err != nil {
		return err
	}

	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		r := graph.Report
		_, err := tx.ExecContext(ctx, `
			INSERT INTO reports (id, name, document_id, text, ml_model, created_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`,
			r.ID,
			r.Name,
			NullString(r.DocumentID),
			r.Text,
			r.MLModel,
			r.CreatedBy,
			r.CreatedAt,
			r.UpdatedAt,
		)
		if err != nil {
			return err
		}

		if len(graph.Sentences) > 0 {
			stmt, err := tx.PrepareContext(ctx, `
				INSERT INTO sentences (id, report_id, text, position, disposition, document_id, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			`)
			if err != nil {
				return err
			}
			defer stmt.Close()

			for _, sen := range graph.Sentences {
				_, err = stmt.ExecContext(ctx,
					sen.ID,
					sen.ReportID,
					sen.Text,
					sen.Order,
					dispositionNull(sen.Disposition),
					NullString(sen.DocumentID),
					sen.CreatedAt,
					sen.UpdatedAt,
				)
				if err != nil {
					return err
				}
			}
		}

		if len(graph.Mappings) > 0 {
			stmt, err := tx.PrepareContext(ctx, `
				INSERT INTO mappings (id, report_id, sentence_id, attack_object_id, confidence, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`)
			if err != nil {
				return err
			}
			defer stmt.Close()

			for _, m := range graph.Mappings {
				_, err = stmt.ExecContext(ctx,
					m.ID,
					m.ReportID,
					m.SentenceID,
					m.AttackObjectID,
					m.Confidence,
					m.CreatedAt,
					m.UpdatedAt,
				)
				if err != nil {
					return err
				}
			}
		}

		if len(graph.Indicators) > 0 {
			stmt, err := tx.PrepareContext(ctx, `
				INSERT INTO indicators (id, report_id, indicator_type, value)
				VALUES ($1, $2, $3, $4)
			`)
			if err != nil {
				return err
			}
			defer stmt.Close()

			for _, ind := range graph.Indicators {
				_, err = stmt.ExecContext(ctx, ind.ID, ind.ReportID, ind.Type, ind.Value)
				if err != nil {
					return err
				}
			}
		}

		return nil
	})
}

// Get retrieves a report without its children
func (s *ReportStore) Get(ctx context.Context, id string) (*domain.Report, error) {
	query := selectReport + ` WHERE id = $1`
	return scanReport(s.db.QueryRowContext(ctx, query, id))
}

// GetGraph retrieves a report with sentences, mappings and indicators
func (s *ReportStore) GetGraph(ctx context.Context, id string) (*domain.ReportGraph, error) {
	report, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	graph := &domain.ReportGraph{Report: report}

	rows, err := s.db.QueryContext(ctx, selectSentence+` WHERE report_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		sen, err := scanSentenceRow(rows)
		if err != nil {
			return nil, err
		}
		graph.Sentences = append(graph.Sentences, sen)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	mrows, err := s.db.QueryContext(ctx, `
		SELECT id, report_id, sentence_id, attack_object_id, confidence, created_at, updated_at
		FROM mappings
		WHERE report_id = $1
		ORDER BY sentence_id, confidence DESC
	`, id)
	if err != nil {
		return nil, err
	}
	defer mrows.Close()
	for mrows.Next() {
		var m domain.Mapping
		if err := mrows.Scan(&m.ID, &m.ReportID, &m.SentenceID, &m.AttackObjectID, &m.Confidence, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		graph.Mappings = append(graph.Mappings, &m)
	}
	if err := mrows.Err(); err != nil {
		return nil, err
	}

	irows, err := s.db.QueryContext(ctx, `
		SELECT id, report_id, indicator_type, value
		FROM indicators
		WHERE report_id = $1
		ORDER BY indicator_type, value
	`, id)
	if err != nil {
		return nil, err
	}
	defer irows.Close()
	for irows.Next() {
		var ind domain.Indicator
		if err := irows.Scan(&ind.ID, &ind.ReportID, &ind.Type, &ind.Value); err != nil {
			return nil, err
		}
		graph.Indicators = append(graph.Indicators, &ind)
	}
	if err := irows.Err(); err != nil {
		return nil, err
	}

	return graph, nil
}

// List retrieves reports with pagination, newest first
func (s *ReportStore) List(ctx context.Context, limit, offset int) ([]*domain.Report, error) {
	query := selectReport + ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []*domain.Report
	for rows.Next() {
		var r domain.Report
		var documentID sql.NullString
		if err := rows.Scan(&r.ID, &r.Name, &documentID, &r.Text, &r.MLModel, &r.CreatedBy, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		r.DocumentID = StringPtr(documentID)
		reports = append(reports, &r)
	}

	return reports, rows.Err()
}

// GetSentence retrieves one sentence
func (s *ReportStore) GetSentence(ctx context.Context, id string) (*domain.Sentence, error) {
	row := s.db.QueryRowContext(ctx, selectSentence+` WHERE id = $1`, id)
	return scanSentenceRow(row)
}

// UpdateSentenceDisposition records the reviewer verdict
func (s *ReportStore) UpdateSentenceDisposition(ctx context.Context, sentenceID string, d *domain.Disposition) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE sentences SET disposition = $1, updated_at = NOW() WHERE id = $2
	`, dispositionNull(d), sentenceID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a report; sentences, mappings and indicators cascade
func (s *ReportStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM reports WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Count returns total report count
func (s *ReportStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reports`).Scan(&count)
	return count, err
}

const selectReport = `
	SELECT id, name, document_id, text, ml_model, created_by, created_at, updated_at
	FROM reports`

const selectSentence = `
	SELECT id, report_id, text, position, disposition, document_id, created_at, updated_at
	FROM sentences`

// scanner covers both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanReport(row *sql.Row) (*domain.Report, error) {
	var r domain.Report
	var documentID sql.NullString

	err := row.Scan(&r.ID, &r.Name, &documentID, &r.Text, &r.MLModel, &r.CreatedBy, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	r.DocumentID = StringPtr(documentID)
	return &r, nil
}

func scanSentenceRow(row scanner) (*domain.Sentence, error) {
	var sen domain.Sentence
	var disposition, documentID sql.NullString

	err := row.Scan(&sen.ID, &sen.ReportID, &sen.Text, &sen.Order, &disposition, &documentID, &sen.CreatedAt, &sen.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if disposition.Valid {
		d := domain.Disposition(disposition.String)
		sen.Disposition = &d
	}
	sen.DocumentID = StringPtr(documentID)
	return &sen, nil
}

func dispositionNull(d *domain.Disposition) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*d), Valid: true}
}
