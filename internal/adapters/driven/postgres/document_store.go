package postgres

import (
	"context"
	"database/sql"

	"github.com/veridian-labs/ttpmap-core/internal/core/domain"
	"github.com/veridian-labs/ttpmap-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore implements driven.DocumentStore using PostgreSQL
type DocumentStore struct {
	db *DB
}

// NewDocumentStore creates a new DocumentStore
func NewDocumentStore(db *DB) *DocumentStore {
	return &DocumentStore{db: db}
}

// Save stores a document blob
func (s *DocumentStore) Save(ctx context.Context, doc *domain.Document) error {
	query := `
		INSERT INTO documents (id, name, mime_type, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.db.ExecContext(ctx, query,
		doc.ID,
		doc.Name,
		doc.MimeType,
		doc.Content,
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	return err
}

// Get retrieves a document with its content
func (s *DocumentStore) Get(ctx context.Context, id string) (*domain.Document, error) {
	query := `
		SELECT id, name, mime_type, content, created_at, updated_at
		FROM documents
		WHERE id = $1
	`

	var doc domain.Document
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&doc.ID,
		&doc.Name,
		&doc.MimeType,
		&doc.Content,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// GetMeta retrieves a document without loading its content
func (s *DocumentStore) GetMeta(ctx context.Context, id string) (*domain.Document, error) {
	query := `
		SELECT id, name, mime_type, created_at, updated_at
		FROM documents
		WHERE id = $1
	`

	var doc domain.Document
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&doc.ID,
		&doc.Name,
		&doc.MimeType,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// Delete removes a document. Without cascade, dependent reports survive with
// document_id set NULL by the schema. With cascade, they are removed first.
func (s *DocumentStore) Delete(ctx context.Context, id string, cascade bool) error {
	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		if cascade {
			if _, err := tx.ExecContext(ctx, `DELETE FROM reports WHERE document_id = $1`, id); err != nil {
				return err
			}
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
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
	})
}
