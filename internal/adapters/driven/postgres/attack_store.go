package postgres

import (
	"context"
	"database/sql"

	"github.com/veridian-labs/ttpmap-core/internal/core/domain"
	"github.com/veridian-labs/ttpmap-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.AttackObjectStore = (*AttackObjectStore)(nil)

// AttackObjectStore implements driven.AttackObjectStore using PostgreSQL
type AttackObjectStore struct {
	db *DB
}

// NewAttackObjectStore creates a new AttackObjectStore
func NewAttackObjectStore(db *DB) *AttackObjectStore {
	return &AttackObjectStore{db: db}
}

// UpsertBatch inserts or updates catalog rows in one transaction.
// Conflict resolution is keyed on stix_id so reloading the same feed updates
// rows in place and keeps their ids stable for existing mappings.
func (s *AttackObjectStore) UpsertBatch(ctx context.Context, objects []*domain.AttackObject) error {
	if len(objects) == 0 {
		return nil
	}

	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO attack_objects (id, name, attack_id, attack_url, matrix, attack_type, stix_type, stix_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (stix_id) DO UPDATE SET
				name = EXCLUDED.name,
				attack_id = EXCLUDED.attack_id,
				attack_url = EXCLUDED.attack_url,
				matrix = EXCLUDED.matrix,
				attack_type = EXCLUDED.attack_type,
				stix_type = EXCLUDED.stix_type,
				updated_at = EXCLUDED.updated_at
		`

		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, obj := range objects {
			_, err = stmt.ExecContext(ctx,
				obj.ID,
				obj.Name,
				obj.AttackID,
				obj.AttackURL,
				obj.Matrix,
				obj.AttackType,
				obj.StixType,
				obj.StixID,
				obj.CreatedAt,
				obj.UpdatedAt,
			)
			if err != nil {
				return err
			}
		}

		return nil
	})
}

// Get retrieves an attack object by ID
func (s *AttackObjectStore) Get(ctx context.Context, id string) (*domain.AttackObject, error) {
	query := selectAttackObject + ` WHERE id = $1`
	return scanAttackObject(s.db.QueryRowContext(ctx, query, id))
}

// GetByAttackID retrieves an attack object by technique id
func (s *AttackObjectStore) GetByAttackID(ctx context.Context, attackID string) (*domain.AttackObject, error) {
	query := selectAttackObject + ` WHERE attack_id = $1`
	return scanAttackObject(s.db.QueryRowContext(ctx, query, attackID))
}

// All retrieves the full catalog ordered by attack id
func (s *AttackObjectStore) All(ctx context.Context) ([]*domain.AttackObject, error) {
	query := selectAttackObject + ` ORDER BY attack_id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var objects []*domain.AttackObject
	for rows.Next() {
		var obj domain.AttackObject
		if err := rows.Scan(
			&obj.ID,
			&obj.Name,
			&obj.AttackID,
			&obj.AttackURL,
			&obj.Matrix,
			&obj.AttackType,
			&obj.StixType,
			&obj.StixID,
			&obj.CreatedAt,
			&obj.UpdatedAt,
		); err != nil {
			return nil, err
		}
		objects = append(objects, &obj)
	}

	return objects, rows.Err()
}

// Count returns the catalog size
func (s *AttackObjectStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM attack_objects`).Scan(&count)
	return count, err
}

const selectAttackObject = `
	SELECT id, name, attack_id, attack_url, matrix, attack_type, stix_type, stix_id, created_at, updated_at
	FROM attack_objects`

func scanAttackObject(row *sql.Row) (*domain.AttackObject, error) {
	var obj domain.AttackObject
	err := row.Scan(
		&obj.ID,
		&obj.Name,
		&obj.AttackID,
		&obj.AttackURL,
		&obj.Matrix,
		&obj.AttackType,
		&obj.StixType,
		&obj.StixID,
		&obj.CreatedAt,
		&obj.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &obj, nil
}
