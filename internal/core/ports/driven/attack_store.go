package driven

import (
	"context"

	"github.com/veridian-labs/ttpmap-core/internal/core/domain"
)

// AttackObjectStore handles ATT&CK catalog persistence (PostgreSQL).
// Rows are written only by the catalog load and read by everything else.
type AttackObjectStore interface {
	// UpsertBatch inserts or updates catalog rows in one transaction, keyed
	// by stable STIX id. Reloading the same feed never duplicates rows.
	UpsertBatch(ctx context.Context, objects []*domain.AttackObject) error

	// Get retrieves an attack object by ID
	Get(ctx context.Context, id string) (*domain.AttackObject, error)

	// GetByAttackID retrieves an attack object by technique id (e.g. "T1552.005")
	GetByAttackID(ctx context.Context, attackID string) (*domain.AttackObject, error)

	// All retrieves the full catalog
	All(ctx context.Context) ([]*domain.AttackObject, error)

	// Count returns the catalog size
	Count(ctx context.Context) (int, error)
}
