package driving

import (
	"context"
	"io"

	"github.com/veridian-labs/ttpmap-core/internal/core/domain"
)

// CatalogService exposes the ATT&CK object catalog.
type CatalogService interface {
	// LoadBundle parses a STIX 2.x bundle and upserts its attack-patterns
	// into the store, then refreshes the in-memory snapshot. Idempotent.
	// Returns the number of objects loaded.
	LoadBundle(ctx context.Context, r io.Reader) (int, error)

	// Refresh rebuilds the in-memory snapshot from the store.
	Refresh(ctx context.Context) error

	// Get looks up an attack object by ID from the snapshot.
	Get(id string) (*domain.AttackObject, bool)

	// GetByAttackID looks up an attack object by technique id (e.g. "T1552.005").
	GetByAttackID(attackID string) (*domain.AttackObject, bool)

	// All returns the snapshot contents.
	All() []*domain.AttackObject

	// Len returns the snapshot size.
	Len() int
}
