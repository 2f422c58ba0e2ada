package driven

import (
	"context"

	"github.com/veridian-labs/ttpmap-core/internal/core/domain"
)

// UserStore handles user persistence (PostgreSQL).
type UserStore interface {
	// Create stores a new user
	Create(ctx context.Context, user *domain.User) error

	// Get retrieves a user by ID
	Get(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail retrieves a user by email
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// Update persists user changes
	Update(ctx context.Context, user *domain.User) error

	// Count returns total user count (used for first-run admin bootstrap)
	Count(ctx context.Context) (int, error)
}
