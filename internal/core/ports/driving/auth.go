package driving

import (
	"context"

	"github.com/veridian-labs/ttpmap-core/internal/core/domain"
)

// AuthService handles user authentication
type AuthService interface {
	// Authenticate validates credentials and issues a JWT
	Authenticate(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error)

	// ValidateToken validates a JWT token and returns the auth context
	ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error)

	// EnsureAdmin creates the initial admin user when the store is empty
	EnsureAdmin(ctx context.Context, email, password string) error
}
