package domain

import "time"

// Role defines user permission level
type Role string

const (
	RoleAdmin    Role = "admin"    // Manage catalog, training data, models
	RoleAnalyst  Role = "analyst"  // Upload documents, review mappings
	RoleObserver Role = "observer" // Read-only report access
)

// User represents an operator of the mapping service
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"` // Never serialize
	Name         string     `json:"name"`
	Role         Role       `json:"role"`
	Active       bool       `json:"active"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

// IsAdmin checks if the user has admin privileges
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// CanSubmit checks if the user may upload documents and edit dispositions
func (u *User) CanSubmit() bool {
	return u.Role == RoleAdmin || u.Role == RoleAnalyst
}

// AuthContext contains authenticated user info for request context
type AuthContext struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
}

// IsAdmin checks if the authenticated user is an admin
func (a *AuthContext) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// CanSubmit checks if the authenticated user may upload and review
func (a *AuthContext) CanSubmit() bool {
	return a.Role == RoleAdmin || a.Role == RoleAnalyst
}

// LoginRequest represents a login attempt
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned after successful authentication
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *User     `json:"user"`
}

// TokenClaims represents the JWT token payload
type TokenClaims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}
