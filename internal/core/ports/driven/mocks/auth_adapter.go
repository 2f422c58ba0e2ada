package mocks

import (
	"encoding/json"
	"fmt"

	"github.com/veridian-labs/ttpmap-core/internal/core/domain"
)

// MockAuthAdapter is a mock implementation of AuthAdapter for testing.
// Hashing is a reversible prefix and tokens are plain JSON claims; it keeps
// the round-trip contract without any real crypto.
type MockAuthAdapter struct {
	HashErr     error
	GenerateErr error
	ParseErr    error
}

// NewMockAuthAdapter creates a new MockAuthAdapter
func NewMockAuthAdapter() *MockAuthAdapter {
	return &MockAuthAdapter{}
}

func (m *MockAuthAdapter) HashPassword(password string) (string, error) {
	if m.HashErr != nil {
		return "", m.HashErr
	}
	return "hashed:" + password, nil
}

func (m *MockAuthAdapter) VerifyPassword(password, hash string) bool {
	return hash == "hashed:"+password
}

func (m *MockAuthAdapter) GenerateToken(claims *domain.TokenClaims) (string, error) {
	if m.GenerateErr != nil {
		return "", m.GenerateErr
	}
	b, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (m *MockAuthAdapter) ParseToken(token string) (*domain.TokenClaims, error) {
	if m.ParseErr != nil {
		return nil, m.ParseErr
	}
	var claims domain.TokenClaims
	if err := json.Unmarshal([]byte(token), &claims); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	}
	return &claims, nil
}
