package auth

import (
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/veridian-labs/ttpmap-core/internal/core/domain"
)

// newTestAdapter uses the minimum bcrypt cost to keep tests fast
func newTestAdapter() *Adapter {
	return NewAdapterWithCost("test-secret-key", bcrypt.MinCost)
}

func TestHashAndVerifyPassword(t *testing.T) {
	a := newTestAdapter()

	hash, err := a.HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if hash == "correct horse battery staple" {
		t.Fatal("password stored in the clear")
	}

	if !a.VerifyPassword("correct horse battery staple", hash) {
		t.Error("correct password rejected")
	}
	if a.VerifyPassword("wrong password", hash) {
		t.Error("wrong password accepted")
	}
	if a.VerifyPassword("correct horse battery staple", "not-a-hash") {
		t.Error("garbage hash accepted")
	}
}

func TestGenerateAndParseToken(t *testing.T) {
	a := newTestAdapter()

	claims := &domain.TokenClaims{
		UserID:    "user-1",
		Email:     "analyst@example.com",
		Role:      domain.RoleAnalyst,
		IssuedAt:  time.Now().Unix(),
		ExpiresAt: time.Now().Add(time.Hour).Unix(),
	}

	token, err := a.GenerateToken(claims)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	parsed, err := a.ParseToken(token)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if parsed.UserID != claims.UserID || parsed.Email != claims.Email || parsed.Role != claims.Role {
		t.Errorf("claims changed in transit: %+v", parsed)
	}
}

func TestParseTokenExpired(t *testing.T) {
	a := newTestAdapter()

	token, err := a.GenerateToken(&domain.TokenClaims{
		UserID:    "user-1",
		Email:     "x@example.com",
		Role:      domain.RoleAnalyst,
		IssuedAt:  time.Now().Add(-2 * time.Hour).Unix(),
		ExpiresAt: time.Now().Add(-time.Hour).Unix(),
	})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	if _, err := a.ParseToken(token); !errors.Is(err, domain.ErrTokenExpired) {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}
}

func TestParseTokenInvalid(t *testing.T) {
	a := newTestAdapter()

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not.a.token"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := a.ParseToken(tt.token); !errors.Is(err, domain.ErrTokenInvalid) {
				t.Errorf("expected ErrTokenInvalid, got %v", err)
			}
		})
	}
}

func TestParseTokenWrongSecret(t *testing.T) {
	a := newTestAdapter()
	other := NewAdapterWithCost("different-secret", bcrypt.MinCost)

	token, err := a.GenerateToken(&domain.TokenClaims{
		UserID:    "user-1",
		ExpiresAt: time.Now().Add(time.Hour).Unix(),
	})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	if _, err := other.ParseToken(token); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid across secrets, got %v", err)
	}
}
