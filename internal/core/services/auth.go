package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/veridian-labs/ttpmap-core/internal/core/domain"
	"github.com/veridian-labs/ttpmap-core/internal/core/ports/driven"
	"github.com/veridian-labs/ttpmap-core/internal/core/ports/driving"
)

// Ensure authService implements AuthService
var _ driving.AuthService = (*authService)(nil)

const tokenTTL = 12 * time.Hour

// authService issues and validates stateless JWTs for API access.
type authService struct {
	userStore driven.UserStore
	auth      driven.AuthAdapter
	logger    *slog.Logger
}

// NewAuthService creates an AuthService.
func NewAuthService(userStore driven.UserStore, auth driven.AuthAdapter, logger *slog.Logger) driving.AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &authService{
		userStore: userStore,
		auth:      auth,
		logger:    logger,
	}
}

func (s *authService) Authenticate(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
	user, err := s.userStore.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.Active {
		return nil, domain.ErrInvalidCredentials
	}
	if !s.auth.VerifyPassword(req.Password, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	now := time.Now().UTC()
	expiresAt := now.Add(tokenTTL)
	token, err := s.auth.GenerateToken(&domain.TokenClaims{
		UserID:    user.ID,
		Email:     user.Email,
		Role:      user.Role,
		IssuedAt:  now.Unix(),
		ExpiresAt: expiresAt.Unix(),
	})
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	user.LastLoginAt = &now
	if err := s.userStore.Update(ctx, user); err != nil {
		s.logger.Warn("could not record login time", "user_id", user.ID, "error", err)
	}

	return &domain.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user,
	}, nil
}

func (s *authService) ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error) {
	claims, err := s.auth.ParseToken(token)
	if err != nil {
		return nil, err
	}
	if time.Now().Unix() > claims.ExpiresAt {
		return nil, domain.ErrTokenExpired
	}
	return &domain.AuthContext{
		UserID: claims.UserID,
		Email:  claims.Email,
		Role:   claims.Role,
	}, nil
}

// EnsureAdmin creates the initial admin account on an empty user store.
// Called at startup; a populated store makes this a no-op.
func (s *authService) EnsureAdmin(ctx context.Context, email, password string) error {
	count, err := s.userStore.Count(ctx)
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		return nil
	}

	hash, err := s.auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	admin := &domain.User{
		ID:           domain.GenerateID(),
		Email:        email,
		PasswordHash: hash,
		Name:         "Administrator",
		Role:         domain.RoleAdmin,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.userStore.Create(ctx, admin); err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	s.logger.Info("initial admin user created", "email", email)
	return nil
}
