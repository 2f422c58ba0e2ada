package postgres

import (
	"context"
	"database/sql"

	"github.com/veridian-labs/ttpmap-core/internal/core/domain"
	"github.com/veridian-labs/ttpmap-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.UserStore = (*UserStore)(nil)

// UserStore implements driven.UserStore using PostgreSQL
type UserStore struct {
	db *DB
}

// NewUserStore creates a new UserStore
func NewUserStore(db *DB) *UserStore {
	return &UserStore{db: db}
}

// Create stores a new user
func (s *UserStore) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, email, password_hash, name, role, active, created_at, updated_at, last_login_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.db.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.Name,
		user.Role,
		user.Active,
		user.CreatedAt,
		user.UpdatedAt,
		NullTime(user.LastLoginAt),
	)
	if IsUniqueViolation(err, "users_email_key") {
		return domain.ErrAlreadyExists
	}
	return err
}

// Get retrieves a user by ID
func (s *UserStore) Get(ctx context.Context, id string) (*domain.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, selectUser+` WHERE id = $1`, id))
}

// GetByEmail retrieves a user by email
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, selectUser+` WHERE email = $1`, email))
}

// Update persists user changes
func (s *UserStore) Update(ctx context.Context, user *domain.User) error {
	query := `
		UPDATE users SET
			email = $1, password_hash = $2, name = $3, role = $4, active = $5,
			updated_at = $6, last_login_at = $7
		WHERE id = $8
	`

	result, err := s.db.ExecContext(ctx, query,
		user.Email,
		user.PasswordHash,
		user.Name,
		user.Role,
		user.Active,
		user.UpdatedAt,
		NullTime(user.LastLoginAt),
		user.ID,
	)
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
}

// Count returns total user count
func (s *UserStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

const selectUser = `
	SELECT id, email, password_hash, name, role, active, created_at, updated_at, last_login_at
	FROM users`

func scanUser(row *sql.Row) (*domain.User, error) {
	var user domain.User
	var lastLoginAt sql.NullTime

	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Name,
		&user.Role,
		&user.Active,
		&user.CreatedAt,
		&user.UpdatedAt,
		&lastLoginAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	user.LastLoginAt = TimePtr(lastLoginAt)
	return &user, nil
}
