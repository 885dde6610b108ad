package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chiillbro/aether-incident-response-sub000/internal/core/domain"
	apperrors "github.com/chiillbro/aether-incident-response-sub000/internal/core/errors"
	"github.com/chiillbro/aether-incident-response-sub000/internal/core/ports"
)

// UserRepository is the identity store.
type UserRepository struct {
	pool *pgxpool.Pool
}

var _ ports.UserRepository = (*UserRepository)(nil)

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const getUserByIDSQL = `
SELECT id, full_name, email, password_hash, role, team_id, is_active, created_at
FROM users
WHERE id = $1`

const insertUserSQL = `
INSERT INTO users (id, full_name, email, password_hash, role, team_id, is_active)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING created_at`

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var (
		user domain.User
		role string
	)
	err := GetDBTX(ctx, r.pool).QueryRow(ctx, getUserByIDSQL, id).Scan(
		&user.ID,
		&user.FullName,
		&user.Email,
		&user.PasswordHash,
		&role,
		&user.TeamID,
		&user.IsActive,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	user.Role = domain.Role(role)
	return &user, nil
}

// Create inserts a user. It is used to seed the identity store.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.Role == "" {
		user.Role = domain.RoleMember
	}
	err := GetDBTX(ctx, r.pool).QueryRow(ctx, insertUserSQL,
		user.ID,
		user.FullName,
		user.Email,
		user.PasswordHash,
		string(user.Role),
		user.TeamID,
		user.IsActive,
	).Scan(&user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}
