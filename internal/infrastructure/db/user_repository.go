package db

import (
	"database/sql"

	"context"

	"github.com/google/uuid"

	"github.com/strongfeels/bitbattle/internal/domain"
	"github.com/strongfeels/bitbattle/pkg/errors"
)

// UserRepository - репозиторий для работы с пользователями, аутентифицированными через OAuth
type UserRepository struct {
	db *DB
}

// NewUserRepository создаёт новый репозиторий пользователей
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create создаёт нового пользователя при первом входе через OAuth
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, external_id, provider, email, username, picture)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		user.ID,
		user.ExternalID,
		user.Provider,
		user.Email,
		user.Username,
		user.Picture,
	).Scan(&user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		return errors.Wrap(err, "failed to create user")
	}

	return nil
}

// GetByID получает пользователя по ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var user domain.User

	query := `
		SELECT id, external_id, provider, email, username, picture, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	err := r.db.QueryRowWithMetrics(ctx, "user_get_by_id", &user, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound.WithMessage("user not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get user by id")
	}

	return &user, nil
}

// GetByExternalID получает пользователя по паре (provider, external_id) у провайдера OAuth
func (r *UserRepository) GetByExternalID(ctx context.Context, provider, externalID string) (*domain.User, error) {
	var user domain.User

	query := `
		SELECT id, external_id, provider, email, username, picture, created_at, updated_at
		FROM users
		WHERE provider = $1 AND external_id = $2
	`

	err := r.db.QueryRowWithMetrics(ctx, "user_get_by_external_id", &user, query, provider, externalID)
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound.WithMessage("user not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get user by external id")
	}

	return &user, nil
}

// GetByUsername получает пользователя по username
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	var user domain.User

	query := `
		SELECT id, external_id, provider, email, username, picture, created_at, updated_at
		FROM users
		WHERE username = $1
	`

	err := r.db.QueryRowWithMetrics(ctx, "user_get_by_username", &user, query, username)
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound.WithMessage("user not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get user by username")
	}

	return &user, nil
}

// Update обновляет изменяемые поля профиля пользователя
func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	query := `
		UPDATE users
		SET username = $2, picture = $3
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		user.ID,
		user.Username,
		user.Picture,
	).Scan(&user.UpdatedAt)

	if err == sql.ErrNoRows {
		return errors.ErrNotFound.WithMessage("user not found")
	}
	if err != nil {
		return errors.Wrap(err, "failed to update user")
	}

	return nil
}
