package db

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/strongfeels/bitbattle/internal/domain"
	"github.com/strongfeels/bitbattle/pkg/errors"
)

// RefreshTokenRepository хранит durable-записи выданных refresh-токенов, реализует auth.RefreshTokenRepository
type RefreshTokenRepository struct {
	db *DB
}

// NewRefreshTokenRepository создаёт новый репозиторий refresh-токенов
func NewRefreshTokenRepository(db *DB) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

// Create сохраняет выданный refresh-токен
func (r *RefreshTokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (token_id, user_id, expires_at)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`

	err := r.db.QueryRowContext(ctx, query, token.TokenID, token.UserID, token.ExpiresAt).Scan(&token.CreatedAt)
	if err != nil {
		return errors.Wrap(err, "failed to create refresh token")
	}

	return nil
}

// GetByID получает запись refresh-токена по его идентификатору
func (r *RefreshTokenRepository) GetByID(ctx context.Context, tokenID uuid.UUID) (*domain.RefreshToken, error) {
	var token domain.RefreshToken

	query := `
		SELECT token_id, user_id, expires_at, revoked_at, created_at
		FROM refresh_tokens
		WHERE token_id = $1
	`

	err := r.db.QueryRowWithMetrics(ctx, "refresh_token_get_by_id", &token, query, tokenID)
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound.WithMessage("refresh token not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get refresh token")
	}

	return &token, nil
}

// Revoke отмечает refresh-токен отозванным
func (r *RefreshTokenRepository) Revoke(ctx context.Context, tokenID uuid.UUID) error {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = now()
		WHERE token_id = $1 AND revoked_at IS NULL
	`

	_, err := r.db.ExecWithMetrics(ctx, "refresh_token_revoke", query, tokenID)
	if err != nil {
		return errors.Wrap(err, "failed to revoke refresh token")
	}

	return nil
}

// RevokeAllForUser отзывает все активные refresh-токены пользователя (logout-from-all-devices)
func (r *RefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = now()
		WHERE user_id = $1 AND revoked_at IS NULL
	`

	_, err := r.db.ExecWithMetrics(ctx, "refresh_token_revoke_all", query, userID)
	if err != nil {
		return errors.Wrap(err, "failed to revoke user refresh tokens")
	}

	return nil
}
