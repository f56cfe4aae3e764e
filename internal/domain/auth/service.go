package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/strongfeels/bitbattle/internal/domain"
	"github.com/strongfeels/bitbattle/pkg/errors"
	"github.com/strongfeels/bitbattle/pkg/logger"
)

// UserRepository интерфейс для работы с пользователями
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByExternalID(ctx context.Context, provider, externalID string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
}

// RefreshTokenRepository управляет durable-записями выданных refresh-токенов.
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *domain.RefreshToken) error
	GetByID(ctx context.Context, tokenID uuid.UUID) (*domain.RefreshToken, error)
	Revoke(ctx context.Context, tokenID uuid.UUID) error
	RevokeAllForUser(ctx context.Context, userID uuid.UUID) error
}

// TokenBlacklist интерфейс для работы с чёрным списком access-токенов
type TokenBlacklist interface {
	Add(ctx context.Context, token string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, token string) (bool, error)
}

// Service - сервис аутентификации
type Service struct {
	userRepo         UserRepository
	refreshTokenRepo RefreshTokenRepository
	oauthProvider    OAuthProvider
	jwtManager       *JWTManager
	tokenBlacklist   TokenBlacklist
	log              *logger.Logger
}

// NewService создаёт новый сервис аутентификации
func NewService(
	userRepo UserRepository,
	refreshTokenRepo RefreshTokenRepository,
	oauthProvider OAuthProvider,
	jwtManager *JWTManager,
	tokenBlacklist TokenBlacklist,
	log *logger.Logger,
) *Service {
	return &Service{
		userRepo:         userRepo,
		refreshTokenRepo: refreshTokenRepo,
		oauthProvider:    oauthProvider,
		jwtManager:       jwtManager,
		tokenBlacklist:   tokenBlacklist,
		log:              log,
	}
}

// AuthResponse - ответ с токенами
type AuthResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	User         *domain.User `json:"user"`
}

const oauthProviderGoogle = "google"

// ExchangeOAuthCode обменивает код авторизации Google на сессию пользователя,
// создавая запись пользователя при первом входе (login-or-register).
func (s *Service) ExchangeOAuthCode(ctx context.Context, code string) (*AuthResponse, error) {
	info, err := s.oauthProvider.Exchange(ctx, code)
	if err != nil {
		return nil, errors.ErrExternalService.WithError(err)
	}

	user, err := s.userRepo.GetByExternalID(ctx, oauthProviderGoogle, info.ExternalID)
	if err != nil {
		if errors.IsAppError(err) && errors.GetAppError(err).Code == 404 {
			user, err = s.provisionUser(ctx, info)
			if err != nil {
				return nil, err
			}
		} else {
			return nil, fmt.Errorf("looking up oauth user: %w", err)
		}
	}

	return s.issueSession(ctx, user)
}

// provisionUser создаёт нового пользователя при первом входе через OAuth
func (s *Service) provisionUser(ctx context.Context, info *OAuthUserInfo) (*domain.User, error) {
	username := usernameFromEmail(info.Email)

	user := &domain.User{
		ID:         uuid.New(),
		ExternalID: info.ExternalID,
		Provider:   oauthProviderGoogle,
		Email:      info.Email,
		Username:   username,
		Picture:    info.Picture,
	}

	if err := user.Validate(); err != nil {
		return nil, errors.ErrValidation.WithError(err)
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("creating oauth user: %w", err)
	}

	s.log.Info("User provisioned via oauth",
		zap.String("user_id", user.ID.String()),
		zap.String("username", user.Username),
	)

	return user, nil
}

// usernameFromEmail деривирует стартовое отображаемое имя из email-адреса,
// обрезая его до лимита длины username.
func usernameFromEmail(email string) string {
	local := email
	if at := strings.IndexByte(email, '@'); at >= 0 {
		local = email[:at]
	}
	if len(local) > 15 {
		local = local[:15]
	}
	if local == "" {
		local = "player"
	}
	return local
}

// issueSession выпускает пару access/refresh токенов для пользователя, сохраняя
// durable-запись refresh-токена.
func (s *Service) issueSession(ctx context.Context, user *domain.User) (*AuthResponse, error) {
	accessToken, err := s.jwtManager.GenerateAccessToken(user.ID, user.Username)
	if err != nil {
		return nil, fmt.Errorf("generating access token: %w", err)
	}

	tokenID := uuid.New()
	refreshToken, err := s.jwtManager.GenerateRefreshToken(user.ID, tokenID)
	if err != nil {
		return nil, fmt.Errorf("generating refresh token: %w", err)
	}

	record := &domain.RefreshToken{
		TokenID:   tokenID,
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(s.jwtManager.RefreshTokenTTL()),
		CreatedAt: time.Now(),
	}
	if err := s.refreshTokenRepo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("persisting refresh token: %w", err)
	}

	return &AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user,
	}, nil
}

// RefreshTokens обновляет access token, используя refresh token.
// Реализует token rotation: предъявленный refresh token отзывается, выпускается новый.
func (s *Service) RefreshTokens(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	userID, tokenID, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, errors.ErrInvalidToken.WithError(err)
	}

	record, err := s.refreshTokenRepo.GetByID(ctx, tokenID)
	if err != nil {
		return nil, errors.ErrInvalidToken.WithMessage("refresh token not recognized")
	}
	if !record.Valid(time.Now()) {
		return nil, errors.ErrSessionRevoked
	}
	if record.UserID != userID {
		return nil, errors.ErrInvalidToken.WithMessage("refresh token does not match user")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := s.refreshTokenRepo.Revoke(ctx, tokenID); err != nil {
		s.log.LogError("Failed to revoke rotated refresh token", err)
	}

	s.log.Info("Tokens refreshed with rotation", zap.String("user_id", user.ID.String()))

	return s.issueSession(ctx, user)
}

// Logout завершает сессию пользователя: access token уходит в blacklist до истечения,
// refresh token отзывается в durable-хранилище.
func (s *Service) Logout(ctx context.Context, accessToken, refreshToken string) error {
	claims, err := s.jwtManager.ValidateToken(accessToken)
	if err != nil {
		s.log.Info("Access token validation failed during logout", zap.Error(err))
	} else {
		ttl := time.Until(claims.ExpiresAt.Time)
		if ttl > 0 {
			if err := s.tokenBlacklist.Add(ctx, accessToken, ttl); err != nil {
				s.log.LogError("Failed to blacklist access token", err)
			}
		}
	}

	if refreshToken != "" {
		if _, tokenID, err := s.jwtManager.ValidateRefreshToken(refreshToken); err == nil {
			if err := s.refreshTokenRepo.Revoke(ctx, tokenID); err != nil {
				s.log.LogError("Failed to revoke refresh token", err)
			}
		}
	}

	if claims != nil {
		s.log.Info("User logged out", zap.String("user_id", claims.UserID.String()))
	}

	return nil
}

// IsTokenBlacklisted проверяет, находится ли токен в чёрном списке
func (s *Service) IsTokenBlacklisted(ctx context.Context, token string) (bool, error) {
	return s.tokenBlacklist.IsBlacklisted(ctx, token)
}

// ValidateToken валидирует access token
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	return s.jwtManager.ValidateToken(tokenString)
}

// GetUserByToken получает пользователя по access-токену
func (s *Service) GetUserByToken(ctx context.Context, tokenString string) (*domain.User, error) {
	claims, err := s.jwtManager.ValidateToken(tokenString)
	if err != nil {
		return nil, errors.ErrInvalidToken.WithError(err)
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// SetUsername меняет отображаемое имя пользователя, провизионированное по
// умолчанию из email при первом OAuth-входе.
func (s *Service) SetUsername(ctx context.Context, userID uuid.UUID, username string) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	user.Username = username
	if err := user.Validate(); err != nil {
		return nil, errors.ErrValidation.WithError(err)
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update username: %w", err)
	}

	s.log.Info("Username updated", zap.String("user_id", user.ID.String()), zap.String("username", user.Username))
	return user, nil
}

// LogoutAll отзывает все refresh-токены пользователя, завершая сессии на всех устройствах.
func (s *Service) LogoutAll(ctx context.Context, userID uuid.UUID) error {
	if err := s.refreshTokenRepo.RevokeAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("failed to revoke refresh tokens: %w", err)
	}
	s.log.Info("All sessions revoked", zap.String("user_id", userID.String()))
	return nil
}
