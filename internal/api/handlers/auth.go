package handlers

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/strongfeels/bitbattle/internal/api/middleware"
	"github.com/strongfeels/bitbattle/internal/domain"
	"github.com/strongfeels/bitbattle/internal/domain/auth"
	"github.com/strongfeels/bitbattle/pkg/errors"
	"github.com/strongfeels/bitbattle/pkg/logger"
)

// AuthService интерфейс для auth service
type AuthService interface {
	ExchangeOAuthCode(ctx context.Context, code string) (*auth.AuthResponse, error)
	RefreshTokens(ctx context.Context, refreshToken string) (*auth.AuthResponse, error)
	Logout(ctx context.Context, accessToken, refreshToken string) error
	LogoutAll(ctx context.Context, userID uuid.UUID) error
	GetUserByToken(ctx context.Context, tokenString string) (*domain.User, error)
	SetUsername(ctx context.Context, userID uuid.UUID, username string) (*domain.User, error)
	ValidateToken(tokenString string) (*auth.Claims, error)
}

// OAuthProvider строит URL перенаправления на согласие Google
type OAuthProvider interface {
	AuthCodeURL(state string) string
}

// AuthHandler обрабатывает вход через Google OAuth и управление сессией
type AuthHandler struct {
	authService AuthService
	oauth       OAuthProvider
	frontendURL string
	log         *logger.Logger
}

// NewAuthHandler создаёт новый auth handler
func NewAuthHandler(authService AuthService, oauth OAuthProvider, frontendURL string, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		oauth:       oauth,
		frontendURL: frontendURL,
		log:         log,
	}
}

func randomState() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// GoogleLogin перенаправляет на страницу согласия Google
// GET /auth/google
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	state := randomState()
	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		MaxAge:   600,
	})

	http.Redirect(w, r, h.oauth.AuthCodeURL(state), http.StatusFound)
}

// Callback обменивает код авторизации на сессию и редиректит на фронтенд с токенами
// GET /auth/callback?code=&state=
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		h.redirectError(w, r, "missing authorization code")
		return
	}

	if cookie, err := r.Cookie("oauth_state"); err != nil || cookie.Value != r.URL.Query().Get("state") {
		h.redirectError(w, r, "invalid oauth state")
		return
	}

	resp, err := h.authService.ExchangeOAuthCode(r.Context(), code)
	if err != nil {
		h.log.LogError("oauth exchange failed", err)
		h.redirectError(w, r, "authentication failed")
		return
	}

	h.log.Info("user authenticated via google",
		zap.String("user_id", resp.User.ID.String()),
		zap.String("username", resp.User.Username),
	)

	redirectURL := h.frontendURL + "?access_token=" + url.QueryEscape(resp.AccessToken) +
		"&refresh_token=" + url.QueryEscape(resp.RefreshToken)
	http.Redirect(w, r, redirectURL, http.StatusFound)
}

func (h *AuthHandler) redirectError(w http.ResponseWriter, r *http.Request, reason string) {
	http.Redirect(w, r, h.frontendURL+"?error="+url.QueryEscape(reason), http.StatusFound)
}

// Me возвращает профиль текущего пользователя
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	token, err := bearerToken(r)
	if err != nil {
		writeError(w, err)
		return
	}

	user, err := h.authService.GetUserByToken(r.Context(), token)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

type setUsernameRequest struct {
	Username string `json:"username"`
}

// SetUsername меняет отображаемое имя текущего пользователя
// POST /auth/set-username
func (h *AuthHandler) SetUsername(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.RequireUserID(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	var req setUsernameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.ErrInvalidInput.WithError(err))
		return
	}

	user, err := h.authService.SetUsername(r.Context(), userID, req.Username)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh обменивает refresh-токен на новую пару токенов
// POST /auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.ErrInvalidInput.WithError(err))
		return
	}

	resp, err := h.authService.RefreshTokens(r.Context(), req.RefreshToken)
	if err != nil {
		h.log.LogError("failed to refresh tokens", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Logout отзывает одну сессию (access-токен из заголовка + переданный refresh-токен)
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	accessToken, err := bearerToken(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req logoutRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	if err := h.authService.Logout(r.Context(), accessToken, req.RefreshToken); err != nil {
		appErr := errors.GetAppError(err)
		if appErr != nil && appErr.Code == http.StatusUnauthorized {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.log.LogError("failed to logout", err)
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// LogoutAll отзывает все refresh-токены текущего пользователя
// POST /auth/logout-all
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.RequireUserID(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.authService.LogoutAll(r.Context(), userID); err != nil {
		h.log.LogError("failed to logout all sessions", err)
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func bearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" || len(authHeader) < 8 || authHeader[:7] != "Bearer " {
		return "", errors.ErrUnauthorized
	}
	return authHeader[7:], nil
}
