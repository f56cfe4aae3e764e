package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError - кастомная ошибка приложения с HTTP кодом
type AppError struct {
	Code    int    // HTTP код
	Message string // Сообщение для пользователя
	Err     error  // Внутренняя ошибка
}

// Error реализует интерфейс error
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap позволяет использовать errors.Unwrap
func (e *AppError) Unwrap() error {
	return e.Err
}

// New создаёт новую ошибку приложения
func New(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Wrap оборачивает ошибку
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Предопределённые ошибки, таксономия один-в-один со спецификацией ошибок сервера:
// unauthorized/invalid-token/token-expired/session-revoked, forbidden, validation-error,
// not-found, already-exists, rate-limited, external-service-error, database-error, internal-error.
var (
	ErrUnauthorized   = New(http.StatusUnauthorized, "Unauthorized", nil)
	ErrInvalidToken   = New(http.StatusUnauthorized, "Invalid token", nil)
	ErrTokenExpired   = New(http.StatusUnauthorized, "Token expired", nil)
	ErrSessionRevoked = New(http.StatusUnauthorized, "Session has been revoked", nil)

	ErrForbidden = New(http.StatusForbidden, "Forbidden", nil)

	ErrValidation   = New(http.StatusBadRequest, "Validation failed", nil)
	ErrInvalidInput = New(http.StatusBadRequest, "Invalid input", nil)
	ErrMissingField = New(http.StatusBadRequest, "Missing required field", nil)

	ErrNotFound      = New(http.StatusNotFound, "Resource not found", nil)
	ErrAlreadyExists = New(http.StatusConflict, "Resource already exists", nil)

	ErrRateLimitExceeded = New(http.StatusTooManyRequests, "Rate limit exceeded", nil)

	ErrExternalService = New(http.StatusBadGateway, "Error communicating with an external service", nil)
	ErrDatabase        = New(http.StatusInternalServerError, "A database error occurred", nil)
	ErrInternal        = New(http.StatusInternalServerError, "Internal server error", nil)

	// Room/matchmaking-specific conditions, all distinct vars over the same handful of HTTP codes.
	ErrRoomFull       = New(http.StatusConflict, "Room is full", nil)
	ErrRoomNotActive  = New(http.StatusConflict, "Room is not active", nil)
	ErrAlreadyInQueue = New(http.StatusConflict, "Already queued for a match", nil)
)

// WithMessage создаёт новую ошибку с кастомным сообщением
func (e *AppError) WithMessage(msg string) *AppError {
	return &AppError{Code: e.Code, Message: msg, Err: e.Err}
}

// WithError добавляет внутреннюю ошибку
func (e *AppError) WithError(err error) *AppError {
	return &AppError{Code: e.Code, Message: e.Message, Err: err}
}

// IsAppError проверяет, является ли ошибка AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError извлекает AppError из цепочки ошибок
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// ToAppError приводит произвольную ошибку к AppError. Ошибки, не являющиеся
// AppError, становятся internal-error — их текст не предназначен для клиента.
func ToAppError(err error) *AppError {
	if err == nil {
		return nil
	}

	if appErr := GetAppError(err); appErr != nil {
		return appErr
	}

	return ErrInternal.WithError(err)
}
