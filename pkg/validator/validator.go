package validator

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	roomCodeRegex = regexp.MustCompile(`^[A-Za-z0-9-]+$`)

	reservedUsernames = map[string]struct{}{
		"admin":     {},
		"system":    {},
		"bot":       {},
		"moderator": {},
		"mod":       {},
		"null":      {},
		"undefined": {},
	}

	supportedLanguages = map[string]struct{}{
		"javascript": {},
		"python":     {},
		"c":          {},
		"cpp":        {},
		"rust":       {},
		"go":         {},
		"java":       {},
	}
)

// ValidationError представляет ошибку валидации
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors список ошибок валидации
type ValidationErrors []*ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	msg := "validation errors:"
	for _, err := range e {
		msg += fmt.Sprintf("\n  - %s", err.Error())
	}
	return msg
}

// HasErrors проверяет наличие ошибок
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Add добавляет ошибку валидации
func (e *ValidationErrors) Add(field, message string) {
	*e = append(*e, &ValidationError{
		Field:   field,
		Message: message,
	})
}

// ValidateEmail проверяет email
func ValidateEmail(email string) error {
	if email == "" {
		return &ValidationError{Field: "email", Message: "email is required"}
	}
	if len(email) > 255 {
		return &ValidationError{Field: "email", Message: "email is too long (max 255 characters)"}
	}
	if !emailRegex.MatchString(email) {
		return &ValidationError{Field: "email", Message: "invalid email format"}
	}
	return nil
}

// ValidateUsername проверяет отображаемое имя игрока: длина 1-15, не из списка
// зарезервированных слов (сравнение без учёта регистра).
func ValidateUsername(username string) error {
	if username == "" {
		return &ValidationError{Field: "username", Message: "username is required"}
	}
	if len(username) > 15 {
		return &ValidationError{Field: "username", Message: "username is too long (max 15 characters)"}
	}
	if _, reserved := reservedUsernames[strings.ToLower(username)]; reserved {
		return &ValidationError{Field: "username", Message: "username is reserved"}
	}
	return nil
}

// ValidateRoomCode проверяет код комнаты: длина 4-30.
func ValidateRoomCode(code string) error {
	if len(code) < 4 {
		return &ValidationError{Field: "room_code", Message: "room code must be at least 4 characters"}
	}
	if len(code) > 30 {
		return &ValidationError{Field: "room_code", Message: "room code is too long (max 30 characters)"}
	}
	if !roomCodeRegex.MatchString(code) {
		return &ValidationError{Field: "room_code", Message: "room code can only contain letters, digits and hyphens"}
	}
	return nil
}

// ValidateCodeLength проверяет длину отправленного исходного кода, ≤ 100000 символов.
func ValidateCodeLength(code string) error {
	if code == "" {
		return &ValidationError{Field: "code", Message: "code is required"}
	}
	if len(code) > 100000 {
		return &ValidationError{Field: "code", Message: "code is too long (max 100000 characters)"}
	}
	return nil
}

// ValidatePlayerCount проверяет число требуемых игроков в комнате, 1-4.
func ValidatePlayerCount(count int) error {
	if count < 1 || count > 4 {
		return &ValidationError{Field: "required_players", Message: "required players must be between 1 and 4"}
	}
	return nil
}

// ValidateLanguage проверяет, что язык поддерживается исполнителем.
func ValidateLanguage(language string) error {
	if _, ok := supportedLanguages[language]; !ok {
		return &ValidationError{Field: "language", Message: fmt.Sprintf("unsupported language: %s", language)}
	}
	return nil
}

// ValidateRequired проверяет обязательное поле
func ValidateRequired(field, value string) error {
	if value == "" {
		return &ValidationError{Field: field, Message: fmt.Sprintf("%s is required", field)}
	}
	return nil
}

// ValidateLength проверяет длину строки
func ValidateLength(field, value string, min, max int) error {
	length := len(value)
	if length < min {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("%s must be at least %d characters", field, min),
		}
	}
	if max > 0 && length > max {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("%s is too long (max %d characters)", field, max),
		}
	}
	return nil
}

// ValidateRange проверяет числовой диапазон
func ValidateRange(field string, value, min, max int) error {
	if value < min {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("%s must be at least %d", field, min),
		}
	}
	if max > 0 && value > max {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("%s must be at most %d", field, max),
		}
	}
	return nil
}

// ValidateEnum проверяет значение из списка
func ValidateEnum(field, value string, allowedValues []string) error {
	for _, allowed := range allowedValues {
		if value == allowed {
			return nil
		}
	}
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf("%s must be one of: %v", field, allowedValues),
	}
}
