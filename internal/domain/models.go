package domain

import (
	"time"

	"github.com/google/uuid"
)

// Difficulty уровень сложности задачи
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
	// DifficultyAny используется только как предпочтение игрока в очереди
	DifficultyAny Difficulty = "Any"
)

// GameMode режим комнаты
type GameMode string

const (
	GameModeCasual GameMode = "Casual"
	GameModeRanked GameMode = "Ranked"
)

// RoomState состояние комнаты
type RoomState string

const (
	RoomStateLobby  RoomState = "LOBBY"
	RoomStateActive RoomState = "ACTIVE"
	RoomStateEnded  RoomState = "ENDED"
)

// Example пример ввода-вывода, видимый игроку
type Example struct {
	Input          string `json:"input"`
	ExpectedOutput string `json:"expected_output"`
	Explanation    string `json:"explanation,omitempty"`
}

// TestCase скрытый тест-кейс той же формы, что Example
type TestCase struct {
	Input          string `json:"input"`
	ExpectedOutput string `json:"expected_output"`
	Explanation    string `json:"explanation,omitempty"`
}

// Problem задача. Неизменяема после регистрации.
type Problem struct {
	ID           string            `json:"id" db:"id"`
	Title        string            `json:"title" db:"title"`
	Description  string            `json:"description" db:"description"`
	Difficulty   Difficulty        `json:"difficulty" db:"difficulty"`
	Examples     []Example         `json:"examples" db:"-"`
	TestCases    []TestCase        `json:"test_cases,omitempty" db:"-"`
	StarterCode  map[string]string `json:"starter_code" db:"-"`
	TimeLimitMin *int              `json:"time_limit_minutes,omitempty" db:"-"`
	Tags         []string          `json:"tags" db:"-"`
}

// PublicFields возвращает копию задачи без скрытых тестов, для выдачи клиенту.
func (p *Problem) PublicFields() *Problem {
	return &Problem{
		ID:           p.ID,
		Title:        p.Title,
		Description:  p.Description,
		Difficulty:   p.Difficulty,
		Examples:     p.Examples,
		StarterCode:  p.StarterCode,
		TimeLimitMin: p.TimeLimitMin,
		Tags:         p.Tags,
	}
}

// Room живая комната матча, хранится только в памяти.
type Room struct {
	Code              string               `json:"room_code"`
	RequiredPlayers   int                  `json:"required_players"`
	GameMode          GameMode             `json:"game_mode"`
	Problem           *Problem             `json:"problem,omitempty"`
	Roster            []string             `json:"roster"`
	AuthenticatedUser map[string]uuid.UUID `json:"-"`
	LastCode          map[string]string    `json:"-"`
	State             RoomState            `json:"state"`
	Winner            string               `json:"winner,omitempty"`
	SpectatorCount    int                  `json:"spectator_count"`
	Public            bool                 `json:"public"`
	CreatedAt         time.Time            `json:"created_at"`
}

// QueuedPlayer запись игрока в очереди матчмейкинга
type QueuedPlayer struct {
	UserID              *uuid.UUID `json:"user_id,omitempty"`
	Username            string     `json:"username"`
	Rating              int        `json:"rating"`
	PreferredDifficulty Difficulty `json:"preferred_difficulty"`
	GameMode            GameMode   `json:"game_mode"`
	QueuedAt            time.Time  `json:"queued_at"`
	ConnectionID        string     `json:"connection_id"`
}

// Match сформированная пара игроков, удерживается короткое окно для уведомления.
type Match struct {
	MatchID    uuid.UUID  `json:"match_id"`
	Players    [2]string  `json:"players"`
	Difficulty Difficulty `json:"difficulty"`
	GameMode   GameMode   `json:"game_mode"`
	RoomCode   string     `json:"room_code"`
	CreatedAt  time.Time  `json:"created_at"`
}

// DifficultyRating тройка рейтинга по одной сложности
type DifficultyRating struct {
	Rating      int `db:"rating" json:"rating"`
	PeakRating  int `db:"peak_rating" json:"peak_rating"`
	RankedGames int `db:"ranked_games" json:"ranked_games"`
	RankedWins  int `db:"ranked_wins" json:"ranked_wins"`
}

// DefaultDifficultyRating рейтинг по умолчанию для ещё не игравшего пользователя
func DefaultDifficultyRating() DifficultyRating {
	return DifficultyRating{Rating: 1200, PeakRating: 1200}
}

// UserStats персистентная статистика пользователя
type UserStats struct {
	UserID           uuid.UUID  `db:"user_id" json:"user_id"`
	GamesPlayed      int        `db:"games_played" json:"games_played"`
	GamesWon         int        `db:"games_won" json:"games_won"`
	GamesLost        int        `db:"games_lost" json:"games_lost"`
	ProblemsSolved   int        `db:"problems_solved" json:"problems_solved"`
	TotalSubmissions int        `db:"total_submissions" json:"total_submissions"`
	FastestSolveMs   *int64     `db:"fastest_solve_ms" json:"fastest_solve_ms,omitempty"`
	CurrentStreak    int        `db:"current_streak" json:"current_streak"`
	LongestStreak    int        `db:"longest_streak" json:"longest_streak"`
	LastPlayedAt     *time.Time `db:"last_played_at" json:"last_played_at,omitempty"`

	Easy   DifficultyRating `db:"-" json:"easy"`
	Medium DifficultyRating `db:"-" json:"medium"`
	Hard   DifficultyRating `db:"-" json:"hard"`
}

// RatingFor возвращает указатель на тройку рейтинга нужной сложности.
func (u *UserStats) RatingFor(d Difficulty) *DifficultyRating {
	switch d {
	case DifficultyEasy:
		return &u.Easy
	case DifficultyHard:
		return &u.Hard
	default:
		return &u.Medium
	}
}

// AIProblemStatus статус AI-сгенерированного кандидата задачи
type AIProblemStatus string

const (
	AIProblemPendingValidation AIProblemStatus = "PendingValidation"
	AIProblemValidating        AIProblemStatus = "Validating"
	AIProblemValidated         AIProblemStatus = "Validated"
	AIProblemRejected          AIProblemStatus = "Rejected"
)

// ReferenceSolution решение-кандидат от LLM, используется для проверки решаемости.
// Хранится постоянно (не только при первой вставке), чтобы повторная валидация
// могла реально перезапустить решение, а не просто увеличивать счётчик попыток.
type ReferenceSolution struct {
	Language string `json:"language" db:"language"`
	Code     string `json:"code" db:"code"`
}

// AIProblem кандидат задачи, сгенерированный LLM
type AIProblem struct {
	Problem
	Status              AIProblemStatus   `db:"status" json:"status"`
	Provider            string            `db:"provider" json:"provider"`
	Model               string            `db:"model" json:"model"`
	ValidationAttempts  int               `db:"validation_attempts" json:"validation_attempts"`
	LastValidationError *string           `db:"last_validation_error" json:"last_validation_error,omitempty"`
	ValidatedAt         *time.Time        `db:"validated_at" json:"validated_at,omitempty"`
	TimesUsed           int               `db:"times_used" json:"times_used"`
	ReferenceSolution   ReferenceSolution `db:"-" json:"-"`
}

// TestResult результат одного скрытого теста
type TestResult struct {
	Input           string `json:"input"`
	ExpectedOutput  string `json:"expected_output"`
	ActualOutput    string `json:"actual_output"`
	Passed          bool   `json:"passed"`
	ExecutionTimeMs int64  `json:"execution_time_ms"`
	Error           string `json:"error,omitempty"`
	FailureKind     string `json:"failure_kind,omitempty"` // timeout | runtime-error | wrong-answer | compile-error
}

// SubmissionResult итог прогона одной отправки решения
type SubmissionResult struct {
	Username             string       `json:"username"`
	ProblemID             string       `json:"problem_id"`
	Passed                bool         `json:"passed"`
	TotalTests            int          `json:"total_tests"`
	PassedTests           int          `json:"passed_tests"`
	Tests                 []TestResult `json:"tests"`
	AggregateExecutionMs  int64        `json:"execution_time_ms"`
	SubmittedAt           time.Time    `json:"submitted_at"`
}

// RatingChange изменение рейтинга одного игрока по итогу ranked-игры
type RatingChange struct {
	OldRating int `json:"old_rating"`
	NewRating int `json:"new_rating"`
	Change    int `json:"change"`
}

// GameResult персистентная запись об одной сыгранной игре
type GameResult struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	UserID       uuid.UUID  `db:"user_id" json:"user_id"`
	ProblemID    string     `db:"problem_id" json:"problem_id"`
	Difficulty   Difficulty `db:"difficulty" json:"difficulty"`
	GameMode     GameMode   `db:"game_mode" json:"game_mode"`
	Won          bool       `db:"won" json:"won"`
	SolveTimeMs  *int64     `db:"solve_time_ms" json:"solve_time_ms,omitempty"`
	RatingChange int        `db:"rating_change" json:"rating_change"`
	PlayedAt     time.Time  `db:"played_at" json:"played_at"`
}

// User аутентифицированный игрок; личность приходит от OAuth-провайдера.
type User struct {
	ID         uuid.UUID `db:"id" json:"id"`
	ExternalID string    `db:"external_id" json:"-"` // id у OAuth-провайдера
	Provider   string    `db:"provider" json:"-"`
	Email      string    `db:"email" json:"email"`
	Username   string    `db:"username" json:"username"`
	Picture    string    `db:"picture" json:"picture,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// RefreshToken durable-запись о выданном refresh-токене.
type RefreshToken struct {
	TokenID   uuid.UUID  `db:"token_id" json:"token_id"`
	UserID    uuid.UUID  `db:"user_id" json:"user_id"`
	ExpiresAt time.Time  `db:"expires_at" json:"expires_at"`
	RevokedAt *time.Time `db:"revoked_at" json:"revoked_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// Valid возвращает true, если токен ещё не отозван и не истёк.
func (t *RefreshToken) Valid(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}

// PlayerProblemHistory отметка о том, что пользователь уже видел/решал задачу.
type PlayerProblemHistory struct {
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	ProblemID string    `db:"problem_id" json:"problem_id"`
	SolvedAt  time.Time `db:"solved_at" json:"solved_at"`
}

// LeaderboardSort поле сортировки таблицы лидеров
type LeaderboardSort string

const (
	LeaderboardSortWins           LeaderboardSort = "wins"
	LeaderboardSortProblemsSolved LeaderboardSort = "problems_solved"
	LeaderboardSortFastest        LeaderboardSort = "fastest"
	LeaderboardSortStreak         LeaderboardSort = "streak"
)

// LeaderboardEntry строка рейтинговой таблицы
type LeaderboardEntry struct {
	UserID         uuid.UUID `json:"user_id"`
	Username       string    `json:"username"`
	Rating         int       `json:"rating"`
	GamesWon       int       `json:"games_won"`
	ProblemsSolved int       `json:"problems_solved"`
	FastestSolveMs *int64    `json:"fastest_solve_ms,omitempty"`
	CurrentStreak  int       `json:"current_streak"`
}
