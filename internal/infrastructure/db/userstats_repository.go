package db

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/strongfeels/bitbattle/internal/domain"
	"github.com/strongfeels/bitbattle/pkg/errors"
)

// UserStatsRepository хранит персистентную статистику и per-difficulty рейтинги игрока,
// реализует rating.Repository.
type UserStatsRepository struct {
	db *DB
}

// NewUserStatsRepository создаёт новый репозиторий статистики
func NewUserStatsRepository(db *DB) *UserStatsRepository {
	return &UserStatsRepository{db: db}
}

// GetUserStats получает статистику пользователя, создавая строку по умолчанию при первом обращении
func (r *UserStatsRepository) GetUserStats(ctx context.Context, userID uuid.UUID) (*domain.UserStats, error) {
	var stats domain.UserStats

	query := `
		SELECT user_id, games_played, games_won, games_lost, problems_solved, total_submissions,
		       fastest_solve_ms, current_streak, longest_streak, last_played_at,
		       easy_rating, easy_peak_rating, easy_ranked_games, easy_ranked_wins,
		       medium_rating, medium_peak_rating, medium_ranked_games, medium_ranked_wins,
		       hard_rating, hard_peak_rating, hard_ranked_games, hard_ranked_wins
		FROM user_stats
		WHERE user_id = $1
	`

	var row userStatsRow
	err := r.db.GetContext(ctx, &row, query, userID)
	if err == sql.ErrNoRows {
		return r.createDefault(ctx, userID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get user stats")
	}

	stats = row.toDomain()
	return &stats, nil
}

// createDefault вставляет строку статистики по умолчанию для игрока, впервые увиденного системой.
func (r *UserStatsRepository) createDefault(ctx context.Context, userID uuid.UUID) (*domain.UserStats, error) {
	def := domain.DefaultDifficultyRating()

	query := `
		INSERT INTO user_stats (
			user_id,
			easy_rating, easy_peak_rating, medium_rating, medium_peak_rating, hard_rating, hard_peak_rating
		)
		VALUES ($1, $2, $2, $2, $2, $2, $2)
		ON CONFLICT (user_id) DO NOTHING
	`

	if _, err := r.db.ExecWithMetrics(ctx, "user_stats_create_default", query, userID, def.Rating); err != nil {
		return nil, errors.Wrap(err, "failed to create default user stats")
	}

	return r.GetUserStats(ctx, userID)
}

// RecordGameResult сохраняет GameResult и атомарно применяет обновление статистики/рейтинга.
func (r *UserStatsRepository) RecordGameResult(ctx context.Context, stats *domain.UserStats, result *domain.GameResult) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	insertGame := `
		INSERT INTO game_results (id, user_id, problem_id, difficulty, game_mode, won, solve_time_ms, rating_change, played_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	if _, err := tx.ExecContext(ctx, insertGame,
		result.ID, result.UserID, result.ProblemID, result.Difficulty, result.GameMode,
		result.Won, result.SolveTimeMs, result.RatingChange, result.PlayedAt,
	); err != nil {
		return errors.Wrap(err, "failed to insert game result")
	}

	updateStats := `
		UPDATE user_stats SET
			games_played = $2, games_won = $3, games_lost = $4, problems_solved = $5,
			total_submissions = $6, fastest_solve_ms = $7, current_streak = $8, longest_streak = $9,
			last_played_at = $10,
			easy_rating = $11, easy_peak_rating = $12, easy_ranked_games = $13, easy_ranked_wins = $14,
			medium_rating = $15, medium_peak_rating = $16, medium_ranked_games = $17, medium_ranked_wins = $18,
			hard_rating = $19, hard_peak_rating = $20, hard_ranked_games = $21, hard_ranked_wins = $22
		WHERE user_id = $1
	`
	if _, err := tx.ExecContext(ctx, updateStats,
		stats.UserID, stats.GamesPlayed, stats.GamesWon, stats.GamesLost, stats.ProblemsSolved,
		stats.TotalSubmissions, stats.FastestSolveMs, stats.CurrentStreak, stats.LongestStreak, stats.LastPlayedAt,
		stats.Easy.Rating, stats.Easy.PeakRating, stats.Easy.RankedGames, stats.Easy.RankedWins,
		stats.Medium.Rating, stats.Medium.PeakRating, stats.Medium.RankedGames, stats.Medium.RankedWins,
		stats.Hard.Rating, stats.Hard.PeakRating, stats.Hard.RankedGames, stats.Hard.RankedWins,
	); err != nil {
		return errors.Wrap(err, "failed to update user stats")
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit game result transaction")
	}

	return nil
}

// GetLeaderboard возвращает отсортированную таблицу лидеров для заданной сложности
func (r *UserStatsRepository) GetLeaderboard(ctx context.Context, difficulty domain.Difficulty, sortBy domain.LeaderboardSort, limit, offset int) ([]domain.LeaderboardEntry, error) {
	ratingCol := "medium_rating"
	switch difficulty {
	case domain.DifficultyEasy:
		ratingCol = "easy_rating"
	case domain.DifficultyHard:
		ratingCol = "hard_rating"
	}

	orderCol := ratingCol
	orderDir := "DESC"
	switch sortBy {
	case domain.LeaderboardSortWins:
		orderCol = "us.games_won"
	case domain.LeaderboardSortProblemsSolved:
		orderCol = "us.problems_solved"
	case domain.LeaderboardSortStreak:
		orderCol = "us.current_streak"
	case domain.LeaderboardSortFastest:
		orderCol = "us.fastest_solve_ms"
		orderDir = "ASC NULLS LAST"
	}

	query := `
		SELECT u.id AS user_id, u.username, us.` + ratingCol + ` AS rating, us.games_won,
		       us.problems_solved, us.fastest_solve_ms, us.current_streak
		FROM user_stats us
		JOIN users u ON u.id = us.user_id
		ORDER BY ` + orderCol + ` ` + orderDir + `
		LIMIT $1 OFFSET $2
	`

	var entries []domain.LeaderboardEntry
	if err := r.db.QueryWithMetrics(ctx, "user_stats_leaderboard", &entries, query, limit, offset); err != nil {
		return nil, errors.Wrap(err, "failed to load leaderboard")
	}

	return entries, nil
}

// GetHistory возвращает последние сыгранные партии пользователя, новые первыми
func (r *UserStatsRepository) GetHistory(ctx context.Context, userID uuid.UUID, limit int) ([]domain.GameResult, error) {
	query := `
		SELECT id, user_id, problem_id, difficulty, game_mode, won, solve_time_ms, rating_change, played_at
		FROM game_results
		WHERE user_id = $1
		ORDER BY played_at DESC
		LIMIT $2
	`

	var results []domain.GameResult
	if err := r.db.QueryWithMetrics(ctx, "user_stats_history", &results, query, userID, limit); err != nil {
		return nil, errors.Wrap(err, "failed to load game history")
	}

	return results, nil
}

// GetPersonalBests возвращает лучшее (минимальное) время решения пользователя
// по каждой задаче, которую он хотя бы раз выиграл - используется профилем
// пользователя для отображения per-problem bests.
func (r *UserStatsRepository) GetPersonalBests(ctx context.Context, userID uuid.UUID) (map[string]int64, error) {
	query := `
		SELECT problem_id, MIN(solve_time_ms) AS best_ms
		FROM game_results
		WHERE user_id = $1 AND won = true AND solve_time_ms IS NOT NULL
		GROUP BY problem_id
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load personal bests")
	}
	defer rows.Close()

	bests := make(map[string]int64)
	for rows.Next() {
		var problemID string
		var bestMs int64
		if err := rows.Scan(&problemID, &bestMs); err != nil {
			return nil, errors.Wrap(err, "failed to scan personal best row")
		}
		bests[problemID] = bestMs
	}

	return bests, rows.Err()
}

// userStatsRow разворачивает плоскую SQL-схему в вложенную доменную модель.
type userStatsRow struct {
	UserID           uuid.UUID    `db:"user_id"`
	GamesPlayed      int          `db:"games_played"`
	GamesWon         int          `db:"games_won"`
	GamesLost        int          `db:"games_lost"`
	ProblemsSolved   int          `db:"problems_solved"`
	TotalSubmissions int          `db:"total_submissions"`
	FastestSolveMs   *int64       `db:"fastest_solve_ms"`
	CurrentStreak    int          `db:"current_streak"`
	LongestStreak    int          `db:"longest_streak"`
	LastPlayedAt     sql.NullTime `db:"last_played_at"`

	EasyRating      int `db:"easy_rating"`
	EasyPeakRating  int `db:"easy_peak_rating"`
	EasyRankedGames int `db:"easy_ranked_games"`
	EasyRankedWins  int `db:"easy_ranked_wins"`

	MediumRating      int `db:"medium_rating"`
	MediumPeakRating  int `db:"medium_peak_rating"`
	MediumRankedGames int `db:"medium_ranked_games"`
	MediumRankedWins  int `db:"medium_ranked_wins"`

	HardRating      int `db:"hard_rating"`
	HardPeakRating  int `db:"hard_peak_rating"`
	HardRankedGames int `db:"hard_ranked_games"`
	HardRankedWins  int `db:"hard_ranked_wins"`
}

func (row userStatsRow) toDomain() domain.UserStats {
	s := domain.UserStats{
		UserID:           row.UserID,
		GamesPlayed:      row.GamesPlayed,
		GamesWon:         row.GamesWon,
		GamesLost:        row.GamesLost,
		ProblemsSolved:   row.ProblemsSolved,
		TotalSubmissions: row.TotalSubmissions,
		FastestSolveMs:   row.FastestSolveMs,
		CurrentStreak:    row.CurrentStreak,
		LongestStreak:    row.LongestStreak,
		Easy: domain.DifficultyRating{
			Rating: row.EasyRating, PeakRating: row.EasyPeakRating,
			RankedGames: row.EasyRankedGames, RankedWins: row.EasyRankedWins,
		},
		Medium: domain.DifficultyRating{
			Rating: row.MediumRating, PeakRating: row.MediumPeakRating,
			RankedGames: row.MediumRankedGames, RankedWins: row.MediumRankedWins,
		},
		Hard: domain.DifficultyRating{
			Rating: row.HardRating, PeakRating: row.HardPeakRating,
			RankedGames: row.HardRankedGames, RankedWins: row.HardRankedWins,
		},
	}
	if row.LastPlayedAt.Valid {
		t := row.LastPlayedAt.Time
		s.LastPlayedAt = &t
	}
	return s
}
