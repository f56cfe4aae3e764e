package rating

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/strongfeels/bitbattle/internal/domain"
	"github.com/strongfeels/bitbattle/pkg/logger"
)

// Repository инкапсулирует персистентность рейтинга и статистики игрока.
// Реализация обязана применять изменения в ProcessGameResult одной транзакцией:
// UserStats и GameResult должны либо оба записаться, либо ни один.
type Repository interface {
	GetUserStats(ctx context.Context, userID uuid.UUID) (*domain.UserStats, error)
	RecordGameResult(ctx context.Context, stats *domain.UserStats, result *domain.GameResult) error
}

// Service - сервис рейтинга и статистики игроков
type Service struct {
	calculator *EloCalculator
	repo       Repository
	log        *logger.Logger
}

// NewService создаёт новый сервис рейтингов
func NewService(repo Repository, log *logger.Logger) *Service {
	return &Service{
		calculator: NewDefaultEloCalculator(),
		repo:       repo,
		log:        log,
	}
}

// ProcessGameResult обрабатывает итог одной партии (1-4 игрока, ровно один
// победитель) и обновляет статистику каждого участника. Рейтинг по ELO
// пересчитывается только для Ranked-партий; Casual-партии по-прежнему
// учитываются в games_played/streak, но не двигают рейтинг. winnerID может
// отсутствовать в loserIDs; каждый loser получает собственный delta против
// рейтинга победителя, а победитель - против среднего рейтинга всех проигравших.
func (s *Service) ProcessGameResult(
	ctx context.Context,
	winnerID uuid.UUID,
	loserIDs []uuid.UUID,
	difficulty domain.Difficulty,
	gameMode domain.GameMode,
	problemID string,
	winnerSolveMs *int64,
) (winnerChange domain.RatingChange, loserChanges map[uuid.UUID]domain.RatingChange, err error) {
	loserChanges = make(map[uuid.UUID]domain.RatingChange, len(loserIDs))

	winnerStats, err := s.repo.GetUserStats(ctx, winnerID)
	if err != nil {
		return winnerChange, loserChanges, err
	}

	loserStatsByID := make(map[uuid.UUID]*domain.UserStats, len(loserIDs))
	for _, id := range loserIDs {
		st, err := s.repo.GetUserStats(ctx, id)
		if err != nil {
			return winnerChange, loserChanges, err
		}
		loserStatsByID[id] = st
	}

	winnerRating := winnerStats.RatingFor(difficulty)

	if gameMode == domain.GameModeRanked && len(loserIDs) > 0 {
		avgOpponent := 0
		for _, id := range loserIDs {
			avgOpponent += loserStatsByID[id].RatingFor(difficulty).Rating
		}
		avgOpponent /= len(loserIDs)

		kWinner := GetKFactorForGamesPlayed(winnerRating.RankedGames)
		newWinnerRating := NewEloCalculator(kWinner).CalculateNewRating(winnerRating.Rating, avgOpponent, 1.0)

		winnerChange = domain.RatingChange{
			OldRating: winnerRating.Rating,
			NewRating: newWinnerRating,
			Change:    newWinnerRating - winnerRating.Rating,
		}
		winnerRating.Rating = newWinnerRating
		if newWinnerRating > winnerRating.PeakRating {
			winnerRating.PeakRating = newWinnerRating
		}
		winnerRating.RankedGames++
		winnerRating.RankedWins++

		for _, id := range loserIDs {
			loserRating := loserStatsByID[id].RatingFor(difficulty)
			kLoser := GetKFactorForGamesPlayed(loserRating.RankedGames)
			newLoserRating := NewEloCalculator(kLoser).CalculateNewRating(loserRating.Rating, winnerChange.OldRating, 0.0)

			loserChanges[id] = domain.RatingChange{
				OldRating: loserRating.Rating,
				NewRating: newLoserRating,
				Change:    newLoserRating - loserRating.Rating,
			}
			loserRating.Rating = newLoserRating
			loserRating.RankedGames++
		}
	}

	now := time.Now()
	s.applyGameTally(winnerStats, true, winnerSolveMs, now)

	winnerResult := &domain.GameResult{
		ID:           uuid.New(),
		UserID:       winnerID,
		ProblemID:    problemID,
		Difficulty:   difficulty,
		GameMode:     gameMode,
		Won:          true,
		SolveTimeMs:  winnerSolveMs,
		RatingChange: winnerChange.Change,
		PlayedAt:     now,
	}
	if err := s.repo.RecordGameResult(ctx, winnerStats, winnerResult); err != nil {
		return winnerChange, loserChanges, err
	}

	for _, id := range loserIDs {
		stats := loserStatsByID[id]
		s.applyGameTally(stats, false, nil, now)

		result := &domain.GameResult{
			ID:           uuid.New(),
			UserID:       id,
			ProblemID:    problemID,
			Difficulty:   difficulty,
			GameMode:     gameMode,
			Won:          false,
			RatingChange: loserChanges[id].Change,
			PlayedAt:     now,
		}
		if err := s.repo.RecordGameResult(ctx, stats, result); err != nil {
			return winnerChange, loserChanges, err
		}
	}

	s.log.Info("Processed game result",
		zap.String("winner_id", winnerID.String()),
		zap.Int("loser_count", len(loserIDs)),
		zap.String("difficulty", string(difficulty)),
		zap.String("game_mode", string(gameMode)),
		zap.Int("winner_rating_change", winnerChange.Change),
	)

	return winnerChange, loserChanges, nil
}

// isConsecutiveDay сообщает, находится ли last_played_at в пределах "сегодня или вчера"
// относительно now, сравнение идёт по календарным суткам, а не по 24-часовому окну.
func isConsecutiveDay(lastPlayedAt *time.Time, now time.Time) bool {
	if lastPlayedAt == nil {
		return false
	}
	lastDay := lastPlayedAt.Truncate(24 * time.Hour)
	today := now.Truncate(24 * time.Hour)
	gap := today.Sub(lastDay)
	return gap >= 0 && gap <= 24*time.Hour
}

// applyGameTally обновляет счётчики партий, серию побед и рекорд скорости решения.
// Серия побед сбрасывается на 1, если последняя сыгранная партия была не сегодня
// и не вчера - иначе продолжает расти.
func (s *Service) applyGameTally(stats *domain.UserStats, won bool, solveMs *int64, now time.Time) {
	stats.GamesPlayed++
	if won {
		stats.GamesWon++
		if isConsecutiveDay(stats.LastPlayedAt, now) {
			stats.CurrentStreak++
		} else {
			stats.CurrentStreak = 1
		}
		if stats.CurrentStreak > stats.LongestStreak {
			stats.LongestStreak = stats.CurrentStreak
		}
		if solveMs != nil && (stats.FastestSolveMs == nil || *solveMs < *stats.FastestSolveMs) {
			stats.FastestSolveMs = solveMs
		}
		stats.ProblemsSolved++
	} else {
		stats.GamesLost++
		stats.CurrentStreak = 0
	}
	stats.LastPlayedAt = &now
}

// CalculateExpectedScore вычисляет ожидаемый результат матча
func (s *Service) CalculateExpectedScore(rating1, rating2 int) float64 {
	return s.calculator.CalculateExpectedScore(rating1, rating2)
}
