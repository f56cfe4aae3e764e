package db

import (
	"context"

	"github.com/google/uuid"

	"github.com/strongfeels/bitbattle/pkg/errors"
)

// PlayerProblemHistoryRepository отмечает, какие задачи уже видел каждый игрок,
// используется матчмейкером, чтобы не выдавать повторы.
type PlayerProblemHistoryRepository struct {
	db *DB
}

// NewPlayerProblemHistoryRepository создаёт новый репозиторий истории задач
func NewPlayerProblemHistoryRepository(db *DB) *PlayerProblemHistoryRepository {
	return &PlayerProblemHistoryRepository{db: db}
}

// Record отмечает, что пользователь сыграл задачу; повторная запись не создаёт дубликат
func (r *PlayerProblemHistoryRepository) Record(ctx context.Context, userID uuid.UUID, problemID string) error {
	query := `
		INSERT INTO player_problem_history (user_id, problem_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, problem_id) DO NOTHING
	`

	_, err := r.db.ExecWithMetrics(ctx, "player_problem_history_record", query, userID, problemID)
	if err != nil {
		return errors.Wrap(err, "failed to record player problem history")
	}

	return nil
}
