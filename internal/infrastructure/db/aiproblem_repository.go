package db

import (
	"database/sql"
	"encoding/json"

	"context"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/strongfeels/bitbattle/internal/domain"
	"github.com/strongfeels/bitbattle/pkg/errors"
)

// AIProblemRepository хранит кандидатов задач, сгенерированных LLM, их валидацию и
// пул проверенных задач, используемых матчмейкингом.
type AIProblemRepository struct {
	db *DB
}

// NewAIProblemRepository создаёт новый репозиторий AI-задач
func NewAIProblemRepository(db *DB) *AIProblemRepository {
	return &AIProblemRepository{db: db}
}

// aiProblemRow отражает колонки таблицы ai_problems один-в-один для sqlx сканирования.
type aiProblemRow struct {
	ID                  uuid.UUID      `db:"id"`
	ProblemID           string         `db:"problem_id"`
	Title               string         `db:"title"`
	Description         string         `db:"description"`
	Difficulty          string         `db:"difficulty"`
	Examples            []byte         `db:"examples"`
	TestCases           []byte         `db:"test_cases"`
	StarterCode         []byte         `db:"starter_code"`
	TimeLimitMinutes    sql.NullInt32  `db:"time_limit_minutes"`
	Tags                []byte         `db:"tags"`
	Status              string         `db:"status"`
	Provider            string         `db:"provider"`
	Model               string         `db:"model"`
	ValidationAttempts  int            `db:"validation_attempts"`
	LastValidationError sql.NullString `db:"last_validation_error"`
	ValidatedAt         sql.NullTime   `db:"validated_at"`
	TimesUsed           int            `db:"times_used"`
	ReferenceLanguage   sql.NullString `db:"reference_language"`
	ReferenceCode       sql.NullString `db:"reference_code"`
}

func (row aiProblemRow) toDomain() (*domain.AIProblem, error) {
	var examples []domain.Example
	if err := json.Unmarshal(row.Examples, &examples); err != nil {
		return nil, errors.Wrap(err, "failed to decode examples")
	}
	var testCases []domain.TestCase
	if len(row.TestCases) > 0 {
		if err := json.Unmarshal(row.TestCases, &testCases); err != nil {
			return nil, errors.Wrap(err, "failed to decode test cases")
		}
	}
	var starterCode map[string]string
	if len(row.StarterCode) > 0 {
		if err := json.Unmarshal(row.StarterCode, &starterCode); err != nil {
			return nil, errors.Wrap(err, "failed to decode starter code")
		}
	}
	var tags []string
	if len(row.Tags) > 0 {
		if err := json.Unmarshal(row.Tags, &tags); err != nil {
			return nil, errors.Wrap(err, "failed to decode tags")
		}
	}

	ap := &domain.AIProblem{
		Problem: domain.Problem{
			ID:          row.ProblemID,
			Title:       row.Title,
			Description: row.Description,
			Difficulty:  domain.Difficulty(row.Difficulty),
			Examples:    examples,
			TestCases:   testCases,
			StarterCode: starterCode,
			Tags:        tags,
		},
		Status:             domain.AIProblemStatus(row.Status),
		Provider:           row.Provider,
		Model:              row.Model,
		ValidationAttempts: row.ValidationAttempts,
		TimesUsed:          row.TimesUsed,
	}
	if row.TimeLimitMinutes.Valid {
		m := int(row.TimeLimitMinutes.Int32)
		ap.TimeLimitMin = &m
	}
	if row.LastValidationError.Valid {
		ap.LastValidationError = &row.LastValidationError.String
	}
	if row.ValidatedAt.Valid {
		ap.ValidatedAt = &row.ValidatedAt.Time
	}
	if row.ReferenceLanguage.Valid {
		ap.ReferenceSolution = domain.ReferenceSolution{
			Language: row.ReferenceLanguage.String,
			Code:     row.ReferenceCode.String,
		}
	}

	return ap, nil
}

// Insert сохраняет нового кандидата задачи в статусе pending_validation
func (r *AIProblemRepository) Insert(ctx context.Context, ap *domain.AIProblem) error {
	examples, err := json.Marshal(ap.Examples)
	if err != nil {
		return errors.Wrap(err, "failed to encode examples")
	}
	testCases, err := json.Marshal(ap.TestCases)
	if err != nil {
		return errors.Wrap(err, "failed to encode test cases")
	}
	starterCode, err := json.Marshal(ap.StarterCode)
	if err != nil {
		return errors.Wrap(err, "failed to encode starter code")
	}
	tags, err := json.Marshal(ap.Tags)
	if err != nil {
		return errors.Wrap(err, "failed to encode tags")
	}

	query := `
		INSERT INTO ai_problems (
			id, problem_id, title, description, difficulty,
			examples, test_cases, starter_code, time_limit_minutes, tags,
			status, provider, model, reference_language, reference_code
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err = r.db.ExecWithMetrics(ctx, "ai_problem_insert", query,
		uuid.New(), ap.ID, ap.Title, ap.Description, string(ap.Difficulty),
		examples, testCases, starterCode, ap.TimeLimitMin, tags,
		string(domain.AIProblemPendingValidation), ap.Provider, ap.Model,
		ap.ReferenceSolution.Language, ap.ReferenceSolution.Code,
	)
	if err != nil {
		return errors.Wrap(err, "failed to insert ai problem")
	}

	return nil
}

// FindUnseenByDifficulty ищет валидированную задачу указанной сложности, которую ещё
// не видел ни один из переданных игроков, отдавая предпочтение наименее используемым.
func (r *AIProblemRepository) FindUnseenByDifficulty(ctx context.Context, difficulty domain.Difficulty, playerIDs []uuid.UUID) (*domain.AIProblem, error) {
	var query string
	var row aiProblemRow
	var err error

	if len(playerIDs) == 0 {
		query = `
			SELECT id, problem_id, title, description, difficulty, examples, test_cases,
			       starter_code, time_limit_minutes, tags, status, provider, model,
			       validation_attempts, last_validation_error, validated_at, times_used,
			       reference_language, reference_code
			FROM ai_problems
			WHERE status = 'Validated' AND difficulty = $1
			ORDER BY times_used ASC, RANDOM()
			LIMIT 1
		`
		err = r.db.GetContext(ctx, &row, query, string(difficulty))
	} else {
		query = `
			SELECT ap.id, ap.problem_id, ap.title, ap.description, ap.difficulty, ap.examples,
			       ap.test_cases, ap.starter_code, ap.time_limit_minutes, ap.tags, ap.status,
			       ap.provider, ap.model, ap.validation_attempts, ap.last_validation_error,
			       ap.validated_at, ap.times_used, ap.reference_language, ap.reference_code
			FROM ai_problems ap
			WHERE ap.status = 'Validated'
			  AND ap.difficulty = $1
			  AND NOT EXISTS (
			    SELECT 1 FROM player_problem_history pph
			    WHERE pph.problem_id = ap.problem_id
			      AND pph.user_id = ANY($2)
			  )
			ORDER BY ap.times_used ASC, RANDOM()
			LIMIT 1
		`
		err = r.db.GetContext(ctx, &row, query, string(difficulty), pq.Array(playerIDs))
	}

	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound.WithMessage("no unseen problem available")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find unseen problem")
	}

	return row.toDomain()
}

// ClaimPendingForValidation атомарно забирает одного ожидающего кандидата на валидацию,
// используя SELECT ... FOR UPDATE SKIP LOCKED, чтобы несколько воркеров не конфликтовали.
func (r *AIProblemRepository) ClaimPendingForValidation(ctx context.Context, maxAttempts int) (*domain.AIProblem, error) {
	query := `
		UPDATE ai_problems
		SET status = 'Validating'
		WHERE id = (
			SELECT id FROM ai_problems
			WHERE status = 'PendingValidation' AND validation_attempts < $1
			ORDER BY id ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, problem_id, title, description, difficulty, examples, test_cases,
		          starter_code, time_limit_minutes, tags, status, provider, model,
		          validation_attempts, last_validation_error, validated_at, times_used,
		          reference_language, reference_code
	`

	var row aiProblemRow
	err := r.db.GetContext(ctx, &row, query, maxAttempts)
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound.WithMessage("no pending problem to validate")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to claim pending problem")
	}

	return row.toDomain()
}

// UpdateStatus обновляет результат прохождения валидации для кандидата
func (r *AIProblemRepository) UpdateStatus(ctx context.Context, problemID string, status domain.AIProblemStatus, validationErr *string) error {
	query := `
		UPDATE ai_problems
		SET status = $2,
		    last_validation_error = $3,
		    validated_at = CASE WHEN $2 = 'Validated' THEN now() ELSE validated_at END,
		    validation_attempts = validation_attempts + 1
		WHERE problem_id = $1
	`

	_, err := r.db.ExecWithMetrics(ctx, "ai_problem_update_status", query, problemID, string(status), validationErr)
	if err != nil {
		return errors.Wrap(err, "failed to update ai problem status")
	}

	return nil
}

// MarkUsed увеличивает счётчик использований задачи
func (r *AIProblemRepository) MarkUsed(ctx context.Context, problemID string) error {
	query := `UPDATE ai_problems SET times_used = times_used + 1 WHERE problem_id = $1`

	_, err := r.db.ExecWithMetrics(ctx, "ai_problem_mark_used", query, problemID)
	if err != nil {
		return errors.Wrap(err, "failed to mark ai problem used")
	}

	return nil
}

// PoolCounts число проверенных задач в пуле по каждой сложности
type PoolCounts struct {
	Easy   int64
	Medium int64
	Hard   int64
}

// GetPoolCounts возвращает количество валидированных задач по сложностям
func (r *AIProblemRepository) GetPoolCounts(ctx context.Context) (PoolCounts, error) {
	query := `
		SELECT difficulty, COUNT(*) AS count
		FROM ai_problems
		WHERE status = 'Validated'
		GROUP BY difficulty
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return PoolCounts{}, errors.Wrap(err, "failed to get pool counts")
	}
	defer rows.Close()

	var counts PoolCounts
	for rows.Next() {
		var difficulty string
		var count int64
		if err := rows.Scan(&difficulty, &count); err != nil {
			return PoolCounts{}, errors.Wrap(err, "failed to scan pool count row")
		}
		switch domain.Difficulty(difficulty) {
		case domain.DifficultyEasy:
			counts.Easy = count
		case domain.DifficultyMedium:
			counts.Medium = count
		case domain.DifficultyHard:
			counts.Hard = count
		}
	}

	return counts, rows.Err()
}

// PoolCounts реализует aiproblem.Store.PoolCounts, разворачивая GetPoolCounts
// в три отдельных значения, как того ожидает цикл пополнения пула.
func (r *AIProblemRepository) PoolCounts(ctx context.Context) (easy, medium, hard int64, err error) {
	counts, err := r.GetPoolCounts(ctx)
	if err != nil {
		return 0, 0, 0, err
	}
	return counts.Easy, counts.Medium, counts.Hard, nil
}
