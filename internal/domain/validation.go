package domain

import (
	"github.com/strongfeels/bitbattle/pkg/validator"
)

// Validate валидирует User
func (u *User) Validate() error {
	errs := validator.ValidationErrors{}

	if err := validator.ValidateUsername(u.Username); err != nil {
		errs = append(errs, err.(*validator.ValidationError))
	}

	if err := validator.ValidateEmail(u.Email); err != nil {
		errs = append(errs, err.(*validator.ValidationError))
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// Validate валидирует Room на момент создания
func (r *Room) Validate() error {
	errs := validator.ValidationErrors{}

	if err := validator.ValidateRoomCode(r.Code); err != nil {
		errs = append(errs, err.(*validator.ValidationError))
	}

	if err := validator.ValidatePlayerCount(r.RequiredPlayers); err != nil {
		errs = append(errs, err.(*validator.ValidationError))
	}

	validModes := []string{string(GameModeCasual), string(GameModeRanked)}
	if err := validator.ValidateEnum("game_mode", string(r.GameMode), validModes); err != nil {
		errs = append(errs, err.(*validator.ValidationError))
	}

	validStates := []string{string(RoomStateLobby), string(RoomStateActive), string(RoomStateEnded)}
	if err := validator.ValidateEnum("state", string(r.State), validStates); err != nil {
		errs = append(errs, err.(*validator.ValidationError))
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// Validate валидирует запись в очереди матчмейкинга
func (q *QueuedPlayer) Validate() error {
	errs := validator.ValidationErrors{}

	if err := validator.ValidateUsername(q.Username); err != nil {
		errs = append(errs, err.(*validator.ValidationError))
	}

	validDifficulties := []string{
		string(DifficultyEasy), string(DifficultyMedium), string(DifficultyHard), string(DifficultyAny),
	}
	if err := validator.ValidateEnum("preferred_difficulty", string(q.PreferredDifficulty), validDifficulties); err != nil {
		errs = append(errs, err.(*validator.ValidationError))
	}

	validModes := []string{string(GameModeCasual), string(GameModeRanked)}
	if err := validator.ValidateEnum("game_mode", string(q.GameMode), validModes); err != nil {
		errs = append(errs, err.(*validator.ValidationError))
	}

	if err := validator.ValidateRequired("connection_id", q.ConnectionID); err != nil {
		errs = append(errs, err.(*validator.ValidationError))
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// Validate валидирует структурные ограничения задачи независимо от её источника
func (p *Problem) Validate() error {
	errs := validator.ValidationErrors{}

	if err := validator.ValidateRequired("id", p.ID); err != nil {
		errs = append(errs, err.(*validator.ValidationError))
	}

	if err := validator.ValidateLength("title", p.Title, 1, 100); err != nil {
		errs = append(errs, err.(*validator.ValidationError))
	}

	if err := validator.ValidateLength("description", p.Description, 50, 0); err != nil {
		errs = append(errs, err.(*validator.ValidationError))
	}

	validDifficulties := []string{string(DifficultyEasy), string(DifficultyMedium), string(DifficultyHard)}
	if err := validator.ValidateEnum("difficulty", string(p.Difficulty), validDifficulties); err != nil {
		errs = append(errs, err.(*validator.ValidationError))
	}

	if err := validator.ValidateRange("examples", len(p.Examples), 1, 5); err != nil {
		errs = append(errs, err.(*validator.ValidationError))
	}

	if p.TestCases != nil {
		if err := validator.ValidateRange("test_cases", len(p.TestCases), 3, 10); err != nil {
			errs = append(errs, err.(*validator.ValidationError))
		}
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// Validate валидирует кандидата задачи, сгенерированного LLM, перед постановкой на проверку
func (a *AIProblem) Validate() error {
	errs := validator.ValidationErrors{}

	if err := a.Problem.Validate(); err != nil {
		if ve, ok := err.(validator.ValidationErrors); ok {
			errs = append(errs, ve...)
		}
	}

	if err := validator.ValidateRange("test_cases", len(a.TestCases), 3, 10); err != nil {
		errs = append(errs, err.(*validator.ValidationError))
	}

	if err := validator.ValidateRequired("provider", a.Provider); err != nil {
		errs = append(errs, err.(*validator.ValidationError))
	}

	if err := validator.ValidateRequired("model", a.Model); err != nil {
		errs = append(errs, err.(*validator.ValidationError))
	}

	if a.ReferenceSolution.Code != "" {
		if err := validator.ValidateLanguage(a.ReferenceSolution.Language); err != nil {
			errs = append(errs, err.(*validator.ValidationError))
		}
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}
