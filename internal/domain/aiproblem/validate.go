package aiproblem

import (
	"encoding/json"
	"strings"

	"github.com/strongfeels/bitbattle/internal/domain"
	"github.com/strongfeels/bitbattle/pkg/errors"
	"github.com/strongfeels/bitbattle/pkg/validator"
)

// GeneratedProblem - форма, в которую должен укладываться JSON-ответ модели
type GeneratedProblem struct {
	Title              string                 `json:"title"`
	Description        string                 `json:"description"`
	Examples           []domain.Example       `json:"examples"`
	TestCases          []domain.TestCase      `json:"test_cases"`
	StarterCode        map[string]string      `json:"starter_code"`
	Tags               []string               `json:"tags"`
	ReferenceSolution  domain.ReferenceSolution `json:"reference_solution"`
	TimeLimitMinutes   *int                   `json:"time_limit_minutes,omitempty"`
}

// ExtractJSONObject вырезает первую фигурную скобку и последнюю в тексте -
// модель иногда оборачивает JSON в markdown-блок кода или добавляет комментарий.
func ExtractJSONObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < 0 || end < start {
		return "", false
	}
	return text[start : end+1], true
}

// ParseGeneratedProblem разбирает сырой ответ модели в GeneratedProblem
func ParseGeneratedProblem(raw string) (*GeneratedProblem, error) {
	jsonText, ok := ExtractJSONObject(raw)
	if !ok {
		return nil, errors.ErrExternalService.WithMessage("llm response did not contain a json object")
	}

	var gp GeneratedProblem
	if err := json.Unmarshal([]byte(jsonText), &gp); err != nil {
		return nil, errors.ErrExternalService.WithError(err)
	}
	return &gp, nil
}

// StructuralValidate проверяет сгенерированного кандидата на соответствие
// структурным требованиям пула задач, до какой-либо попытки решения.
func StructuralValidate(gp *GeneratedProblem) error {
	errs := validator.ValidationErrors{}

	if err := validator.ValidateLength("title", gp.Title, 1, 100); err != nil {
		errs.Add(err.(*validator.ValidationError).Field, err.(*validator.ValidationError).Message)
	}
	if err := validator.ValidateLength("description", gp.Description, 50, 0); err != nil {
		errs.Add(err.(*validator.ValidationError).Field, err.(*validator.ValidationError).Message)
	}
	if len(gp.Examples) < 1 || len(gp.Examples) > 5 {
		errs.Add("examples", "must contain between 1 and 5 examples")
	}
	if len(gp.TestCases) < 3 || len(gp.TestCases) > 10 {
		errs.Add("test_cases", "must contain between 3 and 10 test cases")
	}
	if _, hasJS := gp.StarterCode["javascript"]; !hasJS {
		errs.Add("starter_code", "must include a javascript starter")
	}
	if _, hasPy := gp.StarterCode["python"]; !hasPy {
		errs.Add("starter_code", "must include a python starter")
	}
	if err := validator.ValidateLanguage(gp.ReferenceSolution.Language); err != nil {
		errs.Add(err.(*validator.ValidationError).Field, err.(*validator.ValidationError).Message)
	}
	if gp.ReferenceSolution.Code == "" {
		errs.Add("reference_solution", "code is required")
	}

	if errs.HasErrors() {
		return errors.ErrValidation.WithError(errs)
	}
	return nil
}
