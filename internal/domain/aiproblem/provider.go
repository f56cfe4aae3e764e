package aiproblem

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/strongfeels/bitbattle/internal/domain"
)

// RateLimitError сигнализирует 429 от провайдера; RetryAfter - сколько ждать
// перед следующей попыткой генерации.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("llm provider rate limited, retry after %s", e.RetryAfter)
}

// errContentFiltered сигнализирует, что ответ был отфильтрован модерацией
// провайдера; такой ответ отбрасывается и не считается попыткой генерации.
var errContentFiltered = fmt.Errorf("llm response withheld by content filter")

// IsContentFiltered сообщает, была ли ошибка вызвана фильтрацией контента
func IsContentFiltered(err error) bool {
	return err == errContentFiltered
}

// Provider генерирует кандидата задачи для заданной сложности, возвращая сырой
// текст ответа модели (ожидается JSON-объект, возможно окружённый комментарием).
type Provider interface {
	Generate(ctx context.Context, difficulty domain.Difficulty) (string, error)
}

// OpenAIProvider реализует Provider поверх Chat Completions API
type OpenAIProvider struct {
	client       *openai.Client
	model        string
	defaultRetry time.Duration
}

// NewOpenAIProvider создаёт провайдера поверх OpenAI-совместимого API
func NewOpenAIProvider(apiKey, baseURL, model string, defaultRetry time.Duration) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIProvider{
		client:       openai.NewClientWithConfig(cfg),
		model:        model,
		defaultRetry: defaultRetry,
	}
}

const systemPrompt = `Ты генерируешь задачи для соревновательной платформы программирования.
Отвечай ровно одним JSON-объектом без пояснений вокруг, со следующими полями:
title (string, до 100 символов), description (string, минимум 50 символов),
examples (массив из 1-5 объектов {input, expected_output, explanation}),
test_cases (массив из 3-10 объектов {input, expected_output}),
starter_code (объект, ключи - названия языков, минимум javascript и python),
tags (массив строк), reference_solution (объект {language, code}) - рабочее
решение, проходящее все test_cases, time_limit_minutes (опционально, число).`

func (p *OpenAIProvider) Generate(ctx context.Context, difficulty domain.Difficulty) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("Сгенерируй одну новую задачу сложности %s.", difficulty)},
		},
		Temperature: 0.9,
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		if apiErr, ok := err.(*openai.APIError); ok && apiErr.HTTPStatusCode == 429 {
			return "", &RateLimitError{RetryAfter: p.defaultRetry}
		}
		return "", fmt.Errorf("llm generation request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm returned no choices")
	}

	choice := resp.Choices[0]
	if choice.FinishReason == "content_filter" {
		return "", errContentFiltered
	}

	return choice.Message.Content, nil
}
