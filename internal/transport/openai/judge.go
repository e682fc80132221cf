package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/venuerank/internal/domain"
	"github.com/kailas-cloud/venuerank/internal/metrics"
)

// JudgeConfig holds the chat-completion settings of the relevance judge.
type JudgeConfig struct {
	APIKey       string
	BaseURL      string
	Model        string
	SystemPrompt string
	Temperature  float32
	MaxTokens    int
	Timeout      time.Duration
	Logger       *zap.Logger
}

// Judge asks an OpenAI-compatible chat model to pick venues from a prompt.
type Judge struct {
	client       *openai.Client
	model        string
	systemPrompt string
	temperature  float32
	maxTokens    int
	logger       *zap.Logger
}

// NewJudge creates a chat-completion judge.
func NewJudge(cfg *JudgeConfig) *Judge {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Judge{
		client:       newClient(cfg.APIKey, cfg.BaseURL, cfg.Timeout),
		model:        cfg.Model,
		systemPrompt: cfg.SystemPrompt,
		temperature:  cfg.Temperature,
		maxTokens:    cfg.MaxTokens,
		logger:       logger.Named("judge"),
	}
}

// Complete sends prompt as the user message and returns the trimmed answer text.
func (j *Judge) Complete(ctx context.Context, prompt string) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if j.systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: j.systemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	req := openai.ChatCompletionRequest{
		Model:       j.model,
		Messages:    messages,
		Temperature: j.temperature,
	}
	if j.maxTokens > 0 {
		req.MaxTokens = j.maxTokens
	}

	start := time.Now()
	resp, err := j.client.CreateChatCompletion(ctx, req)
	metrics.ObserveExternal("judge", start, err)
	if err != nil {
		return "", parseAPIError("judge", err, domain.ErrJudgeUnavailable)
	}

	domain.UsageFromContext(ctx).AddJudgeTokens(resp.Usage.TotalTokens)

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices: %w", domain.ErrEmptyAnswer)
	}
	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return "", fmt.Errorf("blank content: %w", domain.ErrEmptyAnswer)
	}

	j.logger.Debug("Judge answered",
		zap.String("model", j.model),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
		zap.Duration("duration", time.Since(start)))
	return answer, nil
}

// HealthCheck verifies API availability via ListModels.
func (j *Judge) HealthCheck(ctx context.Context) error {
	if _, err := j.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}
