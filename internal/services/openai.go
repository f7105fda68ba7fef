package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"cvanalyzer/semantic-cv-analyzer/internal/config"
)

const jsonOnlySystemPrompt = "You are a careful recruiting assistant. Reply with a single JSON object and nothing else."

// openAIService talks to any OpenAI-compatible chat completions endpoint.
type openAIService struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int32
}

func NewOpenAIService(cfg config.LLMConfig) LLMClient {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		// Retries are handled by the retrying wrapper
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &openAIService{
		client:      openai.NewClient(opts...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxOutputTokens,
	}
}

func (o *openAIService) Provider() string {
	return config.ProviderOpenAI
}

// Complete implements LLMClient.
func (o *openAIService) Complete(ctx context.Context, prompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(jsonOnlySystemPrompt),
			openai.UserMessage(prompt),
		}),
		Model:       openai.F(o.model),
		Temperature: openai.F(float64(o.temperature)),
		MaxTokens:   openai.F(int64(o.maxTokens)),
	}

	completion, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", classifyError(o.Provider(), apiErr.StatusCode, apiErr.Message, err)
		}
		return "", classifyError(o.Provider(), 0, "", fmt.Errorf("chat completion failed: %w", err))
	}

	if completion == nil || len(completion.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(completion.Choices[0].Message.Content), nil
}
