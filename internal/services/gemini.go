package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"cvanalyzer/semantic-cv-analyzer/internal/config"
)

type geminiService struct {
	client          *genai.Client
	modelName       string
	temperature     float32
	maxOutputTokens int32
}

func NewGeminiService(ctx context.Context, cfg config.LLMConfig) (LLMClient, error) {
	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, &ConfigurationError{Setting: "Gemini client", Reason: "could not be created", Err: err}
	}

	return &geminiService{
		client:          client,
		modelName:       cfg.Model,
		temperature:     cfg.Temperature,
		maxOutputTokens: cfg.MaxOutputTokens,
	}, nil
}

func (g *geminiService) Provider() string {
	return config.ProviderGemini
}

// Complete implements LLMClient. An empty reply is returned as "" without an
// error; the parser reports it as malformed.
func (g *geminiService) Complete(ctx context.Context, prompt string) (string, error) {
	temperature := g.temperature
	generateConfig := &genai.GenerateContentConfig{
		Temperature:      &temperature,
		MaxOutputTokens:  g.maxOutputTokens,
		ResponseMIMEType: "application/json",
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.modelName, genai.Text(prompt), generateConfig)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return "", classifyError(g.Provider(), apiErr.Code, apiErr.Message, err)
		}
		return "", classifyError(g.Provider(), 0, "", fmt.Errorf("failed to generate text: %w", err))
	}

	if resp == nil {
		return "", nil
	}

	return strings.TrimSpace(resp.Text()), nil
}
