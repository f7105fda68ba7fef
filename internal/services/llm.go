package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"cvanalyzer/semantic-cv-analyzer/internal/config"
	"cvanalyzer/semantic-cv-analyzer/internal/logger"
)

// LLMClient sends one prompt and returns the model's raw text reply.
type LLMClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Provider() string
}

// NewLLMClient builds the client for cfg.Provider, wrapped with retries when
// more than one attempt is configured. A missing API key is reported as a
// *ConfigurationError so the caller can keep serving the UI.
func NewLLMClient(ctx context.Context, cfg config.LLMConfig, log *logger.Logger) (LLMClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, MissingAPIKeyError(cfg)
	}

	var (
		client LLMClient
		err    error
	)
	switch cfg.Provider {
	case config.ProviderGemini, "":
		client, err = NewGeminiService(ctx, cfg)
	case config.ProviderOpenAI:
		client = NewOpenAIService(cfg)
	default:
		return nil, &ConfigurationError{Setting: "LLM_PROVIDER", Reason: fmt.Sprintf("has unknown value %q", cfg.Provider)}
	}
	if err != nil {
		return nil, err
	}

	if cfg.MaxAttempts > 1 {
		client = NewRetryingLLM(client, cfg.MaxAttempts, cfg.RetryInitialDelay, log)
	}
	return client, nil
}

func MissingAPIKeyError(cfg config.LLMConfig) *ConfigurationError {
	envName := "GEMINI_API_KEY"
	if cfg.Provider == config.ProviderOpenAI {
		envName = "OPENAI_API_KEY"
	}
	return &ConfigurationError{
		Setting: "API key",
		Reason:  fmt.Sprintf("is missing: add api_key to %s or set %s", cfg.SecretsPath, envName),
	}
}

type unavailableLLM struct {
	provider string
	err      error
}

// NewUnavailableLLM returns a client whose every call fails with err. It
// stands in when the real client could not be configured.
func NewUnavailableLLM(provider string, err error) LLMClient {
	return &unavailableLLM{provider: provider, err: err}
}

func (u *unavailableLLM) Complete(ctx context.Context, prompt string) (string, error) {
	return "", u.err
}

func (u *unavailableLLM) Provider() string {
	return u.provider
}

// IsLLMConfigured reports whether client can actually reach a provider.
func IsLLMConfigured(client LLMClient) bool {
	_, unavailable := client.(*unavailableLLM)
	return client != nil && !unavailable
}

// classifyError maps a provider error to the error taxonomy. status is the
// HTTP status the provider reported, or 0 when there was none.
func classifyError(provider string, status int, message string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &TransportError{Provider: provider, Timeout: true, Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s request cancelled: %w", provider, err)
	}

	lower := strings.ToLower(message)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &ConfigurationError{Setting: "API key", Reason: "was rejected by " + provider, Err: err}
	case status == http.StatusBadRequest && strings.Contains(lower, "api key"):
		return &ConfigurationError{Setting: "API key", Reason: "is not valid for " + provider, Err: err}
	}
	return &TransportError{Provider: provider, StatusCode: status, Err: err}
}
