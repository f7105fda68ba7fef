package services

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"cvanalyzer/semantic-cv-analyzer/internal/logger"
)

type retryingLLM struct {
	next         LLMClient
	maxAttempts  int
	initialDelay time.Duration
	log          *logger.Logger
}

// NewRetryingLLM retries temporary transport errors with exponential backoff.
// Timeouts, configuration errors and anything else are returned at once.
func NewRetryingLLM(next LLMClient, maxAttempts int, initialDelay time.Duration, log *logger.Logger) LLMClient {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if log == nil {
		log = logger.Nop()
	}
	return &retryingLLM{
		next:         next,
		maxAttempts:  maxAttempts,
		initialDelay: initialDelay,
		log:          log.WithComponent("llm_retry"),
	}
}

func (r *retryingLLM) Provider() string {
	return r.next.Provider()
}

// Complete implements LLMClient.
func (r *retryingLLM) Complete(ctx context.Context, prompt string) (string, error) {
	attempt := 0
	operation := func() (string, error) {
		attempt++
		text, err := r.next.Complete(ctx, prompt)
		if err == nil {
			return text, nil
		}
		var transportErr *TransportError
		if errors.As(err, &transportErr) && transportErr.Temporary() {
			return "", err
		}
		return "", backoff.Permanent(err)
	}

	b := backoff.NewExponentialBackOff()
	if r.initialDelay > 0 {
		b.InitialInterval = r.initialDelay
	}
	b.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(r.maxAttempts-1)), ctx)
	notify := func(err error, wait time.Duration) {
		r.log.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", r.maxAttempts).
			Dur("retry_in", wait).
			Msg("LLM request failed, retrying")
	}

	return backoff.RetryNotifyWithData(operation, policy, notify)
}
