// Package retry wraps a completion provider with error-only retries.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/OmDoke/Book-Inventory-Management-System/conversation"
	"github.com/OmDoke/Book-Inventory-Management-System/orchestrator"
)

// Config controls retry behaviour for a wrapped provider.
// Backoff, when set, is the wait before attempt n+1 after attempt n failed.
type Config struct {
	MaxAttempts int
	ShouldRetry func(error) bool
	Backoff     func(attempt int) time.Duration
}

// WrapProvider retries failed Complete calls. Successful responses and
// context errors are never retried.
func WrapProvider(provider orchestrator.Provider, cfg Config) orchestrator.Provider {
	if provider == nil {
		return nil
	}
	return &providerWrapper{
		next: provider,
		cfg:  cfg,
	}
}

type providerWrapper struct {
	next orchestrator.Provider
	cfg  Config
}

func (w *providerWrapper) Complete(ctx context.Context, request orchestrator.Request) (conversation.AssistantMessage, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return conversation.AssistantMessage{}, ctxErr
	}

	attempts := normalizedAttempts(w.cfg.MaxAttempts)
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		msg, err := w.next.Complete(ctx, orchestrator.Request{
			Messages: conversation.CloneMessages(request.Messages),
			Tools:    conversation.CloneToolDefinitions(request.Tools),
		})
		if err == nil {
			return msg, nil
		}
		lastErr = err
		if attempt == attempts || !shouldRetry(ctx, w.cfg, err) {
			break
		}
		if err := wait(ctx, w.cfg, attempt); err != nil {
			return conversation.AssistantMessage{}, errors.Join(lastErr, err)
		}
	}
	return conversation.AssistantMessage{}, lastErr
}

// ExponentialBackoff doubles base per attempt up to limit.
func ExponentialBackoff(base, limit time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		delay := base
		for i := 1; i < attempt && delay < limit; i++ {
			delay *= 2
		}
		if delay > limit {
			delay = limit
		}
		return delay
	}
}

func normalizedAttempts(maxAttempts int) int {
	if maxAttempts < 1 {
		return 1
	}
	return maxAttempts
}

func shouldRetry(ctx context.Context, cfg Config, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if cfg.ShouldRetry == nil {
		return true
	}
	return cfg.ShouldRetry(err)
}

func wait(ctx context.Context, cfg Config, attempt int) error {
	if cfg.Backoff == nil {
		return nil
	}
	delay := cfg.Backoff(attempt)
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
