package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/OmDoke/Book-Inventory-Management-System/conversation"
	"github.com/OmDoke/Book-Inventory-Management-System/orchestrator"
)

type providerFunc func(context.Context, orchestrator.Request) (conversation.AssistantMessage, error)

func (f providerFunc) Complete(ctx context.Context, request orchestrator.Request) (conversation.AssistantMessage, error) {
	return f(ctx, request)
}

func seedRequest() orchestrator.Request {
	return orchestrator.Request{
		Messages: []conversation.Message{
			conversation.SystemMessage{Content: "system"},
			conversation.HumanMessage{Content: "seed"},
		},
	}
}

func TestWrapProvider_FailTwiceThenSucceed(t *testing.T) {
	t.Parallel()

	attempts := 0
	provider := providerFunc(func(_ context.Context, request orchestrator.Request) (conversation.AssistantMessage, error) {
		attempts++
		if got := request.Messages[1].Text(); got != "seed" {
			t.Fatalf("attempt %d received mutated request: %q", attempts, got)
		}
		request.Messages[1] = conversation.HumanMessage{Content: fmt.Sprintf("attempt-%d", attempts)}
		if attempts < 3 {
			return conversation.AssistantMessage{}, fmt.Errorf("attempt %d failed", attempts)
		}
		return conversation.AssistantMessage{Content: "ok"}, nil
	})

	request := seedRequest()
	wrapped := WrapProvider(provider, Config{MaxAttempts: 3})
	msg, err := wrapped.Complete(context.Background(), request)
	if err != nil {
		t.Fatalf("complete returned error: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("unexpected attempts: %d", attempts)
	}
	if msg.Content != "ok" {
		t.Fatalf("unexpected content: %q", msg.Content)
	}
	if request.Messages[1].Text() != "seed" {
		t.Fatalf("wrapper should preserve caller request, got %q", request.Messages[1].Text())
	}
}

func TestWrapProvider_AlwaysFailReturnsLastError(t *testing.T) {
	t.Parallel()

	attempts := 0
	var lastErr error
	provider := providerFunc(func(context.Context, orchestrator.Request) (conversation.AssistantMessage, error) {
		attempts++
		lastErr = fmt.Errorf("attempt %d failed", attempts)
		return conversation.AssistantMessage{}, lastErr
	})

	wrapped := WrapProvider(provider, Config{MaxAttempts: 4})
	if _, err := wrapped.Complete(context.Background(), seedRequest()); !errors.Is(err, lastErr) {
		t.Fatalf("expected last error %v, got %v", lastErr, err)
	}
	if attempts != 4 {
		t.Fatalf("unexpected attempts: %d", attempts)
	}
}

func TestWrapProvider_ShouldRetryFalseStopsAfterFirstError(t *testing.T) {
	t.Parallel()

	attempts := 0
	provider := providerFunc(func(context.Context, orchestrator.Request) (conversation.AssistantMessage, error) {
		attempts++
		return conversation.AssistantMessage{}, errors.New("bad request")
	})

	wrapped := WrapProvider(provider, Config{
		MaxAttempts: 5,
		ShouldRetry: func(error) bool { return false },
	})
	if _, err := wrapped.Complete(context.Background(), seedRequest()); err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Fatalf("unexpected attempts: %d", attempts)
	}
}

func TestWrapProvider_ContextErrorsAreNotRetried(t *testing.T) {
	t.Parallel()

	attempts := 0
	provider := providerFunc(func(context.Context, orchestrator.Request) (conversation.AssistantMessage, error) {
		attempts++
		return conversation.AssistantMessage{}, fmt.Errorf("transport: %w", context.DeadlineExceeded)
	})

	wrapped := WrapProvider(provider, Config{MaxAttempts: 3})
	if _, err := wrapped.Complete(context.Background(), seedRequest()); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("unexpected attempts: %d", attempts)
	}
}

func TestWrapProvider_CancelledBeforeFirstAttempt(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := 0
	provider := providerFunc(func(context.Context, orchestrator.Request) (conversation.AssistantMessage, error) {
		attempts++
		return conversation.AssistantMessage{}, nil
	})
	if _, err := WrapProvider(provider, Config{MaxAttempts: 3}).Complete(ctx, seedRequest()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if attempts != 0 {
		t.Fatalf("unexpected attempts: %d", attempts)
	}
}

func TestWrapProvider_BackoffWaitIsCancellable(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	provider := providerFunc(func(context.Context, orchestrator.Request) (conversation.AssistantMessage, error) {
		cancel()
		return conversation.AssistantMessage{}, errors.New("temporary")
	})

	wrapped := WrapProvider(provider, Config{
		MaxAttempts: 3,
		ShouldRetry: func(error) bool { return true },
		Backoff:     func(int) time.Duration { return time.Hour },
	})
	if _, err := wrapped.Complete(ctx, seedRequest()); err == nil {
		t.Fatal("expected error")
	}
}

func TestWrapProvider_NilProvider(t *testing.T) {
	t.Parallel()

	if WrapProvider(nil, Config{}) != nil {
		t.Fatal("expected nil wrapper for nil provider")
	}
}

func TestExponentialBackoff(t *testing.T) {
	t.Parallel()

	backoff := ExponentialBackoff(100*time.Millisecond, time.Second)
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond, 800 * time.Millisecond, time.Second, time.Second}
	for i, expected := range want {
		if got := backoff(i + 1); got != expected {
			t.Fatalf("attempt %d: got=%s want=%s", i+1, got, expected)
		}
	}
}
