// Package search is the boundary between callers and the orchestration loop.
// It validates queries, bounds each run and applies the fail-safe policy:
// every protocol failure degrades to the empty answer, while collaborator
// failures are returned.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/OmDoke/Book-Inventory-Management-System/answer"
	"github.com/OmDoke/Book-Inventory-Management-System/orchestrator"
)

var (
	ErrQueryRequired = errors.New("query is required")
	ErrNilRunner     = errors.New("search runner is required")
)

// Runner executes one orchestration run. *orchestrator.Loop satisfies it.
type Runner interface {
	Run(ctx context.Context, input orchestrator.Input) (orchestrator.Result, error)
}

// Service answers natural-language queries.
type Service struct {
	runner  Runner
	logger  *slog.Logger
	timeout time.Duration
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTimeout bounds every run. Zero or negative disables the deadline.
func WithTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		s.timeout = timeout
	}
}

func New(runner Runner, opts ...Option) (*Service, error) {
	if runner == nil {
		return nil, ErrNilRunner
	}
	s := &Service{
		runner: runner,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Search runs query through the loop and returns a contract-conforming answer.
func (s *Service) Search(ctx context.Context, query string) (answer.FinalAnswer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return answer.FinalAnswer{}, ErrQueryRequired
	}

	runCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	runID := uuid.NewString()
	logger := s.logger.With("run_id", runID)

	result, err := s.runner.Run(runCtx, orchestrator.Input{RunID: runID, Query: query})
	if err != nil {
		switch {
		case result.State == orchestrator.StateDone && errors.Is(err, orchestrator.ErrEventPublish):
			logger.WarnContext(ctx, "search event delivery failed", "error", err)
		case errors.Is(err, orchestrator.ErrRecursionLimit):
			logger.WarnContext(ctx, "search exhausted recursion limit; returning fail-safe answer",
				"provider_calls", result.ProviderCalls,
				"round_trips", result.RoundTrips,
			)
			return answer.FailSafe(), nil
		case errors.Is(err, orchestrator.ErrMalformedTurn):
			logger.WarnContext(ctx, "provider returned a malformed turn; returning fail-safe answer", "error", err)
			return answer.FailSafe(), nil
		case ctx.Err() == nil && runCtx.Err() != nil && errors.Is(err, context.DeadlineExceeded):
			logger.WarnContext(ctx, "search deadline expired; returning fail-safe answer",
				"timeout", s.timeout,
				"provider_calls", result.ProviderCalls,
			)
			return answer.FailSafe(), nil
		default:
			return answer.FinalAnswer{}, fmt.Errorf("search run %s: %w", runID, err)
		}
	}

	parsed, parseErr := answer.ParseStrict(result.Output)
	if parseErr != nil {
		logger.WarnContext(ctx, "final message rejected; returning fail-safe answer", "error", parseErr)
		return answer.FailSafe(), nil
	}
	logger.DebugContext(ctx, "search completed",
		"count", parsed.Count,
		"provider_calls", result.ProviderCalls,
		"round_trips", result.RoundTrips,
	)
	return parsed, nil
}
