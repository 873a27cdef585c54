// Package orchestrator runs the bounded plan-act-observe exchange between a
// completion provider and the search tools:
// provider -> tool calls -> tool results -> provider -> ... -> final content.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/OmDoke/Book-Inventory-Management-System/conversation"
)

// DefaultRecursionLimit is the number of tool round trips one query may spend.
const DefaultRecursionLimit = 5

const tracerName = "github.com/OmDoke/Book-Inventory-Management-System/orchestrator"

// Input starts one loop invocation. An empty RunID is replaced with a fresh UUID.
type Input struct {
	RunID string
	Query string
}

// Result describes how an invocation ended. Output is the content of the
// final assistant turn and is only meaningful when State is StateDone.
type Result struct {
	RunID         string
	State         State
	Output        string
	Messages      []conversation.Message
	ProviderCalls int
	RoundTrips    int
}

// Loop alternates provider calls and tool dispatch until the provider stops
// requesting tools or the recursion limit is spent. It holds no per-query
// state and is safe for concurrent use.
type Loop struct {
	provider       Provider
	tools          ToolDispatcher
	events         EventSink
	tracer         trace.Tracer
	recursionLimit int
	instruction    string
}

// Option customises a Loop.
type Option func(*Loop)

// WithRecursionLimit overrides DefaultRecursionLimit. Non-positive values are ignored.
func WithRecursionLimit(limit int) Option {
	return func(l *Loop) {
		if limit > 0 {
			l.recursionLimit = limit
		}
	}
}

// WithSystemInstruction overrides DefaultSystemInstruction.
func WithSystemInstruction(instruction string) Option {
	return func(l *Loop) {
		if strings.TrimSpace(instruction) != "" {
			l.instruction = instruction
		}
	}
}

func WithEventSink(sink EventSink) Option {
	return func(l *Loop) {
		if sink != nil {
			l.events = sink
		}
	}
}

func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(l *Loop) {
		if provider != nil {
			l.tracer = provider.Tracer(tracerName)
		}
	}
}

func New(provider Provider, tools ToolDispatcher, opts ...Option) (*Loop, error) {
	if provider == nil {
		return nil, fmt.Errorf("new loop: %w", ErrMissingProvider)
	}
	if tools == nil {
		return nil, fmt.Errorf("new loop: %w", ErrMissingTools)
	}
	l := &Loop{
		provider:       provider,
		tools:          tools,
		events:         noopEventSink{},
		tracer:         otel.Tracer(tracerName),
		recursionLimit: DefaultRecursionLimit,
		instruction:    DefaultSystemInstruction,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// RecursionLimit reports the configured number of tool round trips.
func (l *Loop) RecursionLimit() int {
	return l.recursionLimit
}

// run is the mutable state of one invocation.
type run struct {
	id            string
	state         State
	conversation  *conversation.Conversation
	providerCalls int
	roundTrips    int
	eventErr      error
}

func (r *run) result() Result {
	out := Result{
		RunID:         r.id,
		State:         r.state,
		ProviderCalls: r.providerCalls,
		RoundTrips:    r.roundTrips,
	}
	if r.conversation != nil {
		out.Messages = r.conversation.Messages()
	}
	return out
}

// Run executes one query. It returns ErrRecursionLimit when the provider
// still requests tools after the last permitted round trip, the context error
// on cancellation, and wrapped provider or tool failures otherwise. Event sink
// failures are joined into the returned error without changing the outcome.
func (l *Loop) Run(ctx context.Context, input Input) (Result, error) {
	r := &run{id: input.RunID}
	if r.id == "" {
		r.id = uuid.NewString()
	}
	if strings.TrimSpace(input.Query) == "" {
		return l.fail(ctx, r, ErrEmptyQuery)
	}

	ctx, span := l.tracer.Start(ctx, "orchestrator.run", trace.WithAttributes(
		attribute.String("search.run_id", r.id),
		attribute.Int("search.recursion_limit", l.recursionLimit),
	))
	defer span.End()

	result, err := l.execute(ctx, r, input.Query)
	span.SetAttributes(
		attribute.String("search.state", string(result.State)),
		attribute.Int("search.provider_calls", result.ProviderCalls),
		attribute.Int("search.round_trips", result.RoundTrips),
	)
	if err != nil && result.State != StateDone {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return result, err
}

func (l *Loop) execute(ctx context.Context, r *run, query string) (Result, error) {
	r.conversation = conversation.New(
		conversation.SystemMessage{Content: l.instruction},
		conversation.HumanMessage{Content: query},
	)
	if err := transition(&r.state, StateInvoking); err != nil {
		return l.fail(ctx, r, err)
	}
	r.eventErr = errors.Join(r.eventErr, publishEvent(ctx, l.events, Event{
		RunID:       r.id,
		Type:        EventTypeRunStarted,
		Description: fmt.Sprintf("recursion_limit=%d", l.recursionLimit),
	}))

	tools := l.tools.Definitions()
	for {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return l.cancel(ctx, r, ctxErr)
		}
		if open := r.conversation.Unanswered(); len(open) > 0 {
			return l.fail(ctx, r, fmt.Errorf("%w: id=%q name=%q", ErrUnansweredToolCall, open[0].ID, open[0].Name))
		}

		r.providerCalls++
		assistant, err := l.complete(ctx, Request{
			Messages: r.conversation.Messages(),
			Tools:    conversation.CloneToolDefinitions(tools),
		})
		if err != nil {
			if cancellationErr := contextCancellationError(ctx, err); cancellationErr != nil {
				return l.cancel(ctx, r, cancellationErr)
			}
			return l.fail(ctx, r, fmt.Errorf("complete: %w", err))
		}

		if !assistant.HasToolCalls() {
			if err := r.conversation.Append(assistant); err != nil {
				return l.fail(ctx, r, err)
			}
			r.publishAssistant(ctx, l.events, assistant)
			if err := transition(&r.state, StateDone); err != nil {
				return l.fail(ctx, r, err)
			}
			r.eventErr = errors.Join(r.eventErr, publishEvent(ctx, l.events, Event{
				RunID:       r.id,
				Step:        r.providerCalls,
				Type:        EventTypeRunCompleted,
				Description: "assistant returned a final answer",
			}))
			out := r.result()
			out.Output = assistant.Content
			return out, r.eventErr
		}

		if r.roundTrips >= l.recursionLimit {
			r.publishAssistant(ctx, l.events, assistant)
			return l.exhaust(ctx, r, len(assistant.ToolCalls))
		}

		assistant.ToolCalls = normalizeToolCalls(r.providerCalls, assistant.ToolCalls)
		if err := r.conversation.Append(assistant); err != nil {
			return l.fail(ctx, r, err)
		}
		r.publishAssistant(ctx, l.events, assistant)
		if err := transition(&r.state, StateToolDispatch); err != nil {
			return l.fail(ctx, r, err)
		}

		for _, call := range assistant.ToolCalls {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return l.cancel(ctx, r, ctxErr)
			}
			result, err := l.dispatch(ctx, call)
			if err != nil {
				if cancellationErr := contextCancellationError(ctx, err); cancellationErr != nil {
					return l.cancel(ctx, r, cancellationErr)
				}
				return l.fail(ctx, r, fmt.Errorf("dispatch %q: %w", call.Name, err))
			}
			if err := r.conversation.Append(result); err != nil {
				return l.fail(ctx, r, err)
			}
			resultCopy := result
			r.eventErr = errors.Join(r.eventErr, publishEvent(ctx, l.events, Event{
				RunID:      r.id,
				Step:       r.providerCalls,
				Type:       EventTypeToolResult,
				ToolResult: &resultCopy,
			}))
		}

		r.roundTrips++
		if err := transition(&r.state, StateInvoking); err != nil {
			return l.fail(ctx, r, err)
		}
	}
}

func (l *Loop) complete(ctx context.Context, request Request) (conversation.AssistantMessage, error) {
	ctx, span := l.tracer.Start(ctx, "provider.complete", trace.WithAttributes(
		attribute.Int("search.messages", len(request.Messages)),
	))
	defer span.End()

	assistant, err := l.provider.Complete(ctx, request)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return conversation.AssistantMessage{}, err
	}
	span.SetAttributes(attribute.Int("search.tool_calls", len(assistant.ToolCalls)))
	return conversation.CloneAssistantMessage(assistant), nil
}

func (l *Loop) dispatch(ctx context.Context, call conversation.ToolCall) (conversation.ToolResultMessage, error) {
	ctx, span := l.tracer.Start(ctx, "tool.dispatch", trace.WithAttributes(
		attribute.String("search.tool.name", call.Name),
		attribute.String("search.tool.call_id", call.ID),
	))
	defer span.End()

	result, err := l.tools.Dispatch(ctx, conversation.CloneToolCall(call))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return conversation.ToolResultMessage{}, err
	}
	if result.CallID == "" {
		result.CallID = call.ID
	}
	if result.Name == "" {
		result.Name = call.Name
	}
	if identityErr := validateResultIdentity(call, result); identityErr != nil {
		result = conversation.ToolResultMessage{
			CallID:  call.ID,
			Name:    call.Name,
			Content: "executor_error: " + identityErr.Error(),
			IsError: true,
		}
	}
	span.SetAttributes(attribute.Bool("search.tool.is_error", result.IsError))
	return result, nil
}

func (r *run) publishAssistant(ctx context.Context, sink EventSink, assistant conversation.AssistantMessage) {
	message := conversation.CloneAssistantMessage(assistant)
	r.eventErr = errors.Join(r.eventErr, publishEvent(ctx, sink, Event{
		RunID:   r.id,
		Step:    r.providerCalls,
		Type:    EventTypeAssistantMessage,
		Message: &message,
	}))
}

func (l *Loop) exhaust(ctx context.Context, r *run, requested int) (Result, error) {
	if err := transition(&r.state, StateExhausted); err != nil {
		return r.result(), errors.Join(ErrRecursionLimit, err, r.eventErr)
	}
	r.eventErr = errors.Join(r.eventErr, publishEvent(ctx, l.events, Event{
		RunID:       r.id,
		Step:        r.providerCalls,
		Type:        EventTypeRunExhausted,
		Description: fmt.Sprintf("round_trips=%d limit=%d pending_tool_calls=%d", r.roundTrips, l.recursionLimit, requested),
	}))
	return r.result(), errors.Join(ErrRecursionLimit, r.eventErr)
}

func (l *Loop) fail(ctx context.Context, r *run, runErr error) (Result, error) {
	if transitionErr := transition(&r.state, StateFailed); transitionErr != nil {
		return r.result(), errors.Join(runErr, transitionErr, r.eventErr)
	}
	r.eventErr = errors.Join(r.eventErr, publishEvent(ctx, l.events, Event{
		RunID:       r.id,
		Step:        r.providerCalls,
		Type:        EventTypeRunFailed,
		Description: runErr.Error(),
	}))
	return r.result(), errors.Join(runErr, r.eventErr)
}

func (l *Loop) cancel(ctx context.Context, r *run, runErr error) (Result, error) {
	if transitionErr := transition(&r.state, StateCancelled); transitionErr != nil {
		return r.result(), errors.Join(runErr, transitionErr, r.eventErr)
	}
	// The run context is already done; sinks still get the terminal event.
	r.eventErr = errors.Join(r.eventErr, publishEvent(context.WithoutCancel(ctx), l.events, Event{
		RunID:       r.id,
		Step:        r.providerCalls,
		Type:        EventTypeRunCancelled,
		Description: runErr.Error(),
	}))
	return r.result(), errors.Join(runErr, r.eventErr)
}

func contextCancellationError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	switch {
	case errors.Is(err, context.Canceled):
		return context.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return context.DeadlineExceeded
	default:
		return nil
	}
}

func validateResultIdentity(call conversation.ToolCall, result conversation.ToolResultMessage) error {
	if result.CallID != call.ID {
		return fmt.Errorf("tool result call id mismatch: got=%q want=%q", result.CallID, call.ID)
	}
	if result.Name != call.Name {
		return fmt.Errorf("tool result name mismatch: got=%q want=%q", result.Name, call.Name)
	}
	return nil
}

// normalizeToolCalls gives every call a unique, non-empty ID so each one can
// be answered by exactly one result.
func normalizeToolCalls(step int, calls []conversation.ToolCall) []conversation.ToolCall {
	out := make([]conversation.ToolCall, len(calls))
	seen := make(map[string]struct{}, len(calls))
	for _, call := range calls {
		if call.ID != "" {
			seen[call.ID] = struct{}{}
		}
	}
	claimed := make(map[string]struct{}, len(calls))
	for i, call := range calls {
		next := conversation.CloneToolCall(call)
		_, duplicate := claimed[next.ID]
		if next.ID == "" || duplicate {
			base := next.ID
			if base == "" {
				base = fmt.Sprintf("call_%d_%d", step, i)
			}
			candidate := base
			for suffix := 1; ; suffix++ {
				_, taken := seen[candidate]
				_, used := claimed[candidate]
				if !taken && !used {
					break
				}
				candidate = fmt.Sprintf("%s_%d", base, suffix)
			}
			next.ID = candidate
			seen[candidate] = struct{}{}
		}
		claimed[next.ID] = struct{}{}
		out[i] = next
	}
	return out
}
