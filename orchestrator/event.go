package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/OmDoke/Book-Inventory-Management-System/conversation"
)

// EventType names what happened inside one loop invocation.
type EventType string

const (
	EventTypeRunStarted       EventType = "run_started"
	EventTypeAssistantMessage EventType = "assistant_message"
	EventTypeToolResult       EventType = "tool_result"
	EventTypeRunCompleted     EventType = "run_completed"
	EventTypeRunExhausted     EventType = "run_exhausted"
	EventTypeRunFailed        EventType = "run_failed"
	EventTypeRunCancelled     EventType = "run_cancelled"
)

// Event is compact so sinks can map it to logs or metrics.
// Step is the 1-based provider call the event belongs to; 0 before the first call.
type Event struct {
	RunID       string                          `json:"run_id"`
	Step        int                             `json:"step"`
	Type        EventType                       `json:"type"`
	Message     *conversation.AssistantMessage  `json:"message,omitempty"`
	ToolResult  *conversation.ToolResultMessage `json:"tool_result,omitempty"`
	Description string                          `json:"description,omitempty"`
}

// ValidateEvent checks payload invariants before an event is published.
func ValidateEvent(event Event) error {
	if event.Type == "" {
		return fmt.Errorf("%w: field=type reason=empty", ErrEventInvalid)
	}
	if event.RunID == "" {
		return fmt.Errorf("%w: field=run_id reason=empty type=%s", ErrEventInvalid, event.Type)
	}
	if event.Step < 0 {
		return fmt.Errorf("%w: field=step reason=negative value=%d type=%s", ErrEventInvalid, event.Step, event.Type)
	}
	switch event.Type {
	case EventTypeAssistantMessage:
		if event.Message == nil {
			return fmt.Errorf("%w: field=message reason=nil type=%s run_id=%q", ErrEventInvalid, event.Type, event.RunID)
		}
	case EventTypeToolResult:
		if event.ToolResult == nil {
			return fmt.Errorf("%w: field=tool_result reason=nil type=%s run_id=%q", ErrEventInvalid, event.Type, event.RunID)
		}
		if event.ToolResult.CallID == "" {
			return fmt.Errorf("%w: field=tool_result.call_id reason=empty type=%s run_id=%q", ErrEventInvalid, event.Type, event.RunID)
		}
	}
	return nil
}

// CloneEvent returns a copy that shares no message payloads with in.
func CloneEvent(in Event) Event {
	out := in
	if in.Message != nil {
		message := conversation.CloneAssistantMessage(*in.Message)
		out.Message = &message
	}
	if in.ToolResult != nil {
		result := *in.ToolResult
		out.ToolResult = &result
	}
	return out
}

func publishEvent(ctx context.Context, sink EventSink, event Event) error {
	if err := ValidateEvent(event); err != nil {
		return err
	}
	if err := sink.Publish(ctx, event); err != nil {
		return errors.Join(
			ErrEventPublish,
			fmt.Errorf("type=%s run_id=%s step=%d: %w", event.Type, event.RunID, event.Step, err),
		)
	}
	return nil
}

type noopEventSink struct{}

func (noopEventSink) Publish(context.Context, Event) error {
	return nil
}
