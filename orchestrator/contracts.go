package orchestrator

import (
	"context"

	"github.com/OmDoke/Book-Inventory-Management-System/conversation"
)

// Request is the provider input for one turn: the full transcript plus the tool declarations.
type Request struct {
	Messages []conversation.Message
	Tools    []conversation.ToolDefinition
}

// Provider produces the next assistant turn. Implementations are stateless per call.
type Provider interface {
	Complete(ctx context.Context, request Request) (conversation.AssistantMessage, error)
}

// ToolDispatcher declares the callable tools and executes one call at a time.
// A nil error means the returned result answers call.
type ToolDispatcher interface {
	Definitions() []conversation.ToolDefinition
	Dispatch(ctx context.Context, call conversation.ToolCall) (conversation.ToolResultMessage, error)
}

// EventSink receives loop events.
type EventSink interface {
	Publish(ctx context.Context, event Event) error
}
