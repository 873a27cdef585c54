package inmem_test

import (
	"context"
	"errors"
	"testing"

	"github.com/OmDoke/Book-Inventory-Management-System/conversation"
	eventinginmem "github.com/OmDoke/Book-Inventory-Management-System/eventing/inmem"
	"github.com/OmDoke/Book-Inventory-Management-System/orchestrator"
)

func TestSink_EventsReturnsDeepClonedSnapshot(t *testing.T) {
	t.Parallel()

	sink := eventinginmem.New()
	message := conversation.AssistantMessage{
		Content:   "thinking",
		ToolCalls: []conversation.ToolCall{{ID: "call-1", Name: "searchBooks", Arguments: map[string]any{"genre": "fantasy"}}},
	}
	toolResult := conversation.ToolResultMessage{CallID: "call-1", Name: "searchBooks", Content: "result"}

	input := orchestrator.Event{
		RunID:      "run-1",
		Step:       1,
		Type:       orchestrator.EventTypeAssistantMessage,
		Message:    &message,
		ToolResult: &toolResult,
	}
	if err := sink.Publish(context.Background(), input); err != nil {
		t.Fatalf("publish event: %v", err)
	}

	input.Message.Content = "mutated"
	input.Message.ToolCalls[0].Arguments["genre"] = "mutated"
	input.ToolResult.Content = "mutated"

	snapshot := sink.Events()
	if len(snapshot) != 1 {
		t.Fatalf("unexpected snapshot length: %d", len(snapshot))
	}
	if snapshot[0].Message == nil || snapshot[0].Message.Content != "thinking" {
		t.Fatalf("unexpected message snapshot: %+v", snapshot[0].Message)
	}
	if got := snapshot[0].Message.ToolCalls[0].Arguments["genre"]; got != "fantasy" {
		t.Fatalf("tool call arguments leaked: got=%v want=fantasy", got)
	}
	if snapshot[0].ToolResult == nil || snapshot[0].ToolResult.Content != "result" {
		t.Fatalf("unexpected tool result snapshot: %+v", snapshot[0].ToolResult)
	}

	snapshot[0].Message.Content = "changed"
	snapshot[0].ToolResult.Content = "changed"

	next := sink.Events()
	if next[0].Message.Content != "thinking" {
		t.Fatalf("snapshot mutation leaked into sink message: %+v", next[0].Message)
	}
	if next[0].ToolResult.Content != "result" {
		t.Fatalf("snapshot mutation leaked into sink tool result: %+v", next[0].ToolResult)
	}
}

func TestSink_RejectsInvalidEvents(t *testing.T) {
	t.Parallel()

	sink := eventinginmem.New()
	err := sink.Publish(context.Background(), orchestrator.Event{RunID: "run-1", Type: orchestrator.EventTypeToolResult})
	if !errors.Is(err, orchestrator.ErrEventInvalid) {
		t.Fatalf("expected ErrEventInvalid, got %v", err)
	}
	if len(sink.Events()) != 0 {
		t.Fatalf("invalid event was recorded")
	}
}

func TestSink_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := eventinginmem.New()
	err := sink.Publish(ctx, orchestrator.Event{RunID: "run-1", Type: orchestrator.EventTypeRunStarted})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
