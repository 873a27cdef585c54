// Package providertest offers a deterministic completion provider for tests.
package providertest

import (
	"context"
	"fmt"
	"sync"

	"github.com/OmDoke/Book-Inventory-Management-System/conversation"
	"github.com/OmDoke/Book-Inventory-Management-System/orchestrator"
)

// Response configures one provider turn in a scripted sequence.
type Response struct {
	Message conversation.AssistantMessage
	Err     error
}

// Final is a turn with no tool calls.
func Final(content string) Response {
	return Response{Message: conversation.AssistantMessage{Content: content}}
}

// Calls is a turn requesting the given tool calls.
func Calls(calls ...conversation.ToolCall) Response {
	return Response{Message: conversation.AssistantMessage{ToolCalls: calls}}
}

// Failure is a turn that fails with err.
func Failure(err error) Response {
	return Response{Err: err}
}

// ScriptedProvider replays responses in order and records every request.
type ScriptedProvider struct {
	mu        sync.Mutex
	index     int
	responses []Response
	requests  []orchestrator.Request
}

func NewScriptedProvider(responses ...Response) *ScriptedProvider {
	cloned := make([]Response, len(responses))
	copy(cloned, responses)
	return &ScriptedProvider{
		responses: cloned,
	}
}

var _ orchestrator.Provider = (*ScriptedProvider)(nil)

func (p *ScriptedProvider) Complete(ctx context.Context, request orchestrator.Request) (conversation.AssistantMessage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.requests = append(p.requests, orchestrator.Request{
		Messages: conversation.CloneMessages(request.Messages),
		Tools:    conversation.CloneToolDefinitions(request.Tools),
	})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return conversation.AssistantMessage{}, ctxErr
	}
	if p.index >= len(p.responses) {
		return conversation.AssistantMessage{}, fmt.Errorf("script exhausted at call %d", p.index+1)
	}
	current := p.responses[p.index]
	p.index++
	if current.Err != nil {
		return conversation.AssistantMessage{}, current.Err
	}
	return conversation.CloneAssistantMessage(current.Message), nil
}

// Calls returns how many times Complete was invoked.
func (p *ScriptedProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

// Requests returns copies of every request received.
func (p *ScriptedProvider) Requests() []orchestrator.Request {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]orchestrator.Request, len(p.requests))
	for i, request := range p.requests {
		out[i] = orchestrator.Request{
			Messages: conversation.CloneMessages(request.Messages),
			Tools:    conversation.CloneToolDefinitions(request.Tools),
		}
	}
	return out
}
