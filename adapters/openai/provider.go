// Package openai binds the search loop to an OpenAI-compatible chat
// completions endpoint. Groq serves this API and is the default target.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/OmDoke/Book-Inventory-Management-System/conversation"
	"github.com/OmDoke/Book-Inventory-Management-System/orchestrator"
)

const (
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	DefaultModel   = "llama-3.1-8b-instant"

	defaultEndpoint = "/chat/completions"
	defaultTimeout  = 30 * time.Second
	maxResponseSize = 2 << 20
)

var (
	ErrAPIKeyRequired = errors.New("provider api key is required")
)

// Config configures a Provider. RateLimit is requests per second; zero disables limiting.
type Config struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
	RateLimit  float64
	RateBurst  int
}

// StatusError is a non-2xx response from the endpoint.
type StatusError struct {
	StatusCode int
	Code       string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("provider response status=%d code=%s body=%s", e.StatusCode, e.Code, e.Body)
	}
	return fmt.Sprintf("provider response status=%d body=%s", e.StatusCode, e.Body)
}

// Provider implements orchestrator.Provider over HTTP.
type Provider struct {
	apiKey      string
	model       string
	endpointURL string
	httpClient  *http.Client
	limiter     *rate.Limiter
}

var _ orchestrator.Provider = (*Provider)(nil)

func New(cfg Config) (*Provider, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("new provider: %w", ErrAPIKeyRequired)
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Provider{
		apiKey:      apiKey,
		model:       model,
		endpointURL: strings.TrimRight(baseURL, "/") + defaultEndpoint,
		httpClient:  httpClient,
		limiter:     limiter,
	}, nil
}

// Model reports the model name sent with every request.
func (p *Provider) Model() string {
	return p.model
}

func (p *Provider) Complete(ctx context.Context, request orchestrator.Request) (conversation.AssistantMessage, error) {
	payload, err := buildRequest(p.model, request)
	if err != nil {
		return conversation.AssistantMessage{}, fmt.Errorf("provider request: %w", err)
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return conversation.AssistantMessage{}, fmt.Errorf("provider request encode: %w", err)
	}

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return conversation.AssistantMessage{}, fmt.Errorf("provider rate limit: %w", err)
		}
	}

	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpointURL, bytes.NewReader(encoded))
	if err != nil {
		return conversation.AssistantMessage{}, fmt.Errorf("provider request build: %w", err)
	}
	httpRequest.Header.Set("Authorization", "Bearer "+p.apiKey)
	httpRequest.Header.Set("Content-Type", "application/json")

	response, err := p.httpClient.Do(httpRequest)
	if err != nil {
		return conversation.AssistantMessage{}, fmt.Errorf("provider request execute: %w", err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, maxResponseSize))
	if err != nil {
		return conversation.AssistantMessage{}, fmt.Errorf("provider response read: %w", err)
	}

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		statusErr := &StatusError{
			StatusCode: response.StatusCode,
			Code:       errorCode(body),
			Body:       string(body),
		}
		// The model produced a tool call the endpoint itself could not parse.
		if statusErr.Code == "tool_use_failed" {
			return conversation.AssistantMessage{}, errors.Join(orchestrator.ErrMalformedTurn, statusErr)
		}
		return conversation.AssistantMessage{}, statusErr
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return conversation.AssistantMessage{}, fmt.Errorf("provider response decode: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return conversation.AssistantMessage{}, errors.New("provider response decode: no choices")
	}

	message, err := toAssistantMessage(parsed.Choices[0].Message)
	if err != nil {
		return conversation.AssistantMessage{}, fmt.Errorf("provider response decode: %w: %w", orchestrator.ErrMalformedTurn, err)
	}
	return message, nil
}

// IsRetryable reports whether err is worth another attempt: transport
// failures, rate limiting and server errors.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, orchestrator.ErrMalformedTurn) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusTooManyRequests || statusErr.StatusCode >= http.StatusInternalServerError
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Tools    []chatTool    `json:"tools,omitempty"`
}

type chatCompletionResponse struct {
	Choices []chatChoice `json:"choices"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

type chatMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content,omitempty"`
	Name       string         `json:"name,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	ToolCalls  []chatToolCall `json:"tool_calls,omitempty"`
}

type chatTool struct {
	Type     string           `json:"type"`
	Function chatToolFunction `json:"function"`
}

type chatToolCall struct {
	ID       string               `json:"id"`
	Type     string               `json:"type"`
	Function chatToolCallFunction `json:"function"`
}

type chatToolFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type chatToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments,omitempty"`
}

type errorEnvelope struct {
	Error struct {
		Code string `json:"code"`
	} `json:"error"`
}

func errorCode(body []byte) string {
	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	return envelope.Error.Code
}

func buildRequest(model string, request orchestrator.Request) (chatCompletionRequest, error) {
	messages := make([]chatMessage, len(request.Messages))
	for i := range request.Messages {
		converted, err := toChatMessage(request.Messages[i])
		if err != nil {
			return chatCompletionRequest{}, fmt.Errorf("message %d: %w", i, err)
		}
		messages[i] = converted
	}

	tools := make([]chatTool, len(request.Tools))
	for i := range request.Tools {
		tools[i] = chatTool{
			Type: "function",
			Function: chatToolFunction{
				Name:        request.Tools[i].Name,
				Description: request.Tools[i].Description,
				Parameters:  request.Tools[i].InputSchema,
			},
		}
	}

	return chatCompletionRequest{
		Model:    model,
		Messages: messages,
		Tools:    tools,
	}, nil
}

func toChatMessage(message conversation.Message) (chatMessage, error) {
	switch m := message.(type) {
	case conversation.SystemMessage:
		return chatMessage{Role: "system", Content: m.Content}, nil
	case conversation.HumanMessage:
		return chatMessage{Role: "user", Content: m.Content}, nil
	case conversation.AssistantMessage:
		toolCalls := make([]chatToolCall, len(m.ToolCalls))
		for i, call := range m.ToolCalls {
			arguments := "{}"
			if len(call.Arguments) > 0 {
				encoded, err := json.Marshal(call.Arguments)
				if err != nil {
					return chatMessage{}, fmt.Errorf("encode tool call arguments: %w", err)
				}
				arguments = string(encoded)
			}
			toolCalls[i] = chatToolCall{
				ID:   call.ID,
				Type: "function",
				Function: chatToolCallFunction{
					Name:      call.Name,
					Arguments: arguments,
				},
			}
		}
		return chatMessage{Role: "assistant", Content: m.Content, ToolCalls: toolCalls}, nil
	case conversation.ToolResultMessage:
		if strings.TrimSpace(m.CallID) == "" {
			return chatMessage{}, errors.New("tool message missing tool_call_id")
		}
		return chatMessage{Role: "tool", Content: m.Content, Name: m.Name, ToolCallID: m.CallID}, nil
	default:
		return chatMessage{}, fmt.Errorf("unsupported message type %T", message)
	}
}

func toAssistantMessage(message chatMessage) (conversation.AssistantMessage, error) {
	if message.Role != "assistant" {
		return conversation.AssistantMessage{}, fmt.Errorf("expected assistant message role, got %q", message.Role)
	}

	var toolCalls []conversation.ToolCall
	if len(message.ToolCalls) > 0 {
		toolCalls = make([]conversation.ToolCall, len(message.ToolCalls))
	}
	for i, call := range message.ToolCalls {
		arguments := map[string]any{}
		if strings.TrimSpace(call.Function.Arguments) != "" {
			if err := json.Unmarshal([]byte(call.Function.Arguments), &arguments); err != nil {
				return conversation.AssistantMessage{}, fmt.Errorf("decode tool call arguments for %q: %w", call.Function.Name, err)
			}
		}
		toolCalls[i] = conversation.ToolCall{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: arguments,
		}
	}

	return conversation.AssistantMessage{
		Content:   message.Content,
		ToolCalls: toolCalls,
	}, nil
}
