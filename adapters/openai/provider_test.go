package openai_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/OmDoke/Book-Inventory-Management-System/adapters/openai"
	"github.com/OmDoke/Book-Inventory-Management-System/conversation"
	"github.com/OmDoke/Book-Inventory-Management-System/orchestrator"
)

func searchRequest() orchestrator.Request {
	return orchestrator.Request{
		Messages: []conversation.Message{
			conversation.SystemMessage{Content: "system"},
			conversation.HumanMessage{Content: "fiction from 2015 to 2018"},
			conversation.AssistantMessage{ToolCalls: []conversation.ToolCall{{
				ID:        "call_1",
				Name:      "searchBooks",
				Arguments: map[string]any{"genre": "fiction"},
			}}},
			conversation.ToolResultMessage{CallID: "call_1", Name: "searchBooks", Content: `{"status":"success","count":0,"results":[]}`},
		},
		Tools: []conversation.ToolDefinition{{
			Name:        "searchBooks",
			Description: "Search for books",
			InputSchema: map[string]any{"type": "object"},
		}},
	}
}

func TestNew_RequiresAPIKey(t *testing.T) {
	t.Parallel()

	if _, err := openai.New(openai.Config{APIKey: "  "}); !errors.Is(err, openai.ErrAPIKeyRequired) {
		t.Fatalf("expected ErrAPIKeyRequired, got %v", err)
	}
	provider, err := openai.New(openai.Config{APIKey: "key"})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	if got := provider.Model(); got != openai.DefaultModel {
		t.Fatalf("unexpected default model: got=%q want=%q", got, openai.DefaultModel)
	}
}

func TestComplete_EncodesConversationAndDecodesToolCalls(t *testing.T) {
	t.Parallel()

	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected authorization header: %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"","tool_calls":[{"id":"call_2","type":"function","function":{"name":"searchBooks","arguments":"{\"publishedDate\":{\"from\":2015,\"to\":2018}}"}}]}}]}`)
	}))
	defer server.Close()

	provider, err := openai.New(openai.Config{
		APIKey:     "test-key",
		Model:      "test-model",
		BaseURL:    server.URL + "/v1/",
		HTTPClient: server.Client(),
	})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}

	message, err := provider.Complete(context.Background(), searchRequest())
	if err != nil {
		t.Fatalf("complete returned error: %v", err)
	}

	if captured["model"] != "test-model" {
		t.Fatalf("unexpected model: %v", captured["model"])
	}
	messages, _ := captured["messages"].([]any)
	if len(messages) != 4 {
		t.Fatalf("unexpected message count: got=%d want=4", len(messages))
	}
	wantRoles := []string{"system", "user", "assistant", "tool"}
	for i, raw := range messages {
		entry := raw.(map[string]any)
		if entry["role"] != wantRoles[i] {
			t.Fatalf("unexpected role at %d: got=%v want=%s", i, entry["role"], wantRoles[i])
		}
	}
	toolMessage := messages[3].(map[string]any)
	if toolMessage["tool_call_id"] != "call_1" {
		t.Fatalf("unexpected tool_call_id: %v", toolMessage["tool_call_id"])
	}
	assistant := messages[2].(map[string]any)
	calls := assistant["tool_calls"].([]any)
	function := calls[0].(map[string]any)["function"].(map[string]any)
	if function["arguments"] != `{"genre":"fiction"}` {
		t.Fatalf("arguments should be a JSON string, got %v", function["arguments"])
	}
	tools, _ := captured["tools"].([]any)
	if len(tools) != 1 {
		t.Fatalf("unexpected tool count: %d", len(tools))
	}

	if len(message.ToolCalls) != 1 {
		t.Fatalf("unexpected tool calls: %+v", message.ToolCalls)
	}
	call := message.ToolCalls[0]
	if call.ID != "call_2" || call.Name != "searchBooks" {
		t.Fatalf("unexpected tool call: %+v", call)
	}
	published, ok := call.Arguments["publishedDate"].(map[string]any)
	if !ok || published["from"] != float64(2015) || published["to"] != float64(2018) {
		t.Fatalf("unexpected decoded arguments: %+v", call.Arguments)
	}
}

func TestComplete_FinalContent(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"{\"status\":\"success\",\"count\":0,\"results\":[]}"}}]}`)
	}))
	defer server.Close()

	provider, err := openai.New(openai.Config{APIKey: "k", BaseURL: server.URL, HTTPClient: server.Client()})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	message, err := provider.Complete(context.Background(), searchRequest())
	if err != nil {
		t.Fatalf("complete returned error: %v", err)
	}
	if message.HasToolCalls() {
		t.Fatalf("expected no tool calls, got %+v", message.ToolCalls)
	}
	if message.Content != `{"status":"success","count":0,"results":[]}` {
		t.Fatalf("unexpected content: %q", message.Content)
	}
}

func TestComplete_StatusErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		status    int
		body      string
		retryable bool
		malformed bool
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, body: `{"error":{"code":"rate_limit_exceeded"}}`, retryable: true},
		{name: "server error", status: http.StatusBadGateway, body: `upstream`, retryable: true},
		{name: "bad request", status: http.StatusBadRequest, body: `{"error":{"code":"invalid_request"}}`},
		{name: "tool use failed", status: http.StatusBadRequest, body: `{"error":{"code":"tool_use_failed","failed_generation":"<function=searchBooks>"}}`, malformed: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			}))
			defer server.Close()

			provider, err := openai.New(openai.Config{APIKey: "k", BaseURL: server.URL, HTTPClient: server.Client()})
			if err != nil {
				t.Fatalf("new provider: %v", err)
			}
			_, err = provider.Complete(context.Background(), searchRequest())
			var statusErr *openai.StatusError
			if !errors.As(err, &statusErr) || statusErr.StatusCode != tc.status {
				t.Fatalf("expected status error %d, got %v", tc.status, err)
			}
			if got := openai.IsRetryable(err); got != tc.retryable {
				t.Fatalf("unexpected retryable: got=%t want=%t", got, tc.retryable)
			}
			if got := errors.Is(err, orchestrator.ErrMalformedTurn); got != tc.malformed {
				t.Fatalf("unexpected malformed: got=%t want=%t", got, tc.malformed)
			}
		})
	}
}

func TestComplete_UndecodableArgumentsAreMalformed(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"choices":[{"message":{"role":"assistant","tool_calls":[{"id":"c","type":"function","function":{"name":"searchBooks","arguments":"{genre: fiction"}}]}}]}`)
	}))
	defer server.Close()

	provider, err := openai.New(openai.Config{APIKey: "k", BaseURL: server.URL, HTTPClient: server.Client()})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	_, err = provider.Complete(context.Background(), searchRequest())
	if !errors.Is(err, orchestrator.ErrMalformedTurn) {
		t.Fatalf("expected ErrMalformedTurn, got %v", err)
	}
	if openai.IsRetryable(err) {
		t.Fatal("malformed turns should not be retried")
	}
}

func TestComplete_RateLimiterHonoursContext(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`)
	}))
	defer server.Close()

	provider, err := openai.New(openai.Config{
		APIKey:     "k",
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
		RateLimit:  0.001,
		RateBurst:  1,
	})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	if _, err := provider.Complete(context.Background(), searchRequest()); err != nil {
		t.Fatalf("first call should use the burst: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := provider.Complete(ctx, searchRequest()); err == nil {
		t.Fatal("expected rate limiter to fail on canceled context")
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("unexpected upstream calls: got=%d want=1", got)
	}
}

func TestIsRetryable_ContextErrors(t *testing.T) {
	t.Parallel()

	if openai.IsRetryable(context.DeadlineExceeded) {
		t.Fatal("deadline errors should not be retried")
	}
	if openai.IsRetryable(nil) {
		t.Fatal("nil is not retryable")
	}
}
