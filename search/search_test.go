package search_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/OmDoke/Book-Inventory-Management-System/adapters/providertest"
	"github.com/OmDoke/Book-Inventory-Management-System/answer"
	"github.com/OmDoke/Book-Inventory-Management-System/booksearch"
	"github.com/OmDoke/Book-Inventory-Management-System/catalog/catalogtest"
	"github.com/OmDoke/Book-Inventory-Management-System/catalog/inmem"
	"github.com/OmDoke/Book-Inventory-Management-System/conversation"
	"github.com/OmDoke/Book-Inventory-Management-System/orchestrator"
	"github.com/OmDoke/Book-Inventory-Management-System/search"
	"github.com/OmDoke/Book-Inventory-Management-System/tooling"
)

type runnerFunc func(context.Context, orchestrator.Input) (orchestrator.Result, error)

func (f runnerFunc) Run(ctx context.Context, input orchestrator.Input) (orchestrator.Result, error) {
	return f(ctx, input)
}

type providerFunc func(context.Context, orchestrator.Request) (conversation.AssistantMessage, error)

func (f providerFunc) Complete(ctx context.Context, request orchestrator.Request) (conversation.AssistantMessage, error) {
	return f(ctx, request)
}

func newLoop(t *testing.T, provider orchestrator.Provider) *orchestrator.Loop {
	t.Helper()
	searcher, err := booksearch.New(inmem.New(catalogtest.Fixtures()...))
	if err != nil {
		t.Fatalf("new searcher: %v", err)
	}
	registry, err := tooling.New(searcher.Search)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	loop, err := orchestrator.New(provider, registry)
	if err != nil {
		t.Fatalf("new loop: %v", err)
	}
	return loop
}

func newService(t *testing.T, runner search.Runner, opts ...search.Option) (*search.Service, *bytes.Buffer) {
	t.Helper()
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	opts = append([]search.Option{search.WithLogger(logger)}, opts...)
	service, err := search.New(runner, opts...)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return service, &logs
}

func assertFailSafe(t *testing.T, got answer.FinalAnswer) {
	t.Helper()
	if got.Status != answer.StatusSuccess || got.Type != answer.TypeBook || got.Count != 0 || got.Results == nil || len(got.Results) != 0 {
		t.Fatalf("expected fail-safe answer, got %+v", got)
	}
}

func TestNew_RequiresRunner(t *testing.T) {
	t.Parallel()

	if _, err := search.New(nil); !errors.Is(err, search.ErrNilRunner) {
		t.Fatalf("expected ErrNilRunner, got %v", err)
	}
}

func TestSearch_RejectsBlankQuery(t *testing.T) {
	t.Parallel()

	called := false
	service, _ := newService(t, runnerFunc(func(context.Context, orchestrator.Input) (orchestrator.Result, error) {
		called = true
		return orchestrator.Result{}, nil
	}))
	for _, query := range []string{"", "   ", "\n\t"} {
		if _, err := service.Search(context.Background(), query); !errors.Is(err, search.ErrQueryRequired) {
			t.Fatalf("query %q: expected ErrQueryRequired, got %v", query, err)
		}
	}
	if called {
		t.Fatal("runner must not be invoked for blank queries")
	}
}

func TestSearch_ReturnsParsedAnswer(t *testing.T) {
	t.Parallel()

	content := `{"status":"success","intent":"search","type":"book","count":1,"results":[{"title":"Circe","authorName":"Madeline Miller","publishedDate":"2018-12-31T00:00:00Z","publisher":"Little, Brown","genre":"Fantasy","price":15,"overview":"","posterUrl":""}]}`
	provider := providertest.NewScriptedProvider(
		providertest.Calls(conversation.ToolCall{ID: "c1", Name: "searchBooks", Arguments: map[string]any{"title": "circe"}}),
		providertest.Final(content),
	)
	service, _ := newService(t, newLoop(t, provider))

	got, err := service.Search(context.Background(), "  the book circe  ")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if got.Count != 1 || got.Results[0].Title != "Circe" || got.Intent != answer.IntentSearch {
		t.Fatalf("unexpected answer: %+v", got)
	}
	requests := provider.Requests()
	if human := requests[0].Messages[1].Text(); human != "the book circe" {
		t.Fatalf("query should be trimmed: got=%q", human)
	}
}

func TestSearch_ProseDegradesToFailSafe(t *testing.T) {
	t.Parallel()

	provider := providertest.NewScriptedProvider(providertest.Final("Here are some great books for you!"))
	service, logs := newService(t, newLoop(t, provider))

	got, err := service.Search(context.Background(), "recommend something")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	assertFailSafe(t, got)
	if !strings.Contains(logs.String(), "final message rejected") {
		t.Fatalf("expected warn log, got %q", logs.String())
	}
}

func TestSearch_RecursionLimitDegradesToFailSafe(t *testing.T) {
	t.Parallel()

	responses := make([]providertest.Response, 0, orchestrator.DefaultRecursionLimit+1)
	for i := 0; i <= orchestrator.DefaultRecursionLimit; i++ {
		responses = append(responses, providertest.Calls(conversation.ToolCall{
			ID:        fmt.Sprintf("call_%d", i),
			Name:      "searchBooks",
			Arguments: map[string]any{"genre": "fiction"},
		}))
	}
	provider := providertest.NewScriptedProvider(responses...)
	service, logs := newService(t, newLoop(t, provider))

	got, err := service.Search(context.Background(), "keep searching")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	assertFailSafe(t, got)
	if provider.Calls() != orchestrator.DefaultRecursionLimit+1 {
		t.Fatalf("unexpected provider calls: got=%d want=%d", provider.Calls(), orchestrator.DefaultRecursionLimit+1)
	}
	if !strings.Contains(logs.String(), "recursion limit") {
		t.Fatalf("expected warn log, got %q", logs.String())
	}
}

func TestSearch_MalformedTurnDegradesToFailSafe(t *testing.T) {
	t.Parallel()

	provider := providertest.NewScriptedProvider(providertest.Failure(fmt.Errorf("decode: %w", orchestrator.ErrMalformedTurn)))
	service, _ := newService(t, newLoop(t, provider))

	got, err := service.Search(context.Background(), "books")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	assertFailSafe(t, got)
}

func TestSearch_ProviderFailurePropagates(t *testing.T) {
	t.Parallel()

	upstream := errors.New("connection refused")
	provider := providertest.NewScriptedProvider(providertest.Failure(upstream))
	service, _ := newService(t, newLoop(t, provider))

	if _, err := service.Search(context.Background(), "books"); !errors.Is(err, upstream) {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestSearch_DeadlineDegradesToFailSafe(t *testing.T) {
	t.Parallel()

	blocking := providerFunc(func(ctx context.Context, _ orchestrator.Request) (conversation.AssistantMessage, error) {
		<-ctx.Done()
		return conversation.AssistantMessage{}, ctx.Err()
	})
	service, logs := newService(t, newLoop(t, blocking), search.WithTimeout(20*time.Millisecond))

	got, err := service.Search(context.Background(), "slow books")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	assertFailSafe(t, got)
	if !strings.Contains(logs.String(), "deadline expired") {
		t.Fatalf("expected warn log, got %q", logs.String())
	}
}

func TestSearch_InboundCancellationIsAnError(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	service, _ := newService(t, newLoop(t, providertest.NewScriptedProvider()), search.WithTimeout(time.Minute))

	if _, err := service.Search(ctx, "books"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSearch_EventFailureOnCompletedRunIsNotFatal(t *testing.T) {
	t.Parallel()

	runner := runnerFunc(func(_ context.Context, input orchestrator.Input) (orchestrator.Result, error) {
		if input.RunID == "" {
			t.Error("run id should be assigned")
		}
		return orchestrator.Result{
			RunID:  input.RunID,
			State:  orchestrator.StateDone,
			Output: `{"status":"success","type":"book","count":0,"results":[]}`,
		}, fmt.Errorf("%w: sink down", orchestrator.ErrEventPublish)
	})
	service, logs := newService(t, runner)

	got, err := service.Search(context.Background(), "anything")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	assertFailSafe(t, got)
	if !strings.Contains(logs.String(), "event delivery failed") {
		t.Fatalf("expected warn log, got %q", logs.String())
	}
}
