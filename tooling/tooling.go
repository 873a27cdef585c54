// Package tooling is the closed set of tools the search model may call.
//
// Tool names form an enumeration; each name has one typed handler and one
// declared input schema. Dispatch is a total switch over the enumeration with
// an explicit arm for names the model invents.
package tooling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/OmDoke/Book-Inventory-Management-System/answer"
	"github.com/OmDoke/Book-Inventory-Management-System/booksearch"
	"github.com/OmDoke/Book-Inventory-Management-System/conversation"
)

// Name identifies a tool.
type Name string

const (
	SearchBooks Name = "searchBooks"
)

// Names lists every known tool.
func Names() []Name {
	return []Name{SearchBooks}
}

// FailureReason classifies an error tool result.
type FailureReason string

const (
	FailureUnknownTool      FailureReason = "unknown_tool"
	FailureInvalidArguments FailureReason = "invalid_arguments"
)

var (
	ErrNilHandler       = errors.New("tool handler is nil")
	ErrUnknownTool      = errors.New("tool is not registered")
	ErrInvalidArguments = errors.New("tool arguments are invalid")
)

const (
	minYear = 1
	maxYear = 9999
)

// SearchBooksFunc runs a structured catalog search.
type SearchBooksFunc func(ctx context.Context, filter booksearch.Filter) (answer.FinalAnswer, error)

// Registry binds every tool name to its handler.
type Registry struct {
	searchBooks SearchBooksFunc
	logger      *slog.Logger
}

// Option customises a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for dispatch warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func New(searchBooks SearchBooksFunc, opts ...Option) (*Registry, error) {
	if searchBooks == nil {
		return nil, fmt.Errorf("%w: %q", ErrNilHandler, SearchBooks)
	}
	r := &Registry{
		searchBooks: searchBooks,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Definitions returns the tool declarations sent to the provider.
func (r *Registry) Definitions() []conversation.ToolDefinition {
	return []conversation.ToolDefinition{searchBooksDefinition()}
}

func searchBooksDefinition() conversation.ToolDefinition {
	text := func(description string) map[string]any {
		return map[string]any{"type": "string", "description": description}
	}
	return conversation.ToolDefinition{
		Name:        string(SearchBooks),
		Description: "Search for books by title, authorName, genre, publisher & publishedDate year",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"title":      text("The title of the book to search for"),
				"authorName": text("The author name of the book to search for"),
				"genre":      text("The genre of the book to search for"),
				"publisher":  text("The publisher of the book to search for"),
				"publishedDate": map[string]any{
					"type":        "object",
					"description": "The published date year range of the books to search for",
					"properties": map[string]any{
						"from": map[string]any{"type": "integer", "description": "Start year (e.g., 2015)"},
						"to":   map[string]any{"type": "integer", "description": "End year (e.g., 2018)"},
					},
				},
			},
		},
	}
}

// Dispatch executes one tool call and always returns a result paired with
// call.ID when err is nil. Unknown names and invalid arguments produce error
// results; handler failures are returned as errors.
func (r *Registry) Dispatch(ctx context.Context, call conversation.ToolCall) (conversation.ToolResultMessage, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return conversation.ToolResultMessage{}, ctxErr
	}

	switch Name(call.Name) {
	case SearchBooks:
		filter, err := decodeSearchBooks(call.Arguments)
		if err != nil {
			r.logger.Warn("tool arguments rejected",
				slog.String("tool", call.Name),
				slog.String("call_id", call.ID),
				slog.Any("error", err),
			)
			return errorResult(call, FailureInvalidArguments, err), nil
		}
		result, err := r.searchBooks(ctx, filter)
		if err != nil {
			return conversation.ToolResultMessage{}, fmt.Errorf("tool %q: %w", call.Name, err)
		}
		content, err := result.Encode()
		if err != nil {
			return conversation.ToolResultMessage{}, fmt.Errorf("tool %q: %w", call.Name, err)
		}
		return conversation.ToolResultMessage{
			CallID:  call.ID,
			Name:    call.Name,
			Content: content,
		}, nil
	default:
		r.logger.Warn("model requested unknown tool",
			slog.String("tool", call.Name),
			slog.String("call_id", call.ID),
		)
		return errorResult(call, FailureUnknownTool, fmt.Errorf("%w: %q", ErrUnknownTool, call.Name)), nil
	}
}

func decodeSearchBooks(arguments map[string]any) (booksearch.Filter, error) {
	cleaned := dropNulls(arguments)
	if err := validateArguments(searchBooksDefinition().InputSchema, cleaned); err != nil {
		return booksearch.Filter{}, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}

	encoded, err := json.Marshal(cleaned)
	if err != nil {
		return booksearch.Filter{}, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	var filter booksearch.Filter
	if err := json.Unmarshal(encoded, &filter); err != nil {
		return booksearch.Filter{}, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	if filter.PublishedDate != nil {
		for _, bound := range []*int{filter.PublishedDate.From, filter.PublishedDate.To} {
			if bound != nil && (*bound < minYear || *bound > maxYear) {
				return booksearch.Filter{}, fmt.Errorf("%w: year %d outside %d..%d", ErrInvalidArguments, *bound, minYear, maxYear)
			}
		}
	}
	return filter, nil
}

func errorResult(call conversation.ToolCall, reason FailureReason, err error) conversation.ToolResultMessage {
	return conversation.ToolResultMessage{
		CallID:  call.ID,
		Name:    call.Name,
		Content: fmt.Sprintf("%s: %s", reason, err.Error()),
		IsError: true,
	}
}
