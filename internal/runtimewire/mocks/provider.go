package mocks

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/OmDoke/Book-Inventory-Management-System/answer"
	"github.com/OmDoke/Book-Inventory-Management-System/conversation"
	"github.com/OmDoke/Book-Inventory-Management-System/orchestrator"
	"github.com/OmDoke/Book-Inventory-Management-System/tooling"
)

var (
	yearRangePattern = regexp.MustCompile(`(?i)(?:from|between)\s+(\d{4})\s+(?:to|and|-)\s+(\d{4})`)
	afterPattern     = regexp.MustCompile(`(?i)(?:after|since)\s+(\d{4})`)
	beforePattern    = regexp.MustCompile(`(?i)before\s+(\d{4})`)
	inYearPattern    = regexp.MustCompile(`(?i)\bin\s+(\d{4})\b`)
	byPattern        = regexp.MustCompile(`(?i)\b(published\s+)?by\s+([\p{L}.',& -]+?)(?:\s+(?:from|between|after|since|before|in)\b|$)`)
	quotedPattern    = regexp.MustCompile(`"([^"]+)"`)
)

var knownGenres = []string{
	"historical fiction",
	"literary fiction",
	"science fiction",
	"fantasy",
	"romance",
	"mystery",
	"thriller",
	"memoir",
	"biography",
	"horror",
	"fiction",
}

// Provider is a deterministic offline completion provider. It turns the
// query into at most one searchBooks call and then echoes the tool result
// back as the final answer.
type Provider struct{}

func NewProvider() *Provider {
	return &Provider{}
}

var _ orchestrator.Provider = (*Provider)(nil)

func (p *Provider) Complete(ctx context.Context, request orchestrator.Request) (conversation.AssistantMessage, error) {
	if err := ctx.Err(); err != nil {
		return conversation.AssistantMessage{}, err
	}
	if len(request.Messages) == 0 {
		return finalContent(answer.FailSafe()), nil
	}

	switch last := request.Messages[len(request.Messages)-1].(type) {
	case conversation.ToolResultMessage:
		if last.IsError {
			return finalContent(answer.FailSafe()), nil
		}
		parsed, err := answer.ParseStrict(last.Content)
		if err != nil {
			return finalContent(answer.FailSafe()), nil
		}
		parsed.Intent = answer.IntentSearch
		return finalContent(parsed), nil
	case conversation.HumanMessage:
		arguments := FilterArguments(last.Content)
		if len(arguments) == 0 {
			return finalContent(answer.FailSafe()), nil
		}
		return conversation.AssistantMessage{
			ToolCalls: []conversation.ToolCall{{
				ID:        "call_mock_1",
				Name:      string(tooling.SearchBooks),
				Arguments: arguments,
			}},
		}, nil
	default:
		return finalContent(answer.FailSafe()), nil
	}
}

// FilterArguments extracts searchBooks arguments from a query using fixed
// patterns. An empty map means nothing was recognised.
func FilterArguments(query string) map[string]any {
	arguments := map[string]any{}
	lower := strings.ToLower(query)

	for _, genre := range knownGenres {
		if strings.Contains(lower, genre) {
			arguments["genre"] = genre
			break
		}
	}

	published := map[string]any{}
	switch {
	case yearRangePattern.MatchString(query):
		match := yearRangePattern.FindStringSubmatch(query)
		published["from"] = year(match[1])
		published["to"] = year(match[2])
	case inYearPattern.MatchString(query):
		match := inYearPattern.FindStringSubmatch(query)
		published["from"] = year(match[1])
		published["to"] = year(match[1])
	default:
		if match := afterPattern.FindStringSubmatch(query); match != nil {
			published["from"] = year(match[1])
		}
		if match := beforePattern.FindStringSubmatch(query); match != nil {
			published["to"] = year(match[1])
		}
	}
	if len(published) > 0 {
		arguments["publishedDate"] = published
	}

	if match := quotedPattern.FindStringSubmatch(query); match != nil {
		arguments["title"] = strings.TrimSpace(match[1])
	}
	if match := byPattern.FindStringSubmatch(query); match != nil {
		name := strings.TrimSpace(match[2])
		switch {
		case name == "":
		case match[1] != "":
			arguments["publisher"] = name
		default:
			arguments["authorName"] = name
		}
	}
	return arguments
}

func year(text string) float64 {
	parsed, _ := strconv.Atoi(text)
	return float64(parsed)
}

func finalContent(final answer.FinalAnswer) conversation.AssistantMessage {
	encoded, err := final.Encode()
	if err != nil {
		encoded = `{"status":"success","type":"book","count":0,"results":[]}`
	}
	return conversation.AssistantMessage{Content: encoded}
}
