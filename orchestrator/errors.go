package orchestrator

import "errors"

var (
	// ErrMissingProvider is returned when New is called without a provider.
	ErrMissingProvider = errors.New("missing completion provider")
	// ErrMissingTools is returned when New is called without a tool dispatcher.
	ErrMissingTools = errors.New("missing tool dispatcher")
	// ErrRecursionLimit is returned when the provider keeps requesting tools after the last allowed round trip.
	ErrRecursionLimit = errors.New("recursion limit reached")
	// ErrUnansweredToolCall is returned when the provider would be invoked while a tool call is still open.
	ErrUnansweredToolCall = errors.New("provider invoked with unanswered tool calls")
	// ErrInvalidStateTransition is returned when the loop attempts a transition its table forbids.
	ErrInvalidStateTransition = errors.New("invalid loop state transition")
	// ErrEventInvalid is returned when an event is missing required fields.
	ErrEventInvalid = errors.New("event is invalid")
	// ErrEventPublish marks failures reported by an event sink.
	ErrEventPublish = errors.New("event publish failed")
	// ErrMalformedTurn marks provider responses that could not be read as an
	// assistant turn, such as undecodable tool-call arguments.
	ErrMalformedTurn = errors.New("provider returned a malformed turn")
	// ErrEmptyQuery is returned when Run is called with a blank query.
	ErrEmptyQuery = errors.New("query is empty")
)
