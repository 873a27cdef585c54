package conversation

import (
	"errors"
	"fmt"
)

var (
	// ErrSeedMessage is returned when a system or human message is appended after the seed pair.
	ErrSeedMessage = errors.New("system and human messages only open a conversation")
	// ErrUnansweredToolCall is returned when an assistant turn is appended while tool calls are open.
	ErrUnansweredToolCall = errors.New("tool call is unanswered")
	// ErrUnexpectedToolResult is returned when a tool result does not answer the next open call.
	ErrUnexpectedToolResult = errors.New("tool result does not answer the next open call")
	// ErrToolCallInvalid is returned when an assistant turn carries an empty or duplicate call ID.
	ErrToolCallInvalid = errors.New("tool call is invalid")
)

// Conversation is the ordered, append-only message log of one orchestration.
// The first message is always the system instruction and the second the
// human query. It is not safe for concurrent use; one orchestration owns it.
type Conversation struct {
	messages []Message
	open     []ToolCall
}

// New seeds a conversation with the system instruction and the human query.
func New(system SystemMessage, query HumanMessage) *Conversation {
	return &Conversation{
		messages: []Message{system, query},
	}
}

// Append adds one message, enforcing call/result pairing: tool results must
// answer the open calls of the latest assistant turn in the order they were
// listed, and no assistant turn may follow while a call is still open.
func (c *Conversation) Append(message Message) error {
	switch m := message.(type) {
	case SystemMessage, HumanMessage:
		return fmt.Errorf("%w: role=%s index=%d", ErrSeedMessage, m.Role(), len(c.messages))
	case AssistantMessage:
		if len(c.open) > 0 {
			return fmt.Errorf("%w: id=%q name=%q", ErrUnansweredToolCall, c.open[0].ID, c.open[0].Name)
		}
		if err := ValidateToolCalls(m.ToolCalls); err != nil {
			return err
		}
		cloned := CloneAssistantMessage(m)
		c.messages = append(c.messages, cloned)
		c.open = append(c.open, cloned.ToolCalls...)
		return nil
	case ToolResultMessage:
		if len(c.open) == 0 {
			return fmt.Errorf("%w: id=%q reason=no_open_calls", ErrUnexpectedToolResult, m.CallID)
		}
		if next := c.open[0]; next.ID != m.CallID {
			return fmt.Errorf("%w: id=%q want=%q", ErrUnexpectedToolResult, m.CallID, next.ID)
		}
		c.open = c.open[1:]
		c.messages = append(c.messages, m)
		return nil
	case nil:
		return errors.New("append message: nil message")
	default:
		return fmt.Errorf("append message: unsupported message type %T", message)
	}
}

// Messages returns deep copies of the transcript in order.
func (c *Conversation) Messages() []Message {
	return CloneMessages(c.messages)
}

// Len returns the number of messages appended so far, seed included.
func (c *Conversation) Len() int {
	return len(c.messages)
}

// Last returns a copy of the most recent message.
func (c *Conversation) Last() Message {
	return CloneMessage(c.messages[len(c.messages)-1])
}

// Unanswered returns the tool calls still waiting for a result, in listed order.
func (c *Conversation) Unanswered() []ToolCall {
	out := make([]ToolCall, len(c.open))
	for i := range c.open {
		out[i] = CloneToolCall(c.open[i])
	}
	return out
}

// ValidateToolCalls rejects empty and duplicate call IDs within one assistant turn.
func ValidateToolCalls(calls []ToolCall) error {
	seen := make(map[string]int, len(calls))
	for i, call := range calls {
		if call.ID == "" {
			return fmt.Errorf("%w: index=%d reason=empty_id", ErrToolCallInvalid, i)
		}
		if firstIndex, exists := seen[call.ID]; exists {
			return fmt.Errorf(
				"%w: index=%d id=%q reason=duplicate_id first_index=%d",
				ErrToolCallInvalid,
				i,
				call.ID,
				firstIndex,
			)
		}
		seen[call.ID] = i
	}
	return nil
}
