package conversation

// Role identifies the author of a message in the conversation transcript.
type Role string

const (
	RoleSystem    Role = "system"
	RoleHuman     Role = "human"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one turn of a conversation. The set of implementations is closed:
// SystemMessage, HumanMessage, AssistantMessage and ToolResultMessage.
type Message interface {
	Role() Role
	Text() string
	isMessage()
}

// SystemMessage carries the instruction that opens every conversation.
type SystemMessage struct {
	Content string `json:"content"`
}

// HumanMessage carries the end user's query.
type HumanMessage struct {
	Content string `json:"content"`
}

// AssistantMessage is produced by the completion provider. A message with
// tool calls asks the orchestrator to run them before the next turn.
type AssistantMessage struct {
	Content   string     `json:"content,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// ToolResultMessage answers exactly one tool call of the preceding assistant turn.
type ToolResultMessage struct {
	CallID  string `json:"tool_call_id"`
	Name    string `json:"name"`
	Content string `json:"content"`
	IsError bool   `json:"is_error,omitempty"`
}

func (SystemMessage) Role() Role     { return RoleSystem }
func (HumanMessage) Role() Role      { return RoleHuman }
func (AssistantMessage) Role() Role  { return RoleAssistant }
func (ToolResultMessage) Role() Role { return RoleTool }

func (m SystemMessage) Text() string     { return m.Content }
func (m HumanMessage) Text() string      { return m.Content }
func (m AssistantMessage) Text() string  { return m.Content }
func (m ToolResultMessage) Text() string { return m.Content }

func (SystemMessage) isMessage()     {}
func (HumanMessage) isMessage()      {}
func (AssistantMessage) isMessage()  {}
func (ToolResultMessage) isMessage() {}

// HasToolCalls reports whether the assistant asked for at least one tool.
func (m AssistantMessage) HasToolCalls() bool {
	return len(m.ToolCalls) > 0
}

// CloneMessage returns a deep copy suitable for isolation across component boundaries.
func CloneMessage(in Message) Message {
	switch m := in.(type) {
	case AssistantMessage:
		return CloneAssistantMessage(m)
	default:
		return in
	}
}

// CloneAssistantMessage deep-copies the tool calls of an assistant message.
func CloneAssistantMessage(in AssistantMessage) AssistantMessage {
	out := in
	if len(in.ToolCalls) > 0 {
		out.ToolCalls = make([]ToolCall, len(in.ToolCalls))
		for i := range in.ToolCalls {
			out.ToolCalls[i] = CloneToolCall(in.ToolCalls[i])
		}
	}
	return out
}

// CloneMessages returns deep copies of all messages.
func CloneMessages(in []Message) []Message {
	out := make([]Message, len(in))
	for i := range in {
		out[i] = CloneMessage(in[i])
	}
	return out
}
