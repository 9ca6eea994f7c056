package toolbridge

// Role is the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry of the conversation log. Assistant messages may carry
// tool calls; tool messages answer exactly one call by ToolCallID.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

func SystemMessage(text string) Message { return Message{Role: RoleSystem, Content: text} }
func UserMessage(text string) Message   { return Message{Role: RoleUser, Content: text} }

// AssistantMessage is a model reply, optionally requesting tool calls.
func AssistantMessage(text string, calls ...ToolCall) Message {
	return Message{Role: RoleAssistant, Content: text, ToolCalls: calls}
}

// ToolMessage records the outcome of one call; failures carry the error text.
func ToolMessage(res ToolResult) Message {
	return Message{
		Role:       RoleTool,
		Content:    res.Text(),
		ToolCallID: res.CallID,
		Name:       res.ToolName,
	}
}

// HasToolCalls reports whether the message asks for tools to run.
func (m Message) HasToolCalls() bool { return len(m.ToolCalls) > 0 }
