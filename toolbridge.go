package toolbridge

import (
	"context"
	"time"
)

// Tool is the contract for a model-callable function.
// It is provider-agnostic (no knowledge of OpenAI, Anthropic, etc.).
type Tool interface {
	Name() string
	Description() string
	// Descriptor returns the schema the model sees for this tool.
	Descriptor() Descriptor
	// Execute decodes and coerces argsJSON, runs the callable and returns its
	// result as text. Errors are meant to be shown to the model.
	Execute(ctx context.Context, argsJSON []byte) (string, error)
}

// ToolMetadata is implemented by tools created with NewTool and NewDynamicTool.
// Registry uses Timeout() to override the default execution timeout when set and
// IsDangerous() to decide whether to ask its confirm hook.
type ToolMetadata interface {
	Timeout() time.Duration
	Tags() []string
	IsDangerous() bool
}

// ToolCall is a single execution request as produced by the model. Args is the
// raw argument text; it is kept verbatim because it may not be valid JSON.
type ToolCall struct {
	ID       string `json:"id"`
	ToolName string `json:"name"`
	Args     string `json:"arguments"`
}

// ToolResult is the outcome of one ToolCall. Err is set for every failure the
// model should hear about: unknown tool, bad arguments, callable errors, panics, timeouts.
type ToolResult struct {
	CallID   string
	ToolName string
	Content  string
	Err      error
}

// Text is what the model receives for this call.
func (r ToolResult) Text() string {
	if r.Err != nil {
		return r.Err.Error()
	}
	return r.Content
}
