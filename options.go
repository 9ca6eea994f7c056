package toolbridge

import (
	"context"
	"log/slog"
	"time"
)

// toolOptions hold optional tool settings (timeout, strict, tags, etc.).
type toolOptions struct {
	strict    bool
	validate  bool
	timeout   time.Duration
	tags      []string
	dangerous bool
	hints     map[string]TypeHint
	onWarning func(tool, param, warning string)
}

func (o *toolOptions) warn(tool, param, warning string) {
	if o.onWarning != nil {
		o.onWarning(tool, param, warning)
		return
	}
	slog.Warn(warning, "tool", tool, "parameter", param)
}

// ToolOption configures a tool (e.g. WithStrict, WithTimeout).
type ToolOption func(*toolOptions)

// WithStrict sets strict mode for the schema: additionalProperties: false for all objects,
// and all parameters become required. Use for OpenAI Structured Outputs compatibility.
func WithStrict() ToolOption {
	return func(o *toolOptions) {
		o.strict = true
	}
}

// WithValidation validates every argument object against the parameters schema
// before coercion. Failures are reported to the model as a ClientError wrapping ErrValidation.
func WithValidation() ToolOption {
	return func(o *toolOptions) {
		o.validate = true
	}
}

// WithTimeout sets a per-tool timeout that overrides the registry default.
func WithTimeout(d time.Duration) ToolOption {
	return func(o *toolOptions) {
		o.timeout = d
	}
}

// WithTags sets tool tags (metadata for discovery and filtering).
func WithTags(tags ...string) ToolOption {
	return func(o *toolOptions) {
		o.tags = tags
	}
}

// WithDangerous marks the tool as dangerous; the registry asks its confirm hook before running it.
func WithDangerous() ToolOption {
	return func(o *toolOptions) {
		o.dangerous = true
	}
}

// WithParamHint overrides the hint derived for one parameter. It is the only way
// to declare a Union or Literal for a field of a typed argument struct.
func WithParamHint(name string, hint TypeHint) ToolOption {
	return func(o *toolOptions) {
		if o.hints == nil {
			o.hints = make(map[string]TypeHint)
		}
		o.hints[name] = hint
	}
}

// WithWarningHandler receives schema warnings instead of the default slog.Warn.
func WithWarningHandler(fn func(tool, param, warning string)) ToolOption {
	return func(o *toolOptions) {
		o.onWarning = fn
	}
}

// RegistryOption configures a Registry.
type RegistryOption func(*registryOptions)

type registryOptions struct {
	timeout        time.Duration
	maxConcurrency int
	maxDetached    int
	recoverPanics  bool
	onBefore       func(context.Context, ToolCall)
	onAfter        func(context.Context, ToolCall, ToolResult, time.Duration)
	confirm        func(context.Context, ToolCall) bool
}

// WithDefaultTimeout sets the default execution timeout for tools.
// Pass 0 to disable the timeout.
func WithDefaultTimeout(d time.Duration) RegistryOption {
	return func(o *registryOptions) {
		o.timeout = d
	}
}

// WithMaxConcurrency limits concurrent tool executions (semaphore) when one registry
// is shared by several loops. Pass 0 or negative to disable the semaphore.
func WithMaxConcurrency(n int) RegistryOption {
	return func(o *registryOptions) {
		o.maxConcurrency = n
	}
}

// WithMaxDetached limits background work started with Detach.
// Pass 0 or negative for no limit.
func WithMaxDetached(n int) RegistryOption {
	return func(o *registryOptions) {
		o.maxDetached = n
	}
}

// WithRecoverPanics enables panic recovery in Execute (returns SystemError).
func WithRecoverPanics(enable bool) RegistryOption {
	return func(o *registryOptions) {
		o.recoverPanics = enable
	}
}

// WithOnBeforeExecute sets a hook called before each tool execution.
func WithOnBeforeExecute(fn func(context.Context, ToolCall)) RegistryOption {
	return func(o *registryOptions) {
		o.onBefore = fn
	}
}

// WithOnAfterExecute sets a hook called after each tool execution, including failed ones.
func WithOnAfterExecute(fn func(context.Context, ToolCall, ToolResult, time.Duration)) RegistryOption {
	return func(o *registryOptions) {
		o.onAfter = fn
	}
}

// WithConfirm sets the hook asked before a dangerous tool runs. Returning false
// records ErrRejected as the call's result. Without a hook dangerous tools run freely.
func WithConfirm(fn func(context.Context, ToolCall) bool) RegistryOption {
	return func(o *registryOptions) {
		o.confirm = fn
	}
}
