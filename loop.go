package toolbridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Model is the transport to a language model. Generate sends the whole log and
// the tool descriptors and returns the assistant's reply, which may request tool calls.
type Model interface {
	Generate(ctx context.Context, messages []Message, tools []Descriptor) (Message, error)
}

// ModelFunc adapts a function to Model.
type ModelFunc func(ctx context.Context, messages []Message, tools []Descriptor) (Message, error)

func (f ModelFunc) Generate(ctx context.Context, messages []Message, tools []Descriptor) (Message, error) {
	return f(ctx, messages, tools)
}

// State is the position of a Loop within a turn.
type State int

const (
	StateDone State = iota
	StateAwaitingModel
	StateHasToolCalls
	StateExecuting
)

func (s State) String() string {
	switch s {
	case StateDone:
		return "done"
	case StateAwaitingModel:
		return "awaiting_model"
	case StateHasToolCalls:
		return "has_tool_calls"
	case StateExecuting:
		return "executing"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// LoopOption configures a Loop.
type LoopOption func(*loopOptions)

type loopOptions struct {
	system         string
	conversation   *Conversation
	maxIterations  int
	requestTimeout time.Duration
	logger         *slog.Logger
	onReply        func(Message)
	onToolResult   func(ToolCall, ToolResult)
}

// WithSystemPrompt seeds a new conversation with a system message.
// It is ignored when WithConversation supplies an existing log.
func WithSystemPrompt(text string) LoopOption {
	return func(o *loopOptions) { o.system = text }
}

// WithConversation resumes an existing log.
func WithConversation(c *Conversation) LoopOption {
	return func(o *loopOptions) { o.conversation = c }
}

// WithMaxIterations bounds the number of model requests per turn. Exceeding it
// fails the turn with ErrMaxIterations. 0 means unbounded.
func WithMaxIterations(n int) LoopOption {
	return func(o *loopOptions) { o.maxIterations = n }
}

// WithRequestTimeout bounds each model request. A timeout fails the turn.
func WithRequestTimeout(d time.Duration) LoopOption {
	return func(o *loopOptions) { o.requestTimeout = d }
}

// WithLogger sets the logger for state transitions and failures.
func WithLogger(l *slog.Logger) LoopOption {
	return func(o *loopOptions) { o.logger = l }
}

// WithReplyHandler is called with the final assistant message of every completed turn.
func WithReplyHandler(fn func(Message)) LoopOption {
	return func(o *loopOptions) { o.onReply = fn }
}

// WithToolResultHandler is called after each tool call with its outcome.
func WithToolResultHandler(fn func(ToolCall, ToolResult)) LoopOption {
	return func(o *loopOptions) { o.onToolResult = fn }
}

// Loop drives the conversation protocol: send the log and tool descriptors to
// the model, execute any requested tool calls in order, feed the results back
// and repeat until the model answers without tool calls.
//
// A Loop is driven by one goroutine at a time.
type Loop struct {
	model    Model
	registry *Registry
	conv     *Conversation
	opts     loopOptions
	state    State
}

// NewLoop creates a Loop over registry's tools.
func NewLoop(model Model, registry *Registry, opts ...LoopOption) *Loop {
	var o loopOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	conv := o.conversation
	if conv == nil {
		conv = NewConversation(o.system)
	}
	return &Loop{model: model, registry: registry, conv: conv, opts: o}
}

// Conversation returns the log. It only ever contains completed turns.
func (l *Loop) Conversation() *Conversation { return l.conv }

// State returns the current state; StateDone between turns.
func (l *Loop) State() State { return l.state }

// Send appends a user message and runs a turn. On failure the log is left as it
// was before Send, user message included.
func (l *Loop) Send(ctx context.Context, text string) (Message, error) {
	return l.turn(ctx, []Message{UserMessage(text)})
}

// Complete runs a turn on the log as it stands, e.g. after restoring a session
// whose last message is from the user.
func (l *Loop) Complete(ctx context.Context) (Message, error) {
	return l.turn(ctx, nil)
}

// turn stages every message it produces and commits them only when the model
// gives a final answer, so a failed turn never leaves a half-answered tool call
// in the log.
func (l *Loop) turn(ctx context.Context, staged []Message) (reply Message, err error) {
	defer func() {
		if err != nil {
			l.opts.logger.ErrorContext(ctx, "turn failed", "error", err, "discarded", len(staged))
			l.setState(ctx, StateDone)
		}
	}()
	descriptors := l.registry.Descriptors()
	for iter := 0; ; iter++ {
		if l.opts.maxIterations > 0 && iter >= l.opts.maxIterations {
			return Message{}, fmt.Errorf("%w (%d)", ErrMaxIterations, l.opts.maxIterations)
		}
		l.setState(ctx, StateAwaitingModel)
		msg, err := l.request(ctx, append(l.conv.Messages(), staged...), descriptors)
		if err != nil {
			return Message{}, err
		}
		staged = append(staged, msg)
		if !msg.HasToolCalls() {
			l.conv.Append(staged...)
			l.setState(ctx, StateDone)
			if l.opts.onReply != nil {
				l.opts.onReply(msg)
			}
			return msg, nil
		}

		l.setState(ctx, StateHasToolCalls)
		l.setState(ctx, StateExecuting)
		for _, call := range msg.ToolCalls {
			if err := ctx.Err(); err != nil {
				return Message{}, err
			}
			res := l.registry.Execute(ctx, call)
			if res.Err != nil {
				l.opts.logger.WarnContext(ctx, "tool call failed", "tool", call.ToolName, "id", call.ID, "error", res.Err)
			}
			staged = append(staged, ToolMessage(res))
			if l.opts.onToolResult != nil {
				l.opts.onToolResult(call, res)
			}
		}
	}
}

func (l *Loop) request(ctx context.Context, history []Message, tools []Descriptor) (Message, error) {
	if err := ctx.Err(); err != nil {
		return Message{}, err
	}
	if l.opts.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.opts.requestTimeout)
		defer cancel()
	}
	msg, err := l.model.Generate(ctx, history, tools)
	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return Message{}, err
		}
		return Message{}, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	msg.Role = RoleAssistant
	return msg, nil
}

func (l *Loop) setState(ctx context.Context, s State) {
	if l.state == s {
		return
	}
	l.opts.logger.DebugContext(ctx, "loop state", "from", l.state, "to", s)
	l.state = s
}
