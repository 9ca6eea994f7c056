package toolbridge

import (
	"context"
	"log/slog"
	"time"
)

// Middleware decorates a Tool. Registry.Use applies them to every registered tool.
type Middleware func(Tool) Tool

// ExecuteFunc is the signature of Tool.Execute.
type ExecuteFunc func(ctx context.Context, argsJSON []byte) (string, error)

// WrapTool returns a Tool that behaves like next except that Execute runs fn,
// which receives next.Execute to delegate to. Name, descriptor and metadata
// pass through unchanged.
func WrapTool(next Tool, fn func(ctx context.Context, argsJSON []byte, next ExecuteFunc) (string, error)) Tool {
	return &wrappedTool{next: next, exec: fn}
}

// WithLogging logs every execution with its duration. Argument errors the
// model can fix are logged at Warn, everything else at Error.
func WithLogging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Tool) Tool {
		name := next.Name()
		return WrapTool(next, func(ctx context.Context, args []byte, exec ExecuteFunc) (string, error) {
			logger.InfoContext(ctx, "tool call started", "tool", name, "args_bytes", len(args))
			start := time.Now()
			out, err := exec(ctx, args)
			elapsed := time.Since(start)
			switch {
			case err == nil:
				logger.InfoContext(ctx, "tool call finished", "tool", name, "duration", elapsed, "result_bytes", len(out))
			case IsClientError(err):
				logger.WarnContext(ctx, "tool call rejected arguments", "tool", name, "duration", elapsed, "error", err)
			default:
				logger.ErrorContext(ctx, "tool call failed", "tool", name, "duration", elapsed, "error", err)
			}
			return out, err
		})
	}
}

// WithRecovery turns a panic in the tool into a *SystemError whose text
// starts with "panic:", so the model sees it like any other failure.
func WithRecovery() Middleware {
	return func(next Tool) Tool {
		return WrapTool(next, func(ctx context.Context, args []byte, exec ExecuteFunc) (out string, err error) {
			defer func() {
				if p := recover(); p != nil {
					out, err = "", &SystemError{Err: &panicError{p: p}}
				}
			}()
			return exec(ctx, args)
		})
	}
}

// WithTimeoutMiddleware bounds each execution by d and reports d as the tool's
// timeout. The registry default still applies; the shorter one wins.
func WithTimeoutMiddleware(d time.Duration) Middleware {
	return func(next Tool) Tool {
		w := &wrappedTool{next: next, timeout: d}
		w.exec = func(ctx context.Context, args []byte, exec ExecuteFunc) (string, error) {
			if d <= 0 {
				return exec(ctx, args)
			}
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return exec(ctx, args)
		}
		return w
	}
}

type wrappedTool struct {
	next    Tool
	exec    func(context.Context, []byte, ExecuteFunc) (string, error)
	timeout time.Duration
}

func (w *wrappedTool) Name() string           { return w.next.Name() }
func (w *wrappedTool) Description() string    { return w.next.Description() }
func (w *wrappedTool) Descriptor() Descriptor { return w.next.Descriptor() }

func (w *wrappedTool) Execute(ctx context.Context, args []byte) (string, error) {
	return w.exec(ctx, args, w.next.Execute)
}

func (w *wrappedTool) metadata() (ToolMetadata, bool) {
	tm, ok := w.next.(ToolMetadata)
	return tm, ok
}

func (w *wrappedTool) Timeout() time.Duration {
	if w.timeout > 0 {
		return w.timeout
	}
	if tm, ok := w.metadata(); ok {
		return tm.Timeout()
	}
	return 0
}

func (w *wrappedTool) Tags() []string {
	if tm, ok := w.metadata(); ok {
		return tm.Tags()
	}
	return nil
}

func (w *wrappedTool) IsDangerous() bool {
	tm, ok := w.metadata()
	return ok && tm.IsDangerous()
}

// Use replaces the registry's middleware chain and rewraps every tool from its
// unwrapped original, so repeated calls never stack. The first middleware is
// outermost. Tools registered later are wrapped too.
func (r *Registry) Use(middlewares ...Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middlewares = middlewares
	for name, raw := range r.rawTools {
		r.tools[name] = r.wrap(raw)
	}
}

var _ ToolMetadata = (*wrappedTool)(nil)
