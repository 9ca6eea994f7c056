package toolbridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Registry holds tools by name and executes calls with timeout, semaphore,
// optional panic recovery and hooks. It is safe to share between loops.
type Registry struct {
	tools       map[string]Tool // wrapped with middlewares, used by Execute
	rawTools    map[string]Tool // unwrapped, used by Use() to re-apply middlewares from scratch
	order       []string
	sem         chan struct{}
	detachSem   chan struct{}
	opts        registryOptions
	done        chan struct{}
	bgCtx       context.Context // canceled when Shutdown gives up waiting
	bgCancel    context.CancelFunc
	running     sync.WaitGroup
	mu          sync.Mutex
	middlewares []Middleware
}

// NewRegistry creates a Registry with the given options.
func NewRegistry(opts ...RegistryOption) *Registry {
	o := registryOptions{
		timeout:        30 * time.Second,
		maxConcurrency: 10,
		maxDetached:    8,
		recoverPanics:  true,
	}
	for _, opt := range opts {
		opt(&o)
	}
	r := &Registry{
		tools:    make(map[string]Tool),
		rawTools: make(map[string]Tool),
		opts:     o,
		done:     make(chan struct{}),
	}
	if o.maxConcurrency > 0 {
		r.sem = make(chan struct{}, o.maxConcurrency)
	}
	if o.maxDetached > 0 {
		r.detachSem = make(chan struct{}, o.maxDetached)
	}
	r.bgCtx, r.bgCancel = context.WithCancel(context.Background())
	return r
}

// Register adds tools. Stored middlewares (see Use) are applied before registration.
// A name that is already registered, or repeated within tools, fails with
// ErrDuplicateTool and nothing is added.
func (r *Registry) Register(tools ...Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]bool, len(tools))
	for _, t := range tools {
		name := t.Name()
		if _, exists := r.rawTools[name]; exists || seen[name] {
			return fmt.Errorf("%w: %s", ErrDuplicateTool, name)
		}
		seen[name] = true
	}
	for _, t := range tools {
		name := t.Name()
		r.rawTools[name] = t
		r.order = append(r.order, name)
		r.tools[name] = r.wrap(t)
	}
	return nil
}

func (r *Registry) wrap(t Tool) Tool {
	for i := len(r.middlewares) - 1; i >= 0; i-- {
		t = r.middlewares[i](t)
	}
	return t
}

// Tools returns all registered tools (after middlewares) in registration order.
func (r *Registry) Tools() []Tool {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Descriptors returns the descriptor of every tool in registration order,
// ready to attach to a model request.
func (r *Registry) Descriptors() []Descriptor {
	tools := r.Tools()
	out := make([]Descriptor, len(tools))
	for i, t := range tools {
		out[i] = t.Descriptor()
	}
	return out
}

// GetTool returns the tool with the given name (after middlewares are applied), or (nil, false) if not found.
func (r *Registry) GetTool(name string) (Tool, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tools[name]
	return t, ok
}

// Execute runs one tool call. Every failure is reported in ToolResult.Err rather
// than returned, so one bad call never stops the others. The after-execution
// hook (WithOnAfterExecute) sees the final result, panics included.
func (r *Registry) Execute(ctx context.Context, call ToolCall) (res ToolResult) {
	res = ToolResult{CallID: call.ID, ToolName: call.ToolName}
	r.mu.Lock()
	select {
	case <-r.done:
		r.mu.Unlock()
		res.Err = ErrShutdown
		return res
	default:
	}
	t, ok := r.tools[call.ToolName]
	if !ok {
		r.mu.Unlock()
		res.Err = fmt.Errorf("%w: %s", ErrToolNotFound, call.ToolName)
		return res
	}
	r.running.Add(1)
	r.mu.Unlock()
	defer r.running.Done()

	if err := r.acquireSemaphore(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = ErrTimeout
		}
		res.Err = err
		return res
	}
	defer r.releaseSemaphore()

	timeout := r.opts.timeout
	if tm, ok := t.(ToolMetadata); ok && tm.Timeout() > 0 {
		timeout = tm.Timeout()
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	// Recover defer is registered after onAfter so it runs first on panic and sets res.Err before the hook runs.
	defer func() {
		if r.opts.onAfter != nil {
			r.opts.onAfter(ctx, call, res, time.Since(start))
		}
	}()
	if r.opts.recoverPanics {
		defer func() {
			if p := recover(); p != nil {
				res.Content = ""
				res.Err = &SystemError{Err: &panicError{p: p}}
			}
		}()
	}

	if r.opts.onBefore != nil {
		r.opts.onBefore(ctx, call)
	}
	if tm, ok := t.(ToolMetadata); ok && tm.IsDangerous() && r.opts.confirm != nil && !r.opts.confirm(ctx, call) {
		res.Err = fmt.Errorf("%w: %s", ErrRejected, call.ToolName)
		return res
	}

	content, err := t.Execute(context.WithValue(ctx, detachKey{}, r), []byte(call.Args))
	if err != nil && errors.Is(err, context.DeadlineExceeded) && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("%w after %s", ErrTimeout, timeout)
	}
	res.Content, res.Err = content, err
	return res
}

func (r *Registry) acquireSemaphore(ctx context.Context) error {
	if r.sem == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	select {
	case r.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Registry) releaseSemaphore() {
	if r.sem != nil {
		<-r.sem
	}
}

type detachKey struct{}

// Detach runs fn in the background so a tool can return before the work ends
// (e.g. a non-blocking shell command). fn's context survives the tool call's
// own timeout. When called from a tool executed by a Registry, the work is
// tracked: Shutdown waits for it and cancels it if the shutdown context expires.
func Detach(ctx context.Context, fn func(context.Context)) error {
	r, _ := ctx.Value(detachKey{}).(*Registry)
	if r == nil {
		go fn(context.WithoutCancel(ctx))
		return nil
	}
	return r.detach(ctx, fn)
}

func (r *Registry) detach(ctx context.Context, fn func(context.Context)) error {
	r.mu.Lock()
	select {
	case <-r.done:
		r.mu.Unlock()
		return ErrShutdown
	default:
	}
	if r.detachSem != nil {
		select {
		case r.detachSem <- struct{}{}:
		default:
			r.mu.Unlock()
			return ErrDetachLimit
		}
	}
	r.running.Add(1)
	r.mu.Unlock()

	bg, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(r.bgCtx, cancel)
	go func() {
		defer r.running.Done()
		defer func() {
			stop()
			cancel()
			if r.detachSem != nil {
				<-r.detachSem
			}
		}()
		if r.opts.recoverPanics {
			defer func() {
				if p := recover(); p != nil {
					slog.Error("background task panicked", "error", &panicError{p: p})
				}
			}()
		}
		fn(bg)
	}()
	return nil
}

// Shutdown closes the registry for new calls and waits for in-flight executions
// and detached work. If ctx ends first, detached work is canceled and ctx.Err() returned.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	select {
	case <-r.done:
		r.mu.Unlock()
		return nil
	default:
		close(r.done)
	}
	r.mu.Unlock()
	done := make(chan struct{})
	go func() {
		r.running.Wait()
		close(done)
	}()
	select {
	case <-done:
		r.bgCancel()
		return nil
	case <-ctx.Done():
		r.bgCancel()
		return ctx.Err()
	}
}
