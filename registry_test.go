package toolbridge

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type xArgs struct {
	X int `json:"x"`
}

type yResult struct {
	Y int `json:"y"`
}

func newDoubleTool(t *testing.T) Tool {
	t.Helper()
	tool, err := NewTool("double", "Double x", func(_ context.Context, a xArgs) (yResult, error) {
		return yResult{Y: a.X * 2}, nil
	})
	require.NoError(t, err)
	return tool
}

func shutdown(t *testing.T, reg *Registry) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, reg.Shutdown(ctx))
}

func TestRegistry_Register_Execute(t *testing.T) {
	reg := NewRegistry(WithDefaultTimeout(time.Second), WithRecoverPanics(true))
	require.NoError(t, reg.Register(newDoubleTool(t)))
	all := reg.Tools()
	require.Len(t, all, 1)
	res := reg.Execute(context.Background(), ToolCall{ID: "1", ToolName: "double", Args: `{"x": 7}`})
	require.NoError(t, res.Err)
	assert.Equal(t, "1", res.CallID)
	assert.Equal(t, "double", res.ToolName)
	assert.JSONEq(t, `{"y":14}`, res.Content)
}

func TestRegistry_RegistrationOrder(t *testing.T) {
	reg := NewRegistry()
	var tools []Tool
	for _, name := range []string{"zeta", "alpha", "mid"} {
		tools = append(tools, minTool{name: name})
	}
	require.NoError(t, reg.Register(tools...))
	var names []string
	for _, d := range reg.Descriptors() {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, names)
}

func TestRegistry_Register_Duplicate(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(minTool{name: "same", desc: "first"}))
	err := reg.Register(minTool{name: "other"}, minTool{name: "same", desc: "second"})
	require.ErrorIs(t, err, ErrDuplicateTool)
	// Nothing from the failed batch is added.
	_, ok := reg.GetTool("other")
	assert.False(t, ok)
	got, _ := reg.GetTool("same")
	assert.Equal(t, "first", got.Description())

	err = reg.Register(minTool{name: "twice"}, minTool{name: "twice"})
	require.ErrorIs(t, err, ErrDuplicateTool)
}

func TestRegistry_GetTool(t *testing.T) {
	tool := newDoubleTool(t)
	reg := NewRegistry()
	require.NoError(t, reg.Register(tool))
	got, ok := reg.GetTool("double")
	require.True(t, ok)
	require.Same(t, tool, got)
	_, ok = reg.GetTool("missing")
	require.False(t, ok)
}

func TestRegistry_Execute_ToolNotFound(t *testing.T) {
	reg := NewRegistry()
	res := reg.Execute(context.Background(), ToolCall{ID: "1", ToolName: "foo", Args: "{}"})
	require.ErrorIs(t, res.Err, ErrToolNotFound)
	assert.Contains(t, res.Text(), "foo")
}

func TestRegistry_Execute_PanicRecovery(t *testing.T) {
	tool, err := NewTool("panic", "Panics", func(_ context.Context, _ xArgs) (string, error) {
		panic("oops")
	})
	require.NoError(t, err)
	reg := NewRegistry(WithRecoverPanics(true))
	require.NoError(t, reg.Register(tool))
	res := reg.Execute(context.Background(), ToolCall{ID: "1", ToolName: "panic", Args: `{"x": 1}`})
	var se *SystemError
	require.ErrorAs(t, res.Err, &se)
	assert.Contains(t, res.Text(), "panic: oops")
}

func TestRegistry_Execute_Timeout(t *testing.T) {
	tool, err := NewTool("slow", "Slow", func(ctx context.Context, _ struct{}) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}, WithTimeout(10*time.Millisecond))
	require.NoError(t, err)
	reg := NewRegistry(WithDefaultTimeout(time.Minute))
	require.NoError(t, reg.Register(tool))
	res := reg.Execute(context.Background(), ToolCall{ID: "1", ToolName: "slow"})
	require.ErrorIs(t, res.Err, ErrTimeout)
	assert.Contains(t, res.Text(), "after 10ms")
}

func TestRegistry_Shutdown(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(newDoubleTool(t)))
	shutdown(t, reg)
	res := reg.Execute(context.Background(), ToolCall{ID: "1", ToolName: "double", Args: `{"x":1}`})
	assert.ErrorIs(t, res.Err, ErrShutdown)
	// Idempotent.
	shutdown(t, reg)
}

func TestRegistry_Shutdown_InFlight(t *testing.T) {
	started := make(chan struct{})
	done := make(chan struct{})
	tool, err := NewTool("slow", "Slow", func(_ context.Context, _ xArgs) (string, error) {
		close(started)
		time.Sleep(50 * time.Millisecond)
		close(done)
		return "", nil
	})
	require.NoError(t, err)
	reg := NewRegistry(WithDefaultTimeout(5 * time.Second))
	require.NoError(t, reg.Register(tool))
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		reg.Execute(context.Background(), ToolCall{ID: "1", ToolName: "slow", Args: `{"x":1}`})
	}()
	<-started
	shutdown(t, reg)
	select {
	case <-done:
	default:
		t.Fatal("in-flight execution should have completed before Shutdown returned")
	}
	<-finished
}

func TestRegistry_Execute_CancelledContext(t *testing.T) {
	reg := NewRegistry(WithDefaultTimeout(time.Second))
	require.NoError(t, reg.Register(newDoubleTool(t)))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := reg.Execute(ctx, ToolCall{ID: "1", ToolName: "double", Args: `{"x": 1}`})
	require.ErrorIs(t, res.Err, context.Canceled)
}

func TestRegistry_MaxConcurrency(t *testing.T) {
	var running int32
	started := make(chan struct{}, 1)
	tool, err := NewTool("slow", "Slow", func(ctx context.Context, _ xArgs) (string, error) {
		atomic.AddInt32(&running, 1)
		defer atomic.AddInt32(&running, -1)
		select {
		case started <- struct{}{}:
		default:
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(100 * time.Millisecond):
			return "", nil
		}
	})
	require.NoError(t, err)
	reg := NewRegistry(WithMaxConcurrency(1), WithDefaultTimeout(time.Second))
	require.NoError(t, reg.Register(tool))
	ctx := context.Background()
	first := make(chan ToolResult, 1)
	go func() { first <- reg.Execute(ctx, ToolCall{ID: "1", ToolName: "slow", Args: `{"x": 1}`}) }()
	<-started
	assert.Equal(t, int32(1), atomic.LoadInt32(&running))
	res2 := reg.Execute(ctx, ToolCall{ID: "2", ToolName: "slow", Args: `{"x": 2}`})
	require.NoError(t, res2.Err)
	require.NoError(t, (<-first).Err)
}

func TestRegistry_ObservabilityHooks(t *testing.T) {
	var beforeCalls, afterCalls int
	var lastCall ToolCall
	var lastResult ToolResult
	var lastDuration time.Duration
	reg := NewRegistry(
		WithOnBeforeExecute(func(_ context.Context, call ToolCall) {
			beforeCalls++
			lastCall = call
		}),
		WithOnAfterExecute(func(_ context.Context, _ ToolCall, result ToolResult, duration time.Duration) {
			afterCalls++
			lastResult = result
			lastDuration = duration
		}),
	)
	require.NoError(t, reg.Register(newDoubleTool(t)))
	res := reg.Execute(context.Background(), ToolCall{ID: "h1", ToolName: "double", Args: `{"x": 10}`})
	require.NoError(t, res.Err)
	assert.Equal(t, 1, beforeCalls)
	assert.Equal(t, 1, afterCalls)
	assert.Equal(t, "h1", lastCall.ID)
	assert.Equal(t, "double", lastCall.ToolName)
	assert.Equal(t, "h1", lastResult.CallID)
	assert.JSONEq(t, `{"y":20}`, lastResult.Content)
	assert.GreaterOrEqual(t, lastDuration, time.Duration(0))
}

func TestRegistry_OnAfter_SeesPanic(t *testing.T) {
	tool, err := NewTool("boom", "Panics", func(_ context.Context, _ struct{}) (string, error) {
		panic("kaboom")
	})
	require.NoError(t, err)
	var lastResult ToolResult
	reg := NewRegistry(WithOnAfterExecute(func(_ context.Context, _ ToolCall, result ToolResult, _ time.Duration) {
		lastResult = result
	}))
	require.NoError(t, reg.Register(tool))
	reg.Execute(context.Background(), ToolCall{ID: "p", ToolName: "boom"})
	assert.True(t, IsSystemError(lastResult.Err))
}

func TestRegistry_OnAfter_ErrorPath(t *testing.T) {
	errSentinel := errors.New("tool error")
	tool, err := NewTool("fail", "Fails", func(_ context.Context, _ xArgs) (string, error) {
		return "", errSentinel
	})
	require.NoError(t, err)
	var afterCalls int
	var lastResult ToolResult
	reg := NewRegistry(WithOnAfterExecute(func(_ context.Context, _ ToolCall, result ToolResult, _ time.Duration) {
		afterCalls++
		lastResult = result
	}))
	require.NoError(t, reg.Register(tool))
	res := reg.Execute(context.Background(), ToolCall{ID: "e1", ToolName: "fail", Args: `{"x": 1}`})
	require.ErrorIs(t, res.Err, errSentinel)
	assert.Equal(t, 1, afterCalls)
	assert.Equal(t, "e1", lastResult.CallID)
	assert.Equal(t, "fail", lastResult.ToolName)
	assert.ErrorIs(t, lastResult.Err, errSentinel)
}

func TestRegistry_Confirm(t *testing.T) {
	var ran bool
	tool, err := NewTool("rm", "Remove", func(_ context.Context, _ struct{}) (string, error) {
		ran = true
		return "removed", nil
	}, WithDangerous())
	require.NoError(t, err)
	safe := newDoubleTool(t)

	var asked []string
	reg := NewRegistry(WithConfirm(func(_ context.Context, call ToolCall) bool {
		asked = append(asked, call.ToolName)
		return false
	}))
	require.NoError(t, reg.Register(tool, safe))

	res := reg.Execute(context.Background(), ToolCall{ID: "1", ToolName: "rm"})
	require.ErrorIs(t, res.Err, ErrRejected)
	assert.False(t, ran)

	res = reg.Execute(context.Background(), ToolCall{ID: "2", ToolName: "double", Args: `{"x":1}`})
	require.NoError(t, res.Err)
	assert.Equal(t, []string{"rm"}, asked)
}

func TestRegistry_MaxConcurrency_Unlimited(t *testing.T) {
	for _, n := range []int{0, -1} {
		name := "Zero"
		if n < 0 {
			name = "Negative"
		}
		t.Run(name, func(t *testing.T) {
			reg := NewRegistry(WithMaxConcurrency(n), WithDefaultTimeout(time.Second))
			require.NoError(t, reg.Register(newDoubleTool(t)))
			for _, args := range []string{`{"x": 1}`, `{"x": 2}`} {
				res := reg.Execute(context.Background(), ToolCall{ID: "1", ToolName: "double", Args: args})
				require.NoError(t, res.Err)
			}
		})
	}
}

func TestDetach_TrackedByRegistry(t *testing.T) {
	finished := make(chan struct{})
	tool, err := NewTool("bg", "Background work", func(ctx context.Context, _ struct{}) (string, error) {
		if err := Detach(ctx, func(bg context.Context) {
			defer close(finished)
			select {
			case <-bg.Done():
			case <-time.After(20 * time.Millisecond):
			}
		}); err != nil {
			return "", err
		}
		return "started", nil
	}, WithTimeout(time.Millisecond))
	require.NoError(t, err)
	reg := NewRegistry()
	require.NoError(t, reg.Register(tool))
	res := reg.Execute(context.Background(), ToolCall{ID: "1", ToolName: "bg"})
	require.NoError(t, res.Err)
	assert.Equal(t, "started", res.Content)
	// The detached work outlives the 1ms tool timeout; Shutdown waits for it.
	shutdown(t, reg)
	select {
	case <-finished:
	default:
		t.Fatal("Shutdown returned before detached work finished")
	}
}

func TestDetach_ShutdownCancels(t *testing.T) {
	canceled := make(chan struct{})
	tool, err := NewTool("bg", "Background work", func(ctx context.Context, _ struct{}) (string, error) {
		return "started", Detach(ctx, func(bg context.Context) {
			<-bg.Done()
			close(canceled)
		})
	})
	require.NoError(t, err)
	reg := NewRegistry()
	require.NoError(t, reg.Register(tool))
	require.NoError(t, reg.Execute(context.Background(), ToolCall{ID: "1", ToolName: "bg"}).Err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, reg.Shutdown(ctx), context.DeadlineExceeded)
	<-canceled
}

func TestDetach_Limit(t *testing.T) {
	release := make(chan struct{})
	tool, err := NewTool("bg", "Background work", func(ctx context.Context, _ struct{}) (string, error) {
		return "started", Detach(ctx, func(context.Context) { <-release })
	})
	require.NoError(t, err)
	reg := NewRegistry(WithMaxDetached(1))
	require.NoError(t, reg.Register(tool))
	require.NoError(t, reg.Execute(context.Background(), ToolCall{ID: "1", ToolName: "bg"}).Err)
	res := reg.Execute(context.Background(), ToolCall{ID: "2", ToolName: "bg"})
	require.ErrorIs(t, res.Err, ErrDetachLimit)
	close(release)
	shutdown(t, reg)
}

func TestDetach_WithoutRegistry(t *testing.T) {
	done := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, Detach(ctx, func(bg context.Context) {
		defer close(done)
		assert.NoError(t, bg.Err())
	}))
	<-done
}
