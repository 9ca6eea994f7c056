package toolbridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for toolbridge. Use errors.Is to check.
var (
	ErrToolNotFound     = errors.New("function not found with name")
	ErrDuplicateTool    = errors.New("tool already registered")
	ErrTimeout          = errors.New("tool execution timeout")
	ErrInvalidArguments = errors.New("invalid arguments")
	ErrValidation       = errors.New("validation failed")
	ErrShutdown         = errors.New("registry is shutting down")
	ErrRejected         = errors.New("tool call rejected")
	ErrDetachLimit      = errors.New("too many background tasks")
	ErrTransport        = errors.New("model request failed")
	ErrMaxIterations    = errors.New("too many model requests in one turn")
)

// ClientError is an argument problem the model can fix on its next request
// (malformed JSON, missing argument, value that cannot be coerced).
// Err optionally wraps a sentinel or a *CoercionError for errors.Is/errors.As.
type ClientError struct {
	Reason string
	Err    error
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("invalid tool input: %s", e.Reason)
}

func (e *ClientError) Unwrap() error { return e.Err }

// SystemError is a failure inside the tool machinery rather than in the
// callable's own logic, typically a recovered panic.
type SystemError struct {
	Err error
}

func (e *SystemError) Error() string {
	if e.Err == nil {
		return "internal error during tool execution"
	}
	return "internal error during tool execution: " + e.Err.Error()
}

func (e *SystemError) Unwrap() error { return e.Err }

// CoercionError reports a raw argument value that could not be shaped into the
// declared type. Only union exhaustion and tuple arity problems produce it;
// record and container mismatches fall back to the raw value instead.
type CoercionError struct {
	Hint   TypeHint
	Value  any
	Reason string
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("could not convert %s to %s: %s", preview(e.Value), e.Hint, e.Reason)
}

// IsClientError returns true if err is or wraps a ClientError.
func IsClientError(err error) bool {
	var ce *ClientError
	return errors.As(err, &ce)
}

// IsSystemError returns true if err is or wraps a SystemError.
func IsSystemError(err error) bool {
	var se *SystemError
	return errors.As(err, &se)
}

// wrapJSONParseError returns a ClientError for argument payloads that are not a JSON object.
func wrapJSONParseError(err error) error {
	return &ClientError{Reason: "json parse error: " + err.Error(), Err: ErrInvalidArguments}
}

func argumentError(name string, err error) error {
	return &ClientError{Reason: fmt.Sprintf("argument %q: %v", name, err), Err: err}
}

// panicError wraps a recovered panic value for SystemError; used by Registry and WithRecovery middleware.
type panicError struct{ p any }

func (e *panicError) Error() string {
	return "panic: " + fmt.Sprint(e.p)
}

// preview renders a raw value for error messages, truncated so huge payloads
// do not flood the conversation.
func preview(v any) string {
	s := fmt.Sprint(v)
	if b, err := json.Marshal(v); err == nil {
		s = string(b)
	}
	const limit = 80
	if len(s) > limit {
		s = s[:limit] + "..."
	}
	return strings.ReplaceAll(s, "\n", " ")
}
