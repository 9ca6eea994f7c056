package toolbridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"slices"
	"time"

	jsv "github.com/santhosh-tekuri/jsonschema/v6"
)

var toolNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// tool is the internal implementation of Tool built by NewTool or NewDynamicTool.
type tool struct {
	desc      Descriptor
	validator *jsv.Schema
	call      func(context.Context, map[string]any) (any, error)
	opts      toolOptions
}

// NewTool builds a Tool from a typed function. T must be a struct; each exported
// field is one parameter, named by its json tag, in declaration order. doc is a
// Google-style docstring supplying the tool description, per-parameter
// descriptions (Args:) and the result description (Returns:).
//
// Field tags:
//
//	json:"name,omitempty"   optional parameter (zero value when omitted)
//	default:"<json>"        optional parameter bound to the default when omitted
//	description:"..."       fallback when the docstring has no entry
//	enum:"a,b,c"            Literal hint
//
// Execute coerces the model's arguments into T, calls fn and renders the result
// as text: strings verbatim, everything else as JSON.
// Returns an error if the name is invalid or T cannot describe parameters.
func NewTool[T any, R any](
	name, doc string,
	fn func(ctx context.Context, args T) (R, error),
	opts ...ToolOption,
) (Tool, error) {
	if fn == nil {
		return nil, fmt.Errorf("tool %q: handler must not be nil", name)
	}
	o := newToolOptions(opts)
	ds := ParseDocstring(doc)
	ext, err := newExtractor[T](ds, &o)
	if err != nil {
		return nil, fmt.Errorf("tool %q: %w", name, err)
	}
	call := func(ctx context.Context, args map[string]any) (any, error) {
		v, err := ext.Extract(args)
		if err != nil {
			return nil, err
		}
		return fn(ctx, v)
	}
	return build(name, ds, ext.params, &o, call)
}

// Args holds the coerced arguments passed to a dynamic tool's handler.
type Args map[string]any

// ArgAs returns args[name] as T. ok is false when the argument is absent or has another type.
func ArgAs[T any](args Args, name string) (T, bool) {
	v, ok := args[name].(T)
	return v, ok
}

// NewDynamicTool creates a Tool from explicitly declared parameters. Use it when
// the parameter list is only known at runtime. Present arguments are coerced
// per their hint; omitted optional parameters receive their default verbatim.
func NewDynamicTool(
	name, doc string,
	params []Param,
	fn func(ctx context.Context, args Args) (any, error),
	opts ...ToolOption,
) (Tool, error) {
	if fn == nil {
		return nil, fmt.Errorf("tool %q: handler must not be nil", name)
	}
	o := newToolOptions(opts)
	ds := ParseDocstring(doc)
	declared, err := introspectParams(params, ds, &o)
	if err != nil {
		return nil, fmt.Errorf("tool %q: %w", name, err)
	}
	call := func(ctx context.Context, raw map[string]any) (any, error) {
		args := make(Args, len(declared))
		for _, p := range declared {
			v, ok := raw[p.Name]
			if !ok {
				if p.HasDefault {
					args[p.Name] = p.Default
				}
				continue
			}
			c, err := Coerce(p.Hint, v)
			if err != nil {
				return nil, argumentError(p.Name, err)
			}
			args[p.Name] = c
		}
		return fn(ctx, args)
	}
	return build(name, ds, declared, &o, call)
}

func newToolOptions(opts []ToolOption) toolOptions {
	var o toolOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func build(
	name string,
	doc Docstring,
	params []Parameter,
	o *toolOptions,
	call func(context.Context, map[string]any) (any, error),
) (*tool, error) {
	if !toolNamePattern.MatchString(name) {
		return nil, fmt.Errorf("invalid tool name %q: want 1-64 letters, digits, '_' or '-'", name)
	}
	desc := synthesize(name, doc, params, o)
	schemaMap, err := desc.validationSchema()
	if err != nil {
		return nil, fmt.Errorf("tool %q: %w", name, err)
	}
	validator, err := compileSchema(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("tool %q: compile parameters schema: %w", name, err)
	}
	return &tool{desc: desc, validator: validator, call: call, opts: *o}, nil
}

func (t *tool) Name() string        { return t.desc.Name }
func (t *tool) Description() string { return t.desc.Description }

// Descriptor returns a copy; the parameter slice is not shared with the tool.
func (t *tool) Descriptor() Descriptor {
	d := t.desc
	d.Parameters = slices.Clone(t.desc.Parameters)
	d.Warnings = slices.Clone(t.desc.Warnings)
	return d
}

func (t *tool) Execute(ctx context.Context, argsJSON []byte) (string, error) {
	args, err := decodeArgs(argsJSON)
	if err != nil {
		return "", err
	}
	if t.opts.validate {
		if err := t.validator.Validate(any(args)); err != nil {
			return "", &ClientError{Reason: err.Error(), Err: ErrValidation}
		}
	}
	if err := checkArgs(t.desc.Parameters, args); err != nil {
		return "", err
	}
	res, err := t.call(ctx, args)
	if err != nil {
		return "", err
	}
	return stringify(res)
}

func (t *tool) Timeout() time.Duration { return t.opts.timeout }
func (t *tool) Tags() []string         { return slices.Clone(t.opts.tags) }
func (t *tool) IsDangerous() bool      { return t.opts.dangerous }

// decodeArgs parses the argument payload. An empty payload or null means no arguments.
func decodeArgs(argsJSON []byte) (map[string]any, error) {
	trimmed := bytes.TrimSpace(argsJSON)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return map[string]any{}, nil
	}
	var v any
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return nil, wrapJSONParseError(err)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, wrapJSONParseError(errors.New("arguments must be a JSON object"))
	}
	return m, nil
}

// checkArgs rejects unknown arguments and reports the first missing required one.
func checkArgs(params []Parameter, args map[string]any) error {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if !slices.ContainsFunc(params, func(p Parameter) bool { return p.Name == k }) {
			return &ClientError{Reason: fmt.Sprintf("unexpected argument %q", k), Err: ErrInvalidArguments}
		}
	}
	for _, p := range params {
		if _, ok := args[p.Name]; p.Required && !ok {
			return &ClientError{Reason: fmt.Sprintf("missing required argument %q", p.Name), Err: ErrInvalidArguments}
		}
	}
	return nil
}

// stringify renders a callable's result as tool-result content.
func stringify(v any) (string, error) {
	if v == nil {
		return "null", nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		if rv.IsNil() {
			return "null", nil
		}
	}
	switch r := v.(type) {
	case string:
		return r, nil
	case []byte:
		return string(r), nil
	case error:
		return r.Error(), nil
	case fmt.Stringer:
		return r.String(), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", &SystemError{Err: fmt.Errorf("encode result: %w", err)}
	}
	return string(b), nil
}

var (
	_ Tool         = (*tool)(nil)
	_ ToolMetadata = (*tool)(nil)
)
