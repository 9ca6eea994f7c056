package toolbridge

import (
	"reflect"
	"slices"
)

// Extractor turns model argument objects into a typed struct T without binding
// to the Tool interface. Use it in custom orchestrators that need the parameter
// schema and coerced arguments but run the handler themselves.
type Extractor[T any] struct {
	params []Parameter
}

// NewExtractor introspects T. doc is a Google-style docstring used for parameter descriptions.
func NewExtractor[T any](doc string, opts ...ToolOption) (*Extractor[T], error) {
	o := newToolOptions(opts)
	e, err := newExtractor[T](ParseDocstring(doc), &o)
	if err != nil {
		return nil, err
	}
	lowerParameters(e.params, func(param, warning string) { o.warn("", param, warning) })
	return e, nil
}

func newExtractor[T any](doc Docstring, o *toolOptions) (*Extractor[T], error) {
	params, err := introspectStruct(reflect.TypeFor[T](), doc, o)
	if err != nil {
		return nil, err
	}
	return &Extractor[T]{params: params}, nil
}

// Parameters returns the parameters of T in declaration order.
func (e *Extractor[T]) Parameters() []Parameter {
	return slices.Clone(e.params)
}

// ParseAndCoerce decodes argsJSON and extracts T from it. Returns ClientError
// for invalid JSON, unknown or missing arguments, values that cannot be coerced,
// and Validatable failures, so the caller can pass the message back to the model.
func (e *Extractor[T]) ParseAndCoerce(argsJSON []byte) (T, error) {
	var zero T
	args, err := decodeArgs(argsJSON)
	if err != nil {
		return zero, err
	}
	if err := checkArgs(e.params, args); err != nil {
		return zero, err
	}
	return e.Extract(args)
}

// Extract coerces each present argument per its hint and binds it into T.
// Omitted parameters take their default tag value, or stay zero.
func (e *Extractor[T]) Extract(args map[string]any) (T, error) {
	var v, zero T
	rv := reflect.ValueOf(&v).Elem()
	for _, p := range e.params {
		raw, ok := args[p.Name]
		if !ok {
			if !p.HasDefault {
				continue
			}
			raw = p.Default
		}
		c, err := Coerce(p.Hint, raw)
		if err != nil {
			return zero, argumentError(p.Name, err)
		}
		if err := bindValue(rv.FieldByIndex(p.index), c); err != nil {
			return zero, argumentError(p.Name, err)
		}
	}
	if err := runValidatable(v); err != nil {
		if IsClientError(err) {
			return zero, err
		}
		return zero, &ClientError{Reason: err.Error(), Err: ErrValidation}
	}
	return v, nil
}
