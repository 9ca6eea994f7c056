package toolbridge

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strings"
)

// Coerce shapes one raw argument value (as decoded from the model's JSON) into
// the value h declares. Rules, in priority order:
//
//   - Record with a JSON object: construct the struct; on any failure the raw
//     object is returned unchanged.
//   - List: element-wise, order preserved.
//   - Dict: value-wise, keys unchanged.
//   - Union: the first variant that accepts the value; none is an error.
//   - Tuple: positional, arity must match exactly.
//   - Set: element-wise into a ValueSet, duplicates collapse.
//   - Anything else passes through unchanged.
//
// Containers whose raw value has the wrong JSON shape are returned unchanged.
// Only union exhaustion and tuple problems produce a *CoercionError.
func Coerce(h TypeHint, raw any) (any, error) {
	switch h.kind {
	case KindRecord:
		if v, ok := constructRecord(h.record, raw); ok {
			return v, nil
		}
		return raw, nil
	case KindList:
		items, ok := raw.([]any)
		if !ok || len(h.elems) == 0 {
			return raw, nil
		}
		out := make([]any, len(items))
		for i, item := range items {
			c, err := Coerce(h.elems[0], item)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			out[i] = c
		}
		return out, nil
	case KindDict:
		m, ok := raw.(map[string]any)
		if !ok {
			return raw, nil
		}
		out := make(map[string]any, len(m))
		for k, v := range m {
			c, err := Coerce(h.elems[0], v)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			out[k] = c
		}
		return out, nil
	case KindUnion:
		return coerceUnion(h, raw)
	case KindTuple:
		items, ok := raw.([]any)
		if !ok {
			return nil, &CoercionError{Hint: h, Value: raw, Reason: "expected an array"}
		}
		if len(items) != len(h.elems) {
			return nil, &CoercionError{
				Hint:   h,
				Value:  raw,
				Reason: fmt.Sprintf("expected %d items, got %d", len(h.elems), len(items)),
			}
		}
		out := make([]any, len(items))
		for i, item := range items {
			c, err := Coerce(h.elems[i], item)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			out[i] = c
		}
		return out, nil
	case KindSet:
		items, ok := raw.([]any)
		if !ok {
			return raw, nil
		}
		set := NewValueSet()
		for i, item := range items {
			c, err := Coerce(h.elems[0], item)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			set.add(c)
		}
		return set, nil
	case KindOptional:
		if raw == nil {
			return nil, nil
		}
		return Coerce(h.elems[0], raw)
	}
	return raw, nil
}

func coerceUnion(h TypeHint, raw any) (any, error) {
	for _, v := range h.elems {
		if !matches(v, raw) {
			continue
		}
		c, err := Coerce(v, raw)
		if err != nil {
			continue
		}
		return c, nil
	}
	return nil, &CoercionError{Hint: h, Value: raw, Reason: "value matches none of the variants"}
}

// matches reports whether raw has the JSON shape h describes. Union coercion
// uses it so a variant is only chosen when it genuinely fits.
func matches(h TypeHint, raw any) bool {
	switch h.kind {
	case KindAny, KindUnsupported:
		return true
	case KindString:
		_, ok := raw.(string)
		return ok
	case KindInteger:
		return isIntegral(raw)
	case KindNumber:
		_, ok := asFloat(raw)
		return ok
	case KindBoolean:
		_, ok := raw.(bool)
		return ok
	case KindNull:
		return raw == nil
	case KindOptional:
		return raw == nil || matches(h.elems[0], raw)
	case KindList, KindSet:
		items, ok := raw.([]any)
		if !ok {
			return false
		}
		if len(h.elems) == 0 {
			return true
		}
		for _, item := range items {
			if !matches(h.elems[0], item) {
				return false
			}
		}
		return true
	case KindTuple:
		items, ok := raw.([]any)
		if !ok || len(items) != len(h.elems) {
			return false
		}
		for i, item := range items {
			if !matches(h.elems[i], item) {
				return false
			}
		}
		return true
	case KindDict:
		m, ok := raw.(map[string]any)
		if !ok {
			return false
		}
		for _, v := range m {
			if !matches(h.elems[0], v) {
				return false
			}
		}
		return true
	case KindUnion:
		for _, v := range h.elems {
			if matches(v, raw) {
				return true
			}
		}
		return false
	case KindLiteral:
		return literalContains(h.values, raw)
	case KindRecord:
		_, ok := constructRecord(h.record, raw)
		return ok
	}
	return false
}

// constructRecord builds a value of struct type t from a JSON object. ok is
// false when raw is not an object, fails the record schema, or a field cannot
// be coerced or bound.
func constructRecord(t reflect.Type, raw any) (any, bool) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, false
	}
	info, err := recordFor(t)
	if err != nil {
		return nil, false
	}
	if err := info.validator.Validate(m); err != nil {
		return nil, false
	}
	v, err := info.build(m)
	if err != nil {
		return nil, false
	}
	return v, true
}

func (info *recordInfo) build(m map[string]any) (any, error) {
	rv := reflect.New(info.typ).Elem()
	for _, f := range info.fields {
		raw, ok := m[f.name]
		if !ok {
			if !f.hasDef {
				continue
			}
			raw = parseDefault(f.def)
		}
		c, err := Coerce(f.hint, raw)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.name, err)
		}
		if err := bindValue(rv.FieldByIndex(f.index), c); err != nil {
			return nil, fmt.Errorf("field %q: %w", f.name, err)
		}
	}
	return rv.Interface(), nil
}

// parseDefault reads a default tag as JSON, falling back to the literal text
// so default:"." means the string ".".
func parseDefault(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	return v
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	}
	return 0, false
}

func isIntegral(v any) bool {
	if n, ok := v.(json.Number); ok {
		_, err := n.Int64()
		return err == nil
	}
	f, ok := asFloat(v)
	return ok && !math.IsInf(f, 0) && f == math.Trunc(f)
}

func literalContains(values []any, raw any) bool {
	rf, rawNumeric := asFloat(raw)
	for _, v := range values {
		if vf, ok := asFloat(v); ok && rawNumeric {
			if vf == rf {
				return true
			}
			continue
		}
		if reflect.DeepEqual(v, raw) {
			return true
		}
	}
	return false
}

// ValueSet is the coerced form of a Set hint: an unordered collection of
// unique values, keyed by their canonical JSON encoding.
type ValueSet struct {
	items map[string]any
}

// NewValueSet returns a set holding values, duplicates collapsed.
func NewValueSet(values ...any) ValueSet {
	s := ValueSet{items: make(map[string]any, len(values))}
	for _, v := range values {
		s.add(v)
	}
	return s
}

func (s ValueSet) add(v any) {
	s.items[setKey(v)] = v
}

func (s ValueSet) Len() int { return len(s.items) }

func (s ValueSet) Contains(v any) bool {
	_, ok := s.items[setKey(v)]
	return ok
}

// Values returns the members ordered by their canonical encoding.
func (s ValueSet) Values() []any {
	keys := make([]string, 0, len(s.items))
	for k := range s.items {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	out := make([]any, len(keys))
	for i, k := range keys {
		out[i] = s.items[k]
	}
	return out
}

func (s ValueSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Values())
}

func (s ValueSet) String() string {
	parts := make([]string, 0, len(s.items))
	for _, v := range s.Values() {
		parts = append(parts, preview(v))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func setKey(v any) string {
	if f, ok := asFloat(v); ok {
		v = f
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%#v", v)
	}
	return string(b)
}
