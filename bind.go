package toolbridge

import (
	"encoding"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
)

var (
	jsonUnmarshalerType = reflect.TypeFor[json.Unmarshaler]()
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
)

// bindValue stores a coerced value into a typed destination. Numbers arrive as
// float64 and must fit the destination exactly; records arrive already built.
func bindValue(dst reflect.Value, src any) error {
	t := dst.Type()
	if src == nil {
		dst.SetZero()
		return nil
	}
	if t.Kind() == reflect.Pointer {
		elem := reflect.New(t.Elem())
		if err := bindValue(elem.Elem(), src); err != nil {
			return err
		}
		dst.Set(elem)
		return nil
	}
	sv := reflect.ValueOf(src)
	if sv.Type().AssignableTo(t) {
		dst.Set(sv)
		return nil
	}
	if decodesItself(t) {
		return bindJSON(dst, src)
	}
	switch t.Kind() {
	case reflect.String:
		if s, ok := src.(string); ok {
			dst.SetString(s)
			return nil
		}
	case reflect.Bool:
		if b, ok := src.(bool); ok {
			dst.SetBool(b)
			return nil
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if !isIntegral(src) {
			break
		}
		f, _ := asFloat(src)
		n := int64(f)
		if f < math.MinInt64 || f >= math.MaxInt64 || dst.OverflowInt(n) {
			return fmt.Errorf("%w: %v overflows %s", ErrInvalidArguments, n, t)
		}
		dst.SetInt(n)
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if !isIntegral(src) {
			break
		}
		f, _ := asFloat(src)
		if f < 0 || f >= math.MaxUint64 || dst.OverflowUint(uint64(f)) {
			return fmt.Errorf("%w: %v out of range for %s", ErrInvalidArguments, f, t)
		}
		dst.SetUint(uint64(f))
		return nil
	case reflect.Float32, reflect.Float64:
		if f, ok := asFloat(src); ok {
			if dst.OverflowFloat(f) {
				return fmt.Errorf("%w: %v overflows %s", ErrInvalidArguments, f, t)
			}
			dst.SetFloat(f)
			return nil
		}
	case reflect.Slice:
		if s, ok := src.(string); ok && t.Elem().Kind() == reflect.Uint8 {
			dst.SetBytes([]byte(s))
			return nil
		}
		items, ok := sequence(src)
		if !ok {
			break
		}
		out := reflect.MakeSlice(t, len(items), len(items))
		for i, item := range items {
			if err := bindValue(out.Index(i), item); err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
		}
		dst.Set(out)
		return nil
	case reflect.Array:
		items, ok := sequence(src)
		if !ok {
			break
		}
		if len(items) != t.Len() {
			return fmt.Errorf("%w: expected %d items, got %d", ErrInvalidArguments, t.Len(), len(items))
		}
		for i, item := range items {
			if err := bindValue(dst.Index(i), item); err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
		}
		return nil
	case reflect.Map:
		return bindMap(dst, src)
	}
	return fmt.Errorf("%w: cannot use %s as %s", ErrInvalidArguments, preview(src), t)
}

func bindMap(dst reflect.Value, src any) error {
	t := dst.Type()
	out := reflect.MakeMap(t)
	if t.Elem() == emptyType {
		items, ok := sequence(src)
		if !ok {
			return fmt.Errorf("%w: cannot use %s as %s", ErrInvalidArguments, preview(src), t)
		}
		member := reflect.Zero(t.Elem())
		for i, item := range items {
			key := reflect.New(t.Key()).Elem()
			if err := bindValue(key, item); err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
			out.SetMapIndex(key, member)
		}
		dst.Set(out)
		return nil
	}
	m, ok := src.(map[string]any)
	if !ok || t.Key().Kind() != reflect.String {
		return fmt.Errorf("%w: cannot use %s as %s", ErrInvalidArguments, preview(src), t)
	}
	for k, v := range m {
		key := reflect.New(t.Key()).Elem()
		key.SetString(k)
		val := reflect.New(t.Elem()).Elem()
		if err := bindValue(val, v); err != nil {
			return fmt.Errorf("key %q: %w", k, err)
		}
		out.SetMapIndex(key, val)
	}
	dst.Set(out)
	return nil
}

// sequence reads arrays and sets as a slice of members.
func sequence(src any) ([]any, bool) {
	switch v := src.(type) {
	case []any:
		return v, true
	case ValueSet:
		return v.Values(), true
	}
	return nil, false
}

func decodesItself(t reflect.Type) bool {
	if t == timeType {
		return true
	}
	if _, ok := lookupCustomType(t); ok {
		return true
	}
	pt := reflect.PointerTo(t)
	return pt.Implements(jsonUnmarshalerType) || pt.Implements(textUnmarshalerType)
}

// bindJSON hands the value to the type's own decoder through a JSON round trip.
func bindJSON(dst reflect.Value, src any) error {
	data, err := json.Marshal(src)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	ptr := reflect.New(dst.Type())
	if err := json.Unmarshal(data, ptr.Interface()); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	dst.Set(ptr.Elem())
	return nil
}
