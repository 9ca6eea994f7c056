package toolbridge

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"
)

// Kind identifies the variant of a TypeHint.
type Kind int

const (
	KindAny Kind = iota
	KindString
	KindInteger
	KindNumber
	KindBoolean
	KindNull
	KindOptional
	KindList
	KindDict
	KindTuple
	KindSet
	KindUnion
	KindLiteral
	KindRecord
	KindUnsupported
)

var kindNames = [...]string{
	KindAny:         "any",
	KindString:      "string",
	KindInteger:     "integer",
	KindNumber:      "number",
	KindBoolean:     "boolean",
	KindNull:        "null",
	KindOptional:    "optional",
	KindList:        "list",
	KindDict:        "dict",
	KindTuple:       "tuple",
	KindSet:         "set",
	KindUnion:       "union",
	KindLiteral:     "literal",
	KindRecord:      "record",
	KindUnsupported: "unsupported",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// TypeHint is the declared type of a tool parameter. It drives both the schema
// shown to the model and the coercion of the model's raw arguments.
//
// The zero value is Any.
type TypeHint struct {
	kind   Kind
	elems  []TypeHint
	values []any
	record reflect.Type
	name   string
}

// Any accepts every value and lowers to an empty schema.
func Any() TypeHint { return TypeHint{kind: KindAny} }

func String() TypeHint  { return TypeHint{kind: KindString} }
func Integer() TypeHint { return TypeHint{kind: KindInteger} }
func Number() TypeHint  { return TypeHint{kind: KindNumber} }
func Boolean() TypeHint { return TypeHint{kind: KindBoolean} }
func Null() TypeHint    { return TypeHint{kind: KindNull} }

// Optional marks h as nullable.
func Optional(h TypeHint) TypeHint {
	return TypeHint{kind: KindOptional, elems: []TypeHint{h}}
}

// List is a homogeneous array of elem.
func List(elem TypeHint) TypeHint {
	return TypeHint{kind: KindList, elems: []TypeHint{elem}}
}

// BareList is an array with no declared element type.
func BareList() TypeHint { return TypeHint{kind: KindList} }

// Dict is a string-keyed mapping whose values are coerced to value.
func Dict(value TypeHint) TypeHint {
	return TypeHint{kind: KindDict, elems: []TypeHint{value}}
}

// Tuple is a fixed-arity positional array.
func Tuple(elems ...TypeHint) TypeHint {
	return TypeHint{kind: KindTuple, elems: elems}
}

// Set is an unordered collection of unique elem values.
func Set(elem TypeHint) TypeHint {
	return TypeHint{kind: KindSet, elems: []TypeHint{elem}}
}

// Union accepts any of the variants, tried in declaration order.
func Union(variants ...TypeHint) TypeHint {
	return TypeHint{kind: KindUnion, elems: variants}
}

// Literal restricts a value to the given constants.
func Literal(values ...any) TypeHint {
	return TypeHint{kind: KindLiteral, values: values}
}

// Record binds a JSON object to the struct type t (pointers are dereferenced).
func Record(t reflect.Type) TypeHint {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return TypeHint{kind: KindRecord, record: t}
}

// RecordOf is Record for the static type T.
func RecordOf[T any]() TypeHint {
	return Record(reflect.TypeFor[T]())
}

// Unsupported is a hint that has no schema form. name describes the source type.
func Unsupported(name string) TypeHint {
	return TypeHint{kind: KindUnsupported, name: name}
}

func (h TypeHint) Kind() Kind { return h.kind }

// Elem returns the element hint of Optional, List, Dict and Set. ok is false for
// bare lists and every other kind.
func (h TypeHint) Elem() (TypeHint, bool) {
	switch h.kind {
	case KindOptional, KindList, KindDict, KindSet:
		if len(h.elems) == 1 {
			return h.elems[0], true
		}
	}
	return TypeHint{}, false
}

// Elems returns tuple positions or union variants.
func (h TypeHint) Elems() []TypeHint {
	return append([]TypeHint(nil), h.elems...)
}

// Values returns the constants of a Literal.
func (h TypeHint) Values() []any {
	return append([]any(nil), h.values...)
}

// RecordType returns the struct type of a Record hint, or nil.
func (h TypeHint) RecordType() reflect.Type { return h.record }

func (h TypeHint) String() string {
	switch h.kind {
	case KindOptional:
		return "optional[" + h.elems[0].String() + "]"
	case KindList:
		if len(h.elems) == 0 {
			return "list"
		}
		return "list[" + h.elems[0].String() + "]"
	case KindDict:
		return "dict[string, " + h.elems[0].String() + "]"
	case KindSet:
		return "set[" + h.elems[0].String() + "]"
	case KindTuple:
		return "tuple[" + joinHints(h.elems) + "]"
	case KindUnion:
		return "union[" + joinHints(h.elems) + "]"
	case KindLiteral:
		parts := make([]string, len(h.values))
		for i, v := range h.values {
			parts[i] = preview(v)
		}
		return "literal[" + strings.Join(parts, ", ") + "]"
	case KindRecord:
		return h.record.String()
	case KindUnsupported:
		return h.name
	default:
		return h.kind.String()
	}
}

func joinHints(hs []TypeHint) string {
	parts := make([]string, len(hs))
	for i, e := range hs {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}

var (
	customTypesMu sync.RWMutex
	customTypes   = make(map[reflect.Type]TypeHint)
)

// RegisterType maps a custom Go type to a hint for HintOf.
// emptyInstance is a value of the type to register (e.g. uuid.UUID{}); it must not be nil.
// Pointer fields (*T) become Optional of the registered hint; register the value type once.
// Call RegisterType at application startup before the first NewTool.
func RegisterType(emptyInstance any, hint TypeHint) {
	if emptyInstance == nil {
		panic("toolbridge: RegisterType emptyInstance must not be nil")
	}
	t := reflect.TypeOf(emptyInstance)
	customTypesMu.Lock()
	defer customTypesMu.Unlock()
	customTypes[t] = hint
}

func lookupCustomType(t reflect.Type) (TypeHint, bool) {
	customTypesMu.RLock()
	defer customTypesMu.RUnlock()
	h, ok := customTypes[t]
	return h, ok
}

var (
	timeType  = reflect.TypeFor[time.Time]()
	emptyType = reflect.TypeFor[struct{}]()
)

// HintOf derives a TypeHint from a Go type.
//
//	string                 -> String
//	bool                   -> Boolean
//	int*, uint*            -> Integer
//	float*                 -> Number
//	*T                     -> Optional(T)
//	[]byte, time.Time      -> String
//	[]any                  -> BareList
//	[]T                    -> List(T)
//	[N]T                   -> Tuple(T, ..., T)
//	map[K]struct{}         -> Set(K)
//	map[string]T           -> Dict(T)
//	struct                 -> Record
//	any                    -> Any
//
// Everything else (channels, funcs, complex numbers, non-empty interfaces,
// maps with non-string keys) is Unsupported.
func HintOf(t reflect.Type) TypeHint {
	if t == nil {
		return Any()
	}
	if h, ok := lookupCustomType(t); ok {
		return h
	}
	if t == timeType {
		return String()
	}
	switch t.Kind() {
	case reflect.String:
		return String()
	case reflect.Bool:
		return Boolean()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Integer()
	case reflect.Float32, reflect.Float64:
		return Number()
	case reflect.Pointer:
		return Optional(HintOf(t.Elem()))
	case reflect.Interface:
		if t.NumMethod() == 0 {
			return Any()
		}
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return String()
		}
		if t.Elem().Kind() == reflect.Interface && t.Elem().NumMethod() == 0 {
			return BareList()
		}
		return List(HintOf(t.Elem()))
	case reflect.Array:
		elems := make([]TypeHint, t.Len())
		for i := range elems {
			elems[i] = HintOf(t.Elem())
		}
		return Tuple(elems...)
	case reflect.Map:
		if t.Elem() == emptyType {
			return Set(HintOf(t.Key()))
		}
		if t.Key().Kind() == reflect.String {
			return Dict(HintOf(t.Elem()))
		}
	case reflect.Struct:
		return Record(t)
	}
	return Unsupported(t.String())
}
