package toolbridge

import (
	"errors"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	jsv "github.com/santhosh-tekuri/jsonschema/v6"
)

// fieldInfo is one exported struct field as seen through its json tag.
type fieldInfo struct {
	name     string
	index    []int
	field    reflect.StructField
	optional bool // omitempty or omitzero
	def      string
	hasDef   bool
}

// structFields lists the fields of t in declaration order. Embedded structs
// without a json name are flattened the way encoding/json does.
func structFields(t reflect.Type) []fieldInfo {
	var out []fieldInfo
	var walk func(t reflect.Type, index []int)
	walk = func(t reflect.Type, index []int) {
		for i := range t.NumField() {
			f := t.Field(i)
			idx := append(slices.Clone(index), i)
			tag := f.Tag.Get("json")
			if tag == "-" {
				continue
			}
			name, opts, _ := strings.Cut(tag, ",")
			if f.Anonymous && name == "" && f.Type.Kind() == reflect.Struct {
				walk(f.Type, idx)
				continue
			}
			if !f.IsExported() {
				continue
			}
			if name == "" {
				name = f.Name
			}
			def, hasDef := f.Tag.Lookup("default")
			out = append(out, fieldInfo{
				name:     name,
				index:    idx,
				field:    f,
				optional: strings.Contains(opts, "omitempty") || strings.Contains(opts, "omitzero"),
				def:      def,
				hasDef:   hasDef,
			})
		}
	}
	walk(t, nil)
	return out
}

// fieldHint derives the hint of a struct field; an enum tag turns it into a Literal.
func fieldHint(f reflect.StructField) TypeHint {
	enumStr := f.Tag.Get("enum")
	if enumStr == "" {
		return HintOf(f.Type)
	}
	base := f.Type
	for base.Kind() == reflect.Pointer {
		base = base.Elem()
	}
	parts := strings.Split(enumStr, ",")
	values := make([]any, len(parts))
	for i, p := range parts {
		values[i] = parseEnumValue(strings.TrimSpace(p), base.Kind())
	}
	if f.Type.Kind() == reflect.Pointer {
		return Optional(Literal(values...))
	}
	return Literal(values...)
}

func parseEnumValue(s string, kind reflect.Kind) any {
	switch kind {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
	case reflect.Float32, reflect.Float64:
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	case reflect.Bool:
		if b, err := strconv.ParseBool(s); err == nil {
			return b
		}
	}
	return s
}

type recordField struct {
	fieldInfo
	hint TypeHint
}

// recordInfo is everything needed to lower and construct one record type.
type recordInfo struct {
	typ       reflect.Type
	doc       *jsonschema.Schema
	validator *jsv.Schema
	fields    []recordField
}

type recordEntry struct {
	info *recordInfo
	err  error
}

var (
	records = sync.Map{} // reflect.Type -> recordEntry

	errRecursiveRecord = errors.New("recursive record types are not supported")
	errNilSchema       = errors.New("schema reflection returned nil")
)

// recordFor returns the cached record description of struct type t.
func recordFor(t reflect.Type) (*recordInfo, error) {
	if v, ok := records.Load(t); ok {
		e := v.(recordEntry)
		return e.info, e.err
	}
	info, err := buildRecord(t)
	v, _ := records.LoadOrStore(t, recordEntry{info: info, err: err})
	e := v.(recordEntry)
	return e.info, e.err
}

func buildRecord(t reflect.Type) (*recordInfo, error) {
	if t == nil || t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("record type must be a struct, got %v", t)
	}
	if isRecursive(t, nil) {
		return nil, fmt.Errorf("%s: %w", t, errRecursiveRecord)
	}
	r := &jsonschema.Reflector{
		Anonymous:                 true,
		DoNotReference:            true,
		ExpandedStruct:            true,
		AllowAdditionalProperties: true,
		Mapper:                    mapCustomType,
	}
	doc := r.ReflectFromType(t)
	if doc == nil {
		return nil, errNilSchema
	}
	enrichRecord(doc, t)
	clearSchemaNoise(doc)
	validator, err := compileSchema(doc)
	if err != nil {
		return nil, fmt.Errorf("compile record schema for %s: %w", t, err)
	}
	info := &recordInfo{typ: t, doc: doc, validator: validator}
	for _, f := range structFields(t) {
		info.fields = append(info.fields, recordField{fieldInfo: f, hint: fieldHint(f.field)})
	}
	return info, nil
}

// mapCustomType splices our own lowering into reflected documents for the types
// whose reflected form would disagree with coercion (sets, tuples, registered types).
func mapCustomType(t reflect.Type) *jsonschema.Schema {
	if h, ok := lookupCustomType(t); ok {
		s, _ := Lower(h)
		return s.jsonSchema()
	}
	switch {
	case t.Kind() == reflect.Map && t.Elem() == emptyType,
		t.Kind() == reflect.Array:
		s, _ := Lower(HintOf(t))
		return s.jsonSchema()
	}
	return nil
}

func isRecursive(t reflect.Type, seen []reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Array, reflect.Map:
		return isRecursive(t.Elem(), seen)
	case reflect.Struct:
		if t == timeType {
			return false
		}
		if slices.Contains(seen, t) {
			return true
		}
		seen = append(seen, t)
		for i := range t.NumField() {
			if isRecursive(t.Field(i).Type, seen) {
				return true
			}
		}
	}
	return false
}

// enrichRecord adds description and enum from struct tags, marks pointer fields
// nullable and recomputes required (no default tag, no omitempty/omitzero),
// recursing into nested records.
func enrichRecord(s *jsonschema.Schema, t reflect.Type) {
	if s == nil {
		return
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Slice:
		enrichRecord(s.Items, t.Elem())
		return
	case reflect.Map:
		if t.Elem() != emptyType {
			enrichRecord(s.AdditionalProperties, t.Elem())
		}
		return
	case reflect.Struct:
	default:
		return
	}
	if t == timeType || s.Properties == nil {
		return
	}
	if _, custom := lookupCustomType(t); custom {
		return
	}
	var required []string
	for _, f := range structFields(t) {
		prop, ok := s.Properties.Get(f.name)
		if !ok || prop == nil {
			continue
		}
		if desc := f.field.Tag.Get("description"); desc != "" {
			prop.Description = desc
		}
		if h := fieldHint(f.field); h.kind == KindLiteral || (h.kind == KindOptional && h.elems[0].kind == KindLiteral) {
			if h.kind == KindOptional {
				h = h.elems[0]
			}
			prop.Enum = h.Values()
		}
		if f.field.Type.Kind() == reflect.Pointer {
			extras := maps.Clone(prop.Extras)
			if extras == nil {
				extras = make(map[string]any)
			}
			extras["nullable"] = true
			prop.Extras = extras
		}
		if !f.optional && !f.hasDef {
			required = append(required, f.name)
		}
		enrichRecord(prop, f.field.Type)
	}
	s.Required = required
}

// clearSchemaNoise drops title, $schema and $id at every nesting level. Nodes
// are only written when something is set, so already-clean shared nodes are
// never mutated.
func clearSchemaNoise(s *jsonschema.Schema) {
	if s == nil {
		return
	}
	if s.Title != "" {
		s.Title = ""
	}
	if s.Version != "" {
		s.Version = ""
	}
	if s.ID != "" {
		s.ID = ""
	}
	if s.Properties != nil {
		for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
			clearSchemaNoise(pair.Value)
		}
	}
	clearSchemaNoise(s.Items)
	clearSchemaNoise(s.AdditionalProperties)
	for _, group := range [][]*jsonschema.Schema{s.PrefixItems, s.AnyOf, s.OneOf, s.AllOf} {
		for _, sub := range group {
			clearSchemaNoise(sub)
		}
	}
	for _, def := range s.Definitions {
		clearSchemaNoise(def)
	}
}
