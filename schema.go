package toolbridge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"reflect"
	"slices"

	"github.com/invopop/jsonschema"
	jsv "github.com/santhosh-tekuri/jsonschema/v6"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ParameterSchema is the tool-calling schema fragment for one TypeHint.
// Types holds one tag, a list of tags for unions, or nothing for Any.
// Record is set instead of the other fields when the hint is a record.
type ParameterSchema struct {
	Types       []string
	Items       *ParameterSchema
	PrefixItems []ParameterSchema
	Fixed       bool
	UniqueItems bool
	Enum        []any
	Nullable    bool
	Record      *jsonschema.Schema
	Description string
}

// IsEmpty reports whether the schema accepts anything ({}).
func (s ParameterSchema) IsEmpty() bool {
	return len(s.Types) == 0 && s.Items == nil && !s.Fixed && !s.UniqueItems &&
		s.Enum == nil && !s.Nullable && s.Record == nil && s.Description == ""
}

func (s ParameterSchema) typeTags() []string {
	if s.Record != nil {
		return []string{"object"}
	}
	return s.Types
}

// MarshalJSON emits keys in a stable order: type, items, prefixItems, minItems,
// maxItems, uniqueItems, enum, nullable, description.
func (s ParameterSchema) MarshalJSON() ([]byte, error) {
	if s.Record != nil {
		doc := *s.Record
		if s.Description != "" {
			doc.Description = s.Description
		}
		if s.Nullable {
			extras := maps.Clone(doc.Extras)
			if extras == nil {
				extras = make(map[string]any)
			}
			extras["nullable"] = true
			doc.Extras = extras
		}
		return json.Marshal(&doc)
	}
	m := orderedmap.New[string, any]()
	switch len(s.Types) {
	case 0:
	case 1:
		m.Set("type", s.Types[0])
	default:
		m.Set("type", s.Types)
	}
	if s.Items != nil {
		m.Set("items", *s.Items)
	}
	if s.Fixed {
		prefix := s.PrefixItems
		if prefix == nil {
			prefix = []ParameterSchema{}
		}
		m.Set("prefixItems", prefix)
		m.Set("minItems", len(prefix))
		m.Set("maxItems", len(prefix))
	}
	if s.UniqueItems {
		m.Set("uniqueItems", true)
	}
	if s.Enum != nil {
		m.Set("enum", s.Enum)
	}
	if s.Nullable {
		m.Set("nullable", true)
	}
	if s.Description != "" {
		m.Set("description", s.Description)
	}
	return json.Marshal(m)
}

// jsonSchema converts s into an invopop schema node so it can be spliced into
// reflected record documents.
func (s ParameterSchema) jsonSchema() *jsonschema.Schema {
	if s.Record != nil {
		return s.Record
	}
	out := &jsonschema.Schema{Enum: s.Enum, UniqueItems: s.UniqueItems, Description: s.Description}
	extras := make(map[string]any)
	switch len(s.Types) {
	case 0:
	case 1:
		out.Type = s.Types[0]
	default:
		extras["type"] = s.Types
	}
	if s.Items != nil {
		out.Items = s.Items.jsonSchema()
	}
	if s.Fixed {
		out.PrefixItems = make([]*jsonschema.Schema, len(s.PrefixItems))
		for i, p := range s.PrefixItems {
			out.PrefixItems[i] = p.jsonSchema()
		}
		extras["minItems"] = len(s.PrefixItems)
		extras["maxItems"] = len(s.PrefixItems)
	}
	if s.Nullable {
		extras["nullable"] = true
	}
	if len(extras) > 0 {
		out.Extras = extras
	}
	return out
}

const unsupportedWarning = "Unsupported type hint: %s. Treating as Any."

type lowering struct {
	warnings []string
}

func (l *lowering) warnf(format string, args ...any) {
	l.warnings = append(l.warnings, fmt.Sprintf(format, args...))
}

// Lower translates h into its schema fragment. Hints with no schema form lower
// to {} and produce a warning; lowering never fails.
func Lower(h TypeHint) (ParameterSchema, []string) {
	var l lowering
	s := l.lower(h)
	return s, l.warnings
}

func (l *lowering) lower(h TypeHint) ParameterSchema {
	switch h.kind {
	case KindAny:
		return ParameterSchema{}
	case KindString, KindInteger, KindNumber, KindBoolean, KindNull:
		return ParameterSchema{Types: []string{h.kind.String()}}
	case KindOptional:
		s := l.lower(h.elems[0])
		s.Nullable = true
		return s
	case KindList:
		if len(h.elems) == 0 {
			return ParameterSchema{Types: []string{"array"}}
		}
		items := l.lower(h.elems[0])
		return ParameterSchema{Types: []string{"array"}, Items: &items}
	case KindDict:
		return ParameterSchema{Types: []string{"object"}}
	case KindSet:
		items := l.lower(h.elems[0])
		return ParameterSchema{Types: []string{"array"}, Items: &items, UniqueItems: true}
	case KindTuple:
		prefix := make([]ParameterSchema, len(h.elems))
		for i, e := range h.elems {
			prefix[i] = l.lower(e)
		}
		return ParameterSchema{Types: []string{"array"}, PrefixItems: prefix, Fixed: true}
	case KindUnion:
		return l.lowerUnion(h.elems)
	case KindLiteral:
		if len(h.values) == 0 {
			return ParameterSchema{}
		}
		s := ParameterSchema{Enum: h.Values()}
		if tag := literalTag(h.values[0]); tag != "" {
			s.Types = []string{tag}
		}
		return s
	case KindRecord:
		info, err := recordFor(h.record)
		if err != nil {
			l.warnf(unsupportedWarning, h)
			return ParameterSchema{}
		}
		return ParameterSchema{Record: info.doc}
	default:
		l.warnf(unsupportedWarning, h)
		return ParameterSchema{}
	}
}

// lowerUnion keeps only the variants' type tags, so nested structure (list
// items, record properties) is not expressed for union members.
func (l *lowering) lowerUnion(variants []TypeHint) ParameterSchema {
	var nonNull []TypeHint
	hasNull := false
	for _, v := range variants {
		if v.kind == KindNull {
			hasNull = true
			continue
		}
		nonNull = append(nonNull, v)
	}
	if hasNull && len(nonNull) == 1 {
		s := l.lower(nonNull[0])
		s.Nullable = true
		return s
	}
	if len(nonNull) == 0 {
		return ParameterSchema{Types: []string{"null"}}
	}
	var tags []string
	open := false
	for _, v := range nonNull {
		vt := l.lower(v).typeTags()
		if len(vt) == 0 {
			open = true
			continue
		}
		for _, t := range vt {
			if !slices.Contains(tags, t) {
				tags = append(tags, t)
			}
		}
	}
	if open {
		return ParameterSchema{Nullable: hasNull}
	}
	return ParameterSchema{Types: tags, Nullable: hasNull}
}

func literalTag(v any) string {
	if v == nil {
		return "null"
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	}
	return ""
}

// walkSchema recursively visits every map node in the schema tree (including $defs and definitions).
func walkSchema(schemaMap map[string]any, visit func(map[string]any)) {
	if schemaMap == nil {
		return
	}
	visit(schemaMap)
	for _, val := range schemaMap {
		switch v := val.(type) {
		case map[string]any:
			walkSchema(v, visit)
		case []any:
			for _, item := range v {
				if m2, ok := item.(map[string]any); ok {
					walkSchema(m2, visit)
				}
			}
		}
	}
}

// applyStrictMode sets additionalProperties: false for every object that declares properties.
func applyStrictMode(schemaMap map[string]any) {
	walkSchema(schemaMap, func(n map[string]any) {
		if _, isObj := n["properties"]; isObj {
			n["additionalProperties"] = false
		}
	})
}

// applyNullable rewrites the nullable extension into standard JSON Schema so the
// validator accepts null where the model is told null is fine.
func applyNullable(schemaMap map[string]any) {
	walkSchema(schemaMap, func(n map[string]any) {
		if nullable, _ := n["nullable"].(bool); !nullable {
			return
		}
		delete(n, "nullable")
		switch t := n["type"].(type) {
		case string:
			if t != "null" {
				n["type"] = []any{t, "null"}
			}
		case []any:
			if !slices.Contains(t, any("null")) {
				n["type"] = append(t, "null")
			}
		}
		if enum, ok := n["enum"].([]any); ok && !slices.Contains(enum, nil) {
			n["enum"] = append(enum, nil)
		}
	})
}

// compileSchema compiles any JSON-marshalable schema document into a validator.
// The document is first normalized into plain maps so nullable can be rewritten.
func compileSchema(schema any) (*jsv.Schema, error) {
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	var schemaMap map[string]any
	if err := json.Unmarshal(data, &schemaMap); err != nil {
		return nil, err
	}
	applyNullable(schemaMap)
	stripSchemaIDs(schemaMap)
	if data, err = json.Marshal(schemaMap); err != nil {
		return nil, err
	}
	doc, err := jsv.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	c := jsv.NewCompiler()
	if err := c.AddResource("schema.json", doc); err != nil {
		return nil, err
	}
	return c.Compile("schema.json")
}

// stripSchemaIDs removes id, $id and $schema so resolution does not depend on them.
func stripSchemaIDs(schemaMap map[string]any) {
	walkSchema(schemaMap, func(n map[string]any) {
		for _, key := range []string{"id", "$id", "$schema"} {
			// A property named "id" is a map, not an identifier.
			if _, ok := n[key].(string); ok {
				delete(n, key)
			}
		}
	})
}
