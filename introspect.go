package toolbridge

import (
	"fmt"
	"reflect"
)

// Parameter is one named input of a tool, computed once when the tool is built.
type Parameter struct {
	Name        string
	Hint        TypeHint
	Description string
	Required    bool
	// Default is bound when the argument is omitted. It never appears in the schema.
	Default    any
	HasDefault bool
	Schema     ParameterSchema

	index []int
}

// Param declares a parameter of a dynamic tool.
type Param struct {
	Name        string
	Hint        TypeHint
	Description string
	Default     any
	HasDefault  bool
}

// RequiredParam declares a parameter the model must always supply.
func RequiredParam(name string, hint TypeHint) Param {
	return Param{Name: name, Hint: hint}
}

// OptionalParam declares a parameter bound to def when omitted.
func OptionalParam(name string, hint TypeHint, def any) Param {
	return Param{Name: name, Hint: hint, Default: def, HasDefault: true}
}

// Describe adds a description, used when the docstring has no entry for p.
func (p Param) Describe(description string) Param {
	p.Description = description
	return p
}

// introspectStruct turns the fields of an argument struct into parameters.
// A field is required unless it has a default tag or an omitempty/omitzero option.
func introspectStruct(t reflect.Type, doc Docstring, o *toolOptions) ([]Parameter, error) {
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("tool arguments must be a struct, got %s", t)
	}
	fields := structFields(t)
	params := make([]Parameter, 0, len(fields))
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if seen[f.name] {
			return nil, fmt.Errorf("duplicate parameter %q", f.name)
		}
		seen[f.name] = true
		hint, ok := o.hints[f.name]
		if !ok {
			hint = fieldHint(f.field)
		}
		p := Parameter{
			Name:     f.name,
			Hint:     hint,
			Required: !f.hasDef && !f.optional,
			index:    f.index,
		}
		if f.hasDef {
			p.Default = parseDefault(f.def)
			p.HasDefault = true
		}
		p.Description = doc.Args[f.name]
		if p.Description == "" {
			p.Description = f.field.Tag.Get("description")
		}
		params = append(params, p)
	}
	return params, nil
}

// introspectParams validates a dynamic tool's declared parameters.
func introspectParams(decl []Param, doc Docstring, o *toolOptions) ([]Parameter, error) {
	params := make([]Parameter, 0, len(decl))
	seen := make(map[string]bool, len(decl))
	for _, d := range decl {
		if d.Name == "" {
			return nil, fmt.Errorf("parameter name must not be empty")
		}
		if seen[d.Name] {
			return nil, fmt.Errorf("duplicate parameter %q", d.Name)
		}
		seen[d.Name] = true
		hint := d.Hint
		if h, ok := o.hints[d.Name]; ok {
			hint = h
		}
		p := Parameter{
			Name:       d.Name,
			Hint:       hint,
			Required:   !d.HasDefault,
			Default:    d.Default,
			HasDefault: d.HasDefault,
		}
		p.Description = doc.Args[d.Name]
		if p.Description == "" {
			p.Description = d.Description
		}
		params = append(params, p)
	}
	return params, nil
}

// synthesize lowers every parameter and assembles the descriptor. Warnings are
// collected on the descriptor and reported through the tool's warning handler.
func synthesize(name string, doc Docstring, params []Parameter, o *toolOptions) Descriptor {
	d := Descriptor{
		Name:        name,
		Description: doc.Description,
		Returns:     doc.Returns,
		Strict:      o.strict,
	}
	d.Warnings = lowerParameters(params, func(param, warning string) { o.warn(name, param, warning) })
	d.Parameters = params
	return d
}

// lowerParameters fills in each parameter's schema in place.
func lowerParameters(params []Parameter, warn func(param, warning string)) []string {
	var all []string
	for i := range params {
		s, warnings := Lower(params[i].Hint)
		s.Description = params[i].Description
		params[i].Schema = s
		for _, w := range warnings {
			all = append(all, w)
			warn(params[i].Name, w)
		}
	}
	return all
}
