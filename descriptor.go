package toolbridge

import (
	"encoding/json"
	"slices"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Descriptor is the model-facing description of a tool: its name, purpose and
// parameter schema. It is computed once at construction and never changes.
type Descriptor struct {
	Name        string
	Description string
	Parameters  []Parameter
	Returns     string
	// Warnings lists parameters whose type could not be expressed; they accept anything.
	Warnings []string
	// Strict forbids properties the tool does not declare and lists every parameter as required.
	Strict bool
}

// Required lists the names of the required parameters in declaration order.
func (d Descriptor) Required() []string {
	var out []string
	for _, p := range d.Parameters {
		if p.Required || d.Strict {
			out = append(out, p.Name)
		}
	}
	return out
}

// Parameter looks up a parameter by name.
func (d Descriptor) Parameter(name string) (Parameter, bool) {
	i := slices.IndexFunc(d.Parameters, func(p Parameter) bool { return p.Name == name })
	if i < 0 {
		return Parameter{}, false
	}
	return d.Parameters[i], true
}

// ParametersSchema returns the object schema for the arguments:
// {"type": "object", "properties": {...}, "required": [...]}. Properties keep
// declaration order and required is omitted when nothing is required.
func (d Descriptor) ParametersSchema() *orderedmap.OrderedMap[string, any] {
	props := orderedmap.New[string, any]()
	for _, p := range d.Parameters {
		props.Set(p.Name, p.Schema)
	}
	m := orderedmap.New[string, any]()
	m.Set("type", "object")
	m.Set("properties", props)
	if req := d.Required(); len(req) > 0 {
		m.Set("required", req)
	}
	if d.Strict {
		m.Set("additionalProperties", false)
	}
	return m
}

// MarshalJSON encodes {name, description, parameters, returns?}.
func (d Descriptor) MarshalJSON() ([]byte, error) {
	m := orderedmap.New[string, any]()
	m.Set("name", d.Name)
	m.Set("description", d.Description)
	m.Set("parameters", d.ParametersSchema())
	if d.Returns != "" {
		m.Set("returns", map[string]string{"description": d.Returns})
	}
	return json.Marshal(m)
}

// validationSchema is ParametersSchema in plain map form; strict descriptors
// also close every nested record.
func (d Descriptor) validationSchema() (map[string]any, error) {
	data, err := json.Marshal(d.ParametersSchema())
	if err != nil {
		return nil, err
	}
	var schemaMap map[string]any
	if err := json.Unmarshal(data, &schemaMap); err != nil {
		return nil, err
	}
	if d.Strict {
		applyStrictMode(schemaMap)
	}
	return schemaMap, nil
}
