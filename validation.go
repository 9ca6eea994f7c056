package toolbridge

import "reflect"

// Validatable is implemented by argument structs that need custom business validation.
// Called after the arguments have been coerced and bound, before the handler runs.
type Validatable interface {
	Validate() error
}

// runValidatable runs Validatable.Validate() on args; if args does not implement Validatable,
// it tries &args for value types (pointer receiver). Never calls Validate twice for the same receiver.
func runValidatable[T any](args T) error {
	if v, ok := any(args).(Validatable); ok {
		return v.Validate()
	}
	typ := reflect.TypeOf(args)
	if typ == nil || typ.Kind() == reflect.Pointer {
		return nil
	}
	if v, ok := any(&args).(Validatable); ok {
		return v.Validate()
	}
	return nil
}
