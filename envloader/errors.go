package envloader

import (
	"fmt"
	"reflect"
)

// InvalidConfigError indica que Load não recebeu um ponteiro para struct.
// Type é nil quando o argumento foi nil.
type InvalidConfigError struct {
	Type reflect.Type
}

func (e *InvalidConfigError) Error() string {
	switch {
	case e.Type == nil:
		return "envloader: overlay target is nil"
	case e.Type.Kind() == reflect.Ptr:
		return fmt.Sprintf("envloader: overlay target must point to a struct, got *%s", e.Type.Elem().Kind())
	default:
		return fmt.Sprintf("envloader: overlay target must be a pointer, got %s", e.Type.Kind())
	}
}

// FieldError diz qual variável não pôde ser aplicada sobre o valor vindo
// do YAML. Err é o erro de conversão.
type FieldError struct {
	Field  string
	EnvVar string
	Err    error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("envloader: cannot apply %s to field %s: %v", e.EnvVar, e.Field, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// UnsupportedTypeError cobre campos com tag env cujo tipo o overlay não
// converte (slices que não são de string, maps, interfaces).
type UnsupportedTypeError struct {
	Type reflect.Type
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("envloader: no env conversion for %s", e.Type)
}
