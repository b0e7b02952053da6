package nilcheck

import (
	"reflect"
	"strings"
)

// Interface reports whether value is nil, including typed-nil interfaces.
func Interface(value any) bool {
	if value == nil {
		return true
	}

	v := reflect.ValueOf(value)

	switch v.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		return v.IsNil()
	default:
		return false
	}
}

// Blank reports whether an identifier is empty or whitespace only.
// Entity ids that are blank are treated as absent on every ingestion path.
func Blank(id string) bool {
	return strings.TrimSpace(id) == ""
}
