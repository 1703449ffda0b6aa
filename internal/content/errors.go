package content

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/mendaur/mendaur-admin/internal/platform/httpx"
)

var (
	// ErrForbidden is returned when the identity lacks the resource permission.
	ErrForbidden = fmt.Errorf("content: %w", httpx.ErrForbidden)
	// ErrValidation is matched by *ValidationError.
	ErrValidation = fmt.Errorf("content: %w", httpx.ErrValidation)
	// ErrUnknownResource is returned for an unmanaged resource name.
	ErrUnknownResource = fmt.Errorf("content: unknown resource: %w", httpx.ErrNotFound)
	// ErrReadOnly is returned when editing a create-only resource.
	ErrReadOnly = fmt.Errorf("content: resource cannot be modified: %w", httpx.ErrConflict)
	// ErrInFlight is returned while another submission for the entity runs.
	ErrInFlight = fmt.Errorf("content: submission in flight: %w", httpx.ErrConflict)
	// ErrConfirmationRequired is returned when a delete was not confirmed.
	ErrConfirmationRequired = fmt.Errorf("content: type %q to confirm: %w", "HAPUS", httpx.ErrValidation)
)

func unknown(name string) error {
	return fmt.Errorf("%w: %q", ErrUnknownResource, name)
}

// ValidationError lists the offending fields and the rule each failed.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "content: invalid " + strings.Join(parts, ", ")
}

// Is makes errors.Is(err, ErrValidation) hold.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation || target == httpx.ErrValidation
}

// jsonName maps a struct field to its json key for error reporting.
func jsonName(input any, field string) string {
	t := reflect.TypeOf(input)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if f, ok := t.FieldByName(field); ok {
		if name, _, _ := strings.Cut(f.Tag.Get("json"), ","); name != "" {
			return name
		}
	}
	return strings.ToLower(field)
}
