package approval

import (
	"errors"
	"fmt"

	"github.com/mendaur/mendaur-admin/internal/platform/httpx"
)

var (
	// ErrForbidden is returned when the identity lacks the queue permission.
	ErrForbidden = fmt.Errorf("approval: %w", httpx.ErrForbidden)
	// ErrValidation is returned for missing or out-of-range admin input.
	ErrValidation = fmt.Errorf("approval: %w", httpx.ErrValidation)
	// ErrNotPending is returned when the item already left pending.
	ErrNotPending = fmt.Errorf("approval: item is not pending: %w", httpx.ErrConflict)
	// ErrInFlight is returned while another submission for the item runs.
	ErrInFlight = fmt.Errorf("approval: submission in flight: %w", httpx.ErrConflict)
	// ErrUnknownKind is returned for an unsupported queue name.
	ErrUnknownKind = fmt.Errorf("approval: unknown kind: %w", httpx.ErrNotFound)
	// ErrConfirmationRequired is matched by *ConfirmationError.
	ErrConfirmationRequired = errors.New("approval: confirmation required")
)

// ValidationError names the offending input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("approval: %s: %s", e.Field, e.Message)
}

// Is makes errors.Is(err, ErrValidation) hold.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation || target == httpx.ErrValidation
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// ConfirmationError asks the admin to retype Phrase before a weight
// correction is committed.
type ConfirmationError struct {
	Phrase    string
	Original  float64
	Corrected float64
}

func (e *ConfirmationError) Error() string {
	return fmt.Sprintf("approval: weight changed from %.2f to %.2f kg, type %q to confirm", e.Original, e.Corrected, e.Phrase)
}

// Is makes errors.Is(err, ErrConfirmationRequired) hold.
func (e *ConfirmationError) Is(target error) bool {
	return target == ErrConfirmationRequired
}
