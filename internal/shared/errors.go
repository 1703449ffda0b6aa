package shared

import "errors"

var (
	ErrCSRFTokenMissing  = errors.New("csrf token missing")
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
	// ErrSubmissionInFlight is returned while another request holds the item.
	ErrSubmissionInFlight = errors.New("submission already in flight")
)
