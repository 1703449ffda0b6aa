package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrUnexpectedShape is returned when a body cannot be decoded into the
// shape the operation expects.
var ErrUnexpectedShape = errors.New("gateway: unexpected response shape")

// Failure is a non-2xx backend answer. It never carries a panic or an
// untyped error; callers inspect it with errors.As.
type Failure struct {
	Status  int            `json:"-"`
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Errors  map[string]any `json:"errors,omitempty"`
}

func (f *Failure) Error() string {
	return fmt.Sprintf("gateway: backend returned %d: %s", f.Status, f.Message)
}

func newFailure(status int, body []byte) *Failure {
	failure := &Failure{Status: status, Success: false}
	var parsed struct {
		Message string         `json:"message"`
		Error   any            `json:"error"`
		Errors  map[string]any `json:"errors"`
	}
	if len(bytes.TrimSpace(body)) > 0 && json.Unmarshal(body, &parsed) == nil {
		failure.Message = strings.TrimSpace(parsed.Message)
		if failure.Message == "" {
			if s, ok := parsed.Error.(string); ok {
				failure.Message = strings.TrimSpace(s)
			}
		}
		failure.Errors = parsed.Errors
	}
	if failure.Message == "" {
		failure.Message = http.StatusText(status)
	}
	if failure.Message == "" {
		failure.Message = "request failed"
	}
	return failure
}

// Unwrap normalizes a 2xx body into the array or object the caller wants.
// Shapes are tried in order:
//
//	{data:[...]}                 -> the array
//	{data:{data:[...]}}          -> the inner array (paginated)
//	{data:{<name>:[...]}}        -> the named array, for any of names
//	{data:{...}}                 -> the object
//	[...] or {...} without data  -> the body itself
//
// An empty body yields nil.
func Unwrap(body []byte, names ...string) (json.RawMessage, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, nil
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: invalid json", ErrUnexpectedShape)
	}
	if body[0] != '{' {
		return json.RawMessage(body), nil
	}
	var outer map[string]json.RawMessage
	if err := json.Unmarshal(body, &outer); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedShape, err)
	}
	data, ok := outer["data"]
	if !ok {
		return json.RawMessage(body), nil
	}
	data = bytes.TrimSpace(data)
	if isArray(data) {
		return data, nil
	}
	if len(data) == 0 || data[0] != '{' {
		return data, nil
	}
	var inner map[string]json.RawMessage
	if err := json.Unmarshal(data, &inner); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedShape, err)
	}
	if nested, ok := inner["data"]; ok && isArray(nested) {
		return bytes.TrimSpace(nested), nil
	}
	for _, name := range names {
		if named, ok := inner[name]; ok && isArray(named) {
			return bytes.TrimSpace(named), nil
		}
	}
	return data, nil
}

func isArray(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '['
}

// decodeList unwraps body and decodes it as a list of T. null decodes as an
// empty list.
func decodeList[T any](body []byte, names ...string) ([]T, error) {
	raw, err := Unwrap(body, names...)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []T{}, nil
	}
	if !isArray(raw) {
		return nil, fmt.Errorf("%w: expected array", ErrUnexpectedShape)
	}
	var out []T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedShape, err)
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

// decodeOne unwraps body and decodes a single T.
func decodeOne[T any](body []byte, names ...string) (T, error) {
	var out T
	raw, err := Unwrap(body, names...)
	if err != nil {
		return out, err
	}
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return out, fmt.Errorf("%w: empty body", ErrUnexpectedShape)
	}
	if isArray(raw) {
		return out, fmt.Errorf("%w: expected object", ErrUnexpectedShape)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("%w: %v", ErrUnexpectedShape, err)
	}
	return out, nil
}
