package apiclient

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrNetwork marks transport failures, timeouts and upstream 5xx responses.
	ErrNetwork = errors.New("authentication API unreachable")
	// ErrUnauthorized matches 401 and 403 responses.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound matches 404 responses.
	ErrNotFound = errors.New("not found")
)

// FieldError is one field-level complaint.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries field-level errors, either decoded from a 422
// response or produced locally before a request is sent. Detail holds a
// form-level message when the API answered with a plain string.
type ValidationError struct {
	Status int
	Fields []FieldError
	Detail string
}

// NewValidationError builds a local (pre-submit) validation error.
func NewValidationError(fields ...FieldError) *ValidationError {
	return &ValidationError{Status: http.StatusUnprocessableEntity, Fields: fields}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		if e.Detail != "" {
			return "validation failed: " + e.Detail
		}
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// FieldMap returns the first message per field.
func (e *ValidationError) FieldMap() map[string]string {
	out := make(map[string]string, len(e.Fields))
	for _, f := range e.Fields {
		if _, ok := out[f.Field]; !ok {
			out[f.Field] = f.Message
		}
	}
	return out
}

// StatusError is any other non-2xx response.
type StatusError struct {
	Operation string
	Status    int
	Detail    string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: API returned %d: %s", e.Operation, e.Status, e.Detail)
	}
	return fmt.Sprintf("%s: API returned %d", e.Operation, e.Status)
}

func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrNetwork:
		return e.Status >= http.StatusInternalServerError
	}
	return false
}
