package garp

import (
	"fmt"
)

// FormatError indicates an export document that cannot be used:
// malformed XML, a missing required element, an invalid service code,
// or a non-numeric value in a numeric field.
type FormatError struct {
	Reason string
	Cause  error
}

// Error implements the error interface.
func (e *FormatError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invalid export document: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("invalid export document: %s", e.Reason)
}

// Unwrap returns the underlying cause.
func (e *FormatError) Unwrap() error {
	return e.Cause
}

func formatErrorf(format string, args ...any) *FormatError {
	return &FormatError{Reason: fmt.Sprintf(format, args...)}
}
