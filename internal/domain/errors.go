package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidID     = errors.New("invalid id")
	ErrInvalidTitle  = errors.New("invalid title")
	ErrInvalidStatus = errors.New("invalid status")
)

// ValidationError reports caller-supplied data that violates a task invariant.
type ValidationError struct {
	Field string
	Err   error
}

// Error returns the validation failure text.
func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("validation failed for %s: %v", e.Field, e.Err)
}

// Unwrap exposes the underlying sentinel.
func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// InvalidStatusError reports a lane value outside the fixed enumeration.
type InvalidStatusError struct {
	Value string
}

// Error returns the invalid status text including the accepted values.
func (e *InvalidStatusError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("invalid status %q: must be one of %s", e.Value, strings.Join(laneNames(), ", "))
}

// Unwrap returns ErrInvalidStatus so callers can match with errors.Is.
func (e *InvalidStatusError) Unwrap() error {
	return ErrInvalidStatus
}
