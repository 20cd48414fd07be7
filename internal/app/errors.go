package app

import (
	"errors"
	"fmt"
)

// ErrNotFound reports a read that targets a task id with no record.
var ErrNotFound = errors.New("not found")

// PersistenceError reports a store failure while reading or writing tasks.
type PersistenceError struct {
	Op  string
	Err error
}

// Error returns the failing operation and the underlying store error.
func (e *PersistenceError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying store error.
func (e *PersistenceError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// persistenceErr wraps non-sentinel repository failures.
func persistenceErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		return err
	}
	var existing *PersistenceError
	if errors.As(err, &existing) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

// isNotFound reports whether err carries ErrNotFound.
func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
