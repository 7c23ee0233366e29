package service

import (
	"errors"
	"fmt"
)

var (
	// ErrForbidden is returned when the actor lacks the role or ownership an
	// operation requires
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound is returned when a referenced record does not exist
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a unique value is already in use
	ErrConflict = errors.New("already in use")

	// ErrDependentRecords is returned when a deletion is blocked by records
	// that depend on the target
	ErrDependentRecords = errors.New("record has dependent records")

	// ErrInvalidState is returned when the record's lifecycle state does not
	// allow the operation
	ErrInvalidState = errors.New("operation not allowed in the current state")
)

func forbidden(reason string) error {
	return fmt.Errorf("%w: %s", ErrForbidden, reason)
}

func notFound(what string, id int64) error {
	return fmt.Errorf("%w: %s %d", ErrNotFound, what, id)
}

func conflict(what string) error {
	return fmt.Errorf("%w: %s", ErrConflict, what)
}

func invalidState(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, reason)
}
