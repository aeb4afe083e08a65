package visit

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by Service matches exactly one of these
// with errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")
	ErrNotFound   = errors.New("not found")
	ErrStore      = errors.New("store failure")
)

// ValidationError reports malformed or missing input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// ConflictError reports a business rule violated by the current stored state.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string { return e.Reason }

func (e *ConflictError) Unwrap() error { return ErrConflict }

// NotFoundError reports a missing visit, technician or client.
type NotFoundError struct {
	Resource string
	ID       int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// StoreError wraps a persistence failure. Its message is safe to log but
// should not be shown to API callers.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap exposes both ErrStore and the underlying driver error.
func (e *StoreError) Unwrap() []error { return []error{ErrStore, e.Err} }

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

func conflict(reason string) error {
	return &ConflictError{Reason: reason}
}

// storeErr wraps err as a StoreError unless it already carries one of the
// domain kinds.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStore) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) || errors.Is(err, ErrValidation) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}
