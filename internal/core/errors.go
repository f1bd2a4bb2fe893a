package core

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrEmptyName       = errors.New("empty name")
	ErrEmptyCategory   = errors.New("empty category")
	ErrInvalidType     = errors.New("invalid transaction type")
	ErrInvalidGoalType = errors.New("invalid goal type")

	// ErrInFlight is returned when a create or update for the same entity is
	// still outstanding.
	ErrInFlight = errors.New("operation already in flight")

	// ErrNoSession is returned when an operation has no owner to scope it to.
	ErrNoSession = errors.New("no active session")
)

// ValidationError reports bad input shape or range. It never reaches the
// remote store.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// NotFoundError reports that a mutation target no longer exists.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// CategoryInUseError blocks deleting a category that an active budget
// references by name.
type CategoryInUseError struct {
	Category string
}

func (e *CategoryInUseError) Error() string {
	return fmt.Sprintf("cannot delete category %q: a budget is set for it, set the budget to 0 first", e.Category)
}

// PersistenceError wraps a failed remote call.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// AdapterError wraps a failed or unparseable AI call.
type AdapterError struct {
	Op  string
	Err error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("ai %s: %v", e.Op, e.Err)
}

func (e *AdapterError) Unwrap() error { return e.Err }

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsCategoryInUse(err error) bool {
	var target *CategoryInUseError
	return errors.As(err, &target)
}

func IsPersistence(err error) bool {
	var target *PersistenceError
	return errors.As(err, &target)
}

func IsAdapter(err error) bool {
	var target *AdapterError
	return errors.As(err, &target)
}
