// Package shared contains the error taxonomy, struct validation and the
// locking contract used across all domain packages.
package shared

import (
	"errors"
	"fmt"
)

// Base error kinds. Check them with errors.Is or the Is* helpers below.
var (
	// ErrValidation: malformed or out-of-range input, including a wrong
	// confirmation token.
	ErrValidation = errors.New("validation error")

	// ErrReference: a foreign key target (house, class year) does not exist.
	ErrReference = errors.New("reference error")

	// ErrNotFound: the operation targets an entity whose absence is not tolerated.
	ErrNotFound = errors.New("entity not found")

	// ErrStorage: transaction, commit or driver failure.
	ErrStorage = errors.New("storage error")

	// ErrConcurrentModification: another process holds the exclusive lock.
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g. "student", "event", "rollover"
	Op      string // operation that failed, e.g. "Add", "Update"
	Kind    error  // base kind for errors.Is
	Message string // human-readable message
	Err     error  // underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is matches the kind as well as the wrapped chain.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Validationf builds a validation error with a formatted message.
func Validationf(domain, op, format string, args ...any) *DomainError {
	return NewDomainError(domain, op, ErrValidation, fmt.Sprintf(format, args...))
}

// Referencef builds a reference error with a formatted message.
func Referencef(domain, op, format string, args ...any) *DomainError {
	return NewDomainError(domain, op, ErrReference, fmt.Sprintf(format, args...))
}

// NotFoundf builds a not-found error with a formatted message.
func NotFoundf(domain, op, format string, args ...any) *DomainError {
	return NewDomainError(domain, op, ErrNotFound, fmt.Sprintf(format, args...))
}

// Storage wraps a driver error. Domain errors pass through unchanged so
// that a ReferenceError raised inside a transaction is not downgraded.
func Storage(domain, op string, err error) error {
	if err == nil {
		return nil
	}
	var de *DomainError
	if errors.As(err, &de) {
		return err
	}
	return WrapError(domain, op, ErrStorage, "storage failure", err)
}

var (
	ErrRolloverCancelled  = NewDomainError("rollover", "Execute", ErrValidation, "rollover cancelled: confirmation token must be RESET")
	ErrRolloverInProgress = NewDomainError("rollover", "Execute", ErrConcurrentModification, "another rollover is in progress")
	ErrNoResults          = NewDomainError("event", "Add", ErrValidation, "event must have at least one result")
	ErrNoPointChanges     = NewDomainError("points", "Record", ErrValidation, "no non-zero point changes to record")
)

func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }
func IsReference(err error) bool  { return errors.Is(err, ErrReference) }
func IsNotFound(err error) bool   { return errors.Is(err, ErrNotFound) }
func IsStorage(err error) bool    { return errors.Is(err, ErrStorage) }

// IsConcurrentModification reports whether err is a lock conflict.
func IsConcurrentModification(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}
