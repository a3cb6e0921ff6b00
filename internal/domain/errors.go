package domain

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrConnection signals a transport or network failure talking to the engine.
	ErrConnection = errors.New("connection error")
	// ErrTransient signals a temporary engine-side failure (overload, 5xx, timeout).
	ErrTransient = errors.New("transient engine error")
	// ErrValidation signals a malformed payload or request. Never retried.
	ErrValidation = errors.New("validation error")
	// ErrMappingMismatch signals a field value that cannot be cast to its declared type.
	ErrMappingMismatch = errors.New("mapping mismatch")
	// ErrUnsupportedClause signals an unrecognized query clause kind.
	ErrUnsupportedClause = errors.New("unsupported clause")
	// ErrMalformedResponse signals an engine response with unexpected structure.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrRetryExhausted signals a retryable operation that ran out of attempts.
	ErrRetryExhausted = errors.New("retry exhausted")
	// ErrNotFound signals a missing document or index.
	ErrNotFound = errors.New("not found")
	// ErrUnknownCollection signals a collection that was never registered.
	ErrUnknownCollection = errors.New("unknown collection")
	// ErrDropped signals an operation discarded before dispatch during shutdown.
	ErrDropped = errors.New("operation dropped before dispatch")
	// ErrClosed signals use of a stopped component.
	ErrClosed = errors.New("closed")
)

// IsRetryable reports whether err is worth another attempt.
// Connection failures, transient engine errors and timeouts are retryable;
// everything else is terminal.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrValidation) || errors.Is(err, ErrMappingMismatch) {
		return false
	}
	return errors.Is(err, ErrConnection) ||
		errors.Is(err, ErrTransient) ||
		errors.Is(err, context.DeadlineExceeded)
}

// MappingMismatchError reports a value that does not fit its declared field type.
type MappingMismatchError struct {
	Field string
	Type  string
	Value any
}

func (e *MappingMismatchError) Error() string {
	return fmt.Sprintf("%s: field %q: cannot cast %T(%v) to %s",
		ErrMappingMismatch.Error(), e.Field, e.Value, e.Value, e.Type)
}

func (e *MappingMismatchError) Unwrap() error { return ErrMappingMismatch }

// UnsupportedClauseError names the clause kind the translator rejected.
type UnsupportedClauseError struct {
	Kind string
}

func (e *UnsupportedClauseError) Error() string {
	return fmt.Sprintf("%s: %q", ErrUnsupportedClause.Error(), e.Kind)
}

func (e *UnsupportedClauseError) Unwrap() error { return ErrUnsupportedClause }

// MalformedResponseError describes which part of an engine response was unusable.
type MalformedResponseError struct {
	Path   string
	Reason string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrMalformedResponse.Error(), e.Path, e.Reason)
}

func (e *MalformedResponseError) Unwrap() error { return ErrMalformedResponse }

// NewMalformedResponse creates a malformed response error.
func NewMalformedResponse(path, reason string) error {
	return &MalformedResponseError{Path: path, Reason: reason}
}

// RetryExhaustedError carries the attempt count and the last failure.
type RetryExhaustedError struct {
	Attempts int
	Last     error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("%s after %d attempts: %v", ErrRetryExhausted.Error(), e.Attempts, e.Last)
}

// Unwrap exposes both the sentinel and the last underlying error.
func (e *RetryExhaustedError) Unwrap() []error { return []error{ErrRetryExhausted, e.Last} }
