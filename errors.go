package syncdex

import "github.com/kailas-cloud/syncdex/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrConnection        = domain.ErrConnection
	ErrTransient         = domain.ErrTransient
	ErrValidation        = domain.ErrValidation
	ErrMappingMismatch   = domain.ErrMappingMismatch
	ErrUnsupportedClause = domain.ErrUnsupportedClause
	ErrMalformedResponse = domain.ErrMalformedResponse
	ErrRetryExhausted    = domain.ErrRetryExhausted
	ErrNotFound          = domain.ErrNotFound
	ErrUnknownCollection = domain.ErrUnknownCollection
	ErrDropped           = domain.ErrDropped
	ErrClosed            = domain.ErrClosed
)

// Typed errors carrying details; use errors.As() to inspect them.
type (
	MappingMismatchError   = domain.MappingMismatchError
	UnsupportedClauseError = domain.UnsupportedClauseError
	MalformedResponseError = domain.MalformedResponseError
	RetryExhaustedError    = domain.RetryExhaustedError
)

// IsRetryable reports whether err is worth another attempt.
func IsRetryable(err error) bool { return domain.IsRetryable(err) }
