package db

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/syncdex/internal/domain"
)

// Sentinel errors for engine and store operations.
// Each wraps the matching domain sentinel so callers can classify with errors.Is.
var (
	ErrConnection       = fmt.Errorf("db: connection failed: %w", domain.ErrConnection)
	ErrTransient        = fmt.Errorf("db: engine temporarily unavailable: %w", domain.ErrTransient)
	ErrTimeout          = fmt.Errorf("db: request timed out: %w", domain.ErrTransient)
	ErrMalformedRequest = fmt.Errorf("db: malformed request: %w", domain.ErrValidation)
	ErrRejected         = fmt.Errorf("db: rejected by engine: %w", domain.ErrValidation)
	ErrNotFound         = fmt.Errorf("db: document not found: %w", domain.ErrNotFound)
	ErrIndexNotFound    = fmt.Errorf("db: index not found: %w", domain.ErrNotFound)
	ErrKeyNotFound      = errors.New("db: key not found")
)

// Op names used for error context and metrics labels.
const (
	OpPut         = "index"
	OpDelete      = "delete"
	OpBulk        = "bulk"
	OpSearch      = "search"
	OpCreateIndex = "indices.create"
	OpDeleteIndex = "indices.delete"
	OpIndexExists = "indices.exists"
	OpRefresh     = "indices.refresh"
	OpPing        = "ping"

	OpGet    = "GET"
	OpSet    = "SET"
	OpDel    = "DEL"
	OpRPush  = "RPUSH"
	OpLRange = "LRANGE"
	OpLLen   = "LLEN"
	OpLTrim  = "LTRIM"
)

// Error wraps an underlying error with operation and engine diagnostics.
type Error struct {
	Op     string
	Index  string
	Status int    // HTTP status, 0 when not applicable
	Type   string // engine error type, e.g. mapper_parsing_exception
	Reason string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Index != "" {
		b.WriteString(" [" + e.Index + "]")
	}
	if e.Status != 0 {
		b.WriteString(" status=" + strconv.Itoa(e.Status))
	}
	if e.Type != "" {
		b.WriteString(" " + e.Type)
	}
	if e.Reason != "" {
		b.WriteString(": " + e.Reason)
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// ClassifyStatus maps an HTTP status from the engine to a sentinel.
func ClassifyStatus(status int) error {
	switch {
	case status == 404:
		return ErrNotFound
	case status == 400:
		return ErrMalformedRequest
	case status == 408 || status == 429 || status >= 500:
		return ErrTransient
	case status >= 400:
		return ErrRejected
	default:
		return nil
	}
}
