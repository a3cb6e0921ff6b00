package syncop

import (
	"slices"
	"time"
)

// Failure is the record of an operation that ended in failed_terminal.
type Failure struct {
	OperationID string
	Kind        Kind
	Index       string
	IDs         []string
	Attempts    int
	Err         error
	FailedAt    time.Time
}

// FailureOf snapshots a terminal operation. ids narrows the record to the
// documents that actually failed; nil means every current target.
func FailureOf(o *Operation, ids []string) Failure {
	if ids == nil {
		ids = o.targets
	}
	return Failure{
		OperationID: o.id,
		Kind:        o.kind,
		Index:       o.index,
		IDs:         slices.Clone(ids),
		Attempts:    o.attempts,
		Err:         o.lastErr,
		FailedAt:    time.Now().UTC(),
	}
}
