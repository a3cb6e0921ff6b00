package deadletter

import (
	"errors"
	"time"

	"github.com/kailas-cloud/syncdex/internal/domain/syncop"
)

// entry is the JSON form of a failure kept in the dead-letter list.
type entry struct {
	OperationID string    `json:"operation_id"`
	Kind        string    `json:"kind"`
	Index       string    `json:"index"`
	IDs         []string  `json:"ids"`
	Attempts    int       `json:"attempts"`
	Error       string    `json:"error,omitempty"`
	FailedAt    time.Time `json:"failed_at"`
}

func toEntry(f syncop.Failure) entry {
	e := entry{
		OperationID: f.OperationID,
		Kind:        string(f.Kind),
		Index:       f.Index,
		IDs:         f.IDs,
		Attempts:    f.Attempts,
		FailedAt:    f.FailedAt,
	}
	if f.Err != nil {
		e.Error = f.Err.Error()
	}
	return e
}

// toFailure restores a failure. The error chain does not survive storage,
// only its message.
func (e entry) toFailure() syncop.Failure {
	f := syncop.Failure{
		OperationID: e.OperationID,
		Kind:        syncop.Kind(e.Kind),
		Index:       e.Index,
		IDs:         e.IDs,
		Attempts:    e.Attempts,
		FailedAt:    e.FailedAt,
	}
	if e.Error != "" {
		f.Err = errors.New(e.Error)
	}
	return f
}
