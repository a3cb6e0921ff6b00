package indexsync

import (
	"context"
	"slices"
	"time"

	"github.com/kailas-cloud/syncdex/internal/domain/batch"
	"github.com/kailas-cloud/syncdex/internal/domain/syncop"
)

// Outcome is the terminal result of one operation.
type Outcome struct {
	OperationID string
	Kind        syncop.Kind
	Index       string
	IDs         []string
	State       syncop.State
	Attempts    int
	Err         error
	NotFound    bool
	Skipped     bool
	// Items holds per-document results of a bulk save in input order.
	Items    []batch.Result
	Duration time.Duration
}

// OK reports whether the operation succeeded.
func (o Outcome) OK() bool { return o.State == syncop.StateSucceeded }

// Ticket is the completion handle of a published operation.
type Ticket struct {
	id      string
	index   string
	ids     []string
	done    chan struct{}
	outcome Outcome
}

func newTicket(op *syncop.Operation) *Ticket {
	return &Ticket{
		id:    op.ID(),
		index: op.Index(),
		ids:   slices.Clone(op.Targets()),
		done:  make(chan struct{}),
	}
}

// ID returns the operation id.
func (t *Ticket) ID() string { return t.id }

// Index returns the target index.
func (t *Ticket) Index() string { return t.index }

// Done is closed once the operation reached a terminal state.
func (t *Ticket) Done() <-chan struct{} { return t.done }

// Outcome returns the terminal outcome, ok=false while still running.
func (t *Ticket) Outcome() (Outcome, bool) {
	select {
	case <-t.done:
		return t.outcome, true
	default:
		return Outcome{}, false
	}
}

// Wait blocks until the operation is terminal and returns its outcome
// along with the operation error, or until ctx is done.
func (t *Ticket) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-t.done:
		return t.outcome, t.outcome.Err
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

func (t *Ticket) resolve(o Outcome) {
	t.outcome = o
	close(t.done)
}
