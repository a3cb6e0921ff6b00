package syncop

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/syncdex/internal/domain"
)

// Kind is the mutation an operation applies to the index.
type Kind string

// Operation kinds.
const (
	KindCreate     Kind = "create"
	KindUpdate     Kind = "update"
	KindDelete     Kind = "delete"
	KindBulkCreate Kind = "bulk_create"
)

// State is a lifecycle state of an operation.
//
//	pending -> in_flight -> succeeded
//	                     -> failed_retryable -> pending
//	                     -> failed_terminal
//	pending -> failed_terminal (dropped) | succeeded (skipped)
type State string

// Operation states.
const (
	StatePending         State = "pending"
	StateInFlight        State = "in_flight"
	StateSucceeded       State = "succeeded"
	StateFailedRetryable State = "failed_retryable"
	StateFailedTerminal  State = "failed_terminal"
)

// IsTerminal reports whether no further transition is possible.
func (s State) IsTerminal() bool {
	return s == StateSucceeded || s == StateFailedTerminal
}

// ErrInvalidTransition is returned for a transition the state machine forbids.
var ErrInvalidTransition = errors.New("invalid state transition")

// Operation is one pending index mutation. It is owned by a single goroutine
// at a time and is not safe for concurrent use.
type Operation struct {
	id          string
	kind        Kind
	index       string
	targets     []string
	payloads    []map[string]any
	maxAttempts int
	attempts    int
	state       State
	lastErr     error
	createdAt   time.Time
	notFound    bool
	skipped     bool
}

// New validates and creates a pending operation.
// Deletes carry no payloads; other kinds carry one payload per target.
func New(kind Kind, index string, targets []string, payloads []map[string]any, maxAttempts int) (*Operation, error) {
	if index == "" {
		return nil, fmt.Errorf("index is required")
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("at least one target id is required")
	}
	if maxAttempts < 1 {
		return nil, fmt.Errorf("max attempts must be >= 1")
	}
	for _, id := range targets {
		if id == "" {
			return nil, fmt.Errorf("target id is required")
		}
	}
	switch kind {
	case KindCreate, KindUpdate:
		if len(targets) != 1 || len(payloads) != 1 {
			return nil, fmt.Errorf("%s needs exactly one target and payload", kind)
		}
	case KindDelete:
		if len(targets) != 1 || len(payloads) != 0 {
			return nil, fmt.Errorf("delete needs exactly one target and no payload")
		}
	case KindBulkCreate:
		if len(payloads) != len(targets) {
			return nil, fmt.Errorf("bulk needs one payload per target, got %d/%d", len(payloads), len(targets))
		}
	default:
		return nil, fmt.Errorf("unknown operation kind %q", kind)
	}
	return &Operation{
		id:          uuid.NewString(),
		kind:        kind,
		index:       index,
		targets:     slices.Clone(targets),
		payloads:    slices.Clone(payloads),
		maxAttempts: maxAttempts,
		state:       StatePending,
		createdAt:   time.Now(),
	}, nil
}

// ID returns the operation id.
func (o *Operation) ID() string { return o.id }

// Kind returns the mutation kind.
func (o *Operation) Kind() Kind { return o.kind }

// Index returns the target index.
func (o *Operation) Index() string { return o.index }

// Targets returns the document ids still to be applied.
func (o *Operation) Targets() []string { return o.targets }

// Payloads returns the payloads aligned with Targets.
func (o *Operation) Payloads() []map[string]any { return o.payloads }

// Attempts returns the number of dispatches so far. It never decreases.
func (o *Operation) Attempts() int { return o.attempts }

// MaxAttempts returns the attempt bound.
func (o *Operation) MaxAttempts() int { return o.maxAttempts }

// State returns the current state.
func (o *Operation) State() State { return o.state }

// LastErr returns the most recent failure.
func (o *Operation) LastErr() error { return o.lastErr }

// CreatedAt returns when the mutation event was published.
func (o *Operation) CreatedAt() time.Time { return o.createdAt }

// NotFound reports a delete whose target was already absent from the index.
func (o *Operation) NotFound() bool { return o.notFound }

// Skipped reports an update resolved without touching the index.
func (o *Operation) Skipped() bool { return o.skipped }

func (o *Operation) transition(from, to State) error {
	if o.state != from {
		return fmt.Errorf("%w: %s -> %s from %s", ErrInvalidTransition, from, to, o.state)
	}
	o.state = to
	return nil
}

// Begin dispatches the operation: pending -> in_flight.
func (o *Operation) Begin() error {
	if o.attempts >= o.maxAttempts {
		return fmt.Errorf("%w: attempts exhausted", ErrInvalidTransition)
	}
	if err := o.transition(StatePending, StateInFlight); err != nil {
		return err
	}
	o.attempts++
	return nil
}

// Succeed completes the operation: in_flight -> succeeded.
func (o *Operation) Succeed() error {
	if err := o.transition(StateInFlight, StateSucceeded); err != nil {
		return err
	}
	o.lastErr = nil
	return nil
}

// SucceedNotFound completes a delete whose target was already absent.
func (o *Operation) SucceedNotFound() error {
	if o.kind != KindDelete {
		return fmt.Errorf("%w: not-found success only applies to deletes", ErrInvalidTransition)
	}
	if err := o.Succeed(); err != nil {
		return err
	}
	o.notFound = true
	return nil
}

// Fail records a failed attempt: in_flight -> failed_retryable when the error
// is retryable and attempts remain, otherwise in_flight -> failed_terminal.
// Running out of attempts wraps the error in *domain.RetryExhaustedError.
func (o *Operation) Fail(err error) error {
	if err == nil {
		return fmt.Errorf("%w: fail without error", ErrInvalidTransition)
	}
	if !domain.IsRetryable(err) {
		if terr := o.transition(StateInFlight, StateFailedTerminal); terr != nil {
			return terr
		}
		o.lastErr = err
		return nil
	}
	if o.attempts >= o.maxAttempts {
		if terr := o.transition(StateInFlight, StateFailedTerminal); terr != nil {
			return terr
		}
		o.lastErr = &domain.RetryExhaustedError{Attempts: o.attempts, Last: err}
		return nil
	}
	if terr := o.transition(StateInFlight, StateFailedRetryable); terr != nil {
		return terr
	}
	o.lastErr = err
	return nil
}

// Retry requeues a retryable failure: failed_retryable -> pending.
func (o *Operation) Retry() error {
	return o.transition(StateFailedRetryable, StatePending)
}

// Narrow keeps only the listed targets (and their payloads) for the next
// attempt of a bulk operation. Unknown ids are ignored.
func (o *Operation) Narrow(keep []string) error {
	if o.kind != KindBulkCreate {
		return fmt.Errorf("narrow only applies to bulk operations")
	}
	if o.state != StateFailedRetryable && o.state != StatePending {
		return fmt.Errorf("%w: narrow from %s", ErrInvalidTransition, o.state)
	}
	want := make(map[string]bool, len(keep))
	for _, id := range keep {
		want[id] = true
	}
	targets := o.targets[:0:0]
	payloads := o.payloads[:0:0]
	for i, id := range o.targets {
		if want[id] {
			targets = append(targets, id)
			payloads = append(payloads, o.payloads[i])
		}
	}
	if len(targets) == 0 {
		return fmt.Errorf("narrow would leave no targets")
	}
	o.targets, o.payloads = targets, payloads
	return nil
}

// Drop discards an undispatched operation: pending -> failed_terminal with domain.ErrDropped.
func (o *Operation) Drop() error {
	if o.state != StatePending && o.state != StateFailedRetryable {
		return fmt.Errorf("%w: drop from %s", ErrInvalidTransition, o.state)
	}
	o.state = StateFailedTerminal
	if o.lastErr != nil {
		o.lastErr = fmt.Errorf("%w (last error: %v)", domain.ErrDropped, o.lastErr)
	} else {
		o.lastErr = domain.ErrDropped
	}
	return nil
}

// Skip resolves an update that cannot change the indexed payload: pending -> succeeded.
func (o *Operation) Skip() error {
	if err := o.transition(StatePending, StateSucceeded); err != nil {
		return err
	}
	o.skipped = true
	return nil
}
