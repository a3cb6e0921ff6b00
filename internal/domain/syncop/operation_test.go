package syncop

import (
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/kailas-cloud/syncdex/internal/domain"
)

var payload = map[string]any{"name": "Bail"}

func newPut(t *testing.T, maxAttempts int) *Operation {
	t.Helper()
	op, err := New(KindCreate, "bonds", []string{"b-1"}, []map[string]any{payload}, maxAttempts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return op
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name     string
		kind     Kind
		index    string
		targets  []string
		payloads []map[string]any
		max      int
	}{
		{"no index", KindCreate, "", []string{"a"}, []map[string]any{payload}, 1},
		{"no targets", KindCreate, "bonds", nil, nil, 1},
		{"empty target", KindDelete, "bonds", []string{""}, nil, 1},
		{"zero attempts", KindCreate, "bonds", []string{"a"}, []map[string]any{payload}, 0},
		{"create without payload", KindCreate, "bonds", []string{"a"}, nil, 1},
		{"delete with payload", KindDelete, "bonds", []string{"a"}, []map[string]any{payload}, 1},
		{"bulk misaligned", KindBulkCreate, "bonds", []string{"a", "b"}, []map[string]any{payload}, 1},
		{"unknown kind", Kind("upsert"), "bonds", []string{"a"}, []map[string]any{payload}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.kind, tt.index, tt.targets, tt.payloads, tt.max); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestOperation_HappyPath(t *testing.T) {
	op := newPut(t, 3)
	if op.State() != StatePending || op.ID() == "" {
		t.Fatalf("new op = %s %q", op.State(), op.ID())
	}
	if err := op.Begin(); err != nil {
		t.Fatal(err)
	}
	if op.State() != StateInFlight || op.Attempts() != 1 {
		t.Errorf("after Begin: %s attempts=%d", op.State(), op.Attempts())
	}
	if err := op.Succeed(); err != nil {
		t.Fatal(err)
	}
	if !op.State().IsTerminal() {
		t.Errorf("succeeded should be terminal")
	}
}

func TestOperation_RetryThenExhaust(t *testing.T) {
	op := newPut(t, 2)
	transient := fmt.Errorf("503: %w", domain.ErrTransient)

	_ = op.Begin()
	if err := op.Fail(transient); err != nil {
		t.Fatal(err)
	}
	if op.State() != StateFailedRetryable {
		t.Fatalf("state = %s, want failed_retryable", op.State())
	}
	if err := op.Retry(); err != nil {
		t.Fatal(err)
	}
	_ = op.Begin()
	if err := op.Fail(transient); err != nil {
		t.Fatal(err)
	}
	if op.State() != StateFailedTerminal {
		t.Fatalf("state = %s, want failed_terminal", op.State())
	}
	if !errors.Is(op.LastErr(), domain.ErrRetryExhausted) || !errors.Is(op.LastErr(), domain.ErrTransient) {
		t.Errorf("LastErr() = %v, want RetryExhausted wrapping the transient error", op.LastErr())
	}
	var re *domain.RetryExhaustedError
	if !errors.As(op.LastErr(), &re) || re.Attempts != 2 {
		t.Errorf("exhausted attempts = %+v", re)
	}
	if err := op.Begin(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Begin after exhaustion = %v", err)
	}
}

func TestOperation_TerminalOnValidation(t *testing.T) {
	op := newPut(t, 5)
	_ = op.Begin()
	verr := fmt.Errorf("mapper_parsing_exception: %w", domain.ErrValidation)
	if err := op.Fail(verr); err != nil {
		t.Fatal(err)
	}
	if op.State() != StateFailedTerminal || op.Attempts() != 1 {
		t.Errorf("state = %s attempts = %d", op.State(), op.Attempts())
	}
	if errors.Is(op.LastErr(), domain.ErrRetryExhausted) {
		t.Error("validation failure must not be reported as exhausted")
	}
}

func TestOperation_InvalidTransitions(t *testing.T) {
	op := newPut(t, 1)
	if err := op.Succeed(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Succeed from pending = %v", err)
	}
	if err := op.Retry(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Retry from pending = %v", err)
	}
	_ = op.Begin()
	if err := op.Begin(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Begin twice = %v", err)
	}
	if err := op.Drop(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Drop in flight = %v", err)
	}
	if err := op.SucceedNotFound(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("SucceedNotFound on create = %v", err)
	}
	if err := op.Fail(nil); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Fail(nil) = %v", err)
	}
}

func TestOperation_DeleteNotFound(t *testing.T) {
	op, err := New(KindDelete, "bonds", []string{"b-1"}, nil, 1)
	if err != nil {
		t.Fatal(err)
	}
	_ = op.Begin()
	if err := op.SucceedNotFound(); err != nil {
		t.Fatal(err)
	}
	if op.State() != StateSucceeded || !op.NotFound() {
		t.Errorf("state = %s notFound = %v", op.State(), op.NotFound())
	}
}

func TestOperation_Drop(t *testing.T) {
	op := newPut(t, 3)
	if err := op.Drop(); err != nil {
		t.Fatal(err)
	}
	if op.State() != StateFailedTerminal || !errors.Is(op.LastErr(), domain.ErrDropped) {
		t.Errorf("state = %s err = %v", op.State(), op.LastErr())
	}
}

func TestOperation_Skip(t *testing.T) {
	op, _ := New(KindUpdate, "bonds", []string{"b-1"}, []map[string]any{payload}, 1)
	if err := op.Skip(); err != nil {
		t.Fatal(err)
	}
	if !op.Skipped() || op.State() != StateSucceeded || op.Attempts() != 0 {
		t.Errorf("skipped=%v state=%s attempts=%d", op.Skipped(), op.State(), op.Attempts())
	}
}

func TestOperation_Narrow(t *testing.T) {
	op, err := New(KindBulkCreate, "bonds",
		[]string{"a", "b", "c"},
		[]map[string]any{{"n": 1}, {"n": 2}, {"n": 3}}, 3)
	if err != nil {
		t.Fatal(err)
	}
	_ = op.Begin()
	_ = op.Fail(domain.ErrTransient)
	if err := op.Narrow([]string{"c", "a"}); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(op.Targets(), []string{"a", "c"}) {
		t.Errorf("Targets() = %v", op.Targets())
	}
	if op.Payloads()[1]["n"] != 3 {
		t.Errorf("payloads misaligned: %v", op.Payloads())
	}
	if err := op.Narrow([]string{"zzz"}); err == nil {
		t.Error("narrowing to nothing should fail")
	}
	put := newPut(t, 1)
	if err := put.Narrow([]string{"b-1"}); err == nil {
		t.Error("narrow on a single-document op should fail")
	}
}
