package batch

import (
	"errors"
	"testing"
)

func TestNewOK(t *testing.T) {
	r := NewOK("b-1", 2)
	if r.ID() != "b-1" {
		t.Errorf("ID() = %q", r.ID())
	}
	if r.Status() != StatusOK || !r.OK() {
		t.Errorf("Status() = %q, want %q", r.Status(), StatusOK)
	}
	if r.Err() != nil {
		t.Errorf("Err() = %v, want nil", r.Err())
	}
	if r.Attempts() != 2 {
		t.Errorf("Attempts() = %d, want 2", r.Attempts())
	}
}

func TestNewError(t *testing.T) {
	err := errors.New("mapper_parsing_exception")
	r := NewError("b-2", err, 1)
	if r.Status() != StatusError || r.OK() {
		t.Errorf("Status() = %q, want %q", r.Status(), StatusError)
	}
	if !errors.Is(r.Err(), err) {
		t.Errorf("Err() = %v, want %v", r.Err(), err)
	}
}

func TestSummary(t *testing.T) {
	ok, failed := Summary([]Result{
		NewOK("a", 1),
		NewError("b", errors.New("x"), 3),
		NewOK("c", 2),
	})
	if ok != 2 || failed != 1 {
		t.Errorf("Summary() = %d, %d, want 2, 1", ok, failed)
	}
}
