package db

import (
	"errors"
	"testing"

	"github.com/kailas-cloud/syncdex/internal/domain"
)

func TestSentinelsWrapDomain(t *testing.T) {
	tests := []struct {
		err       error
		domainErr error
		retryable bool
	}{
		{ErrConnection, domain.ErrConnection, true},
		{ErrTransient, domain.ErrTransient, true},
		{ErrTimeout, domain.ErrTransient, true},
		{ErrMalformedRequest, domain.ErrValidation, false},
		{ErrRejected, domain.ErrValidation, false},
		{ErrNotFound, domain.ErrNotFound, false},
		{ErrIndexNotFound, domain.ErrNotFound, false},
	}
	for _, tt := range tests {
		wrapped := &Error{Op: OpPut, Index: "bonds", Err: tt.err}
		if !errors.Is(wrapped, tt.err) {
			t.Errorf("%v: errors.Is(own sentinel) = false", tt.err)
		}
		if !errors.Is(wrapped, tt.domainErr) {
			t.Errorf("%v: errors.Is(%v) = false", tt.err, tt.domainErr)
		}
		if got := domain.IsRetryable(wrapped); got != tt.retryable {
			t.Errorf("%v: IsRetryable = %v, want %v", tt.err, got, tt.retryable)
		}
	}
}

func TestError_Message(t *testing.T) {
	err := &Error{
		Op: OpPut, Index: "bonds", Status: 400,
		Type: "mapper_parsing_exception", Reason: "failed to parse field [price]",
		Err: ErrRejected,
	}
	want := "index [bonds] status=400 mapper_parsing_exception: failed to parse field [price]: " + ErrRejected.Error()
	if err.Error() != want {
		t.Errorf("Error() = %q\nwant      %q", err.Error(), want)
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{200, nil},
		{201, nil},
		{400, ErrMalformedRequest},
		{404, ErrNotFound},
		{409, ErrRejected},
		{408, ErrTransient},
		{429, ErrTransient},
		{503, ErrTransient},
	}
	for _, tt := range tests {
		if got := ClassifyStatus(tt.status); !errors.Is(got, tt.want) || (tt.want == nil && got != nil) {
			t.Errorf("ClassifyStatus(%d) = %v, want %v", tt.status, got, tt.want)
		}
	}
}
