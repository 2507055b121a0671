package httputil

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/matzehuels/pivotview/pkg/errors"
)

func TestRetry(t *testing.T) {
	transient := &RetryableError{Err: fmt.Errorf("timeout")}
	permanent := fmt.Errorf("bad request")

	tests := []struct {
		name      string
		errs      []error
		attempts  int
		wantCalls int
		wantErr   error
	}{
		{"success first try", []error{nil}, 3, 1, nil},
		{"success after retry", []error{transient, nil}, 3, 2, nil},
		{"permanent stops", []error{permanent, nil}, 3, 1, permanent},
		{"exhausted", []error{transient, transient, transient}, 3, 3, transient},
		{"zero attempts runs once", []error{transient}, 0, 1, transient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Retry(context.Background(), tt.attempts, time.Millisecond, func() error {
				e := tt.errs[calls]
				calls++
				return e
			})
			if err != tt.wantErr {
				t.Errorf("Retry() error = %v, want %v", err, tt.wantErr)
			}
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
		})
	}
}

func TestRetryCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Retry(ctx, 5, time.Hour, func() error {
		calls++
		cancel()
		return &RetryableError{Err: fmt.Errorf("unavailable")}
	})
	if err != context.Canceled {
		t.Errorf("Retry() error = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestCheckStatus(t *testing.T) {
	tests := []struct {
		code      int
		wantCode  errors.Code
		retryable bool
	}{
		{http.StatusOK, "", false},
		{http.StatusNoContent, "", false},
		{http.StatusNotFound, errors.ErrCodeNotFound, false},
		{http.StatusBadRequest, errors.ErrCodeInvalidInput, false},
		{http.StatusUnprocessableEntity, errors.ErrCodeInvalidInput, false},
		{http.StatusTooManyRequests, errors.ErrCodeUpstream, true},
		{http.StatusBadGateway, errors.ErrCodeUpstream, true},
		{http.StatusForbidden, errors.ErrCodeUpstream, false},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.code), func(t *testing.T) {
			err := CheckStatus(tt.code, []byte("details"))
			if got := errors.GetCode(err); got != tt.wantCode {
				t.Errorf("CheckStatus(%d) code = %q, want %q", tt.code, got, tt.wantCode)
			}
			if got := IsRetryable(err); got != tt.retryable {
				t.Errorf("CheckStatus(%d) retryable = %v, want %v", tt.code, got, tt.retryable)
			}
		})
	}
}

func TestNewClientTimeout(t *testing.T) {
	if got := NewClient(0).Timeout; got != DefaultTimeout {
		t.Errorf("NewClient(0).Timeout = %v, want %v", got, DefaultTimeout)
	}
	if got := NewClient(time.Second).Timeout; got != time.Second {
		t.Errorf("NewClient(1s).Timeout = %v, want 1s", got)
	}
}

func TestRetryNotifyBackoff(t *testing.T) {
	var waits []time.Duration
	transient := &RetryableError{Err: fmt.Errorf("unavailable")}
	err := RetryNotify(context.Background(), 3, time.Millisecond, func() error {
		return transient
	}, func(attempt int, err error, wait time.Duration) {
		if attempt != len(waits)+1 {
			t.Errorf("attempt = %d, want %d", attempt, len(waits)+1)
		}
		waits = append(waits, wait)
	})
	if err != transient {
		t.Errorf("RetryNotify() error = %v, want %v", err, transient)
	}
	want := []time.Duration{time.Millisecond, 2 * time.Millisecond}
	if len(waits) != len(want) || waits[0] != want[0] || waits[1] != want[1] {
		t.Errorf("waits = %v, want %v", waits, want)
	}
}
