package httputil

import (
	"net/http"
	"strings"
	"time"

	"github.com/matzehuels/pivotview/pkg/errors"
)

// DefaultTimeout bounds a single backend request.
const DefaultTimeout = 30 * time.Second

// NewClient returns an HTTP client with the given timeout, or
// [DefaultTimeout] when timeout is not positive.
func NewClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// CheckStatus maps a response status to an error. body is an optional
// excerpt of the response included in the message.
//
//   - 2xx: nil
//   - 404: NOT_FOUND
//   - 400, 422: INVALID_INPUT (the backend rejected the query)
//   - 429 and 5xx: UPSTREAM_ERROR, retryable
//   - anything else: UPSTREAM_ERROR
func CheckStatus(code int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return errors.New(errors.ErrCodeNotFound, "backend returned %d %s", code, msg)
	case code == http.StatusBadRequest || code == http.StatusUnprocessableEntity:
		return errors.New(errors.ErrCodeInvalidInput, "backend rejected query: %d %s", code, msg)
	case code == http.StatusTooManyRequests || code >= 500:
		return &RetryableError{Err: errors.New(errors.ErrCodeUpstream, "backend returned %d %s", code, msg)}
	default:
		return errors.New(errors.ErrCodeUpstream, "backend returned %d %s", code, msg)
	}
}
