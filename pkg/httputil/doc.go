// Package httputil provides HTTP plumbing shared by the backend source and
// the API server.
//
// # Overview
//
//   - [Retry]: retry with exponential backoff for transient failures
//   - [NewClient]: an http.Client with the default backend timeout
//   - [CheckStatus]: classify a backend response status
//
// # Retry
//
// [Retry] only retries errors wrapped in [RetryableError]. [CheckStatus]
// wraps 5xx and 429 responses that way, and callers wrap transport errors
// themselves:
//
//	err := httputil.Retry(ctx, 3, time.Second, func() error {
//	    resp, err := client.Do(req)
//	    if err != nil {
//	        return &httputil.RetryableError{Err: err}
//	    }
//	    defer resp.Body.Close()
//	    return httputil.CheckStatus(resp.StatusCode, nil)
//	})
//
// The delay doubles after each failed attempt. Cancelling ctx stops the
// loop between attempts.
package httputil
