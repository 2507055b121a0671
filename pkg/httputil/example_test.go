package httputil_test

import (
	"context"
	"fmt"
	"time"

	"github.com/matzehuels/pivotview/pkg/httputil"
)

func ExampleRetry() {
	attempt := 0
	err := httputil.Retry(context.Background(), 3, time.Millisecond, func() error {
		attempt++
		if attempt < 2 {
			return httputil.CheckStatus(503, []byte("warming up"))
		}
		return nil
	})
	fmt.Println("Attempts:", attempt)
	fmt.Println("Error:", err)
	// Output:
	// Attempts: 2
	// Error: <nil>
}

func ExampleCheckStatus() {
	err := httputil.CheckStatus(502, nil)
	fmt.Println("Retryable:", httputil.IsRetryable(err))
	// Output:
	// Retryable: true
}
