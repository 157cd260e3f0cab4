package llm

import (
	"context"
	"time"
)

// Default retry policy for transient provider failures.
const (
	DefaultRetryAttempts = 3
	DefaultRetryDelay    = time.Second
)

// CompleteWithRetry calls client.Complete, retrying transient provider
// errors with exponential backoff. Fatal errors and context cancellation
// return immediately. The final transient error is returned once the
// attempt budget is spent.
func CompleteWithRetry(ctx context.Context, client Client, req Request, attempts int, baseDelay time.Duration) (*Response, error) {
	if attempts <= 0 {
		attempts = DefaultRetryAttempts
	}
	if baseDelay <= 0 {
		baseDelay = DefaultRetryDelay
	}

	var lastErr error
	delay := baseDelay
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		resp, err := client.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !IsTransient(err) || attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return nil, lastErr
}
