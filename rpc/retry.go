package rpc

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// RetryConfig configures how transport failures are retried. Errors reported
// by the node in a JSON-RPC error object are never retried.
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultRetryConfig returns default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
	}
}

// nextDelay computes the exponential backoff after delay
func (c RetryConfig) nextDelay(delay time.Duration) time.Duration {
	next := time.Duration(float64(delay) * c.Multiplier)
	if next > c.MaxDelay {
		return c.MaxDelay
	}
	return next
}

// HTTPError is an HTTP answer that carried no JSON-RPC payload
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("unexpected http status %d: %s", e.StatusCode, e.Body)
}

// transportError marks failures worth retrying on another attempt
type transportError struct {
	err error
}

func (e *transportError) Error() string {
	return e.err.Error()
}

func (e *transportError) Unwrap() error {
	return e.err
}

func isRetryable(err error) bool {
	var tErr *transportError
	if !errors.As(err, &tErr) {
		return false
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// retry runs fn until it succeeds, fails with a non retryable error, or the
// attempts run out
func retry(ctx context.Context, cfg RetryConfig, fn func(attempt int) error) error {
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	delay := cfg.InitialDelay
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(attempt)
		if lastErr == nil || !isRetryable(lastErr) {
			return lastErr
		}
		if attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = cfg.nextDelay(delay)
	}

	return fmt.Errorf("giving up after %d attempts: %w", attempts, lastErr)
}
