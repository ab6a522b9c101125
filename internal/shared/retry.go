package shared

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// RetryConfig holds retry configuration for network operations.
type RetryConfig struct {
	MaxAttempts int           // Maximum number of attempts including the first
	InitialWait time.Duration // Initial wait duration, doubled each retry
	MaxWait     time.Duration // Ceiling on the wait duration between retries
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts: 3,
		InitialWait: 500 * time.Millisecond,
		MaxWait:     10 * time.Second,
	}
}

// IsRetryableError reports whether an error is worth retrying.
//
// Transient fetch failures ([ErrTransientFetch], network timeouts) qualify.
// Context cancellation and decode failures never do: the former is a caller
// decision, the latter a contract break with the remote service.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrDecode) {
		return false
	}
	if errors.Is(err, ErrTransientFetch) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return false
}

// RetryWithBackoff executes an operation with exponential backoff.
// Returns the result of the operation or the final error after all retries are exhausted.
func RetryWithBackoff[T any](ctx context.Context, cfg *RetryConfig, operation func() (T, error)) (T, error) {
	var result T
	var err error

	if cfg == nil {
		cfg = DefaultRetryConfig()
	}

	wait := cfg.InitialWait

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		result, err = operation()
		if err == nil {
			return result, nil
		}

		if !IsRetryableError(err) {
			return result, err
		}

		if attempt == cfg.MaxAttempts {
			return result, fmt.Errorf("max retries exceeded (%d attempts): %w", cfg.MaxAttempts, err)
		}

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(wait):
		}

		wait *= 2
		if wait > cfg.MaxWait {
			wait = cfg.MaxWait
		}
	}

	return result, err
}
