// Package gateway wraps the embedding and generation backends with the
// shared call discipline: per-call timeouts, token-bucket rate
// limiting, exponential-backoff retry of transient failures and
// bounded-concurrency batch fan-out.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/coretext-ai/corpusqa/internal/core/domain"
	"github.com/coretext-ai/corpusqa/internal/logger"
)

// Default gateway behaviour values.
const (
	DefaultRetryMaxAttempts  = 3
	DefaultRetryBackoffBase  = 500 * time.Millisecond
	DefaultTimeout           = 60 * time.Second
	DefaultConcurrencyLimit  = 4
	DefaultRequestsPerSecond = 8.0
	DefaultBurst             = 8
)

// Config holds the call discipline shared by both gateways.
type Config struct {
	// RetryMaxAttempts is the total number of attempts per call,
	// including the first. Transient failures are retried until this
	// many attempts have been made.
	RetryMaxAttempts int

	// RetryBackoffBase is the delay before the first retry; it doubles
	// after every further failure.
	RetryBackoffBase time.Duration

	// Timeout bounds each individual backend call. Exceeding it counts
	// as a transient failure.
	Timeout time.Duration

	// ConcurrencyLimit bounds how many backend calls a batch operation
	// has in flight at once.
	ConcurrencyLimit int

	// RequestsPerSecond is the sustained backend request rate.
	RequestsPerSecond float64

	// Burst is the token-bucket burst size.
	Burst int
}

// withDefaults fills zero fields with the documented defaults.
func (c Config) withDefaults() Config {
	if c.RetryMaxAttempts <= 0 {
		c.RetryMaxAttempts = DefaultRetryMaxAttempts
	}
	if c.RetryBackoffBase <= 0 {
		c.RetryBackoffBase = DefaultRetryBackoffBase
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.ConcurrencyLimit <= 0 {
		c.ConcurrencyLimit = DefaultConcurrencyLimit
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if c.Burst <= 0 {
		c.Burst = DefaultBurst
	}
	return c
}

// retryAfterer is implemented by backend errors that carry a
// server-provided retry delay (e.g. a 429 Retry-After header).
type retryAfterer interface {
	RetryAfter() time.Duration
}

// call runs fn with the configured timeout, rate limit and retry
// policy. Transient failures are retried with exponential backoff until
// cfg.RetryMaxAttempts attempts have been made; permanent failures and
// caller cancellation abort immediately.
func call(ctx context.Context, cfg Config, limiter *rate.Limiter, op string, fn func(context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= cfg.RetryMaxAttempts; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		callCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		err := fn(callCtx)
		cancel()

		if err == nil {
			return nil
		}

		// Caller cancellation is not a backend failure; stop retrying.
		if ctx.Err() != nil {
			return fmt.Errorf("%s: %w", op, ctx.Err())
		}

		// A per-call deadline counts as a transient backend failure.
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%s timed out after %s: %w", op, cfg.Timeout, domain.ErrBackendTransient)
		}

		if !errors.Is(err, domain.ErrBackendTransient) {
			return fmt.Errorf("%s: %w", op, err)
		}

		lastErr = err
		if attempt == cfg.RetryMaxAttempts {
			break
		}

		backoff := cfg.RetryBackoffBase << (attempt - 1)
		var ra retryAfterer
		if errors.As(err, &ra) && ra.RetryAfter() > backoff {
			backoff = ra.RetryAfter()
		}

		logger.Warn("%s attempt %d/%d failed: %v (retrying in %s)",
			op, attempt, cfg.RetryMaxAttempts, err, backoff)

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", op, ctx.Err())
		case <-time.After(backoff):
		}
	}

	return fmt.Errorf("%s: retries exhausted after %d attempts: %w", op, cfg.RetryMaxAttempts, lastErr)
}
