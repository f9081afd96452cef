// Package backend classifies HTTP responses from model backends into
// the transient/permanent error taxonomy the gateway retry policy
// understands.
package backend

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/coretext-ai/corpusqa/internal/core/domain"
)

// StatusError is a non-2xx backend response.
// It wraps domain.ErrBackendTransient for rate limits and server
// errors, domain.ErrBackendPermanent for everything else, and carries
// any Retry-After hint for the gateway's backoff.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
	retryAfter time.Duration
}

// NewStatusError builds a StatusError from a response.
func NewStatusError(provider string, resp *http.Response, body []byte) *StatusError {
	e := &StatusError{
		Provider:   provider,
		StatusCode: resp.StatusCode,
		Body:       string(body),
	}

	if seconds, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && seconds > 0 {
		e.retryAfter = time.Duration(seconds) * time.Second
	}

	return e
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// Unwrap classifies the status into the retry taxonomy.
func (e *StatusError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusTooManyRequests,
		e.StatusCode == http.StatusRequestTimeout,
		e.StatusCode >= http.StatusInternalServerError:
		return domain.ErrBackendTransient
	default:
		return domain.ErrBackendPermanent
	}
}

// RetryAfter returns the server-provided retry delay, zero when absent.
func (e *StatusError) RetryAfter() time.Duration {
	return e.retryAfter
}
