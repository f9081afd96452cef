package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors and are classified with
// errors.Is after fmt.Errorf("%w") wrapping adds operation context.
var (
	// ErrInvalidInput indicates malformed input: empty document text,
	// non-positive k, a mismatched vector dimension, or an empty
	// collection name where one is required. Never retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound indicates a requested entity does not exist where the
	// operation requires existence. Info and clear tolerate absence and
	// do not return this.
	ErrNotFound = errors.New("not found")

	// ErrBackendTransient indicates a timeout or rate-limit response
	// from an embedding or generation backend. Retried by the gateway;
	// surfaced only once retries exhaust.
	ErrBackendTransient = errors.New("transient backend failure")

	// ErrBackendPermanent indicates a non-retryable backend rejection,
	// such as a malformed request. Surfaced immediately.
	ErrBackendPermanent = errors.New("permanent backend failure")

	// ErrIndexUnavailable indicates the vector index cannot be reached
	// or written. Ingest fails atomically; no partial chunk set is kept.
	ErrIndexUnavailable = errors.New("vector index unavailable")
)
