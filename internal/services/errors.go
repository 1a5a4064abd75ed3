package services

import "errors"

// Pipeline failure taxonomy. Extraction failures are always recovered by
// the heuristic fallback and never escape the gateway; everything below is
// what callers can observe.
var (
	// ErrInvalidInput marks a precondition failure before any provider
	// call is made.
	ErrInvalidInput = errors.New("invalid analysis input")

	// ErrEmbeddingFailure marks a fatal embedding provider error. There is
	// no fallback for embeddings.
	ErrEmbeddingFailure = errors.New("embedding provider failure")
)
