package ai

import "errors"

var (
	// ErrEmbeddingProvider indicates the embedding provider failed the whole
	// batch: quota, auth, or transient network failure. The ingestion attempt
	// is not retried automatically; retrying the full request is a caller
	// decision.
	ErrEmbeddingProvider = errors.New("embedding provider failure")

	// ErrBatchMismatch indicates the provider returned a different number of
	// vectors than texts requested.
	ErrBatchMismatch = errors.New("embedding batch count mismatch")

	// ErrDimensionMismatch indicates vectors within one batch have
	// inconsistent widths.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
