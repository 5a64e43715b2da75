// Package mock provides a deterministic ai.Embedder test double.
//
// MockEmbedder requires no network and produces stable vectors derived from
// an FNV hash of the input text, so tests exercising the pipeline and index
// get reproducible distances. Behavior can be overridden per-test via
// function fields.
package mock
