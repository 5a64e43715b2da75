package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a
	// batch. The returned slice contains exactly one embedding per input text,
	// in input order, and every embedding has the provider's fixed dimension.
	// The whole batch fails together: on any provider error no partial result
	// is returned, so chunk-to-vector alignment can never desynchronize.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}
