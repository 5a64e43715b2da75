package extract

import (
	"fmt"

	"github.com/poiesic/docdex/core"
)

// Chunker splits extracted text into bounded, overlapping chunks.
//
// Sizes are measured in characters as a fixed approximation of provider
// token budgets. Each chunk after the first begins Overlap characters before
// the end of the previous chunk, so content near a boundary always appears
// whole in at least one chunk.
type Chunker struct {
	// MaxSize is the chunk size budget in characters. Must be positive.
	MaxSize int

	// Overlap is how far each chunk reaches back into its predecessor,
	// in characters. Must be non-negative and strictly less than MaxSize;
	// otherwise chunking could fail to make forward progress.
	Overlap int
}

// Validate fails fast on a configuration that cannot make forward progress.
func (c Chunker) Validate() error {
	if c.MaxSize <= 0 {
		return fmt.Errorf("%w: max size must be positive, got %d", ErrInvalidChunkConfig, c.MaxSize)
	}
	if c.Overlap < 0 {
		return fmt.Errorf("%w: overlap must be non-negative, got %d", ErrInvalidChunkConfig, c.Overlap)
	}
	if c.Overlap >= c.MaxSize {
		return fmt.Errorf("%w: overlap %d must be less than max size %d", ErrInvalidChunkConfig, c.Overlap, c.MaxSize)
	}
	return nil
}

// Split chunks text into an ordered sequence.
//
// Chunk i starts at character i*(MaxSize-Overlap) and covers at most MaxSize
// characters, so the pieces read in order cover every character at least
// once. Empty text yields zero chunks; callers must treat that as a
// processing failure, not a silent success.
func (c Chunker) Split(text string) ([]core.Chunk, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil, nil
	}

	step := c.MaxSize - c.Overlap
	var chunks []core.Chunk
	for start := 0; start < len(runes); start += step {
		end := start + c.MaxSize
		if end > len(runes) {
			end = len(runes)
		}

		chunks = append(chunks, core.Chunk{
			Index: len(chunks),
			Start: start,
			Text:  string(runes[start:end]),
		})

		if end == len(runes) {
			break
		}
	}

	return chunks, nil
}
