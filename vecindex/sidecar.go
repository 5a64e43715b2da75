package vecindex

import (
	"github.com/poiesic/docdex/core"
)

// SidecarVersion is the current sidecar schema version.
const SidecarVersion = 1

// Sidecar is the metadata persisted alongside a vector index, needed to
// interpret the index rows: chunk i of Chunks is the text embedded at row i.
// The index file and its sidecar are written and loaded together.
type Sidecar struct {
	Version          int
	FileHash         core.ContentHash
	OriginalFilename string
	Chunks           []core.Chunk
	EmbeddingCount   int
	Dimension        int
}

// NewSidecar builds the sidecar for an index over the given chunks.
func NewSidecar(hash core.ContentHash, originalFilename string, chunks []core.Chunk, index *Index) *Sidecar {
	return &Sidecar{
		Version:          SidecarVersion,
		FileHash:         hash,
		OriginalFilename: originalFilename,
		Chunks:           chunks,
		EmbeddingCount:   index.Count(),
		Dimension:        index.Dimension(),
	}
}
