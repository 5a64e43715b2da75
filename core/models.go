package core

import (
	"encoding/hex"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// RecordVersion is the current CatalogRecord schema version.
// Bump when the record layout changes in a way loaders must detect.
const RecordVersion = 1

// ContentHash is the content-addressed identity of a document: a hex-encoded
// BLAKE2b-128 digest of the exact file bytes. Identical bytes always yield
// the identical hash, so it doubles as the dedup key and the storage key.
type ContentHash string

// HashContent computes the ContentHash of raw document bytes.
func HashContent(data []byte) ContentHash {
	h, _ := blake2b.New(16, nil) // 16 bytes = 128 bits
	h.Write(data)
	return ContentHash(hex.EncodeToString(h.Sum(nil)))
}

// IndexName returns the vector index name derived from the hash.
func (h ContentHash) IndexName() string {
	return string(h) + "_embeddings"
}

// Chunk is a contiguous slice of a document's extracted text, sized for one
// embedding call. Chunks form an ordered sequence per document; chunk i
// corresponds to row i of the document's vector index.
type Chunk struct {
	Index int // position in the document's chunk sequence, 0-based
	Start int // character offset of the chunk in the extracted text
	Text  string
}

// FileInfo describes the raw uploaded file.
type FileInfo struct {
	OriginalFilename string
	StoredFilename   string
	SizeBytes        int64
	UploadedAt       time.Time
}

// ContentInfo describes the extraction and chunking results.
type ContentInfo struct {
	CharLength int
	ChunkCount int
}

// VectorInfo describes where and how the document's embeddings are stored.
type VectorInfo struct {
	IndexName   string
	VectorCount int
	Dimension   int
}

// EmbeddingInfo records which provider configuration produced the vectors.
type EmbeddingInfo struct {
	Model      string
	APIVersion string
}

// CatalogRecord is the durable, authoritative description of one processed
// document. Its identity is the document's ContentHash. Records are immutable
// once created: re-ingestion of the same hash returns the existing record,
// and the only mutation is explicit deletion, which cascades to the vector
// index and blob.
type CatalogRecord struct {
	Version   int
	Hash      ContentHash
	File      FileInfo
	Content   ContentInfo
	Vector    VectorInfo
	Embedding EmbeddingInfo
	CreatedAt time.Time
}
