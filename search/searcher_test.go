package search

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/docdex/ai/mock"
	"github.com/poiesic/docdex/core"
	"github.com/poiesic/docdex/storage"
	"github.com/poiesic/docdex/storage/badger"
	"github.com/poiesic/docdex/vecindex"
)

type fixture struct {
	searcher *Searcher
	catalog  *badger.Catalog
	indexes  *vecindex.Store
	embedder *mock.MockEmbedder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	catalog, backend, err := badger.NewMemoryCatalog()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	indexes, err := vecindex.NewStore(t.TempDir())
	require.NoError(t, err)

	embedder := mock.NewMockEmbedder()
	embedder.Dimension = 3

	searcher, err := NewSearcher(catalog, indexes, embedder)
	require.NoError(t, err)

	return &fixture{searcher: searcher, catalog: catalog, indexes: indexes, embedder: embedder}
}

// addDocument persists an index with one row per vector and a matching
// catalog record, as ingestion would.
func (f *fixture) addDocument(t *testing.T, hashSeed string, filename string, vectors [][]float32, texts []string) core.ContentHash {
	t.Helper()
	require.Equal(t, len(vectors), len(texts))

	hash := core.ContentHash(strings.Repeat(hashSeed, 32)[:32])
	chunks := make([]core.Chunk, len(texts))
	offset := 0
	for i, text := range texts {
		chunks[i] = core.Chunk{Index: i, Start: offset, Text: text}
		offset += len(text)
	}

	index, err := vecindex.Build(vectors)
	require.NoError(t, err)
	_, err = f.indexes.Persist(index, hash.IndexName(), vecindex.NewSidecar(hash, filename, chunks, index))
	require.NoError(t, err)

	now := time.Now().UTC()
	record := &core.CatalogRecord{
		Version: core.RecordVersion,
		Hash:    hash,
		File: core.FileInfo{
			OriginalFilename: filename,
			StoredFilename:   string(hash) + ".pdf",
			SizeBytes:        1024,
			UploadedAt:       now,
		},
		Content: core.ContentInfo{CharLength: offset, ChunkCount: len(chunks)},
		Vector: core.VectorInfo{
			IndexName:   hash.IndexName(),
			VectorCount: index.Count(),
			Dimension:   index.Dimension(),
		},
		Embedding: core.EmbeddingInfo{Model: "embeddinggemma", APIVersion: "v1"},
		CreatedAt: now,
	}
	require.NoError(t, f.catalog.Create(context.Background(), record))
	return hash
}

// queryAt pins the query embedding to a fixed vector.
func (f *fixture) queryAt(vector []float32) {
	f.embedder.EmbedTextFunc = func(_ context.Context, _ string) ([]float32, error) {
		return vector, nil
	}
}

func TestNewSearcher_MissingDependencies(t *testing.T) {
	catalog, backend, err := badger.NewMemoryCatalog()
	require.NoError(t, err)
	defer backend.Close()
	indexes, err := vecindex.NewStore(t.TempDir())
	require.NoError(t, err)
	embedder := mock.NewMockEmbedder()

	_, err = NewSearcher(nil, indexes, embedder)
	assert.ErrorIs(t, err, ErrCatalogRequired)
	_, err = NewSearcher(catalog, nil, embedder)
	assert.ErrorIs(t, err, ErrIndexStoreRequired)
	_, err = NewSearcher(catalog, indexes, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)
}

func TestQuery_RanksByDistance(t *testing.T) {
	f := newFixture(t)
	hash := f.addDocument(t, "a", "doc.pdf",
		[][]float32{{0, 0, 0}, {1, 0, 0}, {5, 0, 0}},
		[]string{"origin", "near", "far"},
	)
	f.queryAt([]float32{0.9, 0, 0})

	results, err := f.searcher.Query(context.Background(), hash, "which chunk", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "near", results[0].Chunk.Text)
	assert.Equal(t, 1, results[0].Row)
	assert.Equal(t, "origin", results[1].Chunk.Text)
	assert.Equal(t, hash, results[0].Hash)
	assert.Equal(t, "doc.pdf", results[0].OriginalFilename)
	assert.Less(t, results[0].Distance, results[1].Distance)
}

func TestQuery_KCappedAtChunkCount(t *testing.T) {
	f := newFixture(t)
	hash := f.addDocument(t, "b", "small.pdf",
		[][]float32{{1, 1, 1}},
		[]string{"only"},
	)
	f.queryAt([]float32{0, 0, 0})

	results, err := f.searcher.Query(context.Background(), hash, "anything", 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestQuery_UnknownHash(t *testing.T) {
	f := newFixture(t)

	_, err := f.searcher.Query(context.Background(), core.ContentHash(strings.Repeat("0", 32)), "q", 3)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestQuery_EmptyQuery(t *testing.T) {
	f := newFixture(t)

	_, err := f.searcher.Query(context.Background(), core.ContentHash(strings.Repeat("0", 32)), "   ", 3)
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestQueryAll_MergesAcrossDocuments(t *testing.T) {
	f := newFixture(t)
	hashA := f.addDocument(t, "a", "a.pdf",
		[][]float32{{0, 0, 0}, {10, 0, 0}},
		[]string{"a close", "a distant"},
	)
	hashB := f.addDocument(t, "b", "b.pdf",
		[][]float32{{0.5, 0, 0}},
		[]string{"b middling"},
	)
	f.queryAt([]float32{0, 0, 0})

	results, err := f.searcher.QueryAll(context.Background(), "query", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, hashA, results[0].Hash)
	assert.Equal(t, "a close", results[0].Chunk.Text)
	assert.Equal(t, hashB, results[1].Hash)
	assert.Equal(t, "b middling", results[1].Chunk.Text)
}

func TestQueryAll_SkipsBrokenIndex(t *testing.T) {
	f := newFixture(t)
	f.addDocument(t, "a", "good.pdf",
		[][]float32{{0, 0, 0}},
		[]string{"good"},
	)
	broken := f.addDocument(t, "b", "broken.pdf",
		[][]float32{{1, 1, 1}},
		[]string{"broken"},
	)
	removed, err := f.indexes.Delete(broken.IndexName())
	require.NoError(t, err)
	require.True(t, removed)

	f.queryAt([]float32{0, 0, 0})

	results, err := f.searcher.QueryAll(context.Background(), "query", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "good", results[0].Chunk.Text)
}

func TestQueryAll_EmptyCatalog(t *testing.T) {
	f := newFixture(t)
	f.queryAt([]float32{0, 0, 0})

	results, err := f.searcher.QueryAll(context.Background(), "query", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}
