package ingestion

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/docdex/ai"
	"github.com/poiesic/docdex/ai/mock"
	"github.com/poiesic/docdex/core"
	"github.com/poiesic/docdex/extract"
	"github.com/poiesic/docdex/storage"
	"github.com/poiesic/docdex/storage/badger"
	"github.com/poiesic/docdex/storage/blob"
	"github.com/poiesic/docdex/vecindex"
)

// staticExtractor bypasses PDF parsing so tests control the extracted text.
type staticExtractor struct {
	text string
	err  error
}

func (e *staticExtractor) Text(_ context.Context, _ []byte) (string, error) {
	return e.text, e.err
}

type testPipeline struct {
	pipeline *Pipeline
	blobs    *blob.Store
	catalog  *badger.Catalog
	indexes  *vecindex.Store
	indexDir string
	embedder *mock.MockEmbedder
}

func newTestPipeline(t *testing.T, text string, opts ...Option) *testPipeline {
	t.Helper()

	blobs, err := blob.NewStore(t.TempDir())
	require.NoError(t, err)

	catalog, backend, err := badger.NewMemoryCatalog()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	indexDir := t.TempDir()
	indexes, err := vecindex.NewStore(indexDir)
	require.NoError(t, err)

	embedder := mock.NewMockEmbedder()
	embedder.Dimension = 8

	opts = append([]Option{WithExtractor(&staticExtractor{text: text})}, opts...)
	pipeline, err := NewPipeline(blobs, catalog, indexes, embedder, ai.NewConfig(), opts...)
	require.NoError(t, err)
	t.Cleanup(pipeline.Release)

	return &testPipeline{
		pipeline: pipeline,
		blobs:    blobs,
		catalog:  catalog,
		indexes:  indexes,
		indexDir: indexDir,
		embedder: embedder,
	}
}

func pdfBytes(content string) []byte {
	return []byte("%PDF-1.4\n" + content)
}

func TestNewPipeline_MissingDependencies(t *testing.T) {
	blobs, err := blob.NewStore(t.TempDir())
	require.NoError(t, err)
	catalog, backend, err := badger.NewMemoryCatalog()
	require.NoError(t, err)
	defer backend.Close()
	indexes, err := vecindex.NewStore(t.TempDir())
	require.NoError(t, err)
	embedder := mock.NewMockEmbedder()
	cfg := ai.NewConfig()

	tests := []struct {
		name    string
		build   func() (*Pipeline, error)
		wantErr error
	}{
		{
			name:    "nil blob store",
			build:   func() (*Pipeline, error) { return NewPipeline(nil, catalog, indexes, embedder, cfg) },
			wantErr: ErrBlobStoreRequired,
		},
		{
			name:    "nil catalog",
			build:   func() (*Pipeline, error) { return NewPipeline(blobs, nil, indexes, embedder, cfg) },
			wantErr: ErrCatalogRequired,
		},
		{
			name:    "nil index store",
			build:   func() (*Pipeline, error) { return NewPipeline(blobs, catalog, nil, embedder, cfg) },
			wantErr: ErrIndexStoreRequired,
		},
		{
			name:    "nil embedder",
			build:   func() (*Pipeline, error) { return NewPipeline(blobs, catalog, indexes, nil, cfg) },
			wantErr: ErrEmbedderRequired,
		},
		{
			name:    "nil config",
			build:   func() (*Pipeline, error) { return NewPipeline(blobs, catalog, indexes, embedder, nil) },
			wantErr: ErrConfigRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build()
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestIngest_Success(t *testing.T) {
	tp := newTestPipeline(t, "The quick brown fox jumps over the lazy dog.")
	ctx := context.Background()

	data := pdfBytes("report body")
	result, err := tp.pipeline.Ingest(ctx, "report.pdf", data)
	require.NoError(t, err)
	require.NotNil(t, result.Record)
	assert.False(t, result.Duplicate)

	record := result.Record
	assert.Equal(t, core.HashContent(data), record.Hash)
	assert.Len(t, string(record.Hash), 32)
	assert.Equal(t, "report.pdf", record.File.OriginalFilename)
	assert.Equal(t, string(record.Hash)+".pdf", record.File.StoredFilename)
	assert.Equal(t, int64(len(data)), record.File.SizeBytes)
	assert.Equal(t, 1, record.Content.ChunkCount)
	assert.Equal(t, record.Content.ChunkCount, record.Vector.VectorCount)
	assert.Equal(t, 8, record.Vector.Dimension)
	assert.Equal(t, string(record.Hash)+"_embeddings", record.Vector.IndexName)
	assert.Equal(t, "embeddinggemma", record.Embedding.Model)
	assert.False(t, record.CreatedAt.IsZero())

	// All three stores hold the document.
	exists, err := tp.blobs.Exists(ctx, record.File.StoredFilename)
	require.NoError(t, err)
	assert.True(t, exists)

	names, err := tp.indexes.List()
	require.NoError(t, err)
	assert.Equal(t, []string{record.Vector.IndexName}, names)

	loaded, err := tp.catalog.Load(ctx, record.Hash)
	require.NoError(t, err)
	assert.Equal(t, record.Hash, loaded.Hash)
}

func TestIngest_MultipleChunks(t *testing.T) {
	text := strings.Repeat("a", 250)
	tp := newTestPipeline(t, text,
		WithChunker(extract.Chunker{MaxSize: 100, Overlap: 20}),
		WithBatchSize(1),
	)
	ctx := context.Background()

	result, err := tp.pipeline.Ingest(ctx, "long.pdf", pdfBytes("long"))
	require.NoError(t, err)

	// 250 chars at 100/20 gives starts 0, 80, 160.
	assert.Equal(t, 3, result.Record.Content.ChunkCount)
	assert.Equal(t, 3, result.Record.Vector.VectorCount)
	assert.Equal(t, 250, result.Record.Content.CharLength)

	index, sidecar, err := tp.indexes.Load(result.Record.Vector.IndexName)
	require.NoError(t, err)
	assert.Equal(t, 3, index.Count())
	require.Len(t, sidecar.Chunks, 3)
	assert.Equal(t, 0, sidecar.Chunks[0].Start)
	assert.Equal(t, 80, sidecar.Chunks[1].Start)
	assert.Equal(t, 160, sidecar.Chunks[2].Start)
}

func TestIngest_DuplicateShortCircuits(t *testing.T) {
	tp := newTestPipeline(t, "same content")
	ctx := context.Background()

	data := pdfBytes("original")
	first, err := tp.pipeline.Ingest(ctx, "a.pdf", data)
	require.NoError(t, err)
	require.False(t, first.Duplicate)

	callsAfterFirst := tp.embedder.CallCount()

	// Same bytes under a different filename dedup to the same document.
	second, err := tp.pipeline.Ingest(ctx, "b.pdf", data)
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.Record.Hash, second.Record.Hash)
	assert.Equal(t, "a.pdf", second.Record.File.OriginalFilename)

	// The short circuit happens before extraction and embedding.
	assert.Equal(t, callsAfterFirst, tp.embedder.CallCount())

	records, err := tp.catalog.List(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestIngest_EmptyUpload(t *testing.T) {
	tp := newTestPipeline(t, "irrelevant")

	_, err := tp.pipeline.Ingest(context.Background(), "empty.pdf", nil)
	assert.ErrorIs(t, err, ErrEmptyUpload)
}

func TestIngest_NotPDF(t *testing.T) {
	tp := newTestPipeline(t, "irrelevant")

	_, err := tp.pipeline.Ingest(context.Background(), "notes.txt", []byte("plain text"))
	assert.ErrorIs(t, err, extract.ErrNotPDF)
}

func TestIngest_EmptyTextFailsAndCleansUp(t *testing.T) {
	tp := newTestPipeline(t, "")
	ctx := context.Background()

	data := pdfBytes("scanned image only")
	_, err := tp.pipeline.Ingest(ctx, "scan.pdf", data)
	assert.ErrorIs(t, err, core.ErrEmptyContent)

	hash := core.HashContent(data)
	_, err = tp.catalog.Load(ctx, hash)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	exists, err := tp.blobs.Exists(ctx, string(hash)+".pdf")
	require.NoError(t, err)
	assert.False(t, exists, "failed ingestion must not leave the blob behind")

	names, err := tp.indexes.List()
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestIngest_EmbedFailureCleansUp(t *testing.T) {
	tp := newTestPipeline(t, "some text")
	tp.embedder.EmbedTextsFunc = func(_ context.Context, _ []string) ([][]float32, error) {
		return nil, fmt.Errorf("%w: provider unavailable", ai.ErrEmbeddingProvider)
	}
	ctx := context.Background()

	data := pdfBytes("doc")
	_, err := tp.pipeline.Ingest(ctx, "doc.pdf", data)
	assert.ErrorIs(t, err, ai.ErrEmbeddingProvider)

	_, err = tp.catalog.Load(ctx, core.HashContent(data))
	assert.ErrorIs(t, err, storage.ErrNotFound)

	names, err := tp.indexes.List()
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestIngest_PreexistingBlobSurvivesFailure(t *testing.T) {
	tp := newTestPipeline(t, "some text")
	ctx := context.Background()

	// A blob from an earlier crashed attempt already sits in the store.
	data := pdfBytes("doc")
	hash, storedName, existed, err := tp.blobs.Put(ctx, data, ".pdf")
	require.NoError(t, err)
	require.False(t, existed)

	tp.embedder.EmbedTextsFunc = func(_ context.Context, _ []string) ([][]float32, error) {
		return nil, errors.New("boom")
	}
	_, err = tp.pipeline.Ingest(ctx, "doc.pdf", data)
	require.Error(t, err)

	// The failed attempt did not write the blob, so it must not delete it.
	exists, err := tp.blobs.Exists(ctx, storedName)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, core.HashContent(data), hash)
}

func TestDelete_RemovesAllComponents(t *testing.T) {
	tp := newTestPipeline(t, "to be deleted")
	ctx := context.Background()

	data := pdfBytes("doomed")
	result, err := tp.pipeline.Ingest(ctx, "doomed.pdf", data)
	require.NoError(t, err)
	hash := result.Record.Hash

	deleted, err := tp.pipeline.Delete(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, hash, deleted.Hash)
	assert.Equal(t, map[string]bool{"index": true, "blob": true, "record": true}, deleted.Removed)
	assert.Empty(t, deleted.Errors)

	_, err = tp.catalog.Load(ctx, hash)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	exists, err := tp.blobs.Exists(ctx, result.Record.File.StoredFilename)
	require.NoError(t, err)
	assert.False(t, exists)

	names, err := tp.indexes.List()
	require.NoError(t, err)
	assert.Empty(t, names)

	// Deleting again reports the document as unknown.
	_, err = tp.pipeline.Delete(ctx, hash)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDelete_IndexFailureStillRemovesRecord(t *testing.T) {
	tp := newTestPipeline(t, "stubborn content")
	ctx := context.Background()

	result, err := tp.pipeline.Ingest(ctx, "stubborn.pdf", pdfBytes("stubborn"))
	require.NoError(t, err)
	record := result.Record

	// Make the index file undeletable by replacing it with a non-empty
	// directory.
	vecPath := filepath.Join(tp.indexDir, record.Vector.IndexName+".vec")
	require.NoError(t, os.Remove(vecPath))
	require.NoError(t, os.Mkdir(vecPath, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(vecPath, "stuck"), []byte("x"), 0o644))

	// The failed index step is reported per component; the record is still
	// removed and the delete succeeds overall.
	deleted, err := tp.pipeline.Delete(ctx, record.Hash)
	require.NoError(t, err)
	assert.False(t, deleted.Removed["index"])
	assert.NotEmpty(t, deleted.Errors["index"])
	assert.True(t, deleted.Removed["blob"])
	assert.True(t, deleted.Removed["record"])

	_, err = tp.catalog.Load(ctx, record.Hash)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDelete_UnknownHash(t *testing.T) {
	tp := newTestPipeline(t, "irrelevant")

	_, err := tp.pipeline.Delete(context.Background(), core.ContentHash(strings.Repeat("0", 32)))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDelete_PartiallyDeletedDocument(t *testing.T) {
	tp := newTestPipeline(t, "partial")
	ctx := context.Background()

	result, err := tp.pipeline.Ingest(ctx, "partial.pdf", pdfBytes("partial"))
	require.NoError(t, err)

	// Simulate a crash that removed the index but kept blob and record.
	removed, err := tp.indexes.Delete(result.Record.Vector.IndexName)
	require.NoError(t, err)
	require.True(t, removed)

	deleted, err := tp.pipeline.Delete(ctx, result.Record.Hash)
	require.NoError(t, err)
	assert.False(t, deleted.Removed["index"])
	assert.True(t, deleted.Removed["blob"])
	assert.True(t, deleted.Removed["record"])
}

func TestDescribe(t *testing.T) {
	tp := newTestPipeline(t, "describe me")
	ctx := context.Background()

	result, err := tp.pipeline.Ingest(ctx, "d.pdf", pdfBytes("d"))
	require.NoError(t, err)

	info, err := tp.pipeline.Describe(ctx, result.Record.Hash)
	require.NoError(t, err)
	assert.Equal(t, result.Record.Hash, info.Record.Hash)
	require.NotNil(t, info.Index)
	assert.Equal(t, result.Record.Vector.VectorCount, info.Index.VectorCount)
	assert.Equal(t, result.Record.Vector.Dimension, info.Index.Dimension)
	assert.Empty(t, info.IndexError)
}

func TestDescribe_MissingIndexReportedInline(t *testing.T) {
	tp := newTestPipeline(t, "describe me")
	ctx := context.Background()

	result, err := tp.pipeline.Ingest(ctx, "d.pdf", pdfBytes("d"))
	require.NoError(t, err)

	_, err = tp.indexes.Delete(result.Record.Vector.IndexName)
	require.NoError(t, err)

	info, err := tp.pipeline.Describe(ctx, result.Record.Hash)
	require.NoError(t, err)
	assert.NotNil(t, info.Record)
	assert.Nil(t, info.Index)
	assert.NotEmpty(t, info.IndexError)
}

func TestOrphans(t *testing.T) {
	tp := newTestPipeline(t, "kept document")
	ctx := context.Background()

	result, err := tp.pipeline.Ingest(ctx, "kept.pdf", pdfBytes("kept"))
	require.NoError(t, err)

	// An index with no catalog record, as left by a crash between the index
	// write and the catalog write.
	vectors := [][]float32{{1, 2, 3}}
	index, err := vecindex.Build(vectors)
	require.NoError(t, err)
	orphanHash := core.ContentHash(strings.Repeat("f", 32))
	orphanName := orphanHash.IndexName()
	sidecar := vecindex.NewSidecar(orphanHash, "lost.pdf", []core.Chunk{{Index: 0, Start: 0, Text: "x"}}, index)
	_, err = tp.indexes.Persist(index, orphanName, sidecar)
	require.NoError(t, err)

	orphans, err := tp.pipeline.Orphans(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{orphanName}, orphans)
	assert.NotContains(t, orphans, result.Record.Vector.IndexName)
}

func TestIngest_ConcurrentSameDocument(t *testing.T) {
	tp := newTestPipeline(t, "contended content")
	ctx := context.Background()

	data := pdfBytes("contended")
	const workers = 8

	results := make([]*IngestResult, workers)
	errs := make([]error, workers)
	done := make(chan int, workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			results[i], errs[i] = tp.pipeline.Ingest(ctx, "c.pdf", data)
			done <- i
		}(i)
	}
	for i := 0; i < workers; i++ {
		<-done
	}

	duplicates := 0
	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		require.NotNil(t, results[i].Record)
		if results[i].Duplicate {
			duplicates++
		}
	}
	// Exactly one request did the work.
	assert.Equal(t, workers-1, duplicates)

	records, err := tp.catalog.List(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
