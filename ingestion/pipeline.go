package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/docdex/ai"
	"github.com/poiesic/docdex/core"
	"github.com/poiesic/docdex/extract"
	"github.com/poiesic/docdex/storage"
	"github.com/poiesic/docdex/vecindex"
)

const defaultEmbedBatchSize = 16

// TextExtractor turns raw document bytes into plain text.
// *extract.Extractor is the production implementation.
type TextExtractor interface {
	Text(ctx context.Context, data []byte) (string, error)
}

// Pipeline orchestrates document ingestion across the blob store, vector
// index store, and metadata catalog, and owns the cross-store consistency
// discipline: the catalog record is the commit point, written only after the
// index is durable, with compensating deletes on forward-path failure.
type Pipeline struct {
	blobs     storage.BlobStore
	catalog   storage.Catalog
	indexes   *vecindex.Store
	embedder  ai.Embedder
	embedCfg  *ai.Config
	extractor TextExtractor
	chunker   extract.Chunker
	pool      *ants.Pool
	batchSize int
	locks     *hashLocks
	logger    *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent embedding batches.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		if p.pool != nil {
			p.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithBatchSize sets how many chunks go into one embedding provider call.
func WithBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		p.batchSize = size
		return nil
	}
}

// WithChunker sets the chunking parameters.
func WithChunker(chunker extract.Chunker) Option {
	return func(p *Pipeline) error {
		if err := chunker.Validate(); err != nil {
			return err
		}
		p.chunker = chunker
		return nil
	}
}

// WithExtractor overrides the text extractor.
// Default is extract.NewExtractor().
func WithExtractor(extractor TextExtractor) Option {
	return func(p *Pipeline) error {
		if extractor == nil {
			return ErrExtractorRequired
		}
		p.extractor = extractor
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	blobs storage.BlobStore,
	catalog storage.Catalog,
	indexes *vecindex.Store,
	embedder ai.Embedder,
	embedCfg *ai.Config,
	opts ...Option,
) (*Pipeline, error) {
	if blobs == nil {
		return nil, ErrBlobStoreRequired
	}
	if catalog == nil {
		return nil, ErrCatalogRequired
	}
	if indexes == nil {
		return nil, ErrIndexStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if embedCfg == nil {
		return nil, ErrConfigRequired
	}
	if err := embedCfg.Validate(); err != nil {
		return nil, err
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		blobs:     blobs,
		catalog:   catalog,
		indexes:   indexes,
		embedder:  embedder,
		embedCfg:  embedCfg,
		extractor: extract.NewExtractor(),
		chunker:   extract.Chunker{MaxSize: 8000, Overlap: 200},
		pool:      pool,
		batchSize: defaultEmbedBatchSize,
		locks:     newHashLocks(),
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	return p, nil
}

// IngestResult reports the outcome of one ingestion request.
type IngestResult struct {
	// Record is the catalog record for the document. On a duplicate upload
	// this is the record from the original ingestion, unchanged.
	Record *core.CatalogRecord

	// Duplicate is true when the document was already processed and the
	// request was short-circuited on its content hash.
	Duplicate bool
}

// Ingest runs one document through the whole pipeline: dedup check, blob
// write, text extraction, chunking, embedding, index build and persist, and
// finally the catalog record. Requests for the same content hash are
// serialized; re-ingestion of a processed document short-circuits and
// returns the existing record.
func (p *Pipeline) Ingest(ctx context.Context, originalFilename string, data []byte) (*IngestResult, error) {
	if len(data) == 0 {
		return nil, ErrEmptyUpload
	}
	if !extract.IsPDF(data) {
		return nil, fmt.Errorf("%w: %s", extract.ErrNotPDF, originalFilename)
	}

	hash := core.HashContent(data)
	release := p.locks.acquire(hash)
	defer release()

	logger := p.logger.With("hash", hash, "filename", originalFilename)
	p.advance(logger, stateReceived)

	// Dedup check: the catalog is the source of truth for "already processed".
	existing, err := p.catalog.Load(ctx, hash)
	if err == nil {
		logger.Info("document already processed, returning existing record")
		return &IngestResult{Record: existing, Duplicate: true}, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	p.advance(logger, stateDedupChecked)

	_, storedName, blobExisted, err := p.blobs.Put(ctx, data, filepath.Ext(originalFilename))
	if err != nil {
		return nil, p.fail(ctx, logger, err, cleanup{})
	}
	// A pre-existing blob without a catalog record is a leftover from an
	// earlier crashed attempt; it is not this attempt's artifact, so failure
	// cleanup below leaves it for the orphan scan.
	artifacts := cleanup{storedName: storedName, blobWritten: !blobExisted}

	text, err := p.extractor.Text(ctx, data)
	if err != nil {
		return nil, p.fail(ctx, logger, err, artifacts)
	}
	p.advance(logger, stateExtracted)

	chunks, err := p.chunker.Split(text)
	if err != nil {
		return nil, p.fail(ctx, logger, err, artifacts)
	}
	if len(chunks) == 0 {
		// Nothing to embed is a processing failure, not a silent success.
		return nil, p.fail(ctx, logger,
			fmt.Errorf("%w: no text extracted from %s", core.ErrEmptyContent, originalFilename), artifacts)
	}
	p.advance(logger, stateChunked)

	vectors, err := p.embedChunks(ctx, chunks)
	if err != nil {
		return nil, p.fail(ctx, logger, err, artifacts)
	}
	p.advance(logger, stateEmbedded)

	index, err := vecindex.Build(vectors)
	if err != nil {
		return nil, p.fail(ctx, logger, err, artifacts)
	}

	indexName := hash.IndexName()
	sidecar := vecindex.NewSidecar(hash, originalFilename, chunks, index)
	if _, err := p.indexes.Persist(index, indexName, sidecar); err != nil {
		return nil, p.fail(ctx, logger, err, artifacts)
	}
	artifacts.indexName = indexName
	p.advance(logger, stateIndexed)

	now := time.Now().UTC()
	record := &core.CatalogRecord{
		Version: core.RecordVersion,
		Hash:    hash,
		File: core.FileInfo{
			OriginalFilename: originalFilename,
			StoredFilename:   storedName,
			SizeBytes:        int64(len(data)),
			UploadedAt:       now,
		},
		Content: core.ContentInfo{
			CharLength: len([]rune(text)),
			ChunkCount: len(chunks),
		},
		Vector: core.VectorInfo{
			IndexName:   indexName,
			VectorCount: index.Count(),
			Dimension:   index.Dimension(),
		},
		Embedding: core.EmbeddingInfo{
			Model:      p.embedCfg.Model,
			APIVersion: p.embedCfg.APIVersion,
		},
		CreatedAt: now,
	}

	if err := p.catalog.Create(ctx, record); err != nil {
		return nil, p.fail(ctx, logger, err, artifacts)
	}
	p.advance(logger, stateCataloged)
	p.advance(logger, stateDone)

	logger.Info("document ingested",
		"chunks", len(chunks), "dimension", index.Dimension(), "index", indexName)
	return &IngestResult{Record: record}, nil
}

// embedChunks embeds all chunks in sub-batches submitted to the worker pool.
// Results are reassembled in chunk order. Any batch failure fails the whole
// attempt; no partial vector set survives.
func (p *Pipeline) embedChunks(ctx context.Context, chunks []core.Chunk) ([][]float32, error) {
	vectors := make([][]float32, len(chunks))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	for start := 0; start < len(chunks); start += p.batchSize {
		end := start + p.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		texts := make([]string, end-start)
		for i, chunk := range chunks[start:end] {
			texts[i] = chunk.Text
		}
		offset := start

		wg.Add(1)
		err := p.pool.Submit(func() {
			defer wg.Done()
			batch, err := p.embedder.EmbedTexts(ctx, texts)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			copy(vectors[offset:], batch)
		})
		if err != nil {
			wg.Done()
			mu.Lock()
			if firstErr == nil {
				firstErr = err
			}
			mu.Unlock()
			break
		}
	}

	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}

	// Batches embedded separately must still agree on dimension.
	for i, vector := range vectors {
		if len(vector) != len(vectors[0]) {
			return nil, fmt.Errorf("%w: row %d has dimension %d, expected %d",
				ai.ErrDimensionMismatch, i, len(vector), len(vectors[0]))
		}
	}
	return vectors, nil
}

// cleanup tracks artifacts written by the current attempt.
type cleanup struct {
	storedName  string
	blobWritten bool
	indexName   string
}

// fail runs compensating deletes for this attempt's artifacts and returns
// the original error. Cleanup failures are logged, never masked over the
// pipeline error; leftovers are discoverable via the orphan scan.
func (p *Pipeline) fail(ctx context.Context, logger *slog.Logger, cause error, artifacts cleanup) error {
	p.advance(logger, stateFailed)
	logger.Error("ingestion failed", "err", cause)

	if artifacts.indexName != "" {
		if _, err := p.indexes.Delete(artifacts.indexName); err != nil {
			logger.Error("cleanup: failed to delete index", "index", artifacts.indexName, "err", err)
		}
	}
	if artifacts.blobWritten {
		if _, err := p.blobs.Delete(ctx, artifacts.storedName); err != nil {
			logger.Error("cleanup: failed to delete blob", "blob", artifacts.storedName, "err", err)
		}
	}
	return cause
}

func (p *Pipeline) advance(logger *slog.Logger, s state) {
	logger.Debug("pipeline state", "state", s.String())
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
