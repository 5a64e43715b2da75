// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/poiesic/docdex/ai"
	"github.com/poiesic/docdex/core"
	"github.com/poiesic/docdex/storage"
	"github.com/poiesic/docdex/vecindex"
)

// Searcher answers semantic queries against ingested documents. The query
// text is embedded with the same provider configuration used at ingestion
// time, then matched against the per-document flat indexes.
type Searcher struct {
	catalog  storage.Catalog
	indexes  *vecindex.Store
	embedder ai.Embedder
	logger   *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSearcher creates a searcher over the given catalog and index store.
func NewSearcher(catalog storage.Catalog, indexes *vecindex.Store, embedder ai.Embedder, opts ...Option) (*Searcher, error) {
	if catalog == nil {
		return nil, ErrCatalogRequired
	}
	if indexes == nil {
		return nil, ErrIndexStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	s := &Searcher{
		catalog:  catalog,
		indexes:  indexes,
		embedder: embedder,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Result is one matched chunk.
type Result struct {
	// Hash identifies the document the chunk came from.
	Hash core.ContentHash

	// OriginalFilename is the upload filename of that document.
	OriginalFilename string

	// Chunk is the matched chunk, with its text and character offset.
	Chunk core.Chunk

	// Row is the index row the chunk was embedded at.
	Row int

	// Distance is the squared L2 distance to the query vector.
	// Smaller is more similar.
	Distance float32
}

// Query searches a single document for the k chunks nearest the query text.
// Fails with storage.ErrNotFound for an unknown hash.
func (s *Searcher) Query(ctx context.Context, hash core.ContentHash, query string, k int) ([]Result, error) {
	queryVector, record, err := s.prepare(ctx, query, hash)
	if err != nil {
		return nil, err
	}
	return s.searchDocument(record, queryVector, k)
}

// QueryAll searches every cataloged document and returns the k nearest
// chunks overall. The query is embedded once. Documents whose index cannot
// be read are skipped with a warning; results from the readable indexes are
// still returned.
func (s *Searcher) QueryAll(ctx context.Context, query string, k int) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if k <= 0 {
		return []Result{}, nil
	}

	queryVector, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	records, err := s.catalog.List(ctx)
	if err != nil {
		return nil, err
	}

	var merged []Result
	for _, record := range records {
		results, err := s.searchDocument(record, queryVector, k)
		if err != nil {
			s.logger.Warn("skipping unsearchable document",
				"hash", record.Hash, "index", record.Vector.IndexName, "err", err)
			continue
		}
		merged = append(merged, results...)
	}

	sort.Slice(merged, func(a, b int) bool {
		if merged[a].Distance != merged[b].Distance {
			return merged[a].Distance < merged[b].Distance
		}
		if merged[a].Hash != merged[b].Hash {
			return merged[a].Hash < merged[b].Hash
		}
		return merged[a].Row < merged[b].Row
	})
	if len(merged) > k {
		merged = merged[:k]
	}
	return merged, nil
}

func (s *Searcher) prepare(ctx context.Context, query string, hash core.ContentHash) ([]float32, *core.CatalogRecord, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil, ErrEmptyQuery
	}

	record, err := s.catalog.Load(ctx, hash)
	if err != nil {
		return nil, nil, err
	}

	queryVector, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, nil, fmt.Errorf("embedding query: %w", err)
	}
	return queryVector, record, nil
}

func (s *Searcher) searchDocument(record *core.CatalogRecord, queryVector []float32, k int) ([]Result, error) {
	index, sidecar, err := s.indexes.Load(record.Vector.IndexName)
	if err != nil {
		return nil, err
	}

	hits, err := index.Search(queryVector, k)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(hits))
	for _, hit := range hits {
		if hit.Row >= len(sidecar.Chunks) {
			return nil, fmt.Errorf("%w: row %d has no chunk in sidecar",
				vecindex.ErrCorruptSidecar, hit.Row)
		}
		results = append(results, Result{
			Hash:             record.Hash,
			OriginalFilename: record.File.OriginalFilename,
			Chunk:            sidecar.Chunks[hit.Row],
			Row:              hit.Row,
			Distance:         hit.Distance,
		})
	}
	return results, nil
}
