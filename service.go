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


package docdex

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/poiesic/docdex/ai"
	"github.com/poiesic/docdex/ai/openai"
	"github.com/poiesic/docdex/ingestion"
	"github.com/poiesic/docdex/search"
	"github.com/poiesic/docdex/storage"
	"github.com/poiesic/docdex/storage/badger"
	"github.com/poiesic/docdex/storage/blob"
	"github.com/poiesic/docdex/vecindex"
)

// Service wires the three stores and the embedding provider together under
// one data directory:
//
//	<dataDir>/documents/  raw uploads, named by content hash
//	<dataDir>/indices/    vector indexes and their sidecars
//	<dataDir>/catalog/    badger-backed metadata catalog
type Service struct {
	backend  *badger.Backend
	catalog  storage.Catalog
	blobs    *blob.Store
	indexes  *vecindex.Store
	embedder ai.Embedder
	aiConfig *ai.Config
	logger   *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	aiConfig *ai.Config
	embedder ai.Embedder
}

// WithAIConfig sets the embedding provider configuration.
func WithAIConfig(config *ai.Config) ServiceOption {
	return func(o *serviceOptions) {
		o.aiConfig = config
	}
}

// WithEmbedder injects an embedder directly, bypassing the OpenAI-compatible
// provider. Used for tests and alternative providers.
func WithEmbedder(embedder ai.Embedder) ServiceOption {
	return func(o *serviceOptions) {
		o.embedder = embedder
	}
}

// NewService opens (or initializes) a service rooted at dataDir.
func NewService(dataDir string, opts ...ServiceOption) (*Service, error) {
	options := &serviceOptions{
		aiConfig: ai.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(options)
	}

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}

	blobs, err := blob.NewStore(filepath.Join(dataDir, "documents"))
	if err != nil {
		return nil, err
	}

	indexes, err := vecindex.NewStore(filepath.Join(dataDir, "indices"))
	if err != nil {
		return nil, err
	}

	backend, err := badger.OpenBackend(filepath.Join(dataDir, "catalog"), false)
	if err != nil {
		return nil, err
	}

	catalog, err := badger.NewCatalog(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	embedder := options.embedder
	if embedder == nil {
		embedder, err = openai.NewEmbedder(options.aiConfig)
		if err != nil {
			catalog.Close()
			backend.Close()
			return nil, err
		}
	}

	return &Service{
		backend:  backend,
		catalog:  catalog,
		blobs:    blobs,
		indexes:  indexes,
		embedder: embedder,
		logger:   slog.Default(),
		aiConfig: options.aiConfig,
	}, nil
}

// Close releases the service's resources.
func (s *Service) Close() error {
	if err := s.catalog.Close(); err != nil {
		s.logger.Error("error closing catalog", "err", err)
		return err
	}
	if err := s.backend.Close(); err != nil {
		s.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

// Catalog exposes the metadata catalog.
func (s *Service) Catalog() storage.Catalog {
	return s.catalog
}

// Blobs exposes the raw document store.
func (s *Service) Blobs() *blob.Store {
	return s.blobs
}

// Indexes exposes the vector index store.
func (s *Service) Indexes() *vecindex.Store {
	return s.indexes
}

// NewIngestionPipeline builds an ingestion pipeline over the service's stores.
func (s *Service) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	return ingestion.NewPipeline(s.blobs, s.catalog, s.indexes, s.embedder, s.aiConfig, opts...)
}

// NewSearcher builds a searcher over the service's stores.
func (s *Service) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	return search.NewSearcher(s.catalog, s.indexes, s.embedder, opts...)
}
