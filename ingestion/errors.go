package ingestion

import "errors"

var (
	// ErrBlobStoreRequired is returned when a blob store is not provided.
	ErrBlobStoreRequired = errors.New("blob store required")

	// ErrCatalogRequired is returned when a catalog is not provided.
	ErrCatalogRequired = errors.New("catalog required")

	// ErrIndexStoreRequired is returned when an index store is not provided.
	ErrIndexStoreRequired = errors.New("index store required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrConfigRequired is returned when an embedding config is not provided.
	ErrConfigRequired = errors.New("embedding config required")

	// ErrExtractorRequired is returned when a nil extractor is configured.
	ErrExtractorRequired = errors.New("text extractor required")

	// ErrEmptyUpload indicates an upload with no bytes.
	ErrEmptyUpload = errors.New("uploaded file is empty")
)
