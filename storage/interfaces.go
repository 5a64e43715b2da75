package storage

import (
	"context"

	"github.com/poiesic/docdex/core"
)

// BlobStore persists raw document bytes keyed by content hash.
// Implementations must be thread-safe.
//
// The store keeps no reference table: the ingestion orchestrator is
// responsible for not deleting a blob still referenced by a live catalog
// record.
type BlobStore interface {
	// Put stores document bytes under their content hash. It is idempotent:
	// if a blob with that hash already exists no write occurs, the existing
	// bytes are never overwritten, and alreadyExisted is true.
	// The returned stored name is "<hash><ext>".
	Put(ctx context.Context, data []byte, ext string) (hash core.ContentHash, storedName string, alreadyExisted bool, err error)

	// Delete removes the blob for the stored name. Idempotent; reports
	// whether a blob was actually removed.
	Delete(ctx context.Context, storedName string) (bool, error)

	// Exists reports whether a blob with the stored name is present.
	Exists(ctx context.Context, storedName string) (bool, error)
}

// Catalog is the durable mapping from a document's content hash to its
// CatalogRecord. It is the single source of truth for whether a processed
// document exists. Implementations must be thread-safe.
type Catalog interface {
	// Create persists a new record. Fails with ErrAlreadyExists if a record
	// for that hash exists; records are immutable once created.
	Create(ctx context.Context, record *core.CatalogRecord) error

	// Load retrieves the record for a hash. Fails with ErrNotFound if absent
	// and ErrCorruptRecord if the stored record fails validation.
	Load(ctx context.Context, hash core.ContentHash) (*core.CatalogRecord, error)

	// List returns all records ordered by creation time.
	List(ctx context.Context) ([]*core.CatalogRecord, error)

	// Delete removes the record for a hash. Idempotent; reports whether a
	// record was actually removed.
	Delete(ctx context.Context, hash core.ContentHash) (bool, error)

	// Close closes the catalog and releases resources.
	Close() error
}
