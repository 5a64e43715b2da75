package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docdex/core"
	"github.com/poiesic/docdex/storage"
)

// Catalog implements storage.Catalog on BadgerDB.
//
// Each record is stored under its content hash, with a secondary
// creation-time key so List returns records in a stable order.
type Catalog struct {
	backend *Backend
}

var _ storage.Catalog = (*Catalog)(nil)

// NewCatalog creates a Catalog on the given backend.
func NewCatalog(backend *Backend) (*Catalog, error) {
	if backend == nil {
		return nil, errors.New("backend required")
	}
	return &Catalog{backend: backend}, nil
}

// Close releases resources. The backend is owned by the caller.
func (c *Catalog) Close() error {
	return nil
}

// Create persists a new record. Records are immutable once created:
// an existing record for the same hash fails with ErrAlreadyExists.
func (c *Catalog) Create(ctx context.Context, record *core.CatalogRecord) error {
	if err := core.ValidateRecord(record); err != nil {
		return err
	}

	return c.backend.WithTx(func(tx *badger.Txn) error {
		key := makeRecordKey(record.Hash)

		_, err := tx.Get(key)
		if err == nil {
			return fmt.Errorf("%w: %s", storage.ErrAlreadyExists, record.Hash)
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		if err := tx.Set(key, storage.MarshalRecord(record)); err != nil {
			return err
		}
		if err := tx.Set(makeRecordDateKey(record.CreatedAt, record.Hash), []byte{}); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Load retrieves the record for a hash. A stored record that fails
// validation is reported as corrupt, never default-filled.
func (c *Catalog) Load(ctx context.Context, hash core.ContentHash) (*core.CatalogRecord, error) {
	var record *core.CatalogRecord

	err := c.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeRecordKey(hash))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", storage.ErrNotFound, hash)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			record, err = storage.UnmarshalRecord(val)
			if err != nil {
				// A value that cannot be decoded is a corrupt record, same
				// as one failing field validation below.
				return fmt.Errorf("%w: %s: %w", storage.ErrCorruptRecord, hash, err)
			}
			return nil
		})
	}, false)
	if err != nil {
		return nil, err
	}

	if err := core.ValidateRecord(record); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", storage.ErrCorruptRecord, hash, err)
	}
	return record, nil
}

// List returns all records ordered by creation time.
// A record reachable from the index but failing validation aborts the
// listing: a corrupt catalog should be noticed, not silently skipped. A date
// key whose record is gone entirely (leftover from an interrupted delete) is
// skipped instead; it carries no data to notice.
func (c *Catalog) List(ctx context.Context) ([]*core.CatalogRecord, error) {
	var hashes []core.ContentHash

	err := c.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(docRecordDatePrefix + ":")
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if hash := recordHashFromDateKey(iter.Item().Key()); hash != "" {
				hashes = append(hashes, hash)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	records := make([]*core.CatalogRecord, 0, len(hashes))
	for _, hash := range hashes {
		record, err := c.Load(ctx, hash)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// Delete removes the record for a hash along with its creation-time index
// entry. Idempotent; reports whether a record was actually removed.
func (c *Catalog) Delete(ctx context.Context, hash core.ContentHash) (bool, error) {
	removed := false

	err := c.backend.WithTx(func(tx *badger.Txn) error {
		key := makeRecordKey(hash)
		item, err := tx.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		var record *core.CatalogRecord
		if err := item.Value(func(val []byte) error {
			record, err = storage.UnmarshalRecord(val)
			return err
		}); err == nil && record != nil {
			if err := tx.Delete(makeRecordDateKey(record.CreatedAt, record.Hash)); err != nil {
				return err
			}
		} else {
			// The value cannot be decoded, so its creation time is unknown.
			// Scan the date index for entries pointing at this hash; leaving
			// one behind would make it a stale entry forever.
			if err := deleteDateKeysForHash(tx, hash); err != nil {
				return err
			}
		}

		if err := tx.Delete(key); err != nil {
			return err
		}
		removed = true
		return tx.Commit()
	}, true)

	return removed, err
}

// deleteDateKeysForHash removes every creation-time index entry for the hash.
func deleteDateKeysForHash(tx *badger.Txn, hash core.ContentHash) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(docRecordDatePrefix + ":")
	opts.PrefetchValues = false
	iter := tx.NewIterator(opts)

	var stale [][]byte
	for iter.Rewind(); iter.Valid(); iter.Next() {
		if recordHashFromDateKey(iter.Item().Key()) == hash {
			stale = append(stale, iter.Item().KeyCopy(nil))
		}
	}
	iter.Close()

	for _, key := range stale {
		if err := tx.Delete(key); err != nil {
			return err
		}
	}
	return nil
}
