package ingestion

import (
	"context"
	"errors"
	"log/slog"

	"github.com/poiesic/docdex/core"
	"github.com/poiesic/docdex/storage"
	"github.com/poiesic/docdex/vecindex"
)

// DeleteResult reports what a delete actually removed, per component.
type DeleteResult struct {
	// Hash is the content hash the delete targeted.
	Hash core.ContentHash

	// Removed maps component name ("index", "blob", "record") to whether
	// that component's artifact was present and removed.
	Removed map[string]bool

	// Errors maps component name to the failure that left its artifact in
	// place. Index and blob failures do not fail the delete as a whole.
	Errors map[string]string
}

// Delete removes a document and all its artifacts. The catalog record is
// removed last so that a record never points at deleted artifacts only
// briefly, never the other way round: a crash mid-delete leaves orphaned
// artifacts (harmless, discoverable via Orphans), not a dangling record.
//
// Deleting an unknown hash fails with storage.ErrNotFound. Components
// already missing are treated as removed work, not errors. An index or blob
// step failure is logged and reported per component in the result but does
// not abort the delete: what makes a document "not processed" for every
// consumer is the record being gone, so the delete as a whole succeeds
// exactly when the record is removed. Leftover artifacts surface in Orphans.
func (p *Pipeline) Delete(ctx context.Context, hash core.ContentHash) (*DeleteResult, error) {
	release := p.locks.acquire(hash)
	defer release()

	logger := p.logger.With("hash", hash)

	record, err := p.catalog.Load(ctx, hash)
	if err != nil {
		if errors.Is(err, storage.ErrCorruptRecord) {
			// A corrupt record still names a real document; removing it is
			// exactly what delete is for. Artifacts are found by convention.
			logger.Warn("deleting document with corrupt catalog record", "err", err)
			return p.deleteArtifacts(ctx, logger, hash, hash.IndexName(), string(hash)+".pdf")
		}
		return nil, err
	}

	result, err := p.deleteArtifacts(ctx, logger, hash, record.Vector.IndexName, record.File.StoredFilename)
	if err != nil {
		return result, err
	}

	logger.Info("document deleted",
		"index_removed", result.Removed["index"],
		"blob_removed", result.Removed["blob"])
	return result, nil
}

// deleteArtifacts removes the index, the blob, and finally the catalog
// record. Only a record-delete failure is fatal. When the record cannot be
// read, callers pass names derived by convention; the blob extension is
// unknown then, so a blob stored under a non-.pdf extension survives as an
// orphan.
func (p *Pipeline) deleteArtifacts(ctx context.Context, logger *slog.Logger, hash core.ContentHash, indexName, storedName string) (*DeleteResult, error) {
	result := &DeleteResult{
		Hash:    hash,
		Removed: make(map[string]bool),
		Errors:  make(map[string]string),
	}

	removed, err := p.indexes.Delete(indexName)
	if err != nil {
		logger.Error("failed to delete index", "index", indexName, "err", err)
		result.Errors["index"] = err.Error()
	}
	result.Removed["index"] = removed

	removed, err = p.blobs.Delete(ctx, storedName)
	if err != nil {
		logger.Error("failed to delete blob", "blob", storedName, "err", err)
		result.Errors["blob"] = err.Error()
	}
	result.Removed["blob"] = removed

	removed, err = p.catalog.Delete(ctx, hash)
	if err != nil {
		logger.Error("failed to delete catalog record", "err", err)
		result.Errors["record"] = err.Error()
		return result, err
	}
	result.Removed["record"] = removed
	return result, nil
}

// DocumentInfo is a catalog record enriched with live index stats. Index is
// nil when the index could not be read; IndexError carries the reason.
type DocumentInfo struct {
	Record     *core.CatalogRecord
	Index      *vecindex.Info
	IndexError string
}

// Describe returns the catalog record for a hash together with stats read
// from the index on disk. A missing or broken index does not fail the call;
// the record is authoritative and the mismatch is reported inline.
func (p *Pipeline) Describe(ctx context.Context, hash core.ContentHash) (*DocumentInfo, error) {
	record, err := p.catalog.Load(ctx, hash)
	if err != nil {
		return nil, err
	}

	info := &DocumentInfo{Record: record}
	indexInfo, err := p.indexes.Describe(record.Vector.IndexName)
	if err != nil {
		info.IndexError = err.Error()
		return info, nil
	}
	if indexInfo.Error != "" {
		info.IndexError = indexInfo.Error
	}
	info.Index = indexInfo
	return info, nil
}

// Orphans returns the names of persisted indexes that no catalog record
// references. These are leftovers from crashed ingestions or deletes and can
// be removed with vecindex.Store.Delete.
func (p *Pipeline) Orphans(ctx context.Context) ([]string, error) {
	records, err := p.catalog.List(ctx)
	if err != nil {
		return nil, err
	}

	referenced := make(map[string]struct{}, len(records))
	for _, record := range records {
		referenced[record.Vector.IndexName] = struct{}{}
	}

	names, err := p.indexes.List()
	if err != nil {
		return nil, err
	}

	var orphans []string
	for _, name := range names {
		if _, ok := referenced[name]; !ok {
			orphans = append(orphans, name)
		}
	}
	return orphans, nil
}
