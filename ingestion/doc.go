// Package ingestion orchestrates the document pipeline: deduplication by
// content hash, blob storage, text extraction, chunking, embedding, vector
// index persistence, and the catalog record that commits the whole document.
//
// Consistency across the three stores follows one rule: the catalog record
// is written last and deleted last. Any crash or failure therefore leaves at
// worst orphaned blobs or indexes, never a catalog record pointing at
// missing artifacts. Orphans are found with Pipeline.Orphans.
package ingestion
