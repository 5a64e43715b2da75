// Package vecindex provides a flat squared-L2 similarity index over one
// document's embeddings, plus a directory-backed store that persists each
// index together with its sidecar metadata.
//
// Row order is significant: row i corresponds to chunk i of the originating
// document, and the sidecar carries those chunks so index rows can be mapped
// back to text. Persisted indexes are replaced whole, never mutated in place.
package vecindex
