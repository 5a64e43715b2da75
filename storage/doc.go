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


// Package storage defines the persistence contracts of the document index:
// the content-addressed BlobStore for raw bytes and the Catalog, the durable
// record store that is the single source of truth for which documents have
// been processed.
//
// The stores are deliberately passive: neither holds references back to the
// other or to vector index files. Cross-store consistency is the ingestion
// orchestrator's job, enforced by write order (catalog record written last)
// and compensating deletes, not by stored backlinks.
//
// Implementations live in sub-packages:
//
//   - storage/badger: Catalog on BadgerDB with a creation-time index for
//     stable listing order
//   - storage/blob: BlobStore on the local filesystem, one file per hash
//
// Records are serialized with the MUS binary format (serialization.go).
package storage
