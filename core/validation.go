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


package core

import (
	"fmt"
	"time"
)

// ValidateRecord validates a CatalogRecord according to domain rules.
//
// Every field of a record is required. A record missing any of them is
// treated as corrupt by the catalog, never default-filled: the record is the
// single source of truth for the document's index location, so a partial
// record is worse than no record.
func ValidateRecord(record *CatalogRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidRecord)
	}

	if record.Version != RecordVersion {
		return fmt.Errorf("%w: %w: %d", ErrInvalidRecord, ErrUnknownVersion, record.Version)
	}

	if record.Hash == "" {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrEmptyHash)
	}

	if record.File.OriginalFilename == "" {
		return fmt.Errorf("%w: original filename is required", ErrInvalidRecord)
	}
	if record.File.StoredFilename == "" {
		return fmt.Errorf("%w: stored filename is required", ErrInvalidRecord)
	}
	if record.File.SizeBytes <= 0 {
		return fmt.Errorf("%w: file size must be positive", ErrInvalidRecord)
	}

	if record.Content.CharLength <= 0 {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrEmptyContent)
	}
	if record.Content.ChunkCount <= 0 {
		return fmt.Errorf("%w: chunk count must be positive", ErrInvalidRecord)
	}

	if record.Vector.IndexName == "" {
		return fmt.Errorf("%w: index name is required", ErrInvalidRecord)
	}
	if record.Vector.VectorCount != record.Content.ChunkCount {
		return fmt.Errorf("%w: vector count %d does not match chunk count %d",
			ErrInvalidRecord, record.Vector.VectorCount, record.Content.ChunkCount)
	}
	if record.Vector.Dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive", ErrInvalidRecord)
	}

	if record.Embedding.Model == "" {
		return fmt.Errorf("%w: embedding model is required", ErrInvalidRecord)
	}
	if record.Embedding.APIVersion == "" {
		return fmt.Errorf("%w: embedding API version is required", ErrInvalidRecord)
	}

	if !IsValidTimestamp(record.CreatedAt) {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrInvalidTimestamp)
	}

	return nil
}

// IsValidTimestamp checks if a timestamp is set and not in the future.
func IsValidTimestamp(ts time.Time) bool {
	return !ts.IsZero() && !ts.After(time.Now())
}
