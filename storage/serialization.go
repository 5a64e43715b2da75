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


package storage

import (
	"fmt"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/docdex/core"
)

// CatalogRecordMUS serializes core.CatalogRecord in MUS format.
// Timestamps are stored as unix microseconds.
var CatalogRecordMUS = catalogRecordMUS{}

type catalogRecordMUS struct{}

func (s catalogRecordMUS) Marshal(v core.CatalogRecord, bs []byte) (n int) {
	n = varint.Int.Marshal(v.Version, bs)
	n += ord.String.Marshal(string(v.Hash), bs[n:])
	n += ord.String.Marshal(v.File.OriginalFilename, bs[n:])
	n += ord.String.Marshal(v.File.StoredFilename, bs[n:])
	n += varint.Int64.Marshal(v.File.SizeBytes, bs[n:])
	n += varint.Int64.Marshal(v.File.UploadedAt.UnixMicro(), bs[n:])
	n += varint.Int.Marshal(v.Content.CharLength, bs[n:])
	n += varint.Int.Marshal(v.Content.ChunkCount, bs[n:])
	n += ord.String.Marshal(v.Vector.IndexName, bs[n:])
	n += varint.Int.Marshal(v.Vector.VectorCount, bs[n:])
	n += varint.Int.Marshal(v.Vector.Dimension, bs[n:])
	n += ord.String.Marshal(v.Embedding.Model, bs[n:])
	n += ord.String.Marshal(v.Embedding.APIVersion, bs[n:])
	n += varint.Int64.Marshal(v.CreatedAt.UnixMicro(), bs[n:])
	return n
}

func (s catalogRecordMUS) Unmarshal(bs []byte) (v core.CatalogRecord, n int, err error) {
	var n1 int
	if v.Version, n, err = varint.Int.Unmarshal(bs); err != nil {
		return
	}
	var hash string
	if hash, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	v.Hash = core.ContentHash(hash)
	n += n1
	if v.File.OriginalFilename, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.File.StoredFilename, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.File.SizeBytes, n1, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	var uploadedAt int64
	if uploadedAt, n1, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	v.File.UploadedAt = time.UnixMicro(uploadedAt).UTC()
	n += n1
	if v.Content.CharLength, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Content.ChunkCount, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Vector.IndexName, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Vector.VectorCount, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Vector.Dimension, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Embedding.Model, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Embedding.APIVersion, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	var createdAt int64
	if createdAt, n1, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	v.CreatedAt = time.UnixMicro(createdAt).UTC()
	n += n1
	return v, n, nil
}

func (s catalogRecordMUS) Size(v core.CatalogRecord) (size int) {
	size = varint.Int.Size(v.Version)
	size += ord.String.Size(string(v.Hash))
	size += ord.String.Size(v.File.OriginalFilename)
	size += ord.String.Size(v.File.StoredFilename)
	size += varint.Int64.Size(v.File.SizeBytes)
	size += varint.Int64.Size(v.File.UploadedAt.UnixMicro())
	size += varint.Int.Size(v.Content.CharLength)
	size += varint.Int.Size(v.Content.ChunkCount)
	size += ord.String.Size(v.Vector.IndexName)
	size += varint.Int.Size(v.Vector.VectorCount)
	size += varint.Int.Size(v.Vector.Dimension)
	size += ord.String.Size(v.Embedding.Model)
	size += ord.String.Size(v.Embedding.APIVersion)
	size += varint.Int64.Size(v.CreatedAt.UnixMicro())
	return size
}

// MarshalRecord serializes a CatalogRecord to bytes.
func MarshalRecord(record *core.CatalogRecord) []byte {
	buf := make([]byte, CatalogRecordMUS.Size(*record))
	CatalogRecordMUS.Marshal(*record, buf)
	return buf
}

// UnmarshalRecord deserializes a CatalogRecord from bytes.
func UnmarshalRecord(data []byte) (*core.CatalogRecord, error) {
	record, _, err := CatalogRecordMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &record, nil
}
