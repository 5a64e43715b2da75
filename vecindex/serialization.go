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


package vecindex

import (
	"fmt"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/docdex/core"
)

// IndexMUS serializes the index: dimension, row count, then the rows as
// fixed-width float32 values.
var IndexMUS = indexMUS{}

type indexMUS struct{}

func (s indexMUS) Marshal(v Index, bs []byte) (n int) {
	n = varint.Int.Marshal(v.dimension, bs)
	n += varint.Int.Marshal(len(v.vectors), bs[n:])
	for _, vector := range v.vectors {
		for _, val := range vector {
			n += raw.Float32.Marshal(val, bs[n:])
		}
	}
	return n
}

func (s indexMUS) Unmarshal(bs []byte) (v Index, n int, err error) {
	var n1 int
	if v.dimension, n, err = varint.Int.Unmarshal(bs); err != nil {
		return
	}
	var count int
	if count, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.dimension <= 0 || count <= 0 {
		return v, n, fmt.Errorf("%w: dimension %d, count %d", ErrDimensionMismatch, v.dimension, count)
	}
	v.vectors = make([][]float32, count)
	for i := range v.vectors {
		vector := make([]float32, v.dimension)
		for j := range vector {
			if vector[j], n1, err = raw.Float32.Unmarshal(bs[n:]); err != nil {
				return v, n + n1, err
			}
			n += n1
		}
		v.vectors[i] = vector
	}
	return v, n, nil
}

func (s indexMUS) Size(v Index) (size int) {
	size = varint.Int.Size(v.dimension)
	size += varint.Int.Size(len(v.vectors))
	for _, vector := range v.vectors {
		for _, val := range vector {
			size += raw.Float32.Size(val)
		}
	}
	return size
}

// chunkMUS serializes one core.Chunk.
type chunkMUS struct{}

func (s chunkMUS) Marshal(v core.Chunk, bs []byte) (n int) {
	n = varint.Int.Marshal(v.Index, bs)
	n += varint.Int.Marshal(v.Start, bs[n:])
	n += ord.String.Marshal(v.Text, bs[n:])
	return n
}

func (s chunkMUS) Unmarshal(bs []byte) (v core.Chunk, n int, err error) {
	var n1 int
	if v.Index, n, err = varint.Int.Unmarshal(bs); err != nil {
		return
	}
	if v.Start, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Text, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	return v, n, nil
}

func (s chunkMUS) Size(v core.Chunk) (size int) {
	size = varint.Int.Size(v.Index)
	size += varint.Int.Size(v.Start)
	size += ord.String.Size(v.Text)
	return size
}

// SidecarMUS serializes the index sidecar.
var SidecarMUS = sidecarMUS{}

type sidecarMUS struct{}

func (s sidecarMUS) Marshal(v Sidecar, bs []byte) (n int) {
	n = varint.Int.Marshal(v.Version, bs)
	n += ord.String.Marshal(string(v.FileHash), bs[n:])
	n += ord.String.Marshal(v.OriginalFilename, bs[n:])
	n += varint.Int.Marshal(len(v.Chunks), bs[n:])
	for _, chunk := range v.Chunks {
		n += chunkMUS{}.Marshal(chunk, bs[n:])
	}
	n += varint.Int.Marshal(v.EmbeddingCount, bs[n:])
	n += varint.Int.Marshal(v.Dimension, bs[n:])
	return n
}

func (s sidecarMUS) Unmarshal(bs []byte) (v Sidecar, n int, err error) {
	var n1 int
	if v.Version, n, err = varint.Int.Unmarshal(bs); err != nil {
		return
	}
	var hash string
	if hash, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	v.FileHash = core.ContentHash(hash)
	n += n1
	if v.OriginalFilename, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	var count int
	if count, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if count < 0 {
		return v, n, fmt.Errorf("%w: negative chunk count", ErrCorruptSidecar)
	}
	v.Chunks = make([]core.Chunk, count)
	for i := range v.Chunks {
		if v.Chunks[i], n1, err = (chunkMUS{}).Unmarshal(bs[n:]); err != nil {
			return v, n + n1, err
		}
		n += n1
	}
	if v.EmbeddingCount, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Dimension, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	return v, n, nil
}

func (s sidecarMUS) Size(v Sidecar) (size int) {
	size = varint.Int.Size(v.Version)
	size += ord.String.Size(string(v.FileHash))
	size += ord.String.Size(v.OriginalFilename)
	size += varint.Int.Size(len(v.Chunks))
	for _, chunk := range v.Chunks {
		size += chunkMUS{}.Size(chunk)
	}
	size += varint.Int.Size(v.EmbeddingCount)
	size += varint.Int.Size(v.Dimension)
	return size
}

// MarshalIndex serializes an Index to bytes.
func MarshalIndex(index *Index) []byte {
	buf := make([]byte, IndexMUS.Size(*index))
	IndexMUS.Marshal(*index, buf)
	return buf
}

// UnmarshalIndex deserializes an Index from bytes.
func UnmarshalIndex(data []byte) (*Index, error) {
	index, _, err := IndexMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &index, nil
}

// MarshalSidecar serializes a Sidecar to bytes.
func MarshalSidecar(sidecar *Sidecar) []byte {
	buf := make([]byte, SidecarMUS.Size(*sidecar))
	SidecarMUS.Marshal(*sidecar, buf)
	return buf
}

// UnmarshalSidecar deserializes a Sidecar from bytes.
func UnmarshalSidecar(data []byte) (*Sidecar, error) {
	sidecar, _, err := SidecarMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &sidecar, nil
}
