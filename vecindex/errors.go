package vecindex

import "errors"

var (
	// ErrEmptyInput indicates an index build was attempted with zero vectors.
	ErrEmptyInput = errors.New("no vectors provided")

	// ErrDimensionMismatch indicates vectors of inconsistent widths, or a
	// query vector whose width does not match the index.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrIndexNotFound indicates no persisted index exists under that name.
	ErrIndexNotFound = errors.New("index not found")

	// ErrCorruptSidecar indicates an index file whose sidecar is missing or
	// unreadable. The two are persisted together and must be loaded together.
	ErrCorruptSidecar = errors.New("corrupt index sidecar")

	// ErrInvalidName indicates an index name that does not resolve inside
	// the store directory.
	ErrInvalidName = errors.New("invalid index name")
)
