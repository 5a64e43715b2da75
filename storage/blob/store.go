package blob

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/poiesic/docdex/core"
	"github.com/poiesic/docdex/storage"
)

// Store is a content-addressed blob store on the local filesystem.
// Each blob lives in a single file named "<hash><ext>".
type Store struct {
	dir    string
	logger *slog.Logger
}

var _ storage.BlobStore = (*Store)(nil)

// NewStore opens a blob store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &Store{
		dir:    dir,
		logger: slog.Default().With("component", "blob-store"),
	}, nil
}

// Put stores document bytes under their content hash.
//
// Existing blobs are never overwritten: if the hash already has a file, the
// write is skipped entirely and alreadyExisted is true. Overwriting would
// let a hash collision silently destroy data, so the first write wins.
// New blobs are written to a temporary name and renamed into place.
func (s *Store) Put(ctx context.Context, data []byte, ext string) (core.ContentHash, string, bool, error) {
	hash := core.HashContent(data)
	storedName := string(hash) + normalizeExt(ext)
	path := filepath.Join(s.dir, storedName)

	if _, err := os.Stat(path); err == nil {
		s.logger.Debug("blob already exists", "hash", hash)
		return hash, storedName, true, nil
	} else if !os.IsNotExist(err) {
		return "", "", false, err
	}

	tmp, err := os.CreateTemp(s.dir, storedName+".tmp*")
	if err != nil {
		return "", "", false, err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", "", false, err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", "", false, err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return "", "", false, err
	}

	s.logger.Debug("blob stored", "hash", hash, "bytes", len(data))
	return hash, storedName, false, nil
}

// Delete removes the blob file. Idempotent; reports whether a blob was
// actually removed.
func (s *Store) Delete(ctx context.Context, storedName string) (bool, error) {
	path, err := s.path(storedName)
	if err != nil {
		return false, err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Exists reports whether a blob with the stored name is present.
func (s *Store) Exists(ctx context.Context, storedName string) (bool, error) {
	path, err := s.path(storedName)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// path resolves a stored name inside the store directory, rejecting names
// that would escape it.
func (s *Store) path(storedName string) (string, error) {
	if storedName == "" || storedName != filepath.Base(storedName) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, storedName)
	}
	return filepath.Join(s.dir, storedName), nil
}

// normalizeExt lower-cases an extension and ensures a leading dot.
// An empty extension defaults to ".pdf".
func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ".pdf"
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// ErrInvalidName reports a stored name that does not resolve inside the
// store directory.
var ErrInvalidName = errors.New("invalid stored name")
