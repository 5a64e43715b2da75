package vecindex

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	indexExt   = ".vec"
	sidecarExt = ".meta"
)

// Store persists vector indexes and their sidecars in a directory, one
// "<name>.vec" plus "<name>.meta" pair per index.
//
// A persisted index is append-never/replace-whole: rebuilding means writing
// a complete new pair and renaming it over the old one. There is no in-place
// mutation of stored files.
type Store struct {
	dir    string
	logger *slog.Logger
}

// NewStore opens an index store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &Store{
		dir:    dir,
		logger: slog.Default().With("component", "index-store"),
	}, nil
}

// Persist writes the index and its sidecar under the given name.
//
// Both files are written to temporary names and renamed into place, sidecar
// first: anything that lists index files will only ever see an index whose
// sidecar is already durable.
func (s *Store) Persist(index *Index, name string, sidecar *Sidecar) (string, error) {
	if err := s.checkName(name); err != nil {
		return "", err
	}
	if sidecar.Dimension != index.Dimension() || sidecar.EmbeddingCount != index.Count() {
		return "", fmt.Errorf("%w: sidecar %dx%d does not describe index %dx%d",
			ErrCorruptSidecar, sidecar.EmbeddingCount, sidecar.Dimension, index.Count(), index.Dimension())
	}

	if err := s.writeAtomic(name+sidecarExt, MarshalSidecar(sidecar)); err != nil {
		return "", err
	}
	indexPath := filepath.Join(s.dir, name+indexExt)
	if err := s.writeAtomic(name+indexExt, MarshalIndex(index)); err != nil {
		// Roll back the sidecar so no half-written pair is left behind.
		os.Remove(filepath.Join(s.dir, name+sidecarExt))
		return "", err
	}

	s.logger.Debug("index persisted", "name", name, "vectors", index.Count(), "dimension", index.Dimension())
	return indexPath, nil
}

// Load reads the index and its sidecar. Fails with ErrIndexNotFound if the
// index file is absent and ErrCorruptSidecar if the sidecar cannot be read:
// the pair is only meaningful together.
func (s *Store) Load(name string) (*Index, *Sidecar, error) {
	if err := s.checkName(name); err != nil {
		return nil, nil, err
	}

	indexData, err := os.ReadFile(filepath.Join(s.dir, name+indexExt))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%w: %s", ErrIndexNotFound, name)
		}
		return nil, nil, err
	}
	index, err := UnmarshalIndex(indexData)
	if err != nil {
		return nil, nil, fmt.Errorf("unmarshal index %s: %w", name, err)
	}

	sidecarData, err := os.ReadFile(filepath.Join(s.dir, name+sidecarExt))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrCorruptSidecar, name, err)
	}
	sidecar, err := UnmarshalSidecar(sidecarData)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrCorruptSidecar, name, err)
	}

	return index, sidecar, nil
}

// Delete removes the index and its sidecar. Idempotent; reports whether an
// index file was actually removed.
func (s *Store) Delete(name string) (bool, error) {
	if err := s.checkName(name); err != nil {
		return false, err
	}

	removed := false
	if err := os.Remove(filepath.Join(s.dir, name+indexExt)); err == nil {
		removed = true
	} else if !os.IsNotExist(err) {
		return false, err
	}
	if err := os.Remove(filepath.Join(s.dir, name+sidecarExt)); err != nil && !os.IsNotExist(err) {
		return removed, err
	}
	return removed, nil
}

// List returns the names of all persisted indexes, sorted.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), indexExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), indexExt))
	}
	sort.Strings(names)
	return names, nil
}

// Info describes one persisted index. A broken entry carries its problem in
// Error instead of aborting the whole listing.
type Info struct {
	Name        string
	Dimension   int
	VectorCount int
	SizeBytes   int64
	Sidecar     *Sidecar
	Error       string
}

// Describe returns stats for one persisted index. An unreadable sidecar is
// reported inline via Info.Error; only a missing index file is fatal.
func (s *Store) Describe(name string) (*Info, error) {
	if err := s.checkName(name); err != nil {
		return nil, err
	}

	stat, err := os.Stat(filepath.Join(s.dir, name+indexExt))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, name)
		}
		return nil, err
	}

	info := &Info{Name: name, SizeBytes: stat.Size()}

	index, sidecar, err := s.Load(name)
	if err != nil {
		info.Error = err.Error()
		return info, nil
	}

	info.Dimension = index.Dimension()
	info.VectorCount = index.Count()
	info.Sidecar = sidecar
	return info, nil
}

func (s *Store) checkName(name string) error {
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, "/\\") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

func (s *Store) writeAtomic(filename string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, filename+".tmp*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, filepath.Join(s.dir, filename)); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
