package ingestion

import (
	"sync"

	"github.com/poiesic/docdex/core"
)

// hashLocks serializes operations per content hash: ingestion and deletion
// for the same hash take turns, while operations on distinct hashes proceed
// in parallel. Entries are dropped once the last holder releases, so the map
// never grows beyond the set of in-flight hashes.
type hashLocks struct {
	mu    sync.Mutex
	locks map[core.ContentHash]*hashLock
}

type hashLock struct {
	mu   sync.Mutex
	refs int
}

func newHashLocks() *hashLocks {
	return &hashLocks{locks: make(map[core.ContentHash]*hashLock)}
}

// acquire blocks until the hash is exclusively held and returns the release
// function.
func (l *hashLocks) acquire(hash core.ContentHash) func() {
	l.mu.Lock()
	entry, ok := l.locks[hash]
	if !ok {
		entry = &hashLock{}
		l.locks[hash] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, hash)
		}
		l.mu.Unlock()
	}
}
