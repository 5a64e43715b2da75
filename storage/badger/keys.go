package badger

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/poiesic/docdex/core"
)

// Key prefixes for different data types
const (
	docRecordPrefix     = "docrec"
	docRecordDatePrefix = "docrecd"
)

// makeRecordKey generates a key for a catalog record by content hash.
func makeRecordKey(hash core.ContentHash) []byte {
	return []byte(fmt.Sprintf("%s:%s", docRecordPrefix, hash))
}

// makeRecordDateKey generates a composite key for the creation-time index.
// Format: prefix:timestamp:hash
func makeRecordDateKey(createdAt time.Time, hash core.ContentHash) []byte {
	prefix := docRecordDatePrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 8 + len(hash)
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(createdAt.UnixMicro()))
	offset += 8
	copy(buf[offset:], []byte(hash))
	return buf
}

// recordHashFromDateKey extracts the content hash from a date index key.
func recordHashFromDateKey(key []byte) core.ContentHash {
	prefixSize := len(docRecordDatePrefix) + 1 + 8
	if len(key) <= prefixSize {
		return ""
	}
	return core.ContentHash(key[prefixSize:])
}
