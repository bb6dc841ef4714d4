package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/corpusworks/fusedex/core"
)

// Key prefixes for different data types. No prefix may shadow another
// when followed by ':'.
const (
	chunkRecordPrefix    = "chkrec"
	documentRecordPrefix = "docrec"
	sourceIndexPrefix    = "srcidx"
	tokenIndexPrefix     = "tokidx"
)

// makeChunkKey generates a key for a chunk record by ID.
func makeChunkKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", chunkRecordPrefix, id))
}

// makeDocumentKey generates a key for a document record by ID.
func makeDocumentKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", documentRecordPrefix, id))
}

// makeSourceIndexKey generates a composite key for the document-to-chunk
// index.
// Format: prefix:documentID:chunkID
func makeSourceIndexKey(documentID, chunkID core.ID) []byte {
	prefix := sourceIndexPrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 16 // 8 bytes for documentID + 8 bytes for chunkID
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(documentID))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(chunkID))
	return buf
}

// makePartialSourceIndexKey generates a partial key for scanning every
// chunk of one document.
// Format: prefix:documentID
func makePartialSourceIndexKey(documentID core.ID) []byte {
	prefix := sourceIndexPrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 8 // 8 bytes for documentID
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(documentID))
	return buf
}

// makeTokenIndexKey generates a composite key for the sparse posting
// index. The value stored under it is the token's weight in that chunk.
// Format: prefix:tokenID:chunkID
func makeTokenIndexKey(tokenID uint32, chunkID core.ID) []byte {
	prefix := tokenIndexPrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 12 // 4 bytes for tokenID + 8 bytes for chunkID
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint32(buf[offset:], tokenID)
	offset += 4
	binary.BigEndian.PutUint64(buf[offset:], uint64(chunkID))
	return buf
}

// makePartialTokenIndexKey generates a partial key for scanning one
// token's postings.
// Format: prefix:tokenID
func makePartialTokenIndexKey(tokenID uint32) []byte {
	prefix := tokenIndexPrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 4 // 4 bytes for tokenID
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint32(buf[offset:], tokenID)
	return buf
}

// chunkIDFromSourceIndexKey recovers the chunk ID from a source index key.
func chunkIDFromSourceIndexKey(key []byte) core.ID {
	return core.ID(binary.BigEndian.Uint64(key[len(key)-8:]))
}

// chunkIDFromTokenIndexKey recovers the chunk ID from a token index key.
func chunkIDFromTokenIndexKey(key []byte) core.ID {
	return core.ID(binary.BigEndian.Uint64(key[len(key)-8:]))
}
