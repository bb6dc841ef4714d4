package core

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is derived from entity content so that re-ingesting the same
// material always produces the same identifiers.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// DocumentID derives the stable document ID for a source identifier.
// One source maps to exactly one document.
func DocumentID(source string) ID {
	return IDFromContent(source)
}

// ChunkID derives a stable chunk ID from the parent source, the chunk's
// position within the document, and its text. Identical content at the
// same position always hashes to the same ID.
func ChunkID(source string, ordinal int, text string) ID {
	return IDFromContent(fmt.Sprintf("(%s,%d,%s)", source, ordinal, text))
}

// Document represents one ingested source document. Its chunks are stored
// separately and always replaced as a unit when the document is re-ingested.
type Document struct {
	Id         ID
	Source     string    // Stable source identifier (URL, path, or logical name)
	Title      string    // Optional human-readable title
	Text       string    // Full original text; not persisted per chunk
	IngestedAt time.Time // When the document was last written to the store
}

// SparseVector is a lexical embedding: token IDs mapped to non-negative
// weights. Tokens absent from the map carry weight zero.
type SparseVector map[uint32]float32

// Dot returns the sparse dot product of two vectors. Only tokens present
// in both contribute.
func (v SparseVector) Dot(other SparseVector) float32 {
	// Iterate the smaller map.
	if len(other) < len(v) {
		v, other = other, v
	}
	var sum float32
	for token, weight := range v {
		if w, ok := other[token]; ok {
			sum += weight * w
		}
	}
	return sum
}

// Chunk is one retrievable span of a document, carrying both of its
// index representations.
type Chunk struct {
	Id         ID
	DocumentId ID           // Parent document
	Ordinal    int          // Zero-based position within the document
	Text       string
	Dense      []float32    // Semantic embedding (populated during ingest)
	Sparse     SparseVector // Lexical embedding (populated during ingest)
}

// SearchHit is a single-list search result: a chunk ID with the raw
// similarity score from that list.
type SearchHit struct {
	ChunkId ID
	Score   float32
}

// FusedResult is a chunk's combined ranking after reciprocal rank fusion.
// A rank of zero means the chunk did not appear in that list.
type FusedResult struct {
	ChunkId    ID
	Score      float64
	DenseRank  int
	SparseRank int
}
