package storage

import (
	"context"
	"time"

	"github.com/corpusworks/fusedex/core"
)

// SourceStat summarizes one ingested document.
type SourceStat struct {
	Source     string
	Title      string
	ChunkCount int
	IngestedAt time.Time
}

// ChunkRepository stores documents with their embedded chunks and serves
// both retrieval lists. Implementations must be thread-safe and support
// concurrent access.
//
// Writes are atomic per document: a replacement is either fully visible
// or not at all, and readers never observe chunks from two versions of
// the same document. Writers for the same source are serialized; writers
// for different sources may proceed concurrently.
type ChunkRepository interface {
	// UpsertDocument replaces the stored document and all of its chunks.
	// Chunks from an earlier version of the document are removed, even
	// when the new chunk set is empty.
	UpsertDocument(ctx context.Context, doc *core.Document, chunks []*core.Chunk) error

	// DeleteBySource removes the document for source and all of its
	// chunks, returning how many chunks were removed.
	// Deleting an unknown source is not an error and returns zero.
	DeleteBySource(ctx context.Context, source string) (int, error)

	// SearchDense returns up to limit chunks ranked by dense similarity
	// against query, best first. Equal scores rank by ascending chunk ID.
	SearchDense(ctx context.Context, query []float32, limit int) ([]core.SearchHit, error)

	// SearchSparse returns up to limit chunks ranked by weighted token
	// overlap with query, best first. Equal scores rank by ascending
	// chunk ID. An empty query yields no hits.
	SearchSparse(ctx context.Context, query core.SparseVector, limit int) ([]core.SearchHit, error)

	// GetChunk retrieves a single chunk by ID.
	// Returns ErrNotFound if the chunk doesn't exist.
	GetChunk(ctx context.Context, id core.ID) (*core.Chunk, error)

	// GetChunks retrieves multiple chunks by their IDs.
	// Returns only the chunks that exist (no error for missing chunks).
	GetChunks(ctx context.Context, ids ...core.ID) ([]*core.Chunk, error)

	// GetDocument retrieves a single document by ID.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, id core.ID) (*core.Document, error)

	// GetDocuments retrieves multiple documents by their IDs.
	// Returns only the documents that exist (no error for missing ones).
	GetDocuments(ctx context.Context, ids ...core.ID) ([]*core.Document, error)

	// ListSources summarizes every stored document, ordered by source.
	ListSources(ctx context.Context) ([]*SourceStat, error)

	// CountChunks returns the total number of stored chunks.
	CountChunks(ctx context.Context) (int, error)

	// Close releases resources held by the repository.
	Close() error
}
