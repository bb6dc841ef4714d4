package badger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/corpusworks/fusedex/core"
	"github.com/corpusworks/fusedex/storage"
)

// ChunkRepository implements storage.ChunkRepository for BadgerDB.
type ChunkRepository struct {
	backend *Backend
	locks   *sourceLocks
	useIDF  bool
}

var _ storage.ChunkRepository = (*ChunkRepository)(nil)

// RepositoryOption configures a ChunkRepository.
type RepositoryOption func(*ChunkRepository)

// WithoutIDFWeighting makes sparse search score by raw weighted overlap
// instead of IDF-weighted overlap.
func WithoutIDFWeighting() RepositoryOption {
	return func(r *ChunkRepository) {
		r.useIDF = false
	}
}

// NewChunkRepository creates a new ChunkRepository.
func NewChunkRepository(backend *Backend, opts ...RepositoryOption) (*ChunkRepository, error) {
	if backend == nil {
		return nil, fmt.Errorf("%w: backend is nil", storage.ErrStore)
	}

	r := &ChunkRepository{
		backend: backend,
		locks:   newSourceLocks(),
		useIDF:  true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Close is part of storage.ChunkRepository. The repository holds no
// resources of its own; the backend is closed by its owner.
func (r *ChunkRepository) Close() error {
	return nil
}

// UpsertDocument atomically replaces the document and all of its chunks.
// Writers for the same source are serialized; readers observe either the
// previous or the new chunk set, never a mix.
func (r *ChunkRepository) UpsertDocument(ctx context.Context, doc *core.Document, chunks []*core.Chunk) error {
	if err := core.ValidateDocument(doc); err != nil {
		return err
	}
	for _, chunk := range chunks {
		if chunk.DocumentId != doc.Id {
			return fmt.Errorf("%w: chunk %d carries document %d, want %d",
				storage.ErrMismatchedChunk, chunk.Id, chunk.DocumentId, doc.Id)
		}
	}

	unlock := r.locks.lock(doc.Id)
	defer unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	if doc.IngestedAt.IsZero() {
		doc.IngestedAt = time.Now().UTC()
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		// Drop the previous version's chunks and index entries.
		if _, err := r.deleteDocumentChunks(tx, doc.Id); err != nil {
			return err
		}

		if err := tx.Set(makeDocumentKey(doc.Id), storage.MarshalDocument(doc)); err != nil {
			return err
		}

		for _, chunk := range chunks {
			if err := r.writeChunk(tx, chunk); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return fmt.Errorf("%w: upsert document %q: %w", storage.ErrStore, doc.Source, err)
	}
	return nil
}

// DeleteBySource removes the document for source and all of its chunks,
// returning how many chunks were removed. Unknown sources are a no-op.
func (r *ChunkRepository) DeleteBySource(ctx context.Context, source string) (int, error) {
	if source == "" {
		return 0, fmt.Errorf("%w: %w", core.ErrInvalidDocument, core.ErrEmptySource)
	}
	documentID := core.DocumentID(source)

	unlock := r.locks.lock(documentID)
	defer unlock()

	if err := ctx.Err(); err != nil {
		return 0, err
	}

	removed := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDocumentKey(documentID)
		doc, err := r.readDocument(tx, key)
		if err != nil {
			return err
		}
		if doc == nil {
			// Nothing stored for this source.
			return nil
		}

		removed, err = r.deleteDocumentChunks(tx, documentID)
		if err != nil {
			return err
		}
		if err := tx.Delete(key); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return 0, fmt.Errorf("%w: delete source %q: %w", storage.ErrStore, source, err)
	}
	return removed, nil
}

// SearchDense scans every chunk and ranks by dot product against query.
// Stored vectors are normalized, so this is cosine similarity.
func (r *ChunkRepository) SearchDense(ctx context.Context, query []float32, limit int) ([]core.SearchHit, error) {
	if len(query) == 0 {
		return nil, fmt.Errorf("%w: dense query vector is empty", storage.ErrInvalidQuery)
	}
	if limit <= 0 {
		return nil, nil
	}

	var hits []core.SearchHit
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(chunkRecordPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var chunk *core.Chunk
			err := iter.Item().Value(func(val []byte) error {
				var err error
				chunk, err = storage.UnmarshalChunk(val)
				return err
			})
			if err != nil {
				return err
			}
			if chunk == nil || len(chunk.Dense) == 0 {
				continue
			}

			hits = append(hits, core.SearchHit{
				ChunkId: chunk.Id,
				Score:   dotProduct(query, chunk.Dense),
			})
		}
		return nil
	}, false)
	if err != nil {
		return nil, fmt.Errorf("%w: dense search: %w", storage.ErrStore, err)
	}

	sortHits(hits)
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// SearchSparse ranks chunks by IDF-weighted token overlap with the query,
// reading only the postings of the query's tokens. An empty query yields
// no hits.
func (r *ChunkRepository) SearchSparse(ctx context.Context, query core.SparseVector, limit int) ([]core.SearchHit, error) {
	if limit <= 0 || len(query) == 0 {
		return nil, nil
	}

	// Deterministic token order keeps float accumulation stable.
	tokens := make([]uint32, 0, len(query))
	for token := range query {
		tokens = append(tokens, token)
	}
	slices.Sort(tokens)

	scores := make(map[core.ID]float32)
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		total := 0
		if r.useIDF {
			total = countPrefix(tx, []byte(chunkRecordPrefix+":"))
		}

		for _, token := range tokens {
			if err := ctx.Err(); err != nil {
				return err
			}

			postings, err := scanTokenPostings(tx, token)
			if err != nil {
				return err
			}
			if len(postings) == 0 {
				continue
			}

			factor := query[token]
			if r.useIDF {
				factor *= idfWeight(total, len(postings))
			}
			for _, posting := range postings {
				scores[posting.chunkID] += factor * posting.weight
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, fmt.Errorf("%w: sparse search: %w", storage.ErrStore, err)
	}

	hits := make([]core.SearchHit, 0, len(scores))
	for chunkID, score := range scores {
		hits = append(hits, core.SearchHit{ChunkId: chunkID, Score: score})
	}
	sortHits(hits)
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// GetChunk retrieves a single chunk by ID.
func (r *ChunkRepository) GetChunk(ctx context.Context, id core.ID) (*core.Chunk, error) {
	var result *core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = r.readChunk(tx, makeChunkKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: get chunk %d: %w", storage.ErrStore, id, err)
	}
	return result, nil
}

// GetChunks retrieves multiple chunks by ID, skipping missing ones.
func (r *ChunkRepository) GetChunks(ctx context.Context, ids ...core.ID) ([]*core.Chunk, error) {
	var result []*core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			chunk, err := r.readChunk(tx, makeChunkKey(id))
			if err != nil {
				return err
			}
			if chunk != nil {
				result = append(result, chunk)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, fmt.Errorf("%w: get chunks: %w", storage.ErrStore, err)
	}
	return result, nil
}

// GetDocument retrieves a single document by ID.
func (r *ChunkRepository) GetDocument(ctx context.Context, id core.ID) (*core.Document, error) {
	var result *core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = r.readDocument(tx, makeDocumentKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: get document %d: %w", storage.ErrStore, id, err)
	}
	return result, nil
}

// GetDocuments retrieves multiple documents by ID, skipping missing ones.
func (r *ChunkRepository) GetDocuments(ctx context.Context, ids ...core.ID) ([]*core.Document, error) {
	var result []*core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			doc, err := r.readDocument(tx, makeDocumentKey(id))
			if err != nil {
				return err
			}
			if doc != nil {
				result = append(result, doc)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, fmt.Errorf("%w: get documents: %w", storage.ErrStore, err)
	}
	return result, nil
}

// ListSources summarizes every stored document, ordered by source.
func (r *ChunkRepository) ListSources(ctx context.Context) ([]*storage.SourceStat, error) {
	var stats []*storage.SourceStat
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(documentRecordPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var doc *core.Document
			err := iter.Item().Value(func(val []byte) error {
				var err error
				doc, err = storage.UnmarshalDocument(val)
				return err
			})
			if err != nil {
				return err
			}
			if doc == nil {
				continue
			}

			stats = append(stats, &storage.SourceStat{
				Source:     doc.Source,
				Title:      doc.Title,
				ChunkCount: countPrefix(tx, makePartialSourceIndexKey(doc.Id)),
				IngestedAt: doc.IngestedAt,
			})
		}
		return nil
	}, false)
	if err != nil {
		return nil, fmt.Errorf("%w: list sources: %w", storage.ErrStore, err)
	}

	slices.SortFunc(stats, func(a, b *storage.SourceStat) int {
		return strings.Compare(a.Source, b.Source)
	})
	return stats, nil
}

// CountChunks returns the total number of stored chunks.
func (r *ChunkRepository) CountChunks(ctx context.Context) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		count = countPrefix(tx, []byte(chunkRecordPrefix+":"))
		return nil
	}, false)
	if err != nil {
		return 0, fmt.Errorf("%w: count chunks: %w", storage.ErrStore, err)
	}
	return count, nil
}

// Helper methods

// writeChunk stores the chunk record plus its source and token index
// entries.
func (r *ChunkRepository) writeChunk(tx *badger.Txn, chunk *core.Chunk) error {
	if err := tx.Set(makeChunkKey(chunk.Id), storage.MarshalChunk(chunk)); err != nil {
		return err
	}

	srcKey := makeSourceIndexKey(chunk.DocumentId, chunk.Id)
	if err := tx.Set(srcKey, storage.MarshalID(chunk.Id)); err != nil {
		return err
	}

	for token, weight := range chunk.Sparse {
		if err := tx.Set(makeTokenIndexKey(token, chunk.Id), storage.MarshalWeight(weight)); err != nil {
			return err
		}
	}
	return nil
}

// deleteDocumentChunks removes every chunk belonging to documentID along
// with its index entries, returning how many chunks were removed.
func (r *ChunkRepository) deleteDocumentChunks(tx *badger.Txn, documentID core.ID) (int, error) {
	// Collect IDs first; mutating the keyspace mid-iteration is unsafe.
	var chunkIDs []core.ID
	startKey := makePartialSourceIndexKey(documentID)
	iter := tx.NewIterator(badger.DefaultIteratorOptions)
	for iter.Seek(startKey); iter.Valid(); iter.Next() {
		key := iter.Item().Key()
		if len(key) < len(startKey) || slices.Compare(key[:len(startKey)], startKey) != 0 {
			break
		}
		chunkIDs = append(chunkIDs, chunkIDFromSourceIndexKey(key))
	}
	iter.Close()

	for _, chunkID := range chunkIDs {
		chunkKey := makeChunkKey(chunkID)
		chunk, err := r.readChunk(tx, chunkKey)
		if err != nil {
			return 0, err
		}
		if chunk != nil {
			for token := range chunk.Sparse {
				if err := tx.Delete(makeTokenIndexKey(token, chunkID)); err != nil {
					return 0, err
				}
			}
			if err := tx.Delete(chunkKey); err != nil {
				return 0, err
			}
		}
		if err := tx.Delete(makeSourceIndexKey(documentID, chunkID)); err != nil {
			return 0, err
		}
	}
	return len(chunkIDs), nil
}

// readChunk reads a chunk record from the transaction.
func (r *ChunkRepository) readChunk(tx *badger.Txn, key []byte) (*core.Chunk, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var chunk *core.Chunk
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		chunk, unmarshalErr = storage.UnmarshalChunk(val)
		return unmarshalErr
	})
	return chunk, err
}

// readDocument reads a document record from the transaction.
func (r *ChunkRepository) readDocument(tx *badger.Txn, key []byte) (*core.Document, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var doc *core.Document
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		doc, unmarshalErr = storage.UnmarshalDocument(val)
		return unmarshalErr
	})
	return doc, err
}

// tokenPosting is one (chunk, weight) pair from the token index.
type tokenPosting struct {
	chunkID core.ID
	weight  float32
}

// scanTokenPostings collects every posting of one token, ordered by
// chunk ID.
func scanTokenPostings(tx *badger.Txn, token uint32) ([]tokenPosting, error) {
	startKey := makePartialTokenIndexKey(token)
	iter := tx.NewIterator(badger.DefaultIteratorOptions)
	defer iter.Close()

	var postings []tokenPosting
	for iter.Seek(startKey); iter.Valid(); iter.Next() {
		key := iter.Item().Key()
		if len(key) < len(startKey) || slices.Compare(key[:len(startKey)], startKey) != 0 {
			break
		}

		chunkID := chunkIDFromTokenIndexKey(key)
		var weight float32
		if err := iter.Item().Value(func(val []byte) error {
			var err error
			weight, err = storage.UnmarshalWeight(val)
			return err
		}); err != nil {
			return nil, err
		}
		postings = append(postings, tokenPosting{chunkID: chunkID, weight: weight})
	}
	return postings, nil
}

// countPrefix counts keys under prefix without loading values.
func countPrefix(tx *badger.Txn, prefix []byte) int {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix
	iter := tx.NewIterator(opts)
	defer iter.Close()

	count := 0
	for iter.Rewind(); iter.Valid(); iter.Next() {
		count++
	}
	return count
}

// idfWeight follows ln((N - df + 0.5)/(df + 0.5) + 1). It is always
// positive and approaches zero for tokens present in every chunk.
func idfWeight(total, docFreq int) float32 {
	n := float64(total)
	df := float64(docFreq)
	return float32(math.Log((n-df+0.5)/(df+0.5) + 1))
}

// sortHits orders by score descending, breaking ties toward the smaller
// chunk ID so equal scores rank deterministically.
func sortHits(hits []core.SearchHit) {
	slices.SortFunc(hits, func(a, b core.SearchHit) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		if a.ChunkId < b.ChunkId {
			return -1
		}
		if a.ChunkId > b.ChunkId {
			return 1
		}
		return 0
	})
}

// dotProduct calculates the dot product of two vectors.
func dotProduct(a, b []float32) float32 {
	var sum float32
	minLen := len(a)
	if len(b) < minLen {
		minLen = len(b)
	}
	for i := 0; i < minLen; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
