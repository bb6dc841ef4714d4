// Package ingest provides pipeline orchestration for turning documents
// into embedded, searchable chunks.
//
// The Pipeline type manages the ingestion workflow for a document:
//   - Splitting text into overlapping chunks
//   - Generating dense and sparse embeddings concurrently
//   - Committing the document and its chunks in one atomic replace
//
// Embedding work is spread across worker pools to maximize throughput.
// Ingestion is all-or-nothing: if any chunk fails to embed, the store is
// left untouched and the previously indexed version of the document
// remains searchable.
package ingest
