// Copyright 2025 Corpusworks
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package storage provides the index store abstraction for fusedex.
//
// This package defines the ChunkRepository interface that decouples the
// ingest and retrieval layers from the storage implementation, plus the
// MUS serialization helpers shared by every backend.
//
// # Architecture
//
// The store keeps two retrieval paths over the same chunk records:
//
//   - a dense path, scanning stored embedding vectors by similarity
//   - a sparse path, reading a token posting index
//
// Both paths serve SearchHit lists that the retrieval layer fuses.
//
// # Atomicity
//
// A document and its chunks always change as a unit. UpsertDocument
// replaces everything stored for the source in one transaction, and
// DeleteBySource removes everything in one transaction. Readers observe
// complete versions only.
//
// # Usage
//
// Create a repository instance:
//
//	backend, err := badger.OpenBackend("/path/to/db", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//	repo, err := badger.NewChunkRepository(backend)
//
// Use in tests with in-memory storage:
//
//	repo, backend, err := badger.NewMemoryRepository()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
//
// # Context Support
//
// All repository methods accept context.Context for cancellation
// and timeout support. Pass context.Background() for operations
// without specific timeout requirements.
package storage
