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


package badger

import "github.com/corpusworks/fusedex/storage"

// NewMemoryRepository creates an in-memory chunk repository for testing.
// Returns the repository, its backend, and an error.
// Caller must close both when done.
func NewMemoryRepository(opts ...RepositoryOption) (storage.ChunkRepository, *Backend, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, nil, err
	}

	repo, err := NewChunkRepository(backend, opts...)
	if err != nil {
		backend.Close()
		return nil, nil, err
	}

	return repo, backend, nil
}
