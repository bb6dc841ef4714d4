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


package retrieval

import "errors"

var (
	// ErrChunkRepositoryRequired is returned when a chunk repository is not provided.
	ErrChunkRepositoryRequired = errors.New("chunk repository required")

	// ErrDenseEncoderRequired is returned when a dense encoder is not provided.
	ErrDenseEncoderRequired = errors.New("dense encoder required")

	// ErrSparseEncoderRequired is returned when a sparse encoder is not provided.
	ErrSparseEncoderRequired = errors.New("sparse encoder required")

	// ErrEmptyQuery is returned when the query contains no text.
	ErrEmptyQuery = errors.New("query is empty")

	// ErrAllPathsFailed is returned when both retrieval paths are
	// unavailable and there is nothing left to rank with.
	ErrAllPathsFailed = errors.New("all retrieval paths failed")
)
