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


package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidConfig indicates a component was configured with
	// out-of-range or inconsistent parameters.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrInvalidChunk indicates a Chunk failed validation.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrEmptySource indicates the document Source field is empty.
	ErrEmptySource = errors.New("source cannot be empty")

	// ErrEmptyChunkText indicates the chunk Text field is empty.
	ErrEmptyChunkText = errors.New("chunk text cannot be empty")

	// ErrEmptyDenseVector indicates the chunk carries no dense embedding.
	ErrEmptyDenseVector = errors.New("dense vector cannot be empty")

	// ErrNegativeWeight indicates a sparse embedding weight is negative.
	ErrNegativeWeight = errors.New("sparse weight cannot be negative")
)
