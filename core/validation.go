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

import "fmt"

// ValidateDocument validates a Document according to domain rules.
//
// Validation rules:
//   - Source must not be empty
//
// NOT validated (populated during ingest):
//   - ID (derived from Source)
//   - Text (empty text is a valid document with zero chunks)
//   - IngestedAt (stamped by the store)
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if doc.Source == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptySource)
	}

	return nil
}

// ValidateChunk validates a fully embedded Chunk according to domain rules.
//
// Validation rules:
//   - Text must not be empty
//   - Dense must not be empty
//   - Sparse weights must be non-negative
//
// NOT validated:
//   - Sparse emptiness (stopword-only text legitimately embeds to nothing)
//   - Dense dimensionality (enforced by the encoder, which knows the model)
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}

	if chunk.Text == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyChunkText)
	}

	if len(chunk.Dense) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyDenseVector)
	}

	for token, weight := range chunk.Sparse {
		if weight < 0 {
			return fmt.Errorf("%w: %w: token %d has weight %f", ErrInvalidChunk, ErrNegativeWeight, token, weight)
		}
	}

	return nil
}
