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


package embed

import "errors"

var (
	// ErrProvider indicates a failure of the remote embedding service:
	// network, authentication, rate limiting, or a malformed response.
	// Callers can retry; the input itself is not at fault.
	ErrProvider = errors.New("embedding provider failure")

	// ErrDimensionMismatch is returned when the provider delivers a vector
	// whose width differs from the configured dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrBatchMismatch is returned when the provider returns a different
	// number of vectors than texts were submitted.
	ErrBatchMismatch = errors.New("embedding count does not match input count")

	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")
)
