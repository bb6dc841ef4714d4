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


// Package retrieval provides hybrid query execution over the chunk store.
//
// The Retriever type runs a query along two independent paths:
//   - Dense: semantic nearest-neighbor search over provider embeddings
//   - Sparse: weighted token overlap computed entirely locally
//
// The paths run concurrently and join only at fusion, where reciprocal
// rank fusion merges the two ranked lists into one. A chunk found by
// both paths outranks a chunk found by only one, even at moderate ranks
// in each.
//
// When the dense provider is unreachable the retriever does not fail:
// it serves the sparse list alone and marks the result set as Degraded
// so callers know ranking quality is reduced. Only the loss of both
// paths is an error.
//
// ContextBuilder turns the top fused hits into a token-budgeted text
// block for prompting a language model.
package retrieval
