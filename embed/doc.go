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


// Package embed provides abstractions for turning text into embeddings.
//
// Fusedex retrieves along two complementary axes, and this package defines
// one encoder shape for both: Encoder[V] generates embeddings of type V,
// with DenseEncoder (semantic vectors from a remote provider) and
// SparseEncoder (weighted token maps computed locally) as the two
// instantiations the rest of the system works against. The core domain
// and business logic depend on these abstractions rather than concrete
// implementations.
//
// # Implementation Packages
//
// The embed package includes four implementation sub-packages:
//
//   - embed/openai: Production dense encoder using OpenAI-compatible APIs
//   - embed/lexical: Production sparse encoder, token frequency based
//   - embed/cache: TTL-bounded LRU wrapper around a dense encoder
//   - embed/mock: Test doubles for unit testing without external services
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewEncoder, lexical.NewEncoder) return
// INTERFACE types to enforce abstraction and prevent accidental coupling
// to concrete implementations.
//
//	dense, err := openai.NewEncoder(config)  // returns embed.DenseEncoder
//
// Test utility constructors (mock.NewDenseEncoder, mock.NewSparseEncoder)
// return CONCRETE types to enable test assertions and behavior injection
// via the mock's public fields (EncodeFunc, CallCount, Reset, etc.).
//
// # Failure Model
//
// Remote encoders wrap every transport, authentication, and response
// shape fault in ErrProvider so callers can treat "the provider is
// unhealthy" as one condition. Each provider call attempt is bounded by
// Config.RequestTimeout and retried up to Config.MaxRetries times with
// exponential backoff. Local encoders never fail for reasons other than
// context cancellation.
//
// # Usage Example
//
//	config := embed.NewConfig(
//	    embed.WithHost("http://localhost:11434"),
//	    embed.WithModel("embeddinggemma"),
//	    embed.WithDimensions(768),
//	)
//	dense, err := openai.NewEncoder(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	vector, err := dense.Encode(ctx, "how do I configure retries?")
package embed
