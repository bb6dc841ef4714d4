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


// Package openai provides a dense encoder backed by OpenAI-compatible
// embedding APIs.
//
// The encoder works against the hosted OpenAI API as well as local
// servers speaking the same protocol (Ollama, LocalAI, vLLM). Every
// call attempt is bounded by the configured request timeout and retried
// with exponential backoff; whatever the provider ultimately fails
// with is wrapped in embed.ErrProvider. Returned vectors are checked
// against the configured dimension and normalized to unit length, so
// dot products over stored vectors are cosine similarities.
package openai
