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


// Package cache provides a TTL-bounded LRU wrapper for dense encoders.
//
// Query texts repeat; documents do not. The wrapper therefore caches
// single-text Encode calls only and passes EncodeBatch straight through
// to the underlying encoder. Entries expire so a model change on the
// provider side cannot serve stale vectors forever.
package cache

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/corpusworks/fusedex/core"
	"github.com/corpusworks/fusedex/embed"
)

// Encoder wraps a dense encoder with an in-memory query cache.
type Encoder struct {
	next  embed.DenseEncoder
	model string
	cache *expirable.LRU[core.ID, []float32]
}

var _ embed.DenseEncoder = (*Encoder)(nil)

// Wrap puts a query cache in front of next. A nil encoder, non-positive
// size, or non-positive ttl disables caching and returns next unchanged.
func Wrap(next embed.DenseEncoder, model string, size int, ttl time.Duration) embed.DenseEncoder {
	if next == nil || size <= 0 || ttl <= 0 {
		return next
	}
	return &Encoder{
		next:  next,
		model: model,
		cache: expirable.NewLRU[core.ID, []float32](size, nil, ttl),
	}
}

// Encode returns the cached vector when the exact text was encoded
// recently, otherwise delegates to the underlying encoder.
func (e *Encoder) Encode(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(e.model, text)
	if cached, ok := e.cache.Get(key); ok {
		slog.Debug("embedding cache hit", "model", e.model)
		return slices.Clone(cached), nil
	}

	vector, err := e.next.Encode(ctx, text)
	if err != nil {
		return nil, err
	}
	e.cache.Add(key, slices.Clone(vector))
	return vector, nil
}

// EncodeBatch delegates to the underlying encoder without caching.
func (e *Encoder) EncodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return e.next.EncodeBatch(ctx, texts)
}

// cacheKey separates model and text so two models never share an entry.
func cacheKey(model, text string) core.ID {
	return core.IDFromContent(model + "\x00" + text)
}
