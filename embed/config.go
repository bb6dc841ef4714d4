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

import (
	"fmt"
	"strings"
	"time"

	"github.com/corpusworks/fusedex/core"
)

// Config holds configuration for the remote dense embedding provider.
type Config struct {
	// Host is the base URL for the embedding service API.
	// Example: "http://localhost:11434/v1" for local OpenAI-compatible server
	Host string

	// APIKey authenticates requests against the provider.
	// Local OpenAI-compatible services usually accept any value.
	APIKey string

	// Model is the model identifier to use for text embeddings.
	// Example: "text-embedding-3-small", "embeddinggemma"
	Model string

	// Dimensions is the width every returned vector must have.
	// Vectors of any other width are rejected.
	Dimensions int

	// RequestTimeout bounds a single provider call attempt.
	// Retries each get a fresh timeout.
	RequestTimeout time.Duration

	// MaxRetries is the maximum number of attempts per provider call.
	MaxRetries int

	// RetryDelay is the base delay between retries (doubles on each retry).
	RetryDelay time.Duration

	// BatchSize caps how many texts are sent in one provider request.
	BatchSize int

	// CacheSize is the number of query embeddings kept in memory.
	// Zero or negative disables caching.
	CacheSize int

	// CacheTTL is how long a cached query embedding stays valid.
	// Zero or negative disables caching.
	CacheTTL time.Duration
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithHost sets the embedding service host URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.Host = host
	}
}

// WithAPIKey sets the provider API key.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithModel sets the embedding model identifier.
func WithModel(model string) ConfigOption {
	return func(c *Config) {
		c.Model = model
	}
}

// WithDimensions sets the required vector width.
func WithDimensions(dims int) ConfigOption {
	return func(c *Config) {
		c.Dimensions = dims
	}
}

// WithRequestTimeout sets the per-attempt timeout for provider calls.
func WithRequestTimeout(timeout time.Duration) ConfigOption {
	return func(c *Config) {
		c.RequestTimeout = timeout
	}
}

// WithMaxRetries sets the maximum number of attempts per provider call.
func WithMaxRetries(retries int) ConfigOption {
	return func(c *Config) {
		c.MaxRetries = retries
	}
}

// WithRetryDelay sets the base delay for exponential backoff.
func WithRetryDelay(delay time.Duration) ConfigOption {
	return func(c *Config) {
		c.RetryDelay = delay
	}
}

// WithBatchSize sets how many texts are sent per provider request.
func WithBatchSize(size int) ConfigOption {
	return func(c *Config) {
		c.BatchSize = size
	}
}

// WithCache sets the query embedding cache capacity and entry lifetime.
// Passing zero for either disables caching.
func WithCache(size int, ttl time.Duration) ConfigOption {
	return func(c *Config) {
		c.CacheSize = size
		c.CacheTTL = ttl
	}
}

// DefaultConfig returns a Config with sensible defaults for the OpenAI API.
// Point Host at a local OpenAI-compatible server (Ollama, LocalAI, vLLM)
// to run without a paid provider.
func DefaultConfig() *Config {
	return &Config{
		Host:           "https://api.openai.com/v1",
		Model:          "text-embedding-3-small",
		Dimensions:     1536,
		RequestTimeout: 30 * time.Second,
		MaxRetries:     3,
		RetryDelay:     time.Second,
		BatchSize:      64,
		CacheSize:      256,
		CacheTTL:       5 * time.Minute,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
// This is the recommended way to create a Config with custom settings.
//
// Example:
//   cfg := NewConfig(
//       WithHost("http://localhost:11434"),
//       WithModel("embeddinggemma"),
//       WithDimensions(768),
//   )
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// It automatically adds the /v1 suffix to the host if missing, which is
// required by most OpenAI-compatible APIs (Ollama, LocalAI, vLLM, etc).
func (c *Config) Normalize() {
	if c.Host != "" && !strings.HasSuffix(c.Host, "/v1") {
		// Remove trailing slash if present before adding /v1
		c.Host = strings.TrimSuffix(c.Host, "/")
		c.Host = c.Host + "/v1"
	}
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.Host == "" {
		return fmt.Errorf("%w: embed config: Host is required", core.ErrInvalidConfig)
	}
	if c.Model == "" {
		return fmt.Errorf("%w: embed config: Model is required", core.ErrInvalidConfig)
	}
	if c.Dimensions < 1 {
		return fmt.Errorf("%w: embed config: Dimensions must be positive, got %d", core.ErrInvalidConfig, c.Dimensions)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%w: embed config: RequestTimeout must be positive, got %v", core.ErrInvalidConfig, c.RequestTimeout)
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("%w: embed config: MaxRetries must be at least 1, got %d", core.ErrInvalidConfig, c.MaxRetries)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("%w: embed config: RetryDelay must not be negative, got %v", core.ErrInvalidConfig, c.RetryDelay)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("%w: embed config: BatchSize must be at least 1, got %d", core.ErrInvalidConfig, c.BatchSize)
	}
	return nil
}
