package openai

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpusworks/fusedex/core"
	"github.com/corpusworks/fusedex/embed"
)

func TestNewEncoder(t *testing.T) {
	t.Run("nil config uses defaults", func(t *testing.T) {
		encoder, err := NewEncoder(nil)
		require.NoError(t, err)
		assert.NotNil(t, encoder)
	})

	t.Run("local server without api key", func(t *testing.T) {
		cfg := embed.NewConfig(
			embed.WithHost("http://localhost:11434"),
			embed.WithModel("embeddinggemma"),
			embed.WithDimensions(768),
		)
		encoder, err := NewEncoder(cfg)
		require.NoError(t, err)
		assert.NotNil(t, encoder)
	})

	t.Run("invalid config is rejected", func(t *testing.T) {
		cfg := embed.NewConfig(embed.WithDimensions(0))

		_, err := NewEncoder(cfg)
		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrInvalidConfig)
	})

	t.Run("missing host is rejected", func(t *testing.T) {
		cfg := embed.NewConfig(embed.WithHost(""))

		_, err := NewEncoder(cfg)
		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrInvalidConfig)
	})
}

func TestNormalize(t *testing.T) {
	t.Run("scales to unit length", func(t *testing.T) {
		vector := []float32{3, 4}
		normalize(vector)

		assert.InDelta(t, 0.6, vector[0], 0.0001)
		assert.InDelta(t, 0.8, vector[1], 0.0001)
	})

	t.Run("unit vector unchanged", func(t *testing.T) {
		vector := []float32{1, 0, 0}
		normalize(vector)

		assert.InDelta(t, 1.0, vector[0], 0.0001)
		assert.InDelta(t, 0.0, vector[1], 0.0001)
	})

	t.Run("zero vector unchanged", func(t *testing.T) {
		vector := []float32{0, 0, 0}
		normalize(vector)

		assert.Equal(t, []float32{0, 0, 0}, vector)
	})

	t.Run("negative components keep direction", func(t *testing.T) {
		vector := []float32{-3, 4}
		normalize(vector)

		assert.InDelta(t, -0.6, vector[0], 0.0001)
		assert.InDelta(t, 0.8, vector[1], 0.0001)

		var norm float64
		for _, v := range vector {
			norm += float64(v) * float64(v)
		}
		assert.InDelta(t, 1.0, math.Sqrt(norm), 0.0001)
	})
}
