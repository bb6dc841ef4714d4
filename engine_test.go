package fusedex

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpusworks/fusedex/core"
	"github.com/corpusworks/fusedex/embed"
	"github.com/corpusworks/fusedex/embed/mock"
	"github.com/corpusworks/fusedex/retrieval"
)

// topicEncoder separates texts about containers from everything else,
// making dense ranking deterministic in tests.
func topicEncoder() *mock.DenseEncoder {
	embedTopic := func(text string) []float32 {
		if strings.Contains(strings.ToLower(text), "kubernetes") {
			return []float32{1, 0}
		}
		return []float32{0, 1}
	}

	encoder := mock.NewDenseEncoder()
	encoder.EncodeFunc = func(ctx context.Context, text string) ([]float32, error) {
		return embedTopic(text), nil
	}
	encoder.EncodeBatchFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		vectors := make([][]float32, len(texts))
		for i, text := range texts {
			vectors[i] = embedTopic(text)
		}
		return vectors, nil
	}
	return encoder
}

func TestNew(t *testing.T) {
	t.Run("create new engine", func(t *testing.T) {
		tmpDir := filepath.Join(t.TempDir(), "test_index")
		engine, err := New(tmpDir)
		require.NoError(t, err)
		require.NotNil(t, engine)
		defer engine.Close()

		// Verify components are initialized
		assert.NotNil(t, engine.ChunkRepository())
		assert.NotNil(t, engine.backend)
		assert.NotNil(t, engine.logger)
	})

	t.Run("error with invalid path", func(t *testing.T) {
		// Try to create an engine at a file path instead of directory
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		err := os.WriteFile(tmpFile, []byte("test"), 0644)
		require.NoError(t, err)

		engine, err := New(tmpFile)
		assert.Error(t, err)
		assert.Nil(t, engine)
	})

	t.Run("invalid chunking geometry", func(t *testing.T) {
		engine, err := New("", WithInMemory(), WithChunking(100, 100))
		assert.ErrorIs(t, err, core.ErrInvalidConfig)
		assert.Nil(t, engine)
	})

	t.Run("invalid embed config", func(t *testing.T) {
		config := embed.NewConfig(embed.WithDimensions(0))

		engine, err := New("", WithInMemory(), WithEmbedConfig(config))
		assert.ErrorIs(t, err, core.ErrInvalidConfig)
		assert.Nil(t, engine)
	})
}

func TestEngine_Close(t *testing.T) {
	engine, err := New(t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, engine)

	err = engine.Close()
	assert.NoError(t, err)
}

func TestEngine_FactoryMethods(t *testing.T) {
	engine, err := New("", WithInMemory())
	require.NoError(t, err)
	defer engine.Close()

	t.Run("can create ingestion pipeline", func(t *testing.T) {
		pipeline, err := engine.NewPipeline()
		require.NoError(t, err)
		require.NotNil(t, pipeline)
		pipeline.Release()
	})

	t.Run("can create retriever", func(t *testing.T) {
		retriever, err := engine.NewRetriever()
		require.NoError(t, err)
		require.NotNil(t, retriever)
	})
}

func TestEngine_EndToEnd(t *testing.T) {
	ctx := context.Background()

	engine, err := New("", WithInMemory(), WithDenseEncoder(topicEncoder()))
	require.NoError(t, err)
	defer engine.Close()

	count, err := engine.Ingest(ctx, &core.Document{
		Source: "docs/k8s.md",
		Title:  "Kubernetes Guide",
		Text:   "Kubernetes schedules containers across the cluster. Kubernetes deployments roll out gradually.",
	})
	require.NoError(t, err)
	require.Greater(t, count, 0)

	_, err = engine.Ingest(ctx, &core.Document{
		Source: "docs/recipes.md",
		Title:  "Bread Recipes",
		Text:   "Knead the dough until smooth. Proof overnight in the refrigerator.",
	})
	require.NoError(t, err)

	result, err := engine.Retrieve(ctx, "kubernetes deployment rollout", retrieval.Options{Limit: 3})
	require.NoError(t, err)
	require.NotEmpty(t, result.Hits)
	assert.False(t, result.Degraded)
	assert.Equal(t, "docs/k8s.md", result.Hits[0].Source)
	assert.Equal(t, "Kubernetes Guide", result.Hits[0].Title)

	block := engine.BuildContext(result.Hits)
	assert.Contains(t, block, "RELEVANT DOCUMENTATION:")
	assert.Contains(t, block, "Kubernetes Guide (docs/k8s.md)")

	sources, err := engine.Sources(ctx)
	require.NoError(t, err)
	assert.Len(t, sources, 2)

	removed, err := engine.DeleteSource(ctx, "docs/k8s.md")
	require.NoError(t, err)
	assert.Equal(t, count, removed)

	sources, err = engine.Sources(ctx)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "docs/recipes.md", sources[0].Source)

	// Deleting an absent source is a no-op.
	removed, err = engine.DeleteSource(ctx, "docs/k8s.md")
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestEngine_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	engine, err := New(dir, WithDenseEncoder(topicEncoder()))
	require.NoError(t, err)

	_, err = engine.Ingest(ctx, &core.Document{
		Source: "docs/k8s.md",
		Title:  "Kubernetes Guide",
		Text:   "Kubernetes schedules containers across the cluster.",
	})
	require.NoError(t, err)
	require.NoError(t, engine.Close())

	reopened, err := New(dir, WithDenseEncoder(topicEncoder()))
	require.NoError(t, err)
	defer reopened.Close()

	result, err := reopened.Retrieve(ctx, "kubernetes scheduling", retrieval.Options{})
	require.NoError(t, err)
	require.NotEmpty(t, result.Hits)
	assert.Equal(t, "docs/k8s.md", result.Hits[0].Source)
}
