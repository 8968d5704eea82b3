package openai

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewEmbedderDefaults(t *testing.T) {
	embedder := NewEmbedder("test-key")
	assert.Equal(t, DefaultEmbeddingModel, embedder.ModelName())
	assert.Equal(t, DefaultEmbeddingDimension, embedder.Dimension())
}

func TestNewEmbedderOptionsOverrideDefaults(t *testing.T) {
	embedder := NewEmbedder("test-key",
		WithEmbeddingModel("text-embedding-3-large"),
		WithEmbeddingDimension(3072),
	)
	assert.Equal(t, "text-embedding-3-large", embedder.ModelName())
	assert.Equal(t, 3072, embedder.Dimension())
}

func TestNewEmbedderIgnoresZeroValues(t *testing.T) {
	embedder := NewEmbedder("test-key",
		WithEmbeddingModel(""),
		WithEmbeddingDimension(0),
	)
	assert.Equal(t, DefaultEmbeddingModel, embedder.ModelName())
	assert.Equal(t, DefaultEmbeddingDimension, embedder.Dimension())
}
