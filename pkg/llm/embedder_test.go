package llm_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/tutor/pkg/llm"
)

func TestNewEmbedderWithConfig(t *testing.T) {
	emb, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Provider:  "ollama",
		Model:     "nomic-embed-text",
		BaseURL:   "http://localhost:11434",
		Dimension: 768,
	})
	require.NoError(t, err)
	assert.Equal(t, 768, emb.Dimensions())
}

func TestNewEmbedderWithConfig_Validation(t *testing.T) {
	_, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{Provider: "openai"})
	assert.Error(t, err, "openai without an API key")

	_, err = llm.NewEmbedderWithConfig(llm.EmbedderConfig{Provider: "cohere"})
	assert.Error(t, err)
}

func TestEmbedBatch_EmptyInput(t *testing.T) {
	emb, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{Provider: "ollama"})
	require.NoError(t, err)

	vectors, err := emb.EmbedBatch(context.Background(), nil)
	assert.NoError(t, err)
	assert.Nil(t, vectors)
}
