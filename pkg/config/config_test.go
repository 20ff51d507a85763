package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DATABASE_URL", "OPENAI_API_KEY", "OLLAMA_BASE_URL",
		"PINECONE_API_KEY", "PINECONE_INDEX_HOST", "FIRECRAWL_API_KEY",
		"GOOGLE_APPLICATION_CREDENTIALS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig(t *testing.T) {
	clearEnv(t)

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configData := `
server:
  port: 9000
  mode: release

database:
  url: "postgres://localhost:5432/tutor"

vector:
  backend: pgvector
  dimension: 768
  batch_size: 50
  table_name: "doc_chunks"

llm:
  provider: ollama
  base_url: "http://localhost:11434"
  model: "mistral"
  max_tokens: 1000
  temperature: 0.5

processor:
  chunk_size: 500
  chunk_overlap: 100

retrieval:
  top_k: 6
  context_chunks: 3
`
	err := os.WriteFile(configPath, []byte(configData), 0644)
	require.NoError(t, err)

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, 9000, config.Server.Port)
	assert.Equal(t, "release", config.Server.Mode)
	assert.Equal(t, "postgres://localhost:5432/tutor", config.Database.URL)
	assert.Equal(t, "pgvector", config.Vector.Backend)
	assert.Equal(t, 768, config.Vector.Dimension)
	assert.Equal(t, "doc_chunks", config.Vector.TableName)
	assert.Equal(t, "ollama", config.LLM.Provider)
	assert.Equal(t, "mistral", config.LLM.Model)
	assert.Equal(t, 0.5, config.LLM.Temperature)
	assert.Equal(t, 500, config.Processor.ChunkSize)
	assert.Equal(t, 6, config.Retrieval.TopK)

	// Unset values fall back to defaults.
	assert.Equal(t, "0.0.0.0", config.Server.Host)
	assert.Equal(t, 6, config.Retrieval.HistoryMessages)
	assert.Equal(t, "nomic-embed-text", config.LLM.EmbeddingModel)
	assert.Equal(t, "postgres://localhost:5432/tutor", config.Vector.URL)
}

func TestDefaultConfig(t *testing.T) {
	clearEnv(t)

	config, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
	assert.Nil(t, config)

	config, err = getDefaultConfig()
	require.NoError(t, err)
	assert.Equal(t, 8000, config.Server.Port)
	assert.Equal(t, "pgvector", config.Vector.Backend)
	assert.Equal(t, 1536, config.Vector.Dimension)
	assert.Equal(t, 100, config.Vector.BatchSize)
	assert.Equal(t, 1000, config.Processor.ChunkSize)
	assert.Equal(t, 200, config.Processor.ChunkOverlap)
	assert.Equal(t, 4, config.Retrieval.TopK)
	assert.Equal(t, 3, config.Retrieval.ContextChunks)
}

func TestConfigValidation(t *testing.T) {
	valid := func() Config {
		c := Config{}
		c.Database.URL = "postgres://localhost:5432/tutor"
		applyDefaults(&c)
		c.LLM.Provider = "ollama"
		c.LLM.BaseURL = "http://localhost:11434"
		return c
	}

	t.Run("valid config", func(t *testing.T) {
		c := valid()
		assert.Empty(t, c.Validate())
	})

	t.Run("unknown vector backend", func(t *testing.T) {
		c := valid()
		c.Vector.Backend = "chroma"
		errs := c.Validate()
		require.Len(t, errs, 1)
		assert.Equal(t, "vector.backend", errs[0].Field)
	})

	t.Run("pinecone requires key and host", func(t *testing.T) {
		c := valid()
		c.Vector.Backend = "pinecone"
		c.Vector.APIKey = ""
		c.Vector.IndexHost = ""
		errs := c.Validate()
		assert.Len(t, errs, 2)
	})

	t.Run("openai requires api key", func(t *testing.T) {
		c := valid()
		c.LLM.Provider = "openai"
		c.LLM.APIKey = ""
		errs := c.Validate()
		require.Len(t, errs, 1)
		assert.Equal(t, "llm.api_key", errs[0].Field)
	})

	t.Run("out of range knobs", func(t *testing.T) {
		c := valid()
		c.LLM.MaxTokens = 5000
		c.LLM.Temperature = 3.0
		c.Processor.ChunkOverlap = c.Processor.ChunkSize
		c.Retrieval.ContextChunks = c.Retrieval.TopK + 1
		errs := c.Validate()
		assert.Len(t, errs, 4)
	})
}

func TestEnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://env-db:5432/tutor")
	t.Setenv("PINECONE_API_KEY", "pc-test-key")
	t.Setenv("OLLAMA_BASE_URL", "http://env-ollama:11434")

	config := &Config{}
	mergeWithEnv(config)

	assert.Equal(t, "postgres://env-db:5432/tutor", config.Database.URL)
	assert.Equal(t, "pc-test-key", config.Vector.APIKey)
	assert.Equal(t, "http://env-ollama:11434", config.LLM.BaseURL)
}
