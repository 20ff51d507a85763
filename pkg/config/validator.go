package config

import (
	"fmt"
	"net/url"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   "server.port",
			Message: "port must be between 1 and 65535",
		})
	}

	switch c.Vector.Backend {
	case "pgvector":
		if c.Vector.URL == "" {
			errors = append(errors, ValidationError{
				Field:   "vector.url",
				Message: "pgvector backend requires a database URL",
			})
		}
	case "pinecone":
		if c.Vector.APIKey == "" {
			errors = append(errors, ValidationError{
				Field:   "vector.api_key",
				Message: "pinecone backend requires an API key",
			})
		}
		if c.Vector.IndexHost == "" {
			errors = append(errors, ValidationError{
				Field:   "vector.index_host",
				Message: "pinecone backend requires an index host",
			})
		}
	case "memory":
	default:
		errors = append(errors, ValidationError{
			Field:   "vector.backend",
			Message: fmt.Sprintf("unknown backend %q, expected pgvector, pinecone or memory", c.Vector.Backend),
		})
	}

	if c.Vector.Dimension < 1 {
		errors = append(errors, ValidationError{
			Field:   "vector.dimension",
			Message: "dimension must be positive",
		})
	}

	if c.Vector.BatchSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "vector.batch_size",
			Message: "batch_size must be positive",
		})
	}

	switch c.LLM.Provider {
	case "openai":
		if c.LLM.APIKey == "" {
			errors = append(errors, ValidationError{
				Field:   "llm.api_key",
				Message: "openai provider requires an API key",
			})
		}
	case "ollama":
		if c.LLM.BaseURL == "" {
			errors = append(errors, ValidationError{
				Field:   "llm.base_url",
				Message: "ollama provider requires a base URL",
			})
		}
	default:
		errors = append(errors, ValidationError{
			Field:   "llm.provider",
			Message: fmt.Sprintf("unknown provider %q, expected openai or ollama", c.LLM.Provider),
		})
	}

	if c.LLM.MaxTokens < 1 || c.LLM.MaxTokens > 4096 {
		errors = append(errors, ValidationError{
			Field:   "llm.max_tokens",
			Message: "max_tokens must be between 1 and 4096",
		})
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errors = append(errors, ValidationError{
			Field:   "llm.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	if c.LLM.BaseURL != "" {
		if _, err := url.Parse(c.LLM.BaseURL); err != nil {
			errors = append(errors, ValidationError{
				Field:   "llm.base_url",
				Message: "invalid base URL",
			})
		}
	}

	if c.Processor.ChunkSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "processor.chunk_size",
			Message: "chunk_size must be positive",
		})
	}

	if c.Processor.ChunkOverlap < 0 || c.Processor.ChunkOverlap >= c.Processor.ChunkSize {
		errors = append(errors, ValidationError{
			Field:   "processor.chunk_overlap",
			Message: "chunk_overlap must be non-negative and less than chunk_size",
		})
	}

	if c.Retrieval.TopK < 1 {
		errors = append(errors, ValidationError{
			Field:   "retrieval.top_k",
			Message: "top_k must be positive",
		})
	}

	if c.Retrieval.ContextChunks < 1 || c.Retrieval.ContextChunks > c.Retrieval.TopK {
		errors = append(errors, ValidationError{
			Field:   "retrieval.context_chunks",
			Message: "context_chunks must be positive and at most top_k",
		})
	}

	if c.Firecrawl.RateLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "firecrawl.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	return errors
}
