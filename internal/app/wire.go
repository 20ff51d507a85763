package app

import (
	"fmt"
	"os"

	"github.com/xhad/tutor/internal/types"
	"github.com/xhad/tutor/pkg/config"
	"github.com/xhad/tutor/pkg/extract"
	"github.com/xhad/tutor/pkg/firecrawl"
	"github.com/xhad/tutor/pkg/gcp"
	"github.com/xhad/tutor/pkg/llm"
	"github.com/xhad/tutor/pkg/logger"
	"github.com/xhad/tutor/pkg/processor"
	"github.com/xhad/tutor/pkg/rag"
	"github.com/xhad/tutor/pkg/records"
	"github.com/xhad/tutor/pkg/store"
)

// BuildService wires the document-QA core from configuration. The
// returned cleanup closes whatever backends were opened; it is safe to
// call after a partial failure.
func BuildService(cfg *config.Config, log *logger.Logger) (*rag.Service, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	index, err := buildIndex(cfg)
	if err != nil {
		return nil, cleanup, err
	}
	if c, ok := index.(interface{ Close() }); ok {
		closers = append(closers, c.Close)
	}

	rec, err := records.OpenPostgres(cfg.Database.URL)
	if err != nil {
		return nil, cleanup, fmt.Errorf("open record store: %w", err)
	}
	closers = append(closers, func() { _ = rec.Close() })

	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Provider:  cfg.LLM.Provider,
		Model:     cfg.LLM.EmbeddingModel,
		BaseURL:   cfg.LLM.BaseURL,
		APIKey:    cfg.LLM.APIKey,
		Dimension: cfg.Vector.Dimension,
	})
	if err != nil {
		return nil, cleanup, fmt.Errorf("init embedder: %w", err)
	}

	model, err := llm.NewWithConfig(llm.ChatConfig{
		Provider:    cfg.LLM.Provider,
		Model:       cfg.LLM.Model,
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	})
	if err != nil {
		return nil, cleanup, fmt.Errorf("init chat model: %w", err)
	}

	var ocr types.OCREngine
	var speech types.SpeechEngine
	if cfg.GCP.Enabled {
		if cfg.GCP.CredentialsFile != "" && os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
			os.Setenv("GOOGLE_APPLICATION_CREDENTIALS", cfg.GCP.CredentialsFile)
		}
		vision, err := gcp.NewVisionOCR(log)
		if err != nil {
			return nil, cleanup, fmt.Errorf("init vision OCR: %w", err)
		}
		closers = append(closers, func() { _ = vision.Close() })
		ocr = vision

		transcriber, err := gcp.NewSpeechTranscriber(log)
		if err != nil {
			return nil, cleanup, fmt.Errorf("init speech transcriber: %w", err)
		}
		closers = append(closers, func() { _ = transcriber.Close() })
		speech = transcriber
	}

	var web types.WebExtractor
	if cfg.Firecrawl.APIKey != "" {
		client, err := firecrawl.NewWithConfig(firecrawl.Config{
			APIKey:    cfg.Firecrawl.APIKey,
			BaseURL:   cfg.Firecrawl.BaseURL,
			RateLimit: cfg.Firecrawl.RateLimit,
		}, log)
		if err != nil {
			return nil, cleanup, fmt.Errorf("init web extractor: %w", err)
		}
		web = client
	}

	svc, err := rag.NewService(rag.Config{
		TopK:            cfg.Retrieval.TopK,
		ContextChunks:   cfg.Retrieval.ContextChunks,
		HistoryMessages: cfg.Retrieval.HistoryMessages,
	}, rag.Deps{
		Extractors: extract.NewRegistry(log, ocr, speech),
		Chunker: processor.NewWithConfig(processor.Config{
			ChunkSize:    cfg.Processor.ChunkSize,
			ChunkOverlap: cfg.Processor.ChunkOverlap,
		}),
		Embedder: embedder,
		Model:    model,
		Index:    index,
		Records:  rec,
		Web:      web,
	}, log)
	if err != nil {
		return nil, cleanup, err
	}
	return svc, cleanup, nil
}

func buildIndex(cfg *config.Config) (types.VectorIndex, error) {
	switch cfg.Vector.Backend {
	case "pgvector":
		return store.NewPgVectorWithConfig(store.PgVectorConfig{
			ConnString: cfg.Vector.URL,
			TableName:  cfg.Vector.TableName,
			VectorDim:  cfg.Vector.Dimension,
			BatchSize:  cfg.Vector.BatchSize,
		})
	case "pinecone":
		return store.NewPineconeWithConfig(store.PineconeConfig{
			APIKey:    cfg.Vector.APIKey,
			IndexHost: cfg.Vector.IndexHost,
			VectorDim: cfg.Vector.Dimension,
			BatchSize: cfg.Vector.BatchSize,
		})
	case "memory":
		return store.NewMemoryIndex(cfg.Vector.Dimension), nil
	default:
		return nil, fmt.Errorf("unknown vector backend %q", cfg.Vector.Backend)
	}
}
