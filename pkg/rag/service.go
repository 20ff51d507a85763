package rag

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/xhad/tutor/internal/types"
	"github.com/xhad/tutor/pkg/extract"
	"github.com/xhad/tutor/pkg/logger"
	"github.com/xhad/tutor/pkg/processor"
)

type Config struct {
	TopK            int
	ContextChunks   int
	HistoryMessages int
	QuizSampleSize  int
	QuizContextMax  int
}

// Deps are the collaborators the service is wired with at startup.
// WebExtractor may be nil; URL ingestion then reports the capability
// as unavailable.
type Deps struct {
	Extractors *extract.Registry
	Chunker    processor.Processor
	Embedder   types.Embedder
	Model      types.LanguageModel
	Index      types.VectorIndex
	Records    types.RecordStore
	Web        types.WebExtractor
}

// Service is the document-QA core: ingestion, retrieval-augmented
// chat and quiz generation over per-document vector partitions.
type Service struct {
	log    *logger.Logger
	config Config
	deps   Deps
}

func NewService(config Config, deps Deps, log *logger.Logger) (*Service, error) {
	if deps.Extractors == nil || deps.Embedder == nil || deps.Model == nil ||
		deps.Index == nil || deps.Records == nil {
		return nil, fmt.Errorf("extractors, embedder, model, index and records are all required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	if config.TopK == 0 {
		config.TopK = 4
	}
	if config.ContextChunks == 0 {
		config.ContextChunks = 3
	}
	if config.ContextChunks > config.TopK {
		config.ContextChunks = config.TopK
	}
	if config.HistoryMessages == 0 {
		config.HistoryMessages = 6
	}
	if config.QuizSampleSize == 0 {
		config.QuizSampleSize = 10
	}
	if config.QuizContextMax == 0 {
		config.QuizContextMax = 3000
	}

	// An embedder/index width mismatch surfaces as garbage retrieval,
	// so it is refused at wiring time.
	if deps.Embedder.Dimensions() != deps.Index.Dimensions() {
		return nil, fmt.Errorf("embedder produces %d-dimensional vectors but index expects %d",
			deps.Embedder.Dimensions(), deps.Index.Dimensions())
	}

	return &Service{
		log:    log.With("service", "RAG"),
		config: config,
		deps:   deps,
	}, nil
}

var namespaceCleaner = regexp.MustCompile(`[^a-z0-9 -]`)

// namespaceFor derives the per-document vector partition from title
// and id. Deterministic, lowercase, hyphenated, bounded length.
func namespaceFor(title, documentID string) string {
	clean := strings.ToLower(title)
	clean = namespaceCleaner.ReplaceAllString(clean, "")
	clean = strings.Join(strings.Fields(clean), "-")
	if len(clean) > 30 {
		clean = clean[:30]
	}
	clean = strings.Trim(clean, "-")
	if clean == "" {
		clean = "document"
	}

	idPart := documentID
	if len(idPart) > 8 {
		idPart = idPart[:8]
	}
	return clean + "-" + idPart
}
