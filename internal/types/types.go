package types

import (
	"context"
	"time"

	"github.com/xhad/tutor/internal/models"
)

// Embedder maps text to a fixed-length dense vector. Identical input
// must produce an identical vector for retrieval to be reproducible.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// LanguageModel is a single-shot completion call; the core never
// requires streaming.
type LanguageModel interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// VectorIndex stores embedded chunks partitioned per document. Queries
// are always scoped to one namespace; returning a match from another
// namespace is a correctness bug, not a ranking problem.
type VectorIndex interface {
	Upsert(ctx context.Context, namespace string, records []models.VectorRecord) error
	Query(ctx context.Context, namespace string, vector []float32, topK int) ([]models.Match, error)
	// Sample returns up to limit records from the namespace without
	// similarity ranking, for coverage-oriented reads.
	Sample(ctx context.Context, namespace string, limit int) ([]models.Match, error)
	Delete(ctx context.Context, namespace string) error
	Dimensions() int
}

// RecordStore is the narrow persistence surface the core depends on.
// Implementations must give read-after-write consistency within one
// request; nothing more is assumed.
type RecordStore interface {
	InsertDocument(ctx context.Context, doc *models.Document) error
	UpdateDocument(ctx context.Context, id string, fields map[string]any) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	ListDocuments(ctx context.Context, userID string) ([]models.Document, error)
	DeleteDocument(ctx context.Context, id string) error

	InsertConversation(ctx context.Context, conv *models.Conversation) error
	GetConversation(ctx context.Context, id string) (*models.Conversation, error)
	ListConversations(ctx context.Context, documentID, userID string) ([]models.Conversation, error)
	TouchConversation(ctx context.Context, id string, at time.Time) error
	DeleteConversations(ctx context.Context, documentID string) error

	InsertMessages(ctx context.Context, msgs []models.ChatMessage) error
	ListMessages(ctx context.Context, conversationID string) ([]models.ChatMessage, error)
	ListDocumentMessages(ctx context.Context, documentID, userID string) ([]models.ChatMessage, error)
	DeleteMessages(ctx context.Context, documentID string) error
}

// OCREngine recognizes text in an image. An engine that ran but found
// nothing returns ("", nil); "no engine configured" is signalled by the
// caller holding a nil OCREngine, never by an empty result.
type OCREngine interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// SpeechEngine transcribes a full audio clip.
type SpeechEngine interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (text string, durationSeconds float64, err error)
}

// WebExtractor fetches readable text plus page metadata for a URL via
// an external content-extraction service.
type WebExtractor interface {
	ExtractPage(ctx context.Context, url string) (*models.WebPage, error)
}
