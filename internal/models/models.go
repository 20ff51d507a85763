package models

import (
	"time"

	"gorm.io/gorm"
)

// Document processing status values. A document never leaves
// StatusProcessed or StatusFailed except by deletion.
const (
	StatusProcessing = "processing"
	StatusProcessed  = "processed"
	StatusFailed     = "failed"
)

// Chat message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Metadata carries extractor-specific fields (page_count, encoding, ...)
// alongside the common filename/file_type/file_size keys.
type Metadata map[string]any

// Document is the durable record of an uploaded document or scraped page.
type Document struct {
	ID            string         `gorm:"primaryKey" json:"id"`
	UserID        string         `gorm:"not null;index" json:"user_id"`
	Title         string         `gorm:"not null" json:"title"`
	Filename      string         `gorm:"not null" json:"filename"`
	SourceURL     string         `json:"source_url,omitempty"`
	FileSize      int64          `json:"file_size"`
	FileType      string         `gorm:"index" json:"file_type"`
	FormatDetails string         `json:"format_details,omitempty"`
	Status        string         `gorm:"not null;index" json:"status"`
	Namespace     string         `gorm:"index" json:"namespace"`
	PageCount     *int           `json:"page_count,omitempty"`
	UploadDate    time.Time      `gorm:"autoCreateTime;index" json:"upload_date"`
	ProcessedDate *time.Time     `json:"processed_date,omitempty"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Document) TableName() string { return "documents" }

// Conversation groups chat turns under a document and owner.
type Conversation struct {
	ID           string    `gorm:"primaryKey" json:"id"`
	DocumentID   string    `gorm:"not null;index" json:"document_id"`
	UserID       string    `gorm:"not null;index" json:"user_id"`
	Title        string    `gorm:"not null" json:"title"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime;index" json:"updated_at"`
	MessageCount int64     `gorm:"-" json:"message_count"`
}

func (Conversation) TableName() string { return "conversations" }

// ChatMessage is append-only; rows are never updated once written.
type ChatMessage struct {
	ID             string    `gorm:"primaryKey" json:"id"`
	ConversationID string    `gorm:"not null;index" json:"conversation_id"`
	DocumentID     string    `gorm:"not null;index" json:"document_id"`
	UserID         string    `gorm:"not null;index" json:"user_id"`
	Role           string    `gorm:"not null" json:"role"`
	Content        string    `gorm:"not null" json:"content"`
	CreatedAt      time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (ChatMessage) TableName() string { return "chat_messages" }

// Chunk is a derived unit of indexed text; it is never persisted as its
// own entity, only copied into vector record metadata.
type Chunk struct {
	Index      int    `json:"chunk_index"`
	DocumentID string `json:"document_id"`
	UserID     string `json:"user_id"`
	Text       string `json:"text"`
	Filename   string `json:"filename"`
	SourceURL  string `json:"source_url,omitempty"`
}

// VectorRecord is one embedded chunk as stored in the vector index. The
// ID is always "{document_id}_{chunk_index}" so re-processing a document
// overwrites its previous vectors instead of duplicating them.
type VectorRecord struct {
	ID     string    `json:"id"`
	Values []float32 `json:"values"`
	Chunk  Chunk     `json:"metadata"`
}

// Match is one vector-index query result. Score is cosine similarity,
// higher is more relevant.
type Match struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
	Chunk Chunk   `json:"metadata"`
}

// WebPage is the result of remote page extraction.
type WebPage struct {
	Content     string `json:"content"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	SourceURL   string `json:"source_url"`
	Language    string `json:"language,omitempty"`
}

// MCQ is one generated multiple-choice question. Options always has
// exactly four entries and CorrectAnswer indexes into it.
type MCQ struct {
	ID            int      `json:"id"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
}
