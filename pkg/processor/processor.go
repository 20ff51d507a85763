package processor

import (
	"strings"

	"github.com/xhad/tutor/internal/models"
)

type Config struct {
	ChunkSize    int
	ChunkOverlap int
}

// Processor splits extracted text into fixed-size overlapping chunks.
// The window slides by ChunkSize-ChunkOverlap runes, so consecutive
// chunks share a ChunkOverlap-rune seam and no text is lost between
// them.
type Processor struct {
	config Config
}

func NewWithConfig(config Config) Processor {
	if config.ChunkSize == 0 {
		config.ChunkSize = 1000
	}
	if config.ChunkOverlap == 0 {
		config.ChunkOverlap = 200
	}
	if config.ChunkOverlap >= config.ChunkSize {
		config.ChunkOverlap = config.ChunkSize / 5
	}

	return Processor{
		config: config,
	}
}

// Split cuts text into overlapping windows, preserving document order.
// Text at or under the chunk size yields a single chunk; empty or
// whitespace-only input yields none.
func (p *Processor) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	runes := []rune(text)
	size := p.config.ChunkSize
	if len(runes) <= size {
		return []string{text}
	}

	step := size - p.config.ChunkOverlap
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}

// ChunkDocument splits text and wraps each piece with the document's
// identity so it can be embedded and upserted directly.
func (p *Processor) ChunkDocument(doc *models.Document, text string) []models.Chunk {
	pieces := p.Split(text)
	chunks := make([]models.Chunk, 0, len(pieces))
	for i, piece := range pieces {
		chunks = append(chunks, models.Chunk{
			Index:      i,
			DocumentID: doc.ID,
			UserID:     doc.UserID,
			Text:       piece,
			Filename:   doc.Filename,
			SourceURL:  doc.SourceURL,
		})
	}
	return chunks
}
