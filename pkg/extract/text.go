package extract

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/xhad/tutor/internal/models"
)

// textExtractor handles plain text, markdown and JSON. JSON content is
// re-serialized with stable indentation so equivalent payloads index
// identically; parse failures keep the raw text.
type textExtractor struct{}

func (e *textExtractor) Extract(_ context.Context, content []byte, filename string) (string, models.Metadata, error) {
	text, encoding := decodeText(content)
	ext := strings.ToLower(filepath.Ext(filename))

	details := "Text File (" + ext + ")"
	switch ext {
	case ".md", ".markdown":
		details = "Markdown Document"
	case ".json":
		var parsed any
		if err := json.Unmarshal([]byte(text), &parsed); err == nil {
			if pretty, err := json.MarshalIndent(parsed, "", "  "); err == nil {
				text = string(pretty)
				details = "JSON Document"
			}
		}
	}

	text = strings.TrimSpace(text)
	meta := models.Metadata{
		"encoding":        encoding,
		"character_count": len(text),
		"line_count":      len(strings.Split(text, "\n")),
		"format_details":  details,
	}
	return text, meta, nil
}
