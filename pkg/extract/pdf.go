package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/xhad/tutor/internal/models"
	"github.com/xhad/tutor/pkg/logger"
)

type pdfExtractor struct {
	log *logger.Logger
}

// Extract walks pages in order and concatenates their text, each page
// prefixed with a marker. A page that fails on its own is logged and
// skipped; only an empty final result fails the extraction.
func (e *pdfExtractor) Extract(_ context.Context, content []byte, filename string) (string, models.Metadata, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", nil, fmt.Errorf("open pdf: %w", err)
	}

	pageCount := reader.NumPage()
	if pageCount == 0 {
		return "", nil, fmt.Errorf("pdf contains no pages")
	}

	var sb strings.Builder
	for num := 1; num <= pageCount; num++ {
		page := reader.Page(num)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			e.log.Warn("could not extract pdf page, skipping",
				"filename", filename, "page", num, "error", err)
			continue
		}
		if strings.TrimSpace(pageText) == "" {
			continue
		}
		fmt.Fprintf(&sb, "\n--- Page %d ---\n", num)
		sb.WriteString(pageText)
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", nil, fmt.Errorf("no text could be extracted from pdf (scanned or image-based?)")
	}

	meta := models.Metadata{
		"page_count":     pageCount,
		"format_details": "PDF Document",
	}
	return text, meta, nil
}
