package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/xhad/tutor/internal/models"
)

// htmlExtractor strips script/style and renders the remaining markup
// as readable plain text, one line per block element.
type htmlExtractor struct{}

var blockSelectors = "h1, h2, h3, h4, h5, h6, p, li, td, th, pre, blockquote"

func (e *htmlExtractor) Extract(_ context.Context, content []byte, _ string) (string, models.Metadata, error) {
	decoded, encoding := decodeText(content)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(decoded))
	if err != nil {
		return "", nil, fmt.Errorf("parse html: %w", err)
	}

	doc.Find("script, style, noscript").Remove()

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = "No title"
	}

	var sb strings.Builder
	doc.Find(blockSelectors).Each(func(_ int, sel *goquery.Selection) {
		// Skip containers whose text is fully covered by nested blocks.
		if sel.ChildrenFiltered(blockSelectors).Length() > 0 {
			return
		}
		if text := strings.TrimSpace(sel.Text()); text != "" {
			sb.WriteString(text)
			sb.WriteString("\n")
		}
	})

	text := normalizeLines(sb.String())
	if text == "" {
		// Fallback for markup without block structure.
		text = normalizeLines(doc.Find("body").Text())
	}

	meta := models.Metadata{
		"encoding":       encoding,
		"title":          title,
		"format_details": "HTML Document",
	}
	return text, meta, nil
}
