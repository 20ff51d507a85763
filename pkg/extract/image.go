package extract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"strings"

	// Register decoders for dimension probing.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/xhad/tutor/internal/models"
	"github.com/xhad/tutor/internal/types"
)

// NoTextPlaceholder is returned when OCR ran but recognized nothing,
// so callers can tell "empty image" apart from a failed extraction.
const NoTextPlaceholder = "[No text found in image]"

type imageExtractor struct {
	ocr types.OCREngine
}

func (e *imageExtractor) Extract(ctx context.Context, content []byte, _ string) (string, models.Metadata, error) {
	if e.ocr == nil {
		return "", nil, fmt.Errorf("ocr engine not configured: %w", ErrCapabilityUnavailable)
	}

	meta := models.Metadata{"format_details": "Image with OCR"}
	if cfg, format, err := image.DecodeConfig(bytes.NewReader(content)); err == nil {
		meta["image_width"] = cfg.Width
		meta["image_height"] = cfg.Height
		meta["image_format"] = format
		meta["format_details"] = fmt.Sprintf("Image with OCR (%s)", strings.ToUpper(format))
	}

	text, err := e.ocr.Recognize(ctx, content)
	if err != nil {
		return "", nil, fmt.Errorf("ocr: %w", err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		text = NoTextPlaceholder
	}
	return text, meta, nil
}
