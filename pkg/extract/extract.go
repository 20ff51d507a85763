package extract

import (
	"context"
	"errors"
	"fmt"

	"github.com/xhad/tutor/internal/models"
	"github.com/xhad/tutor/internal/types"
	"github.com/xhad/tutor/pkg/detect"
	"github.com/xhad/tutor/pkg/logger"
)

// ErrCapabilityUnavailable marks extractions that failed because no
// engine is configured for the family (OCR, speech), as opposed to an
// engine that ran and found nothing.
var ErrCapabilityUnavailable = errors.New("capability unavailable")

// Extractor turns raw bytes into normalized text plus metadata.
type Extractor interface {
	Extract(ctx context.Context, content []byte, filename string) (string, models.Metadata, error)
}

// Registry dispatches on detected content family. One extractor per
// family; the detector produces the tag.
type Registry struct {
	log        *logger.Logger
	extractors map[detect.Family]Extractor
}

// NewRegistry wires one extractor per content family. The OCR and
// speech engines may be nil; the image and audio extractors then fail
// with ErrCapabilityUnavailable.
func NewRegistry(log *logger.Logger, ocr types.OCREngine, speech types.SpeechEngine) *Registry {
	rlog := log.With("service", "ExtractorRegistry")
	return &Registry{
		log: rlog,
		extractors: map[detect.Family]Extractor{
			detect.PDF:          &pdfExtractor{log: rlog},
			detect.Word:         &wordExtractor{},
			detect.Spreadsheet:  &spreadsheetExtractor{},
			detect.Presentation: &presentationExtractor{},
			detect.Text:         &textExtractor{},
			detect.Image:        &imageExtractor{ocr: ocr},
			detect.Audio:        &audioExtractor{speech: speech},
			detect.Web:          &htmlExtractor{},
		},
	}
}

// Extract classifies the payload and runs the matching extractor. The
// returned metadata always carries filename, file_type and file_size in
// addition to the extractor's own fields.
func (r *Registry) Extract(ctx context.Context, content []byte, filename string) (string, models.Metadata, error) {
	family := detect.Detect(filename, content)
	ex, ok := r.extractors[family]
	if !ok {
		return "", nil, fmt.Errorf("no extractor for family %q", family)
	}

	text, meta, err := ex.Extract(ctx, content, filename)
	if err != nil {
		return "", nil, fmt.Errorf("extract %s (%s): %w", filename, family, err)
	}
	if meta == nil {
		meta = models.Metadata{}
	}
	meta["filename"] = filename
	meta["file_type"] = string(family)
	meta["file_size"] = len(content)
	return text, meta, nil
}
