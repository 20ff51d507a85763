package gcp

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/apiv1"

	"github.com/xhad/tutor/pkg/logger"
)

// VisionOCR recognizes document text in images through the Cloud
// Vision API. Satisfies types.OCREngine.
type VisionOCR struct {
	log    *logger.Logger
	client *vision.ImageAnnotatorClient
}

func NewVisionOCR(log *logger.Logger) (*VisionOCR, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	client, err := vision.NewImageAnnotatorClient(context.Background(), ClientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}

	return &VisionOCR{
		log:    log.With("service", "VisionOCR"),
		client: client,
	}, nil
}

func (v *VisionOCR) Close() error {
	if v == nil || v.client == nil {
		return nil
	}
	return v.client.Close()
}

// Recognize runs DOCUMENT_TEXT_DETECTION and returns the full text
// annotation. An image with no recognizable text returns "".
func (v *VisionOCR) Recognize(ctx context.Context, image []byte) (string, error) {
	if len(image) == 0 {
		return "", nil
	}

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	img, err := vision.NewImageFromReader(bytes.NewReader(image))
	if err != nil {
		return "", fmt.Errorf("vision NewImageFromReader: %w", err)
	}

	doc, err := v.client.DetectDocumentText(ctx, img, nil)
	if err != nil {
		return "", fmt.Errorf("vision DetectDocumentText: %w", err)
	}
	if doc == nil {
		return "", nil
	}
	return strings.TrimSpace(doc.Text), nil
}
