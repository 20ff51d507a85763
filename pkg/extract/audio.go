package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xhad/tutor/internal/models"
	"github.com/xhad/tutor/internal/types"
)

type audioExtractor struct {
	speech types.SpeechEngine
}

var audioMimeByExt = map[string]string{
	".wav":  "audio/wav",
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".flac": "audio/flac",
	".aac":  "audio/aac",
}

func (e *audioExtractor) Extract(ctx context.Context, content []byte, filename string) (string, models.Metadata, error) {
	if e.speech == nil {
		return "", nil, fmt.Errorf("speech engine not configured: %w", ErrCapabilityUnavailable)
	}

	mimeType := audioMimeByExt[strings.ToLower(filepath.Ext(filename))]
	if mimeType == "" {
		mimeType = "audio/wav"
	}

	text, duration, err := e.speech.Transcribe(ctx, content, mimeType)
	if err != nil {
		return "", nil, fmt.Errorf("transcribe: %w", err)
	}

	meta := models.Metadata{
		"duration_seconds": duration,
		"format_details":   "Audio Transcription",
	}
	return strings.TrimSpace(text), meta, nil
}
