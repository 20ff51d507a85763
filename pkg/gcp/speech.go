package gcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/xhad/tutor/pkg/logger"
)

// SpeechTranscriber turns uploaded audio into text through the Cloud
// Speech-to-Text API. Satisfies types.SpeechEngine.
type SpeechTranscriber struct {
	log    *logger.Logger
	client *speech.Client
}

func NewSpeechTranscriber(log *logger.Logger) (*SpeechTranscriber, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	client, err := speech.NewClient(context.Background(), ClientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("speech client: %w", err)
	}

	return &SpeechTranscriber{
		log:    log.With("service", "SpeechTranscriber"),
		client: client,
	}, nil
}

func (s *SpeechTranscriber) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

// Transcribe runs a long-running recognition over the full clip and
// joins all result alternatives into one transcript.
func (s *SpeechTranscriber) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, float64, error) {
	if len(audio) == 0 {
		return "", 0, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Minute)
	defer cancel()

	req := &speechpb.LongRunningRecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			LanguageCode:               "en-US",
			Encoding:                   encodingForMime(mimeType),
			EnableAutomaticPunctuation: true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	}

	op, err := s.client.LongRunningRecognize(ctx, req)
	if err != nil {
		return "", 0, fmt.Errorf("speech longrunningrecognize: %w", err)
	}
	resp, err := op.Wait(ctx)
	if err != nil {
		return "", 0, fmt.Errorf("speech operation wait: %w", err)
	}

	var full strings.Builder
	var duration float64
	for _, r := range resp.GetResults() {
		if r == nil || len(r.Alternatives) == 0 || r.Alternatives[0] == nil {
			continue
		}
		transcript := strings.TrimSpace(r.Alternatives[0].Transcript)
		if transcript == "" {
			continue
		}
		if full.Len() > 0 {
			full.WriteString(" ")
		}
		full.WriteString(transcript)
		if end := durToSec(r.ResultEndTime); end > duration {
			duration = end
		}
	}

	return strings.TrimSpace(full.String()), duration, nil
}

func encodingForMime(mimeType string) speechpb.RecognitionConfig_AudioEncoding {
	m := strings.ToLower(strings.TrimSpace(mimeType))
	switch {
	case strings.Contains(m, "wav"):
		return speechpb.RecognitionConfig_LINEAR16
	case strings.Contains(m, "flac"):
		return speechpb.RecognitionConfig_FLAC
	case strings.Contains(m, "mpeg") || strings.Contains(m, "mp3"):
		return speechpb.RecognitionConfig_MP3
	case strings.Contains(m, "ogg") || strings.Contains(m, "opus"):
		return speechpb.RecognitionConfig_OGG_OPUS
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED
	}
}

func durToSec(d *durationpb.Duration) float64 {
	if d == nil {
		return 0
	}
	return float64(d.Seconds) + float64(d.Nanos)/1e9
}
