package ai

import (
	"context"
	"fmt"

	"github.com/ribotflow/backend/internal/domain/transcription"
	"github.com/ribotflow/backend/internal/infrastructure/config"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const transcriptionPrompt = `Transcribe the recording of a business conversation in its original language.
Answer with a single JSON object and nothing else:
{
  "transcript": string,
  "summary": string of at most five sentences,
  "participants": [string],
  "key_moments": [{"timestamp": "mm:ss", "description": string}],
  "dialogue": [{"speaker": string, "text": string, "start_seconds": number}]
}`

// AudioTranscriber turns recordings into a transcript and analysis
type AudioTranscriber struct {
	gen      generator
	model    string
	maxBytes int64
	logger   *zap.Logger
}

// NewAudioTranscriber creates a transcriber using cfg.AudioModel
func NewAudioTranscriber(gen *GenAIGenerator, cfg config.AIConfig, logger *zap.Logger) *AudioTranscriber {
	if gen == nil {
		return newAudioTranscriber(nil, cfg, logger)
	}
	return newAudioTranscriber(gen, cfg, logger)
}

func newAudioTranscriber(gen generator, cfg config.AIConfig, logger *zap.Logger) *AudioTranscriber {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AudioTranscriber{gen: gen, model: cfg.AudioModel, maxBytes: cfg.MaxAudioBytes, logger: logger}
}

// Transcribe sends the audio inline and parses the analysis
func (t *AudioTranscriber) Transcribe(ctx context.Context, audio []byte, contentType string) (transcription.Analysis, error) {
	if t.gen == nil {
		return transcription.Analysis{}, ErrDisabled
	}
	if !transcription.IsSupportedAudio(contentType) {
		return transcription.Analysis{}, fmt.Errorf("ai: unsupported audio type %q", contentType)
	}
	if t.maxBytes > 0 && int64(len(audio)) > t.maxBytes {
		return transcription.Analysis{}, fmt.Errorf("ai: audio is %d bytes, limit is %d", len(audio), t.maxBytes)
	}

	raw, err := t.gen.GenerateJSON(ctx, t.model, transcriptionPrompt, []*genai.Part{
		genai.NewPartFromText("Transcribe and analyse this recording."),
		genai.NewPartFromBytes(audio, contentType),
	})
	if err != nil {
		return transcription.Analysis{}, err
	}
	analysis, err := ParseAnalysis(raw)
	if err != nil {
		return transcription.Analysis{}, err
	}
	t.logger.Debug("Recording transcribed",
		zap.Int("characters", len(analysis.Transcript)),
		zap.Int("turns", len(analysis.Dialogue)))
	return analysis, nil
}
