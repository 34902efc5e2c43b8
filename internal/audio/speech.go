package audio

import (
	"context"

	"memochat-backend/internal/gemini"
)

// GeminiTranscriber and GeminiSynthesizer bind the pipeline to the vendor
// speech endpoints with the fixed models and voice from the catalog.

type GeminiTranscriber struct {
	client *gemini.Client
	model  string
}

func NewGeminiTranscriber(client *gemini.Client, model string) *GeminiTranscriber {
	return &GeminiTranscriber{client: client, model: model}
}

func (t *GeminiTranscriber) Transcribe(ctx context.Context, mimeType string, audio []byte) (string, error) {
	return t.client.Transcribe(ctx, t.model, mimeType, audio)
}

type GeminiSynthesizer struct {
	client *gemini.Client
	model  string
	voice  string
}

func NewGeminiSynthesizer(client *gemini.Client, model, voice string) *GeminiSynthesizer {
	return &GeminiSynthesizer{client: client, model: model, voice: voice}
}

func (s *GeminiSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	return s.client.Synthesize(ctx, s.model, s.voice, text)
}
