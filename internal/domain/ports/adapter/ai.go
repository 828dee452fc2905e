package adapter

import (
	"context"

	"podcast-content-pipeline/internal/domain/model"
)

// TranscriptionResult is the speech-to-text output of one provider call.
type TranscriptionResult struct {
	Text     string
	Language string
	Segments []model.TranscriptSegment
}

// Usage for a single generation call, as reported by the provider.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// TranscriptionProvider is the port for the external speech-to-text
// capability. episodeRef is the opaque asset reference carried by the job;
// the provider resolves it to audio.
type TranscriptionProvider interface {
	Transcribe(ctx context.Context, episodeRef string) (*TranscriptionResult, error)
}

// GenerationProvider is the port for the external text generation capability.
type GenerationProvider interface {
	Generate(ctx context.Context, system, prompt string) (string, Usage, error)
}
