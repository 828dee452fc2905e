package ai

import (
	"context"
	"fmt"

	"podcast-content-pipeline/internal/domain/model"
	"podcast-content-pipeline/internal/domain/ports/adapter"
)

var (
	_ adapter.TranscriptionProvider = (*NoopProvider)(nil)
	_ adapter.GenerationProvider    = (*NoopProvider)(nil)
)

// NoopProvider returns deterministic canned output for local development
// and demos, so the pipeline runs end to end without provider credentials.
type NoopProvider struct{}

func NewNoopProvider() *NoopProvider { return &NoopProvider{} }

func (n *NoopProvider) Transcribe(ctx context.Context, episodeRef string) (*adapter.TranscriptionResult, error) {
	text := fmt.Sprintf("Placeholder transcript for %s.", episodeRef)
	return &adapter.TranscriptionResult{
		Text:     text,
		Language: "en",
		Segments: []model.TranscriptSegment{
			{StartMs: 0, EndMs: 2000, Text: text},
		},
	}, nil
}

func (n *NoopProvider) Generate(ctx context.Context, system, prompt string) (string, adapter.Usage, error) {
	content := "New episode is live. Listen now!"
	return content, adapter.Usage{PromptTokens: 1, CompletionTokens: 1, TotalTokens: 2}, nil
}
