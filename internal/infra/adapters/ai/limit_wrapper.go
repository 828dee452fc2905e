package ai

import (
	"context"

	"podcast-content-pipeline/internal/domain/ports/adapter"
)

// Limiter bounds concurrent AI provider calls across both capabilities with
// one shared semaphore, so a transcription burst cannot starve generation
// of provider quota and vice versa.
type Limiter struct {
	sem chan struct{}
}

func NewLimiter(maxConcurrent int) *Limiter {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Limiter{sem: make(chan struct{}, maxConcurrent)}
}

func (l *Limiter) acquire(ctx context.Context) error {
	select {
	case l.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Limiter) release() { <-l.sem }

var _ adapter.TranscriptionProvider = (*limitedTranscription)(nil)

type limitedTranscription struct {
	inner adapter.TranscriptionProvider
	l     *Limiter
}

// Transcription wraps a provider so its calls count against the limiter.
func (l *Limiter) Transcription(inner adapter.TranscriptionProvider) adapter.TranscriptionProvider {
	return &limitedTranscription{inner: inner, l: l}
}

func (t *limitedTranscription) Transcribe(ctx context.Context, episodeRef string) (*adapter.TranscriptionResult, error) {
	if err := t.l.acquire(ctx); err != nil {
		return nil, err
	}
	defer t.l.release()
	return t.inner.Transcribe(ctx, episodeRef)
}

var _ adapter.GenerationProvider = (*limitedGeneration)(nil)

type limitedGeneration struct {
	inner adapter.GenerationProvider
	l     *Limiter
}

// Generation wraps a provider so its calls count against the limiter.
func (l *Limiter) Generation(inner adapter.GenerationProvider) adapter.GenerationProvider {
	return &limitedGeneration{inner: inner, l: l}
}

func (g *limitedGeneration) Generate(ctx context.Context, system, prompt string) (string, adapter.Usage, error) {
	if err := g.l.acquire(ctx); err != nil {
		return "", adapter.Usage{}, err
	}
	defer g.l.release()
	return g.inner.Generate(ctx, system, prompt)
}
