package ai

import (
	"context"
	"errors"

	"google.golang.org/genai"

	"podcast-content-pipeline/internal/domain"
	"podcast-content-pipeline/internal/domain/ports/adapter"
)

var _ adapter.GenerationProvider = (*GeminiProvider)(nil)

// GeminiProvider generates marketing copy through the Gemini API. It has no
// transcription endpoint, so deployments using it pair it with another
// TranscriptionProvider.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

func NewGeminiProvider(ctx context.Context, apiKey, baseURL, model string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, err
	}
	return &GeminiProvider{client: c, model: model}, nil
}

func (g *GeminiProvider) Generate(ctx context.Context, system, prompt string) (string, adapter.Usage, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		},
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
	if err != nil {
		// The SDK does not expose the HTTP status cleanly; assume transient
		// and let the retry budget decide.
		return "", adapter.Usage{}, domain.NewTransientProcessing(err)
	}

	text := ""
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil && len(resp.Candidates[0].Content.Parts) > 0 {
		text = resp.Candidates[0].Content.Parts[0].Text
	}
	if text == "" {
		return "", adapter.Usage{}, domain.NewPermanentProcessing(errors.New("gemini: empty candidate"))
	}

	usage := adapter.Usage{}
	if resp.UsageMetadata != nil {
		usage.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		usage.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		usage.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	return text, usage, nil
}
