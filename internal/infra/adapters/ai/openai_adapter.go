package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"podcast-content-pipeline/internal/domain"
	"podcast-content-pipeline/internal/domain/model"
	"podcast-content-pipeline/internal/domain/ports/adapter"
)

var (
	_ adapter.TranscriptionProvider = (*OpenAIProvider)(nil)
	_ adapter.GenerationProvider    = (*OpenAIProvider)(nil)
)

// OpenAIProvider serves both pipeline AI capabilities: Whisper for
// transcription and Chat Completions for marketing copy.
type OpenAIProvider struct {
	client          openai.Client
	apiKey          string
	base            string // e.g. https://api.openai.com/v1
	chatModel       string
	transcribeModel string
	httpClient      *http.Client
}

func NewOpenAIProvider(apiKey, baseURL, chatModel, transcribeModel string) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if chatModel == "" {
		chatModel = "gpt-4o-mini"
	}
	if transcribeModel == "" {
		transcribeModel = "whisper-1"
	}
	return &OpenAIProvider{
		client: openai.NewClient(
			option.WithAPIKey(apiKey),
			option.WithBaseURL(baseURL),
		),
		apiKey:          apiKey,
		base:            baseURL,
		chatModel:       chatModel,
		transcribeModel: transcribeModel,
		httpClient:      &http.Client{Timeout: 5 * time.Minute},
	}, nil
}

func (o *OpenAIProvider) Generate(ctx context.Context, system, prompt string) (string, adapter.Usage, error) {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.chatModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", adapter.Usage{}, classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", adapter.Usage{}, domain.NewPermanentProcessing(errors.New("openai: no choice content"))
	}
	usage := adapter.Usage{
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:      int(resp.Usage.TotalTokens),
	}
	return resp.Choices[0].Message.Content, usage, nil
}

// whisperVerbose is the verbose_json transcription payload, which carries
// the per-segment timing the generation stage and dashboards rely on.
type whisperVerbose struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Segments []struct {
		Start float64 `json:"start"` // seconds
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// Transcribe resolves episodeRef as a local audio file path and runs it
// through the transcription endpoint.
func (o *OpenAIProvider) Transcribe(ctx context.Context, episodeRef string) (*adapter.TranscriptionResult, error) {
	f, err := os.Open(episodeRef)
	if err != nil {
		return nil, domain.NewPermanentProcessing(fmt.Errorf("open audio: %w", err))
	}
	defer f.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		defer pw.Close()
		defer mw.Close()
		part, err := mw.CreateFormFile("file", filepath.Base(episodeRef))
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, f); err != nil {
			pw.CloseWithError(err)
			return
		}
		_ = mw.WriteField("model", o.transcribeModel)
		_ = mw.WriteField("response_format", "verbose_json")
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.base+"/audio/transcriptions", pr)
	if err != nil {
		return nil, domain.NewPermanentProcessing(err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		// Network failures and timeouts are worth another attempt.
		return nil, domain.NewTransientProcessing(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("openai transcription http %d: %s", resp.StatusCode, body)
		if transientStatus(resp.StatusCode) {
			return nil, domain.NewTransientProcessing(err)
		}
		return nil, domain.NewPermanentProcessing(err)
	}

	var payload whisperVerbose
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, domain.NewTransientProcessing(err)
	}

	result := &adapter.TranscriptionResult{
		Text:     payload.Text,
		Language: payload.Language,
		Segments: make([]model.TranscriptSegment, 0, len(payload.Segments)),
	}
	for _, s := range payload.Segments {
		result.Segments = append(result.Segments, model.TranscriptSegment{
			StartMs: int64(s.Start * 1000),
			EndMs:   int64(s.End * 1000),
			Text:    s.Text,
		})
	}
	return result, nil
}

func transientStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if transientStatus(apiErr.StatusCode) {
			return domain.NewTransientProcessing(err)
		}
		return domain.NewPermanentProcessing(err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.NewTransientProcessing(err)
	}
	// Anything without an HTTP status is assumed to be a network problem.
	return domain.NewTransientProcessing(err)
}
