package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"podcast-content-pipeline/internal/config"
	"podcast-content-pipeline/internal/domain/model"
	"podcast-content-pipeline/internal/domain/ports/adapter"
)

var _ adapter.PublishAdapter = (*TwitterAdapter)(nil)

// TwitterAdapter publishes through the v2 tweet endpoint.
type TwitterAdapter struct {
	capability model.PlatformCapability
	base       string
	client     *http.Client
}

func NewTwitterAdapter(cfg config.PlatformConfig) (*TwitterAdapter, error) {
	capability := capabilityFromConfig(cfg)
	if capability.MaxContentLength == 0 {
		capability.MaxContentLength = 280
	}
	base := cfg.BaseURL
	if base == "" {
		base = "https://api.twitter.com"
	}
	return &TwitterAdapter{
		capability: capability,
		base:       base,
		client:     &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (t *TwitterAdapter) Platform() string { return t.capability.Name }

func (t *TwitterAdapter) Capability() model.PlatformCapability { return t.capability }

func (t *TwitterAdapter) Validate(content string, mediaRefs []string) []adapter.ValidationError {
	return validateAgainst(t.capability, content, mediaRefs)
}

func (t *TwitterAdapter) Publish(ctx context.Context, post *model.MarketingPost, authToken string) (*adapter.PublishResult, error) {
	body, _ := json.Marshal(struct {
		Text string `json:"text"`
	}{Text: post.Content})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.base+"/2/tweets", bytes.NewReader(body))
	if err != nil {
		return nil, adapter.NewPermanentPublish(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+authToken)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, adapter.NewTransientPublish(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, classifyHTTP("twitter", resp)
	}

	var payload struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		// Delivered but unparseable: retrying would double-post.
		return nil, adapter.NewPermanentPublish(fmt.Errorf("twitter: decode response: %w", err))
	}
	return &adapter.PublishResult{ExternalPostID: payload.Data.ID}, nil
}

// classifyHTTP turns a non-2xx response into a classified publish error.
func classifyHTTP(platform string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	err := fmt.Errorf("%s http %d: %s", platform, resp.StatusCode, body)
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return adapter.NewTransientPublish(err)
	}
	return adapter.NewPermanentPublish(err)
}
