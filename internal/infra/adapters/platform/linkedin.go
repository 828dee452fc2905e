package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"podcast-content-pipeline/internal/config"
	"podcast-content-pipeline/internal/domain/model"
	"podcast-content-pipeline/internal/domain/ports/adapter"
)

var _ adapter.PublishAdapter = (*LinkedInAdapter)(nil)

// LinkedInAdapter publishes UGC posts on behalf of the organization URN
// configured as the channel.
type LinkedInAdapter struct {
	capability model.PlatformCapability
	base       string
	authorURN  string
	client     *http.Client
}

func NewLinkedInAdapter(cfg config.PlatformConfig) (*LinkedInAdapter, error) {
	if cfg.Channel == "" {
		return nil, errors.New("linkedin: channel (author URN) is required")
	}
	capability := capabilityFromConfig(cfg)
	if capability.MaxContentLength == 0 {
		capability.MaxContentLength = 3000
	}
	base := cfg.BaseURL
	if base == "" {
		base = "https://api.linkedin.com"
	}
	return &LinkedInAdapter{
		capability: capability,
		base:       base,
		authorURN:  cfg.Channel,
		client:     &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (l *LinkedInAdapter) Platform() string { return l.capability.Name }

func (l *LinkedInAdapter) Capability() model.PlatformCapability { return l.capability }

func (l *LinkedInAdapter) Validate(content string, mediaRefs []string) []adapter.ValidationError {
	return validateAgainst(l.capability, content, mediaRefs)
}

func (l *LinkedInAdapter) Publish(ctx context.Context, post *model.MarketingPost, authToken string) (*adapter.PublishResult, error) {
	payload := map[string]interface{}{
		"author":         l.authorURN,
		"lifecycleState": "PUBLISHED",
		"specificContent": map[string]interface{}{
			"com.linkedin.ugc.ShareContent": map[string]interface{}{
				"shareCommentary": map[string]string{
					"text": post.Content,
				},
				"shareMediaCategory": "NONE",
			},
		},
		"visibility": map[string]string{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.base+"/v2/ugcPosts", bytes.NewReader(body))
	if err != nil {
		return nil, adapter.NewPermanentPublish(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+authToken)
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, adapter.NewTransientPublish(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, classifyHTTP("linkedin", resp)
	}

	// The created URN comes back in a header; fall back to the body id.
	if id := resp.Header.Get("X-Restli-Id"); id != "" {
		return &adapter.PublishResult{ExternalPostID: id}, nil
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil || created.ID == "" {
		return nil, adapter.NewPermanentPublish(fmt.Errorf("linkedin: response carried no post id"))
	}
	return &adapter.PublishResult{ExternalPostID: created.ID}, nil
}
