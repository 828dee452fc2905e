package platform

import (
	"context"

	"podcast-content-pipeline/internal/config"
	"podcast-content-pipeline/internal/domain/model"
	"podcast-content-pipeline/internal/domain/ports/adapter"
)

var _ adapter.PublishAdapter = (*NoopAdapter)(nil)

// NoopAdapter accepts every publish without an outbound call, for local
// development and demos.
type NoopAdapter struct {
	capability model.PlatformCapability
}

func NewNoopAdapter(cfg config.PlatformConfig) *NoopAdapter {
	return &NoopAdapter{capability: capabilityFromConfig(cfg)}
}

func (n *NoopAdapter) Platform() string { return n.capability.Name }

func (n *NoopAdapter) Capability() model.PlatformCapability { return n.capability }

func (n *NoopAdapter) Validate(content string, mediaRefs []string) []adapter.ValidationError {
	return validateAgainst(n.capability, content, mediaRefs)
}

func (n *NoopAdapter) Publish(ctx context.Context, post *model.MarketingPost, authToken string) (*adapter.PublishResult, error) {
	return &adapter.PublishResult{ExternalPostID: "noop-" + post.ID}, nil
}
