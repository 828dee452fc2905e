package adapter

import (
	"context"
	"fmt"

	"podcast-content-pipeline/internal/domain/model"
)

// ValidationError reports one platform-constraint violation. Always
// permanent: it blocks scheduling and publication without retry.
type ValidationError struct {
	Field  string
	Reason string
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", v.Field, v.Reason)
}

// PublishResult is the successful outcome of one outbound publish call.
type PublishResult struct {
	ExternalPostID string
}

// PublishError classifies a failed publish call. Transient errors re-enter
// the schedule with backoff; permanent ones fail the post terminally.
type PublishError struct {
	Transient bool
	Err       error
}

func (e *PublishError) Error() string {
	if e.Transient {
		return "transient publish error: " + e.Err.Error()
	}
	return "permanent publish error: " + e.Err.Error()
}

func (e *PublishError) Unwrap() error { return e.Err }

func NewTransientPublish(err error) *PublishError {
	return &PublishError{Transient: true, Err: err}
}

func NewPermanentPublish(err error) *PublishError {
	return &PublishError{Transient: false, Err: err}
}

// PublishAdapter wraps one external publishing destination behind a uniform
// capability. Adding a destination means registering a new adapter, not
// touching the dispatcher.
type PublishAdapter interface {
	Platform() string
	Capability() model.PlatformCapability
	// Validate checks content against the platform's static constraints.
	Validate(content string, mediaRefs []string) []ValidationError
	// Publish sends the post using the resolved credential. Errors must be
	// *PublishError so the dispatcher can classify them.
	Publish(ctx context.Context, post *model.MarketingPost, authToken string) (*PublishResult, error)
}

// Registry resolves adapters by platform identifier at dispatch time.
type Registry interface {
	Resolve(platform string) (PublishAdapter, error)
	Platforms() []string
}
