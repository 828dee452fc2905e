package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"podcast-content-pipeline/internal/domain"
)

type PostStatus string

const (
	PostStatusDraft      PostStatus = "draft"
	PostStatusScheduled  PostStatus = "scheduled"
	PostStatusPublishing PostStatus = "publishing"
	PostStatusPublished  PostStatus = "published"
	PostStatusFailed     PostStatus = "failed"
	PostStatusCancelled  PostStatus = "cancelled"
)

// postTransitions is the single authoritative transition table.
var postTransitions = map[PostStatus][]PostStatus{
	PostStatusDraft:      {PostStatusScheduled, PostStatusCancelled},
	PostStatusScheduled:  {PostStatusPublishing, PostStatusCancelled},
	PostStatusPublishing: {PostStatusPublished, PostStatusScheduled, PostStatusFailed},
}

// CanTransition reports whether from -> to is a legal state machine edge.
func (s PostStatus) CanTransition(to PostStatus) bool {
	for _, next := range postTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further automatic transition occurs.
func (s PostStatus) Terminal() bool {
	return s == PostStatusPublished || s == PostStatusFailed || s == PostStatusCancelled
}

// MarketingPost is one platform-bound piece of generated marketing content.
// A campaign targeting N platforms materializes N posts.
type MarketingPost struct {
	ID             string // ULID: lexicographic order matches creation order
	EpisodeRef     string
	Platform       string
	Content        string
	MediaRefs      []string
	ContentVersion int
	Status         PostStatus
	ScheduledAt    *time.Time
	PublishedAt    *time.Time
	Attempts       int
	IdempotencyKey string
	ExternalPostID string
	LastError      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func NewMarketingPost(episodeRef, platform, content string, mediaRefs []string) (*MarketingPost, error) {
	if episodeRef == "" || platform == "" || content == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &MarketingPost{
		ID:             ulid.Make().String(),
		EpisodeRef:     episodeRef,
		Platform:       platform,
		Content:        content,
		MediaRefs:      mediaRefs,
		ContentVersion: 1,
		Status:         PostStatusDraft,
		IdempotencyKey: IdempotencyKey(episodeRef, platform, 1),
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// IdempotencyKey derives the deterministic duplicate-delivery guard for a
// logical post. Editing content bumps the version and therefore the key.
func IdempotencyKey(episodeRef, platform string, contentVersion int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d", episodeRef, platform, contentVersion)))
	return hex.EncodeToString(sum[:])
}

// TransitionTo moves the post along the state machine, or rejects the move
// with ErrInvalidStateTransition without mutating anything.
func (p *MarketingPost) TransitionTo(to PostStatus) error {
	if !p.Status.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidStateTransition, p.Status, to)
	}
	p.Status = to
	p.UpdatedAt = time.Now()
	return nil
}

// BumpContent replaces the draft body and advances the content version,
// invalidating any stale idempotency key.
func (p *MarketingPost) BumpContent(content string, mediaRefs []string) error {
	if content == "" {
		return domain.ErrInvalidArgument
	}
	if p.Status != PostStatusDraft && p.Status != PostStatusScheduled {
		return fmt.Errorf("%w: content frozen in %s", domain.ErrInvalidStateTransition, p.Status)
	}
	p.Content = content
	p.MediaRefs = mediaRefs
	p.ContentVersion++
	p.IdempotencyKey = IdempotencyKey(p.EpisodeRef, p.Platform, p.ContentVersion)
	p.UpdatedAt = time.Now()
	return nil
}
