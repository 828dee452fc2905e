package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"podcast-content-pipeline/internal/domain"
	"podcast-content-pipeline/internal/domain/model"
	"podcast-content-pipeline/internal/domain/ports/adapter"
	"podcast-content-pipeline/internal/domain/ports/repository"
	"podcast-content-pipeline/internal/infra/metrics"
)

// ReviewUseCase covers the human loop between generation and distribution:
// editing drafts, putting them on the schedule, and pulling them back off.
type ReviewUseCase struct {
	posts    repository.MarketingPostRepository
	events   repository.StatusEventRepository
	registry adapter.Registry
	log      *zerolog.Logger
	now      func() time.Time
}

func NewReviewUseCase(
	posts repository.MarketingPostRepository,
	events repository.StatusEventRepository,
	registry adapter.Registry,
	logger *zerolog.Logger,
) *ReviewUseCase {
	ucLog := logger.With().Str("component", "ReviewUseCase").Logger()
	return &ReviewUseCase{posts: posts, events: events, registry: registry, log: &ucLog, now: time.Now}
}

// SchedulePost validates the draft against its platform and puts it on the
// distribution schedule for `at`.
func (uc *ReviewUseCase) SchedulePost(ctx context.Context, postID string, at time.Time) (*model.MarketingPost, error) {
	if at.Before(uc.now()) {
		return nil, fmt.Errorf("%w: scheduled time is in the past", domain.ErrInvalidArgument)
	}
	post, err := uc.posts.FindByID(ctx, nil, postID)
	if err != nil {
		return nil, err
	}

	pub, err := uc.registry.Resolve(post.Platform)
	if err != nil {
		return nil, err
	}
	if verrs := pub.Validate(post.Content, post.MediaRefs); len(verrs) > 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidArgument, verrs[0].Error())
	}

	// A live post already carries this exact content to this platform.
	active, err := uc.posts.HasActiveForKey(ctx, post.IdempotencyKey, post.ID)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, domain.ErrDuplicateDelivery
	}

	from := post.Status
	if err := post.TransitionTo(model.PostStatusScheduled); err != nil {
		return nil, err
	}
	post.ScheduledAt = &at
	won, err := uc.posts.UpdateIfStatus(ctx, nil, post, from)
	if err != nil {
		return nil, err
	}
	if !won {
		// The row moved on between our read and this write.
		return nil, fmt.Errorf("%w: post changed concurrently", domain.ErrInvalidStateTransition)
	}
	uc.appendEvent(ctx, post.ID, from, model.PostStatusScheduled, "")
	metrics.IncTransition(string(model.PostStatusScheduled))
	uc.log.Info().Str("post_id", post.ID).Time("at", at).Msg("post scheduled")
	return post, nil
}

// CancelPost withdraws a draft or scheduled post from distribution.
func (uc *ReviewUseCase) CancelPost(ctx context.Context, postID string) (*model.MarketingPost, error) {
	post, err := uc.posts.FindByID(ctx, nil, postID)
	if err != nil {
		return nil, err
	}
	from := post.Status
	if err := post.TransitionTo(model.PostStatusCancelled); err != nil {
		return nil, err
	}
	won, err := uc.posts.UpdateIfStatus(ctx, nil, post, from)
	if err != nil {
		return nil, err
	}
	if !won {
		// A dispatcher claimed the post between our read and this write; an
		// in-flight publish cannot be cancelled.
		return nil, fmt.Errorf("%w: post changed concurrently", domain.ErrInvalidStateTransition)
	}
	uc.appendEvent(ctx, post.ID, from, model.PostStatusCancelled, "")
	metrics.IncTransition(string(model.PostStatusCancelled))
	uc.log.Info().Str("post_id", post.ID).Msg("post cancelled")
	return post, nil
}

// UpdateDraftContent replaces the content of an editable post. The content
// version advances so the delivery key of the old content is retired.
func (uc *ReviewUseCase) UpdateDraftContent(ctx context.Context, postID, content string, mediaRefs []string) (*model.MarketingPost, error) {
	post, err := uc.posts.FindByID(ctx, nil, postID)
	if err != nil {
		return nil, err
	}

	pub, err := uc.registry.Resolve(post.Platform)
	if err != nil {
		return nil, err
	}
	if verrs := pub.Validate(content, mediaRefs); len(verrs) > 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidArgument, verrs[0].Error())
	}

	from := post.Status
	if err := post.BumpContent(content, mediaRefs); err != nil {
		return nil, err
	}
	won, err := uc.posts.UpdateIfStatus(ctx, nil, post, from)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, fmt.Errorf("%w: post changed concurrently", domain.ErrInvalidStateTransition)
	}
	uc.log.Info().Str("post_id", post.ID).Int("content_version", post.ContentVersion).Msg("draft content updated")
	return post, nil
}

func (uc *ReviewUseCase) appendEvent(ctx context.Context, postID string, from, to model.PostStatus, errMsg string) {
	ev := model.NewStatusEvent(postID, from, to, errMsg)
	if err := uc.events.Append(ctx, nil, ev); err != nil {
		uc.log.Error().Err(err).Str("post_id", postID).Msg("could not append status event")
	}
}
