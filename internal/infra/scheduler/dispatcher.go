package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"podcast-content-pipeline/internal/config"
	"podcast-content-pipeline/internal/domain/model"
	"podcast-content-pipeline/internal/domain/ports/adapter"
	"podcast-content-pipeline/internal/domain/ports/repository"
	"podcast-content-pipeline/internal/infra/logging"
	"podcast-content-pipeline/internal/infra/metrics"
)

// RateLimiter is the minimal limiter surface the dispatcher needs.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// IdempotencyGuard reserves a delivery key for the duration of one publish
// attempt so concurrent dispatchers cannot double-send the same post.
type IdempotencyGuard interface {
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Complete(ctx context.Context, key string) error
	Release(ctx context.Context, key string) error
}

func rateLimitKey(platform string) string { return "publish_rate:" + platform }

// Dispatcher drives due posts through publication. Multiple instances can
// run concurrently against the same database: the scheduled -> publishing
// compare-and-set decides which instance owns a post.
type Dispatcher struct {
	posts    repository.MarketingPostRepository
	events   repository.StatusEventRepository
	registry adapter.Registry
	creds    adapter.CredentialStore
	limiter  RateLimiter
	idem     IdempotencyGuard
	retry    model.RetryPolicy
	cfg      config.SchedulerConfig
	log      *zerolog.Logger
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func NewDispatcher(
	posts repository.MarketingPostRepository,
	events repository.StatusEventRepository,
	registry adapter.Registry,
	creds adapter.CredentialStore,
	limiter RateLimiter,
	idem IdempotencyGuard,
	cfg config.SchedulerConfig,
	logger *zerolog.Logger,
) *Dispatcher {
	dispLog := logger.With().Str("component", "Dispatcher").Logger()
	return &Dispatcher{
		posts:    posts,
		events:   events,
		registry: registry,
		creds:    creds,
		limiter:  limiter,
		idem:     idem,
		retry: model.RetryPolicy{
			Base:        cfg.BackoffBase,
			Cap:         cfg.BackoffCap,
			MaxAttempts: cfg.MaxAttempts,
		},
		cfg:  cfg,
		log:  &dispLog,
		now:  time.Now,
		done: make(chan struct{}),
	}
}

// Start begins the dispatch loop in a background goroutine. Calling Start
// more than once has no effect.
func (d *Dispatcher) Start(parentCtx context.Context) {
	if d.ctx != nil {
		return
	}
	d.ctx, d.cancel = context.WithCancel(parentCtx)
	go d.loop()
}

func (d *Dispatcher) loop() {
	ticker := time.NewTicker(d.cfg.Interval)
	defer func() {
		ticker.Stop()
		close(d.done)
	}()

	d.log.Info().Dur("interval", d.cfg.Interval).Msg("dispatcher started")
	for {
		select {
		case <-d.ctx.Done():
			d.log.Info().Msg("dispatcher stopping")
			return
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(d.ctx, d.cfg.Interval*4)
			d.runCycle(runCtx)
			cancel()
		}
	}
}

// Stop cancels the dispatcher and waits for the loop to finish.
func (d *Dispatcher) Stop() {
	if d.cancel == nil {
		return
	}
	d.cancel()
	<-d.done
}

// runCycle publishes every due post the per-platform budgets allow.
func (d *Dispatcher) runCycle(ctx context.Context) {
	defer logging.TraceDuration(d.log, "Dispatcher.runCycle")()

	d.recoverStuck(ctx)

	due, err := d.posts.FindDue(ctx, d.now(), d.cfg.Batch)
	if err != nil {
		d.log.Error().Err(err).Msg("could not list due posts")
		return
	}
	if len(due) == 0 {
		return
	}

	// Due order is preserved within each platform; platforms are visited in
	// a fixed order so concurrent instances contend predictably.
	byPlatform := make(map[string][]*model.MarketingPost)
	for _, p := range due {
		byPlatform[p.Platform] = append(byPlatform[p.Platform], p)
	}
	platforms := make([]string, 0, len(byPlatform))
	for name := range byPlatform {
		platforms = append(platforms, name)
	}
	sort.Strings(platforms)

	for _, platform := range platforms {
		pub, err := d.registry.Resolve(platform)
		if err != nil {
			d.log.Error().Err(err).Str("platform", platform).Msg("no adapter for platform")
			for _, post := range byPlatform[platform] {
				d.claimAndFail(ctx, post, err.Error())
			}
			continue
		}
		capability := pub.Capability()
		for _, post := range byPlatform[platform] {
			allowed, err := d.limiter.Allow(ctx, rateLimitKey(platform), capability.RateLimit, capability.RateWindow)
			if err != nil {
				d.log.Error().Err(err).Str("platform", platform).Msg("rate limiter error")
				break
			}
			if !allowed {
				// Budget spent; everything later in the due order waits too.
				metrics.IncRateLimitDeferral(platform)
				break
			}
			d.dispatchOne(ctx, post, pub)
		}
	}
}

// recoverStuck returns orphaned publishing claims to the schedule. A healthy
// attempt touches updated_at well within 4x the publish timeout; anything
// older belongs to an instance that died mid-dispatch.
func (d *Dispatcher) recoverStuck(ctx context.Context) {
	cutoff := d.now().Add(-4 * d.cfg.PublishTimeout)
	ids, err := d.posts.RecoverStuckPublishing(ctx, cutoff, d.cfg.Batch)
	if err != nil {
		d.log.Error().Err(err).Msg("could not recover stuck posts")
		return
	}
	for _, id := range ids {
		d.appendEvent(id, model.PostStatusPublishing, model.PostStatusScheduled, "publish attempt abandoned")
		metrics.IncTransition(string(model.PostStatusScheduled))
		d.log.Warn().Str("post_id", id).Msg("orphaned publishing post returned to schedule")
	}
}

func (d *Dispatcher) dispatchOne(ctx context.Context, post *model.MarketingPost, pub adapter.PublishAdapter) {
	ctx = logging.WithPostID(ctx, post.ID)
	log := logging.With(ctx, d.log)

	reserved, err := d.idem.Reserve(ctx, post.IdempotencyKey, 2*d.cfg.PublishTimeout)
	if err != nil {
		log.Error().Err(err).Msg("idempotency reserve error")
		return
	}
	if !reserved {
		// In flight elsewhere, or already delivered under this key.
		log.Warn().Str("platform", post.Platform).Msg("delivery key unavailable, post skipped this cycle")
		return
	}

	won, err := d.posts.UpdateStatusCAS(ctx, post.ID, model.PostStatusScheduled, model.PostStatusPublishing)
	if err != nil {
		log.Error().Err(err).Msg("claim failed")
		d.release(post)
		return
	}
	if !won {
		// Another instance claimed it, or the post was cancelled in between.
		d.release(post)
		return
	}
	post.Status = model.PostStatusPublishing
	d.appendEvent(post.ID, model.PostStatusScheduled, model.PostStatusPublishing, "")
	metrics.IncTransition(string(model.PostStatusPublishing))

	// Constraints may have tightened since scheduling; re-check before the
	// network call.
	if verrs := pub.Validate(post.Content, post.MediaRefs); len(verrs) > 0 {
		d.release(post)
		d.failPost(ctx, post, fmt.Sprintf("validation: %v", verrs[0]))
		return
	}

	token, err := d.creds.Resolve(ctx, pub.Capability().AuthRef)
	if err != nil {
		d.release(post)
		d.failPost(ctx, post, fmt.Sprintf("credential resolution: %v", err))
		return
	}

	post.Attempts++
	callCtx, cancel := context.WithTimeout(ctx, d.cfg.PublishTimeout)
	start := d.now()
	result, err := pub.Publish(callCtx, post, token)
	cancel()
	latencyMs := int(time.Since(start) / time.Millisecond)

	if err == nil {
		metrics.ObservePublish(post.Platform, "published", latencyMs)
		d.markPublished(ctx, post, result.ExternalPostID)
		return
	}

	if isTransientPublish(err) {
		metrics.ObservePublish(post.Platform, "transient", latencyMs)
		d.release(post)
		d.retryOrFail(ctx, post, err)
		return
	}

	metrics.ObservePublish(post.Platform, "permanent", latencyMs)
	d.release(post)
	d.failPost(ctx, post, err.Error())
}

func (d *Dispatcher) markPublished(ctx context.Context, post *model.MarketingPost, externalID string) {
	log := logging.With(ctx, d.log)

	if err := post.TransitionTo(model.PostStatusPublished); err != nil {
		log.Error().Err(err).Msg("illegal transition to published")
		return
	}
	now := d.now()
	post.PublishedAt = &now
	post.ExternalPostID = externalID
	post.LastError = ""
	if err := d.posts.Save(ctx, nil, post); err != nil {
		// The delivery happened; the completed marker below still blocks a
		// duplicate send while the row is stale.
		log.Error().Err(err).Msg("could not persist published post")
	}
	if err := d.idem.Complete(context.Background(), post.IdempotencyKey); err != nil {
		log.Error().Err(err).Msg("could not mark delivery key completed")
	}
	d.appendEvent(post.ID, model.PostStatusPublishing, model.PostStatusPublished, "")
	metrics.IncTransition(string(model.PostStatusPublished))
	log.Info().Str("platform", post.Platform).Str("external_post_id", externalID).
		Int("attempts", post.Attempts).Msg("post published")
}

// retryOrFail puts a transiently failed post back on the schedule with
// backoff, or fails it once attempts are exhausted.
func (d *Dispatcher) retryOrFail(ctx context.Context, post *model.MarketingPost, cause error) {
	log := logging.With(ctx, d.log)

	retry, delay := d.retry.NextAttempt(post.Attempts)
	if !retry {
		d.failPost(ctx, post, fmt.Sprintf("retries exhausted: %v", cause))
		return
	}

	if err := post.TransitionTo(model.PostStatusScheduled); err != nil {
		log.Error().Err(err).Msg("illegal transition back to scheduled")
		return
	}
	next := d.now().Add(delay)
	post.ScheduledAt = &next
	post.LastError = cause.Error()
	if err := d.posts.Save(ctx, nil, post); err != nil {
		log.Error().Err(err).Msg("could not persist rescheduled post")
		return
	}
	d.appendEvent(post.ID, model.PostStatusPublishing, model.PostStatusScheduled, cause.Error())
	metrics.IncTransition(string(model.PostStatusScheduled))
	log.Warn().Err(cause).Dur("retry_after", delay).Int("attempts", post.Attempts).
		Msg("transient publish failure, post rescheduled")
}

func (d *Dispatcher) failPost(ctx context.Context, post *model.MarketingPost, reason string) {
	log := logging.With(ctx, d.log)

	if err := post.TransitionTo(model.PostStatusFailed); err != nil {
		log.Error().Err(err).Msg("illegal transition to failed")
		return
	}
	post.LastError = reason
	if err := d.posts.Save(ctx, nil, post); err != nil {
		log.Error().Err(err).Msg("could not persist failed post")
		return
	}
	d.appendEvent(post.ID, model.PostStatusPublishing, model.PostStatusFailed, reason)
	metrics.IncTransition(string(model.PostStatusFailed))
	log.Error().Str("reason", reason).Int("attempts", post.Attempts).Msg("post failed terminally")
}

// claimAndFail fails a post whose platform has no adapter. The claim keeps
// the state machine path legal (scheduled -> publishing -> failed).
func (d *Dispatcher) claimAndFail(ctx context.Context, post *model.MarketingPost, reason string) {
	won, err := d.posts.UpdateStatusCAS(ctx, post.ID, model.PostStatusScheduled, model.PostStatusPublishing)
	if err != nil || !won {
		return
	}
	post.Status = model.PostStatusPublishing
	d.appendEvent(post.ID, model.PostStatusScheduled, model.PostStatusPublishing, "")
	d.failPost(ctx, post, reason)
}

func (d *Dispatcher) release(post *model.MarketingPost) {
	if err := d.idem.Release(context.Background(), post.IdempotencyKey); err != nil {
		d.log.Error().Err(err).Str("post_id", post.ID).Msg("could not release delivery key")
	}
}

func (d *Dispatcher) appendEvent(postID string, from, to model.PostStatus, errMsg string) {
	ev := model.NewStatusEvent(postID, from, to, errMsg)
	if err := d.events.Append(context.Background(), nil, ev); err != nil {
		d.log.Error().Err(err).Str("post_id", postID).Msg("could not append status event")
	}
}

// isTransientPublish classifies adapter errors. A deadline hit on the
// bounded publish call counts as transient.
func isTransientPublish(err error) bool {
	var pe *adapter.PublishError
	if errors.As(err, &pe) {
		return pe.Transient
	}
	return errors.Is(err, context.DeadlineExceeded)
}
