package repository

import (
	"context"
	"time"

	"podcast-content-pipeline/internal/domain/model"
)

type MarketingPostRepository interface {
	Save(ctx context.Context, tx Tx, post *model.MarketingPost) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.MarketingPost, error)
	FindByEpisodeRef(ctx context.Context, tx Tx, episodeRef string) ([]*model.MarketingPost, error)
	// FindDue returns posts with status=scheduled and scheduledAt <= now,
	// ordered by (scheduledAt, id) ascending for deterministic dispatch.
	FindDue(ctx context.Context, now time.Time, limit int) ([]*model.MarketingPost, error)
	// UpdateStatusCAS atomically moves id from `from` to `to`, returning
	// false when another instance already claimed the post. This is the
	// concurrency-correctness anchor of the pipeline.
	UpdateStatusCAS(ctx context.Context, id string, from, to model.PostStatus) (bool, error)
	// UpdateIfStatus persists the post's mutable fields only while the
	// stored row still carries `expected`. Returns false without writing
	// when the row moved on, so a review-side edit can never overwrite a
	// post a dispatcher claimed in between.
	UpdateIfStatus(ctx context.Context, tx Tx, post *model.MarketingPost, expected model.PostStatus) (bool, error)
	// RecoverStuckPublishing returns publishing rows untouched since
	// `cutoff` to the schedule, so a claim orphaned by a dispatcher crash
	// still reaches a terminal state. Returns the recovered post ids.
	RecoverStuckPublishing(ctx context.Context, cutoff time.Time, limit int) ([]string, error)
	// HasActiveForKey reports whether a non-terminal-failed, non-cancelled
	// post other than excludeID already carries the idempotency key.
	HasActiveForKey(ctx context.Context, key, excludeID string) (bool, error)
}
