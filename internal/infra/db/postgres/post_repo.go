package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"podcast-content-pipeline/internal/domain"
	"podcast-content-pipeline/internal/domain/model"
	"podcast-content-pipeline/internal/domain/ports/repository"
)

var _ repository.MarketingPostRepository = (*postRepo)(nil)

type postRepo struct {
	pool *pgxpool.Pool
}

func NewPostRepo(pool *pgxpool.Pool) *postRepo {
	return &postRepo{pool: pool}
}

const postColumns = `
id, episode_ref, platform, content, media_refs, content_version, status,
scheduled_at, published_at, attempts, idempotency_key, external_post_id,
last_error, created_at, updated_at`

func (r *postRepo) Save(ctx context.Context, tx repository.Tx, p *model.MarketingPost) error {
	p.UpdatedAt = time.Now()
	const sql = `
INSERT INTO marketing_posts (` + postColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
ON CONFLICT (id) DO UPDATE SET
  content = EXCLUDED.content,
  media_refs = EXCLUDED.media_refs,
  content_version = EXCLUDED.content_version,
  status = EXCLUDED.status,
  scheduled_at = EXCLUDED.scheduled_at,
  published_at = EXCLUDED.published_at,
  attempts = EXCLUDED.attempts,
  idempotency_key = EXCLUDED.idempotency_key,
  external_post_id = EXCLUDED.external_post_id,
  last_error = EXCLUDED.last_error,
  updated_at = EXCLUDED.updated_at;`

	_, err := execSQL(ctx, r.pool, tx, sql,
		p.ID, p.EpisodeRef, p.Platform, p.Content, p.MediaRefs, p.ContentVersion, p.Status,
		p.ScheduledAt, p.PublishedAt, p.Attempts, p.IdempotencyKey, p.ExternalPostID,
		p.LastError, p.CreatedAt, p.UpdatedAt)
	return err
}

func (r *postRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.MarketingPost, error) {
	const sql = `SELECT ` + postColumns + ` FROM marketing_posts WHERE id = $1;`
	row, err := pickRow(ctx, r.pool, tx, sql, id)
	if err != nil {
		return nil, err
	}
	p, err := scanPost(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *postRepo) FindByEpisodeRef(ctx context.Context, tx repository.Tx, episodeRef string) ([]*model.MarketingPost, error) {
	const sql = `SELECT ` + postColumns + ` FROM marketing_posts WHERE episode_ref = $1 ORDER BY id;`
	rows, err := pickRows(ctx, r.pool, tx, sql, episodeRef)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPosts(rows)
}

func (r *postRepo) FindDue(ctx context.Context, now time.Time, limit int) ([]*model.MarketingPost, error) {
	// Earliest-due-first; id breaks scheduled_at ties deterministically.
	const sql = `
SELECT ` + postColumns + `
FROM marketing_posts
WHERE status = 'scheduled' AND scheduled_at <= $1
ORDER BY scheduled_at, id
LIMIT $2;`
	rows, err := pickRows(ctx, r.pool, nil, sql, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPosts(rows)
}

func (r *postRepo) UpdateIfStatus(ctx context.Context, tx repository.Tx, p *model.MarketingPost, expected model.PostStatus) (bool, error) {
	p.UpdatedAt = time.Now()
	const sql = `
UPDATE marketing_posts SET
  content = $3,
  media_refs = $4,
  content_version = $5,
  status = $6,
  scheduled_at = $7,
  published_at = $8,
  attempts = $9,
  idempotency_key = $10,
  external_post_id = $11,
  last_error = $12,
  updated_at = $13
WHERE id = $1 AND status = $2;`
	tag, err := execSQL(ctx, r.pool, tx, sql,
		p.ID, expected, p.Content, p.MediaRefs, p.ContentVersion, p.Status,
		p.ScheduledAt, p.PublishedAt, p.Attempts, p.IdempotencyKey, p.ExternalPostID,
		p.LastError, p.UpdatedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *postRepo) RecoverStuckPublishing(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	const sql = `
UPDATE marketing_posts
SET status = 'scheduled', scheduled_at = now(), updated_at = now()
WHERE id IN (
  SELECT id FROM marketing_posts
  WHERE status = 'publishing' AND updated_at < $1
  ORDER BY updated_at
  LIMIT $2
)
RETURNING id;`
	rows, err := pickRows(ctx, r.pool, nil, sql, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *postRepo) UpdateStatusCAS(ctx context.Context, id string, from, to model.PostStatus) (bool, error) {
	const sql = `
UPDATE marketing_posts
SET status = $3, updated_at = now()
WHERE id = $1 AND status = $2;`
	tag, err := execSQL(ctx, r.pool, nil, sql, id, from, to)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *postRepo) HasActiveForKey(ctx context.Context, key, excludeID string) (bool, error) {
	const sql = `
SELECT EXISTS (
  SELECT 1 FROM marketing_posts
  WHERE idempotency_key = $1 AND id <> $2
    AND status NOT IN ('cancelled', 'failed')
);`
	row, err := pickRow(ctx, r.pool, nil, sql, key, excludeID)
	if err != nil {
		return false, err
	}
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func scanPost(row rowScanner) (*model.MarketingPost, error) {
	var p model.MarketingPost
	var status string
	if err := row.Scan(
		&p.ID, &p.EpisodeRef, &p.Platform, &p.Content, &p.MediaRefs, &p.ContentVersion, &status,
		&p.ScheduledAt, &p.PublishedAt, &p.Attempts, &p.IdempotencyKey, &p.ExternalPostID,
		&p.LastError, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	p.Status = model.PostStatus(status)
	return &p, nil
}

func collectPosts(rows pgx.Rows) ([]*model.MarketingPost, error) {
	var out []*model.MarketingPost
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
