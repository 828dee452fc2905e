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

var _ repository.JobQueue = (*jobQueue)(nil)

// jobQueue is the durable work queue over Postgres. Exclusive leases come
// from FOR UPDATE SKIP LOCKED plus a lease_expires_at column: a crashed
// worker's lease expires and the job becomes visible again.
type jobQueue struct {
	pool *pgxpool.Pool
	tm   repository.TransactionManager

	// pollEvery paces the blocking Dequeue loop.
	pollEvery time.Duration
}

func NewJobQueue(pool *pgxpool.Pool, tm repository.TransactionManager) *jobQueue {
	return &jobQueue{pool: pool, tm: tm, pollEvery: 250 * time.Millisecond}
}

func (q *jobQueue) Enqueue(ctx context.Context, tx repository.Tx, job *model.ProcessingJob) error {
	const sql = `
INSERT INTO processing_jobs
  (id, episode_ref, kind, status, priority, attempts, not_before, lease_expires_at, last_error, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11);`

	_, err := execSQL(ctx, q.pool, tx, sql,
		job.ID, job.EpisodeRef, job.Kind, job.Status, job.Priority, job.Attempts,
		job.NotBefore, job.LeaseExpiresAt, job.LastError, job.CreatedAt, job.UpdatedAt)
	return err
}

func (q *jobQueue) Dequeue(ctx context.Context, capacity int, lease, wait time.Duration) ([]*model.ProcessingJob, error) {
	if capacity <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	deadline := time.Now().Add(wait)
	for {
		jobs, err := q.dequeueOnce(ctx, capacity, lease)
		if err != nil {
			return nil, err
		}
		if len(jobs) > 0 || !time.Now().Before(deadline) {
			return jobs, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(q.pollEvery):
		}
	}
}

func (q *jobQueue) dequeueOnce(ctx context.Context, capacity int, lease time.Duration) ([]*model.ProcessingJob, error) {
	var jobs []*model.ProcessingJob

	err := q.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		// Visible: queued past its backoff gate, or running with an
		// expired lease (at-least-once re-delivery).
		const fetch = `
SELECT id, episode_ref, kind, status, priority, attempts, not_before, lease_expires_at, last_error, created_at, updated_at
FROM processing_jobs
WHERE (status = 'queued' AND not_before <= now())
   OR (status = 'running' AND lease_expires_at < now())
ORDER BY priority DESC, created_at, id
LIMIT $1
FOR UPDATE SKIP LOCKED;`

		rows, err := pickRows(ctx, q.pool, tx, fetch, capacity)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			j, err := scanJob(rows)
			if err != nil {
				return err
			}
			jobs = append(jobs, j)
		}
		if err := rows.Err(); err != nil {
			return err
		}

		exp := time.Now().Add(lease)
		for _, j := range jobs {
			j.Status = model.JobStatusRunning
			j.Attempts++
			j.LeaseExpiresAt = &exp
			j.UpdatedAt = time.Now()
			const claim = `
UPDATE processing_jobs
SET status = 'running', attempts = $2, lease_expires_at = $3, updated_at = $4
WHERE id = $1;`
			if _, err := execSQL(ctx, q.pool, tx, claim, j.ID, j.Attempts, exp, j.UpdatedAt); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

func (q *jobQueue) Ack(ctx context.Context, jobID string) error {
	const sql = `
UPDATE processing_jobs
SET status = 'succeeded', lease_expires_at = NULL, last_error = '', updated_at = now()
WHERE id = $1 AND status = 'running';`
	tag, err := execSQL(ctx, q.pool, nil, sql, jobID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (q *jobQueue) Nack(ctx context.Context, jobID string, retryAfter time.Duration, reason string) error {
	const sql = `
UPDATE processing_jobs
SET status = 'queued', not_before = $2, lease_expires_at = NULL, last_error = $3, updated_at = now()
WHERE id = $1 AND status = 'running';`
	tag, err := execSQL(ctx, q.pool, nil, sql, jobID, time.Now().Add(retryAfter), reason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (q *jobQueue) Fail(ctx context.Context, jobID string, reason string) error {
	const sql = `
UPDATE processing_jobs
SET status = 'failed', lease_expires_at = NULL, last_error = $2, updated_at = now()
WHERE id = $1 AND status = 'running';`
	tag, err := execSQL(ctx, q.pool, nil, sql, jobID, reason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (q *jobQueue) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.ProcessingJob, error) {
	const sql = `
SELECT id, episode_ref, kind, status, priority, attempts, not_before, lease_expires_at, last_error, created_at, updated_at
FROM processing_jobs WHERE id = $1;`
	row, err := pickRow(ctx, q.pool, tx, sql, id)
	if err != nil {
		return nil, err
	}
	j, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return j, nil
}

func (q *jobQueue) ArchiveTerminalBefore(ctx context.Context, cutoff time.Time) (int, error) {
	const sql = `
DELETE FROM processing_jobs
WHERE status IN ('succeeded', 'failed') AND updated_at < $1;`
	tag, err := execSQL(ctx, q.pool, nil, sql, cutoff)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*model.ProcessingJob, error) {
	var j model.ProcessingJob
	var kind, status string
	if err := row.Scan(
		&j.ID, &j.EpisodeRef, &kind, &status, &j.Priority, &j.Attempts,
		&j.NotBefore, &j.LeaseExpiresAt, &j.LastError, &j.CreatedAt, &j.UpdatedAt,
	); err != nil {
		return nil, err
	}
	j.Kind = model.JobKind(kind)
	j.Status = model.JobStatus(status)
	return &j, nil
}
