package repository

import (
	"context"
	"time"

	"podcast-content-pipeline/internal/domain/model"
)

// JobQueue is the durable work queue feeding the worker pool.
//
// Dequeue leases at most `capacity` jobs exclusively to the caller for
// `lease`; an expired, un-acked lease makes the job visible again
// (at-least-once delivery). Ordering is FIFO within a priority tier.
type JobQueue interface {
	Enqueue(ctx context.Context, tx Tx, job *model.ProcessingJob) error
	// Dequeue blocks up to `wait` for visible jobs, returning at most
	// `capacity` of them, each marked running with a fresh lease.
	Dequeue(ctx context.Context, capacity int, lease, wait time.Duration) ([]*model.ProcessingJob, error)
	// Ack marks a leased job succeeded.
	Ack(ctx context.Context, jobID string) error
	// Nack returns a leased job to the queue, visible again after retryAfter.
	Nack(ctx context.Context, jobID string, retryAfter time.Duration, reason string) error
	// Fail marks a leased job failed terminally (no retry).
	Fail(ctx context.Context, jobID string, reason string) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.ProcessingJob, error)
	// ArchiveTerminalBefore deletes terminal jobs older than cutoff,
	// returning how many were removed.
	ArchiveTerminalBefore(ctx context.Context, cutoff time.Time) (int, error)
}
