package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"podcast-content-pipeline/internal/domain"
	"podcast-content-pipeline/internal/domain/ports/repository"
	"podcast-content-pipeline/internal/infra/metrics"
)

const retentionLockKey = "lock:retention_sweep"

// SweepLocker serializes the sweep across pipeline instances.
type SweepLocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

// RetentionSweeper periodically removes terminal jobs older than the
// retention window so the queue table stays small. The sweep itself is
// idempotent; the lock only avoids redundant scans when several instances
// run against the same database.
type RetentionSweeper struct {
	interval  time.Duration
	retention time.Duration
	queue     repository.JobQueue
	locker    SweepLocker
	log       *zerolog.Logger
}

func NewRetentionSweeper(interval, retention time.Duration, queue repository.JobQueue, locker SweepLocker, logger *zerolog.Logger) *RetentionSweeper {
	sweepLog := logger.With().Str("component", "RetentionSweeper").Logger()
	if interval <= 0 {
		interval = time.Hour
	}
	return &RetentionSweeper{
		interval:  interval,
		retention: retention,
		queue:     queue,
		locker:    locker,
		log:       &sweepLog,
	}
}

func (w *RetentionSweeper) Run(ctx context.Context) error {
	w.log.Info().Dur("retention", w.retention).Msg("starting retention sweeper")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("stopping retention sweeper")
			return ctx.Err()
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *RetentionSweeper) sweep(ctx context.Context) {
	if w.locker != nil {
		token, err := w.locker.TryLock(ctx, retentionLockKey, w.interval)
		if err != nil {
			if !errors.Is(err, domain.ErrLockNotAcquired) {
				w.log.Error().Err(err).Msg("sweep lock error")
			}
			return
		}
		defer func() {
			if err := w.locker.Unlock(context.Background(), retentionLockKey, token); err != nil {
				w.log.Error().Err(err).Msg("sweep unlock error")
			}
		}()
	}

	n, err := w.queue.ArchiveTerminalBefore(ctx, time.Now().Add(-w.retention))
	if err != nil {
		w.log.Error().Err(err).Msg("retention sweep error")
		return
	}
	if n > 0 {
		metrics.AddJobsArchived(n)
		w.log.Info().Int("count", n).Msg("terminal jobs archived")
	}
}
