package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"podcast-content-pipeline/internal/domain/model"
	"podcast-content-pipeline/internal/domain/ports/repository"
)

var _ repository.StatusEventRepository = (*eventRepo)(nil)

// eventRepo is the append-only status sink. Rows are never updated.
type eventRepo struct {
	pool *pgxpool.Pool
}

func NewEventRepo(pool *pgxpool.Pool) *eventRepo {
	return &eventRepo{pool: pool}
}

func (r *eventRepo) Append(ctx context.Context, tx repository.Tx, ev *model.StatusEvent) error {
	const sql = `
INSERT INTO status_events (id, post_id, from_status, to_status, occurred_at, error_msg)
VALUES ($1,$2,$3,$4,$5,$6);`
	_, err := execSQL(ctx, r.pool, tx, sql, ev.ID, ev.PostID, ev.FromStatus, ev.ToStatus, ev.OccurredAt, ev.ErrorMsg)
	return err
}

func (r *eventRepo) ListSince(ctx context.Context, since time.Time, limit int) ([]*model.StatusEvent, error) {
	const sql = `
SELECT id, post_id, from_status, to_status, occurred_at, error_msg
FROM status_events
WHERE occurred_at >= $1
ORDER BY occurred_at, id
LIMIT $2;`
	rows, err := pickRows(ctx, r.pool, nil, sql, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.StatusEvent
	for rows.Next() {
		var ev model.StatusEvent
		var from, to string
		if err := rows.Scan(&ev.ID, &ev.PostID, &from, &to, &ev.OccurredAt, &ev.ErrorMsg); err != nil {
			return nil, err
		}
		ev.FromStatus = model.PostStatus(from)
		ev.ToStatus = model.PostStatus(to)
		out = append(out, &ev)
	}
	return out, rows.Err()
}
