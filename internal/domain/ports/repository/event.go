package repository

import (
	"context"
	"time"

	"podcast-content-pipeline/internal/domain/model"
)

// StatusEventRepository is the append-only sink for post status outcomes.
type StatusEventRepository interface {
	Append(ctx context.Context, tx Tx, ev *model.StatusEvent) error
	ListSince(ctx context.Context, since time.Time, limit int) ([]*model.StatusEvent, error)
}
