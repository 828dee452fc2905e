package repository

import (
	"context"

	"podcast-content-pipeline/internal/domain/model"
)

type TranscriptRepository interface {
	Save(ctx context.Context, tx Tx, t *model.Transcript) error
	FindByEpisodeRef(ctx context.Context, tx Tx, episodeRef string) (*model.Transcript, error)
}
