package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"podcast-content-pipeline/internal/domain"
	"podcast-content-pipeline/internal/domain/model"
	"podcast-content-pipeline/internal/domain/ports/repository"
)

var _ repository.TranscriptRepository = (*transcriptRepo)(nil)

type transcriptRepo struct {
	pool *pgxpool.Pool
}

func NewTranscriptRepo(pool *pgxpool.Pool) *transcriptRepo {
	return &transcriptRepo{pool: pool}
}

// Save inserts the transcript once; transcripts are immutable, so a second
// write for the same episode is a conflict.
func (r *transcriptRepo) Save(ctx context.Context, tx repository.Tx, t *model.Transcript) error {
	segs, err := json.Marshal(t.Segments)
	if err != nil {
		return err
	}
	const sql = `
INSERT INTO transcripts (id, episode_ref, text, segments, language, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (episode_ref) DO NOTHING;`
	tag, err := execSQL(ctx, r.pool, tx, sql, t.ID, t.EpisodeRef, t.Text, segs, t.Language, t.CreatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyExists
	}
	return nil
}

func (r *transcriptRepo) FindByEpisodeRef(ctx context.Context, tx repository.Tx, episodeRef string) (*model.Transcript, error) {
	const sql = `
SELECT id, episode_ref, text, segments, language, created_at
FROM transcripts WHERE episode_ref = $1;`
	row, err := pickRow(ctx, r.pool, tx, sql, episodeRef)
	if err != nil {
		return nil, err
	}
	var t model.Transcript
	var segs []byte
	if err := row.Scan(&t.ID, &t.EpisodeRef, &t.Text, &segs, &t.Language, &t.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(segs, &t.Segments); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return &t, nil
}
