package usecase

import (
	"context"
	"time"

	"podcast-content-pipeline/internal/domain/model"
	"podcast-content-pipeline/internal/domain/ports/repository"
)

// StatusUseCase is the read side for dashboards and collaborators.
type StatusUseCase struct {
	posts       repository.MarketingPostRepository
	events      repository.StatusEventRepository
	transcripts repository.TranscriptRepository
}

func NewStatusUseCase(
	posts repository.MarketingPostRepository,
	events repository.StatusEventRepository,
	transcripts repository.TranscriptRepository,
) *StatusUseCase {
	return &StatusUseCase{posts: posts, events: events, transcripts: transcripts}
}

// GetPost returns one post with its current state.
func (uc *StatusUseCase) GetPost(ctx context.Context, id string) (*model.MarketingPost, error) {
	return uc.posts.FindByID(ctx, nil, id)
}

// ListPostsByEpisode returns every post generated for one episode.
func (uc *StatusUseCase) ListPostsByEpisode(ctx context.Context, episodeRef string) ([]*model.MarketingPost, error) {
	return uc.posts.FindByEpisodeRef(ctx, nil, episodeRef)
}

// GetTranscript returns the transcript for one episode.
func (uc *StatusUseCase) GetTranscript(ctx context.Context, episodeRef string) (*model.Transcript, error) {
	return uc.transcripts.FindByEpisodeRef(ctx, nil, episodeRef)
}

// ListEvents returns status events at or after `since`, oldest first.
func (uc *StatusUseCase) ListEvents(ctx context.Context, since time.Time, limit int) ([]*model.StatusEvent, error) {
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}
	return uc.events.ListSince(ctx, since, limit)
}
