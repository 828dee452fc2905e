package web

import (
	"context"
	"time"

	"podcast-content-pipeline/internal/domain/model"
)

type mockIngest struct {
	submitEpisodeFn func(ctx context.Context, episodeRef string, priority int) ([]*model.ProcessingJob, error)
	submitJobFn     func(ctx context.Context, episodeRef string, kind model.JobKind, priority int) (*model.ProcessingJob, error)
	getJobFn        func(ctx context.Context, id string) (*model.ProcessingJob, error)
}

func (m *mockIngest) SubmitEpisode(ctx context.Context, episodeRef string, priority int) ([]*model.ProcessingJob, error) {
	return m.submitEpisodeFn(ctx, episodeRef, priority)
}

func (m *mockIngest) SubmitJob(ctx context.Context, episodeRef string, kind model.JobKind, priority int) (*model.ProcessingJob, error) {
	return m.submitJobFn(ctx, episodeRef, kind, priority)
}

func (m *mockIngest) GetJob(ctx context.Context, id string) (*model.ProcessingJob, error) {
	return m.getJobFn(ctx, id)
}

type mockReview struct {
	scheduleFn func(ctx context.Context, postID string, at time.Time) (*model.MarketingPost, error)
	cancelFn   func(ctx context.Context, postID string) (*model.MarketingPost, error)
	updateFn   func(ctx context.Context, postID, content string, mediaRefs []string) (*model.MarketingPost, error)
}

func (m *mockReview) SchedulePost(ctx context.Context, postID string, at time.Time) (*model.MarketingPost, error) {
	return m.scheduleFn(ctx, postID, at)
}

func (m *mockReview) CancelPost(ctx context.Context, postID string) (*model.MarketingPost, error) {
	return m.cancelFn(ctx, postID)
}

func (m *mockReview) UpdateDraftContent(ctx context.Context, postID, content string, mediaRefs []string) (*model.MarketingPost, error) {
	return m.updateFn(ctx, postID, content, mediaRefs)
}

type mockStatus struct {
	getPostFn       func(ctx context.Context, id string) (*model.MarketingPost, error)
	listPostsFn     func(ctx context.Context, episodeRef string) ([]*model.MarketingPost, error)
	getTranscriptFn func(ctx context.Context, episodeRef string) (*model.Transcript, error)
	listEventsFn    func(ctx context.Context, since time.Time, limit int) ([]*model.StatusEvent, error)
}

func (m *mockStatus) GetPost(ctx context.Context, id string) (*model.MarketingPost, error) {
	return m.getPostFn(ctx, id)
}

func (m *mockStatus) ListPostsByEpisode(ctx context.Context, episodeRef string) ([]*model.MarketingPost, error) {
	return m.listPostsFn(ctx, episodeRef)
}

func (m *mockStatus) GetTranscript(ctx context.Context, episodeRef string) (*model.Transcript, error) {
	return m.getTranscriptFn(ctx, episodeRef)
}

func (m *mockStatus) ListEvents(ctx context.Context, since time.Time, limit int) ([]*model.StatusEvent, error) {
	return m.listEventsFn(ctx, since, limit)
}
