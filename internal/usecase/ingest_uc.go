package usecase

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"podcast-content-pipeline/internal/domain/model"
	"podcast-content-pipeline/internal/domain/ports/repository"
)

// IngestUseCase accepts new episodes into the pipeline.
type IngestUseCase struct {
	queue repository.JobQueue
	tm    repository.TransactionManager
	log   *zerolog.Logger
}

func NewIngestUseCase(queue repository.JobQueue, tm repository.TransactionManager, logger *zerolog.Logger) *IngestUseCase {
	ucLog := logger.With().Str("component", "IngestUseCase").Logger()
	return &IngestUseCase{queue: queue, tm: tm, log: &ucLog}
}

// SubmitEpisode enqueues the full processing chain for one episode:
// a transcription job plus a generation job that waits on its output.
// Both are enqueued atomically.
func (uc *IngestUseCase) SubmitEpisode(ctx context.Context, episodeRef string, priority int) ([]*model.ProcessingJob, error) {
	transcribe, err := model.NewProcessingJob(episodeRef, model.JobKindTranscribe, priority)
	if err != nil {
		return nil, err
	}
	generate, err := model.NewProcessingJob(episodeRef, model.JobKindGenerate, priority)
	if err != nil {
		return nil, err
	}

	err = uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := uc.queue.Enqueue(ctx, tx, transcribe); err != nil {
			return err
		}
		return uc.queue.Enqueue(ctx, tx, generate)
	})
	if err != nil {
		return nil, err
	}

	uc.log.Info().Str("episode_ref", episodeRef).Int("priority", priority).
		Str("transcribe_job", transcribe.ID).Str("generate_job", generate.ID).
		Msg("episode submitted")
	return []*model.ProcessingJob{transcribe, generate}, nil
}

// SubmitJob enqueues a single job, for re-running one stage of the chain.
func (uc *IngestUseCase) SubmitJob(ctx context.Context, episodeRef string, kind model.JobKind, priority int) (*model.ProcessingJob, error) {
	job, err := model.NewProcessingJob(episodeRef, kind, priority)
	if err != nil {
		return nil, err
	}
	if err := uc.queue.Enqueue(ctx, nil, job); err != nil {
		return nil, err
	}
	uc.log.Info().Str("episode_ref", episodeRef).Str("kind", string(kind)).Str("job_id", job.ID).Msg("job submitted")
	return job, nil
}

// GetJob returns the current state of one processing job.
func (uc *IngestUseCase) GetJob(ctx context.Context, id string) (*model.ProcessingJob, error) {
	return uc.queue.FindByID(ctx, nil, id)
}
