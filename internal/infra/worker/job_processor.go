package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkoukk/tiktoken-go"
	"github.com/rs/zerolog"

	"podcast-content-pipeline/internal/config"
	"podcast-content-pipeline/internal/domain"
	"podcast-content-pipeline/internal/domain/model"
	"podcast-content-pipeline/internal/domain/ports/adapter"
	"podcast-content-pipeline/internal/domain/ports/repository"
	"podcast-content-pipeline/internal/infra/logging"
	"podcast-content-pipeline/internal/infra/metrics"
)

const generateSystemPrompt = "You are a social media copywriter for a podcast. " +
	"Write a single post promoting the episode described by the transcript excerpt. " +
	"Return only the post text, no preamble."

// JobProcessor drains the durable queue and runs transcription and
// generation jobs on the pool. Delivery is at-least-once, so every handler
// is written to tolerate a redelivered job.
type JobProcessor struct {
	queue       repository.JobQueue
	transcripts repository.TranscriptRepository
	posts       repository.MarketingPostRepository
	transcriber adapter.TranscriptionProvider
	generator   adapter.GenerationProvider
	registry    adapter.Registry
	retry       model.RetryPolicy
	workerCfg   config.WorkerConfig
	aiCfg       config.AIConfig
	log         *zerolog.Logger
}

func NewJobProcessor(
	queue repository.JobQueue,
	transcripts repository.TranscriptRepository,
	posts repository.MarketingPostRepository,
	transcriber adapter.TranscriptionProvider,
	generator adapter.GenerationProvider,
	registry adapter.Registry,
	workerCfg config.WorkerConfig,
	aiCfg config.AIConfig,
	log *zerolog.Logger,
) *JobProcessor {
	return &JobProcessor{
		queue:       queue,
		transcripts: transcripts,
		posts:       posts,
		transcriber: transcriber,
		generator:   generator,
		registry:    registry,
		retry: model.RetryPolicy{
			Base:        workerCfg.BackoffBase,
			Cap:         workerCfg.BackoffCap,
			MaxAttempts: workerCfg.MaxAttempts,
		},
		workerCfg: workerCfg,
		aiCfg:     aiCfg,
		log:       log,
	}
}

// Start runs the dequeue loop until the context is cancelled.
// This should be run in a goroutine.
func (p *JobProcessor) Start(ctx context.Context, pool *Pool) {
	p.log.Info().Int("batch", p.workerCfg.Batch).Msg("job processor started")
	for {
		select {
		case <-ctx.Done():
			p.log.Info().Msg("job processor stopping")
			return
		default:
		}

		jobs, err := p.queue.Dequeue(ctx, p.workerCfg.Batch, p.workerCfg.Lease, p.workerCfg.PollInterval)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.log.Error().Err(err).Msg("dequeue failed")
			time.Sleep(p.workerCfg.PollInterval)
			continue
		}
		for _, job := range jobs {
			job := job
			if err := pool.Submit(func(ctx context.Context) error {
				p.processJob(ctx, job)
				return nil
			}); err != nil {
				// Leave the lease to expire; the job comes back on its own.
				p.log.Warn().Str("job_id", job.ID).Err(err).Msg("pool saturated, job left leased")
			}
		}
	}
}

func (p *JobProcessor) processJob(ctx context.Context, job *model.ProcessingJob) {
	ctx = logging.WithJobID(ctx, job.ID)
	ctx = logging.WithEpisodeRef(ctx, job.EpisodeRef)
	log := logging.With(ctx, p.log)

	log.Info().Str("kind", string(job.Kind)).Int("attempt", job.Attempts).Msg("processing job")
	start := time.Now()

	var err error
	switch job.Kind {
	case model.JobKindTranscribe:
		err = p.handleTranscribe(ctx, job)
	case model.JobKindGenerate:
		err = p.handleGenerate(ctx, job)
	default:
		err = domain.NewPermanentProcessing(fmt.Errorf("%w: kind %q", domain.ErrInvalidArgument, job.Kind))
	}

	// Final status update outside the (possibly cancelled) job context.
	bg := context.Background()
	switch {
	case err == nil:
		if ackErr := p.queue.Ack(bg, job.ID); ackErr != nil {
			log.Error().Err(ackErr).Msg("ack failed")
			return
		}
		metrics.IncJob(string(job.Kind), string(model.JobStatusSucceeded))
		log.Info().Dur("duration_ms", time.Since(start)).Msg("job succeeded")

	case domain.IsTransientProcessing(err):
		retry, delay := p.retry.NextAttempt(job.Attempts)
		if !retry {
			p.failJob(bg, job, fmt.Sprintf("retries exhausted: %v", err))
			return
		}
		if nackErr := p.queue.Nack(bg, job.ID, delay, err.Error()); nackErr != nil {
			log.Error().Err(nackErr).Msg("nack failed")
			return
		}
		metrics.IncJobRetry(string(job.Kind))
		log.Warn().Err(err).Dur("retry_after", delay).Msg("transient failure, job requeued")

	default:
		p.failJob(bg, job, err.Error())
	}
}

func (p *JobProcessor) failJob(ctx context.Context, job *model.ProcessingJob, reason string) {
	if err := p.queue.Fail(ctx, job.ID, reason); err != nil {
		p.log.Error().Err(err).Str("job_id", job.ID).Msg("fail-mark failed")
		return
	}
	metrics.IncJob(string(job.Kind), string(model.JobStatusFailed))
	p.log.Error().Str("job_id", job.ID).Str("reason", reason).Msg("job failed terminally")
}

func (p *JobProcessor) handleTranscribe(ctx context.Context, job *model.ProcessingJob) error {
	// Redelivered job whose first run already persisted the transcript.
	if _, err := p.transcripts.FindByEpisodeRef(ctx, nil, job.EpisodeRef); err == nil {
		return nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return domain.NewTransientProcessing(err)
	}

	callCtx, cancel := context.WithTimeout(ctx, p.aiCfg.CallTimeout)
	defer cancel()

	start := time.Now()
	result, err := p.transcriber.Transcribe(callCtx, job.EpisodeRef)
	metrics.ObserveAICall("transcribe", int(time.Since(start)/time.Millisecond), err == nil)
	if err != nil {
		return err
	}

	t := &model.Transcript{
		ID:         uuid.NewString(),
		EpisodeRef: job.EpisodeRef,
		Text:       result.Text,
		Segments:   result.Segments,
		Language:   result.Language,
		CreatedAt:  time.Now(),
	}
	if err := p.transcripts.Save(ctx, nil, t); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil
		}
		return domain.NewTransientProcessing(err)
	}
	return nil
}

func (p *JobProcessor) handleGenerate(ctx context.Context, job *model.ProcessingJob) error {
	transcript, err := p.transcripts.FindByEpisodeRef(ctx, nil, job.EpisodeRef)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Transcription may still be in flight; come back later.
			return domain.NewTransientProcessing(fmt.Errorf("transcript not ready for %s", job.EpisodeRef))
		}
		return domain.NewTransientProcessing(err)
	}

	excerpt := trimToTokenBudget(transcript.Text, p.aiCfg.ChatModel, p.aiCfg.TokenBudget)

	// A redelivered job skips platforms that already hold a live post, at
	// any content version: an operator may have edited the first draft
	// before this run.
	existing, err := p.posts.FindByEpisodeRef(ctx, nil, job.EpisodeRef)
	if err != nil {
		return domain.NewTransientProcessing(err)
	}
	covered := make(map[string]bool)
	for _, post := range existing {
		if post.Status != model.PostStatusCancelled && post.Status != model.PostStatusFailed {
			covered[post.Platform] = true
		}
	}

	for _, platform := range p.registry.Platforms() {
		pub, err := p.registry.Resolve(platform)
		if err != nil {
			return domain.NewPermanentProcessing(err)
		}
		if covered[platform] {
			continue
		}

		content, err := p.generateFor(ctx, pub.Capability(), excerpt)
		if err != nil {
			return err
		}

		post, err := model.NewMarketingPost(job.EpisodeRef, platform, content, nil)
		if err != nil {
			return domain.NewPermanentProcessing(err)
		}
		if err := p.posts.Save(ctx, nil, post); err != nil {
			return domain.NewTransientProcessing(err)
		}
		p.log.Info().Str("post_id", post.ID).Str("platform", platform).
			Str("episode_ref", job.EpisodeRef).Msg("draft created")
	}
	return nil
}

func (p *JobProcessor) generateFor(ctx context.Context, cap model.PlatformCapability, excerpt string) (string, error) {
	prompt := fmt.Sprintf("Platform: %s.", cap.Name)
	if cap.MaxContentLength > 0 {
		prompt += fmt.Sprintf(" Hard limit: %d characters.", cap.MaxContentLength)
	}
	prompt += "\n\nTranscript excerpt:\n" + excerpt

	callCtx, cancel := context.WithTimeout(ctx, p.aiCfg.CallTimeout)
	defer cancel()

	start := time.Now()
	content, usage, err := p.generator.Generate(callCtx, generateSystemPrompt, prompt)
	metrics.ObserveAICall("generate", int(time.Since(start)/time.Millisecond), err == nil)
	if err != nil {
		return "", err
	}
	metrics.AddTokens(usage.PromptTokens, usage.CompletionTokens)

	// Models overshoot; clamp so the draft always passes validation.
	if cap.MaxContentLength > 0 {
		runes := []rune(content)
		if len(runes) > cap.MaxContentLength {
			content = string(runes[:cap.MaxContentLength])
		}
	}
	return content, nil
}

// trimToTokenBudget bounds the transcript excerpt sent per generation call.
func trimToTokenBudget(text, chatModel string, budget int) string {
	if budget <= 0 {
		return text
	}
	enc, err := tiktoken.EncodingForModel(chatModel)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return text
		}
	}
	tokens := enc.Encode(text, nil, nil)
	if len(tokens) <= budget {
		return text
	}
	return enc.Decode(tokens[:budget])
}
