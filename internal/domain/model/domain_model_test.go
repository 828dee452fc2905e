package model_test

import (
	"errors"
	"testing"
	"time"

	"podcast-content-pipeline/internal/domain"
	"podcast-content-pipeline/internal/domain/model"
)

func newDraft(t *testing.T) *model.MarketingPost {
	t.Helper()
	p, err := model.NewMarketingPost("ep-1", "twitter", "listen to our new episode", nil)
	if err != nil {
		t.Fatalf("NewMarketingPost: %v", err)
	}
	return p
}

func TestPostStateMachine(t *testing.T) {
	t.Run("legal paths", func(t *testing.T) {
		paths := [][]model.PostStatus{
			{model.PostStatusScheduled, model.PostStatusPublishing, model.PostStatusPublished},
			{model.PostStatusScheduled, model.PostStatusPublishing, model.PostStatusScheduled, model.PostStatusPublishing, model.PostStatusFailed},
			{model.PostStatusCancelled},
			{model.PostStatusScheduled, model.PostStatusCancelled},
		}
		for _, path := range paths {
			p := newDraft(t)
			for _, next := range path {
				if err := p.TransitionTo(next); err != nil {
					t.Fatalf("transition %s -> %s: %v", p.Status, next, err)
				}
			}
		}
	})

	t.Run("illegal transitions are rejected without mutation", func(t *testing.T) {
		cases := []struct {
			from model.PostStatus
			to   model.PostStatus
		}{
			{model.PostStatusDraft, model.PostStatusPublished},
			{model.PostStatusDraft, model.PostStatusPublishing},
			{model.PostStatusPublishing, model.PostStatusCancelled},
			{model.PostStatusPublished, model.PostStatusScheduled},
			{model.PostStatusFailed, model.PostStatusScheduled},
			{model.PostStatusCancelled, model.PostStatusScheduled},
		}
		for _, tc := range cases {
			p := newDraft(t)
			p.Status = tc.from
			err := p.TransitionTo(tc.to)
			if !errors.Is(err, domain.ErrInvalidStateTransition) {
				t.Errorf("%s -> %s: expected ErrInvalidStateTransition, got %v", tc.from, tc.to, err)
			}
			if p.Status != tc.from {
				t.Errorf("%s -> %s: state mutated to %s on rejected transition", tc.from, tc.to, p.Status)
			}
		}
	})

	t.Run("terminal states", func(t *testing.T) {
		for _, s := range []model.PostStatus{model.PostStatusPublished, model.PostStatusFailed, model.PostStatusCancelled} {
			if !s.Terminal() {
				t.Errorf("%s should be terminal", s)
			}
		}
		for _, s := range []model.PostStatus{model.PostStatusDraft, model.PostStatusScheduled, model.PostStatusPublishing} {
			if s.Terminal() {
				t.Errorf("%s should not be terminal", s)
			}
		}
	})
}

func TestIdempotencyKey(t *testing.T) {
	t.Run("deterministic per (episode, platform, version)", func(t *testing.T) {
		a := model.IdempotencyKey("ep-1", "twitter", 1)
		b := model.IdempotencyKey("ep-1", "twitter", 1)
		if a != b {
			t.Fatalf("same inputs produced different keys: %s vs %s", a, b)
		}
		if a == model.IdempotencyKey("ep-1", "linkedin", 1) {
			t.Error("different platforms must not collide")
		}
		if a == model.IdempotencyKey("ep-2", "twitter", 1) {
			t.Error("different episodes must not collide")
		}
	})

	t.Run("content edit bumps version and key", func(t *testing.T) {
		p := newDraft(t)
		oldKey := p.IdempotencyKey
		if err := p.BumpContent("a fresh take on the episode", nil); err != nil {
			t.Fatalf("BumpContent: %v", err)
		}
		if p.ContentVersion != 2 {
			t.Errorf("expected version 2, got %d", p.ContentVersion)
		}
		if p.IdempotencyKey == oldKey {
			t.Error("idempotency key must change with content version")
		}
	})

	t.Run("content is frozen once publishing", func(t *testing.T) {
		p := newDraft(t)
		p.Status = model.PostStatusPublishing
		if err := p.BumpContent("too late", nil); !errors.Is(err, domain.ErrInvalidStateTransition) {
			t.Errorf("expected ErrInvalidStateTransition, got %v", err)
		}
	})
}

func TestRetryPolicy(t *testing.T) {
	policy := model.RetryPolicy{Base: time.Second, Cap: 30 * time.Second, MaxAttempts: 5}

	t.Run("backoff is non-decreasing up to the cap", func(t *testing.T) {
		var prev time.Duration
		for attempts := 0; attempts < policy.MaxAttempts; attempts++ {
			retry, delay := policy.NextAttempt(attempts)
			if !retry {
				t.Fatalf("expected retry at attempts=%d", attempts)
			}
			if delay < prev {
				t.Errorf("delay decreased: attempts=%d delay=%s prev=%s", attempts, delay, prev)
			}
			if delay > policy.Cap {
				t.Errorf("delay %s exceeds cap %s", delay, policy.Cap)
			}
			prev = delay
		}
	})

	t.Run("stops at max attempts", func(t *testing.T) {
		if retry, _ := policy.NextAttempt(policy.MaxAttempts); retry {
			t.Error("expected no retry once attempts reach MaxAttempts")
		}
	})

	t.Run("doubles from base", func(t *testing.T) {
		_, d0 := policy.NextAttempt(0)
		_, d1 := policy.NextAttempt(1)
		_, d2 := policy.NextAttempt(2)
		if d0 != time.Second || d1 != 2*time.Second || d2 != 4*time.Second {
			t.Errorf("unexpected schedule: %s, %s, %s", d0, d1, d2)
		}
	})
}

func TestNewProcessingJob(t *testing.T) {
	if _, err := model.NewProcessingJob("", model.JobKindTranscribe, 0); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("empty episodeRef: expected ErrInvalidArgument, got %v", err)
	}
	if _, err := model.NewProcessingJob("ep-1", model.JobKind("publish"), 0); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("unknown kind: expected ErrInvalidArgument, got %v", err)
	}
	job, err := model.NewProcessingJob("ep-1", model.JobKindGenerate, 2)
	if err != nil {
		t.Fatalf("NewProcessingJob: %v", err)
	}
	if job.Status != model.JobStatusQueued || job.Priority != 2 || job.ID == "" {
		t.Errorf("unexpected job: %+v", job)
	}
}
