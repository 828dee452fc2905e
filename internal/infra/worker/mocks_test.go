package worker

import (
	"context"
	"sync"
	"time"

	"podcast-content-pipeline/internal/domain"
	"podcast-content-pipeline/internal/domain/model"
	"podcast-content-pipeline/internal/domain/ports/adapter"
	"podcast-content-pipeline/internal/domain/ports/repository"
)

type nackCall struct {
	id         string
	retryAfter time.Duration
	reason     string
}

type failCall struct {
	id     string
	reason string
}

type mockQueue struct {
	mu       sync.Mutex
	acked    []string
	nacks    []nackCall
	fails    []failCall
	archived int // rows reported per archive sweep
	sweeps   int
}

var _ repository.JobQueue = (*mockQueue)(nil)

func (q *mockQueue) Enqueue(ctx context.Context, tx repository.Tx, job *model.ProcessingJob) error {
	return nil
}

func (q *mockQueue) Dequeue(ctx context.Context, capacity int, lease, wait time.Duration) ([]*model.ProcessingJob, error) {
	return nil, nil
}

func (q *mockQueue) Ack(ctx context.Context, jobID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.acked = append(q.acked, jobID)
	return nil
}

func (q *mockQueue) Nack(ctx context.Context, jobID string, retryAfter time.Duration, reason string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.nacks = append(q.nacks, nackCall{jobID, retryAfter, reason})
	return nil
}

func (q *mockQueue) Fail(ctx context.Context, jobID string, reason string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.fails = append(q.fails, failCall{jobID, reason})
	return nil
}

func (q *mockQueue) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.ProcessingJob, error) {
	return nil, domain.ErrNotFound
}

func (q *mockQueue) ArchiveTerminalBefore(ctx context.Context, cutoff time.Time) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.sweeps++
	return q.archived, nil
}

type mockTranscripts struct {
	mu      sync.Mutex
	byRef   map[string]*model.Transcript
	saveErr error
}

var _ repository.TranscriptRepository = (*mockTranscripts)(nil)

func newMockTranscripts() *mockTranscripts {
	return &mockTranscripts{byRef: make(map[string]*model.Transcript)}
}

func (m *mockTranscripts) Save(ctx context.Context, tx repository.Tx, t *model.Transcript) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	if _, ok := m.byRef[t.EpisodeRef]; ok {
		return domain.ErrAlreadyExists
	}
	m.byRef[t.EpisodeRef] = t
	return nil
}

func (m *mockTranscripts) FindByEpisodeRef(ctx context.Context, tx repository.Tx, episodeRef string) (*model.Transcript, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byRef[episodeRef]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return t, nil
}

type mockPosts struct {
	mu     sync.Mutex
	saved  []*model.MarketingPost
	active map[string]bool // idempotency keys with a live post
}

var _ repository.MarketingPostRepository = (*mockPosts)(nil)

func newMockPosts() *mockPosts {
	return &mockPosts{active: make(map[string]bool)}
}

func (m *mockPosts) Save(ctx context.Context, tx repository.Tx, p *model.MarketingPost) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, p)
	m.active[p.IdempotencyKey] = true
	return nil
}

func (m *mockPosts) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.MarketingPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.saved {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockPosts) FindByEpisodeRef(ctx context.Context, tx repository.Tx, episodeRef string) ([]*model.MarketingPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.MarketingPost
	for _, p := range m.saved {
		if p.EpisodeRef == episodeRef {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockPosts) FindDue(ctx context.Context, now time.Time, limit int) ([]*model.MarketingPost, error) {
	return nil, nil
}

func (m *mockPosts) UpdateStatusCAS(ctx context.Context, id string, from, to model.PostStatus) (bool, error) {
	return false, nil
}

func (m *mockPosts) UpdateIfStatus(ctx context.Context, tx repository.Tx, p *model.MarketingPost, expected model.PostStatus) (bool, error) {
	return false, nil
}

func (m *mockPosts) RecoverStuckPublishing(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	return nil, nil
}

func (m *mockPosts) HasActiveForKey(ctx context.Context, key, excludeID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active[key], nil
}

type mockTranscriber struct {
	mu     sync.Mutex
	result *adapter.TranscriptionResult
	err    error
	calls  int
}

func (m *mockTranscriber) Transcribe(ctx context.Context, episodeRef string) (*adapter.TranscriptionResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

type mockGenerator struct {
	mu      sync.Mutex
	content string
	usage   adapter.Usage
	err     error
	calls   int
}

func (m *mockGenerator) Generate(ctx context.Context, system, prompt string) (string, adapter.Usage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return "", adapter.Usage{}, m.err
	}
	return m.content, m.usage, nil
}

type mockPublishAdapter struct {
	capability model.PlatformCapability
}

var _ adapter.PublishAdapter = (*mockPublishAdapter)(nil)

func (m *mockPublishAdapter) Platform() string { return m.capability.Name }

func (m *mockPublishAdapter) Capability() model.PlatformCapability { return m.capability }

func (m *mockPublishAdapter) Validate(content string, mediaRefs []string) []adapter.ValidationError {
	return nil
}

func (m *mockPublishAdapter) Publish(ctx context.Context, post *model.MarketingPost, authToken string) (*adapter.PublishResult, error) {
	return &adapter.PublishResult{ExternalPostID: "ext-" + post.ID}, nil
}

type mockRegistry struct {
	adapters map[string]adapter.PublishAdapter
	order    []string
}

var _ adapter.Registry = (*mockRegistry)(nil)

func newMockRegistry(caps ...model.PlatformCapability) *mockRegistry {
	r := &mockRegistry{adapters: make(map[string]adapter.PublishAdapter)}
	for _, c := range caps {
		r.adapters[c.Name] = &mockPublishAdapter{capability: c}
		r.order = append(r.order, c.Name)
	}
	return r
}

func (r *mockRegistry) Resolve(platform string) (adapter.PublishAdapter, error) {
	a, ok := r.adapters[platform]
	if !ok {
		return nil, domain.ErrUnknownPlatform
	}
	return a, nil
}

func (r *mockRegistry) Platforms() []string { return r.order }
