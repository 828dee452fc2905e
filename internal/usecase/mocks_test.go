package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"

	"podcast-content-pipeline/internal/domain"
	"podcast-content-pipeline/internal/domain/model"
	"podcast-content-pipeline/internal/domain/ports/adapter"
	"podcast-content-pipeline/internal/domain/ports/repository"
)

type mockTxManager struct{}

func (m *mockTxManager) WithTx(ctx context.Context, opts pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, nil)
}

type mockQueue struct {
	mu       sync.Mutex
	enqueued []*model.ProcessingJob
	err      error
}

var _ repository.JobQueue = (*mockQueue)(nil)

func (q *mockQueue) Enqueue(ctx context.Context, tx repository.Tx, job *model.ProcessingJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.enqueued = append(q.enqueued, job)
	return nil
}

func (q *mockQueue) Dequeue(ctx context.Context, capacity int, lease, wait time.Duration) ([]*model.ProcessingJob, error) {
	return nil, nil
}

func (q *mockQueue) Ack(ctx context.Context, jobID string) error     { return nil }
func (q *mockQueue) Fail(ctx context.Context, jobID, r string) error { return nil }

func (q *mockQueue) Nack(ctx context.Context, jobID string, retryAfter time.Duration, reason string) error {
	return nil
}

func (q *mockQueue) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.ProcessingJob, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, j := range q.enqueued {
		if j.ID == id {
			return j, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (q *mockQueue) ArchiveTerminalBefore(ctx context.Context, cutoff time.Time) (int, error) {
	return 0, nil
}

type mockPosts struct {
	mu     sync.Mutex
	posts  map[string]*model.MarketingPost
	active map[string]bool
	// afterFind runs once the read copy is taken, before the caller acts on
	// it. Tests use it to interleave a concurrent writer.
	afterFind func(m *mockPosts)
}

var _ repository.MarketingPostRepository = (*mockPosts)(nil)

func newMockPosts(posts ...*model.MarketingPost) *mockPosts {
	m := &mockPosts{posts: make(map[string]*model.MarketingPost), active: make(map[string]bool)}
	for _, p := range posts {
		cp := *p
		m.posts[p.ID] = &cp
	}
	return m
}

func (m *mockPosts) Save(ctx context.Context, tx repository.Tx, p *model.MarketingPost) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.posts[p.ID] = &cp
	return nil
}

func (m *mockPosts) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.MarketingPost, error) {
	m.mu.Lock()
	p, ok := m.posts[id]
	if !ok {
		m.mu.Unlock()
		return nil, domain.ErrNotFound
	}
	cp := *p
	m.mu.Unlock()
	if m.afterFind != nil {
		m.afterFind(m)
	}
	return &cp, nil
}

func (m *mockPosts) setStatus(id string, status model.PostStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.posts[id]; ok {
		p.Status = status
	}
}

func (m *mockPosts) FindByEpisodeRef(ctx context.Context, tx repository.Tx, episodeRef string) ([]*model.MarketingPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.MarketingPost
	for _, p := range m.posts {
		if p.EpisodeRef == episodeRef {
			cp := *p
			out = append(out, &cp)
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
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.posts[p.ID]
	if !ok || stored.Status != expected {
		return false, nil
	}
	cp := *p
	m.posts[p.ID] = &cp
	return true, nil
}

func (m *mockPosts) RecoverStuckPublishing(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	return nil, nil
}

func (m *mockPosts) HasActiveForKey(ctx context.Context, key, excludeID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active[key], nil
}

type mockEvents struct {
	mu     sync.Mutex
	events []*model.StatusEvent
}

var _ repository.StatusEventRepository = (*mockEvents)(nil)

func (m *mockEvents) Append(ctx context.Context, tx repository.Tx, ev *model.StatusEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

func (m *mockEvents) ListSince(ctx context.Context, since time.Time, limit int) ([]*model.StatusEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.StatusEvent, len(m.events))
	copy(out, m.events)
	return out, nil
}

type mockAdapter struct {
	capability model.PlatformCapability
	verrs      []adapter.ValidationError
}

var _ adapter.PublishAdapter = (*mockAdapter)(nil)

func (a *mockAdapter) Platform() string                                         { return a.capability.Name }
func (a *mockAdapter) Capability() model.PlatformCapability                     { return a.capability }
func (a *mockAdapter) Validate(c string, mr []string) []adapter.ValidationError { return a.verrs }

func (a *mockAdapter) Publish(ctx context.Context, post *model.MarketingPost, authToken string) (*adapter.PublishResult, error) {
	return &adapter.PublishResult{ExternalPostID: "ext"}, nil
}

type mockRegistry struct {
	adapters map[string]adapter.PublishAdapter
}

var _ adapter.Registry = (*mockRegistry)(nil)

func newMockRegistry(adapters ...adapter.PublishAdapter) *mockRegistry {
	r := &mockRegistry{adapters: make(map[string]adapter.PublishAdapter)}
	for _, a := range adapters {
		r.adapters[a.Platform()] = a
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

func (r *mockRegistry) Platforms() []string {
	out := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		out = append(out, name)
	}
	return out
}
