package scheduler

import (
	"context"
	"sort"
	"sync"
	"time"

	"podcast-content-pipeline/internal/domain"
	"podcast-content-pipeline/internal/domain/model"
	"podcast-content-pipeline/internal/domain/ports/adapter"
	"podcast-content-pipeline/internal/domain/ports/repository"
)

// memPosts mimics the database repository, including copy-on-read and an
// atomic compare-and-set, so concurrent dispatchers behave as in production.
type memPosts struct {
	mu    sync.Mutex
	posts map[string]*model.MarketingPost
}

var _ repository.MarketingPostRepository = (*memPosts)(nil)

func newMemPosts(posts ...*model.MarketingPost) *memPosts {
	m := &memPosts{posts: make(map[string]*model.MarketingPost)}
	for _, p := range posts {
		cp := *p
		m.posts[p.ID] = &cp
	}
	return m
}

func (m *memPosts) get(id string) *model.MarketingPost {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.posts[id]; ok {
		cp := *p
		return &cp
	}
	return nil
}

func (m *memPosts) Save(ctx context.Context, tx repository.Tx, p *model.MarketingPost) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.posts[p.ID] = &cp
	return nil
}

func (m *memPosts) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.MarketingPost, error) {
	if p := m.get(id); p != nil {
		return p, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memPosts) FindByEpisodeRef(ctx context.Context, tx repository.Tx, episodeRef string) ([]*model.MarketingPost, error) {
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

func (m *memPosts) FindDue(ctx context.Context, now time.Time, limit int) ([]*model.MarketingPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var due []*model.MarketingPost
	for _, p := range m.posts {
		if p.Status == model.PostStatusScheduled && p.ScheduledAt != nil && !p.ScheduledAt.After(now) {
			cp := *p
			due = append(due, &cp)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].ScheduledAt.Equal(*due[j].ScheduledAt) {
			return due[i].ID < due[j].ID
		}
		return due[i].ScheduledAt.Before(*due[j].ScheduledAt)
	})
	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (m *memPosts) UpdateStatusCAS(ctx context.Context, id string, from, to model.PostStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok || p.Status != from {
		return false, nil
	}
	p.Status = to
	p.UpdatedAt = time.Now()
	return true, nil
}

func (m *memPosts) UpdateIfStatus(ctx context.Context, tx repository.Tx, p *model.MarketingPost, expected model.PostStatus) (bool, error) {
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

func (m *memPosts) RecoverStuckPublishing(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for _, p := range m.posts {
		if len(ids) >= limit {
			break
		}
		if p.Status == model.PostStatusPublishing && p.UpdatedAt.Before(cutoff) {
			now := time.Now()
			p.Status = model.PostStatusScheduled
			p.ScheduledAt = &now
			p.UpdatedAt = now
			ids = append(ids, p.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *memPosts) HasActiveForKey(ctx context.Context, key, excludeID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.posts {
		if p.IdempotencyKey == key && p.ID != excludeID &&
			p.Status != model.PostStatusCancelled && p.Status != model.PostStatusFailed {
			return true, nil
		}
	}
	return false, nil
}

type memEvents struct {
	mu     sync.Mutex
	events []*model.StatusEvent
}

var _ repository.StatusEventRepository = (*memEvents)(nil)

func (m *memEvents) Append(ctx context.Context, tx repository.Tx, ev *model.StatusEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

func (m *memEvents) ListSince(ctx context.Context, since time.Time, limit int) ([]*model.StatusEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.StatusEvent
	for _, ev := range m.events {
		if !ev.OccurredAt.Before(since) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (m *memEvents) transitions(postID string) []model.PostStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.PostStatus
	for _, ev := range m.events {
		if ev.PostID == postID {
			out = append(out, ev.ToStatus)
		}
	}
	return out
}

// fakeLimiter admits `limit` calls per key, ignoring the window.
type fakeLimiter struct {
	mu     sync.Mutex
	counts map[string]int
}

func newFakeLimiter() *fakeLimiter { return &fakeLimiter{counts: make(map[string]int)} }

func (l *fakeLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.counts[key]++
	return l.counts[key] <= limit, nil
}

func (l *fakeLimiter) reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.counts = make(map[string]int)
}

// fakeIdem reproduces the redis registry semantics in memory.
type fakeIdem struct {
	mu    sync.Mutex
	state map[string]string // "in_flight" | "completed"
}

func newFakeIdem() *fakeIdem { return &fakeIdem{state: make(map[string]string)} }

func (f *fakeIdem) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.state[key]; ok {
		return false, nil
	}
	f.state[key] = "in_flight"
	return true, nil
}

func (f *fakeIdem) Complete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state[key] = "completed"
	return nil
}

func (f *fakeIdem) Release(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state[key] == "in_flight" {
		delete(f.state, key)
	}
	return nil
}

type publishCall struct {
	postID  string
	content string
}

// scriptedAdapter returns queued errors first, then succeeds.
type scriptedAdapter struct {
	mu         sync.Mutex
	capability model.PlatformCapability
	errs       []error
	verrs      []adapter.ValidationError
	calls      []publishCall
}

var _ adapter.PublishAdapter = (*scriptedAdapter)(nil)

func (a *scriptedAdapter) Platform() string { return a.capability.Name }

func (a *scriptedAdapter) Capability() model.PlatformCapability { return a.capability }

func (a *scriptedAdapter) Validate(content string, mediaRefs []string) []adapter.ValidationError {
	return a.verrs
}

func (a *scriptedAdapter) Publish(ctx context.Context, post *model.MarketingPost, authToken string) (*adapter.PublishResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, publishCall{postID: post.ID, content: post.Content})
	if len(a.errs) > 0 {
		err := a.errs[0]
		a.errs = a.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &adapter.PublishResult{ExternalPostID: "ext-" + post.ID}, nil
}

func (a *scriptedAdapter) publishCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.calls)
}

type fakeRegistry struct {
	adapters map[string]adapter.PublishAdapter
}

var _ adapter.Registry = (*fakeRegistry)(nil)

func newFakeRegistry(adapters ...adapter.PublishAdapter) *fakeRegistry {
	r := &fakeRegistry{adapters: make(map[string]adapter.PublishAdapter)}
	for _, a := range adapters {
		r.adapters[a.Platform()] = a
	}
	return r
}

func (r *fakeRegistry) Resolve(platform string) (adapter.PublishAdapter, error) {
	a, ok := r.adapters[platform]
	if !ok {
		return nil, domain.ErrUnknownPlatform
	}
	return a, nil
}

func (r *fakeRegistry) Platforms() []string {
	out := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

type fakeCreds struct {
	token string
	err   error
}

var _ adapter.CredentialStore = (*fakeCreds)(nil)

func (c *fakeCreds) Resolve(ctx context.Context, authRef string) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	return c.token, nil
}
