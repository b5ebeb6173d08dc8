package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"catalog-console/internal/domain"
	"catalog-console/internal/domain/model"
	"catalog-console/internal/domain/ports/adapter"
	"catalog-console/internal/domain/ports/repository"
)

// ---- In-memory content repository ----

type memContentRepo struct {
	mu    sync.Mutex
	items []*model.ContentItem // most-recent-first
	seq   int

	CreateCalls int
	UpdateCalls int
	DeleteCalls int

	FailDelete map[string]error
	FailCreate error
}

var _ repository.ContentRepository = (*memContentRepo)(nil)

func newMemContentRepo() *memContentRepo {
	return &memContentRepo{FailDelete: map[string]error{}}
}

func (m *memContentRepo) seed(items ...*model.ContentItem) {
	for _, it := range items {
		m.seq++
		if it.ID == "" {
			it.ID = fmt.Sprintf("item-%d", m.seq)
		}
		if it.CreatedAt.IsZero() {
			it.CreatedAt = time.Now()
		}
		m.items = append([]*model.ContentItem{it}, m.items...)
	}
}

func (m *memContentRepo) Create(ctx context.Context, item *model.ContentItem) (*model.ContentItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateCalls++
	if m.FailCreate != nil {
		return nil, m.FailCreate
	}
	m.seq++
	stored := *item
	stored.ID = fmt.Sprintf("item-%d", m.seq)
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	m.items = append([]*model.ContentItem{&stored}, m.items...)
	return &stored, nil
}

func (m *memContentRepo) FindByID(ctx context.Context, id string) (*model.ContentItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range m.items {
		if it.ID == id {
			return it, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memContentRepo) Update(ctx context.Context, id string, patch model.ContentPatch) (*model.ContentItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateCalls++
	for _, it := range m.items {
		if it.ID != id {
			continue
		}
		if patch.Title != nil {
			it.Title = *patch.Title
		}
		if patch.Body != nil {
			it.Body = *patch.Body
		}
		if patch.Summary != nil {
			it.Summary = *patch.Summary
		}
		if patch.Status != nil {
			it.Status = *patch.Status
		}
		if patch.IsDuplicate != nil {
			it.IsDuplicate = *patch.IsDuplicate
		}
		if patch.Tags != nil {
			it.Tags = patch.Tags
		}
		it.UpdatedAt = time.Now()
		return it, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memContentRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeleteCalls++
	if err := m.FailDelete[id]; err != nil {
		return err
	}
	for i, it := range m.items {
		if it.ID == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memContentRepo) List(ctx context.Context, filter repository.ContentFilter) ([]*model.ContentItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.ContentItem
	for _, it := range m.items {
		if filter.CategoryID != "" && it.CategoryID != filter.CategoryID {
			continue
		}
		if filter.OnlyDuplicates && !it.IsDuplicate {
			continue
		}
		out = append(out, it)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

// ---- Category repository ----

type memCategoryRepo struct {
	byID    map[string]*model.Category
	FindErr error // returned by FindByID when set
}

var _ repository.CategoryRepository = (*memCategoryRepo)(nil)

func newMemCategoryRepo(cats ...*model.Category) *memCategoryRepo {
	m := &memCategoryRepo{byID: map[string]*model.Category{}}
	for _, c := range cats {
		m.byID[c.ID] = c
	}
	return m
}

func (m *memCategoryRepo) FindByID(ctx context.Context, id string) (*model.Category, error) {
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	if c, ok := m.byID[id]; ok {
		return c, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memCategoryRepo) ListAll(ctx context.Context) ([]*model.Category, error) {
	var out []*model.Category
	for _, c := range m.byID {
		out = append(out, c)
	}
	return out, nil
}

// ---- Flag repository (in-progress marker) ----

type memFlagRepo struct {
	mu         sync.Mutex
	flags      map[string]bool
	SetCalls   int
	ClearCalls int
}

var _ repository.FlagRepository = (*memFlagRepo)(nil)

func newMemFlagRepo() *memFlagRepo { return &memFlagRepo{flags: map[string]bool{}} }

func (m *memFlagRepo) Set(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SetCalls++
	m.flags[key] = true
	return nil
}

func (m *memFlagRepo) Get(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flags[key], nil
}

func (m *memFlagRepo) Clear(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ClearCalls++
	delete(m.flags, key)
	return nil
}

// ---- Batch locker ----

type memLocker struct {
	mu     sync.Mutex
	locked map[string]string
}

var _ repository.BatchLocker = (*memLocker)(nil)

func newMemLocker() *memLocker { return &memLocker{locked: map[string]string{}} }

func (m *memLocker) TryLock(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, held := m.locked[key]; held {
		return "", domain.ErrBatchInProgress
	}
	token := fmt.Sprintf("tok-%d", len(m.locked)+1)
	m.locked[key] = token
	return token, nil
}

func (m *memLocker) Unlock(ctx context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locked[key] == token {
		delete(m.locked, key)
	}
	return nil
}

// ---- Scripted generation service ----

type scriptedResponse struct {
	items []*model.ContentItem
	err   error
}

// scriptedService pops one scripted response per Generate call, in order.
type scriptedService struct {
	mu          sync.Mutex
	script      []scriptedResponse
	Calls       []adapter.GenerateParams
	RewriteFunc func(ctx context.Context, item *model.ContentItem, modelName string) (*model.ContentItem, error)
}

var _ adapter.GenerationService = (*scriptedService)(nil)

func ok(title string) scriptedResponse {
	return scriptedResponse{items: []*model.ContentItem{
		model.NewContentItem(title, "- point one\n- point two", "", model.ContentTypeArticle),
	}}
}

func rateLimited() scriptedResponse {
	return scriptedResponse{err: &adapter.ServiceError{Status: adapter.StatusTooManyRequests, Message: "slow down"}}
}

func permanent(msg string) scriptedResponse {
	return scriptedResponse{err: &adapter.ServiceError{Status: 500, Message: msg}}
}

func (s *scriptedService) ListModels(ctx context.Context) ([]string, error) {
	return []string{"test-model"}, nil
}

func (s *scriptedService) Generate(ctx context.Context, params adapter.GenerateParams) ([]*model.ContentItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls = append(s.Calls, params)
	if len(s.script) == 0 {
		return nil, &adapter.ServiceError{Status: 500, Message: "script exhausted"}
	}
	next := s.script[0]
	s.script = s.script[1:]
	return next.items, next.err
}

func (s *scriptedService) Rewrite(ctx context.Context, item *model.ContentItem, modelName string) (*model.ContentItem, error) {
	if s.RewriteFunc != nil {
		return s.RewriteFunc(ctx, item, modelName)
	}
	out := *item
	out.Title = item.Title + " (reworded)"
	return &out, nil
}

func listAll() repository.ContentFilter { return repository.ContentFilter{} }

// noSleep replaces real timers in tests and records requested delays.
func noSleep(delays *[]time.Duration) func(ctx context.Context, d time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		if delays != nil {
			*delays = append(*delays, d)
		}
		return ctx.Err()
	}
}
