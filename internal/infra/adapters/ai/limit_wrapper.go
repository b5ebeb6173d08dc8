package ai

import (
	"context"

	"catalog-console/internal/domain/model"
	"catalog-console/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.GenerationService = (*limitedService)(nil)

type limitedService struct {
	inner adapter.GenerationService
	sem   chan struct{}
}

// NewLimitedService caps in-flight calls to the remote service. The
// orchestrator is already sequential; this guards the ops endpoints that
// can trigger rewrites concurrently with a running batch.
func NewLimitedService(inner adapter.GenerationService, maxConcurrent int) adapter.GenerationService {
	if maxConcurrent <= 0 {
		return inner
	}
	return &limitedService{
		inner: inner,
		sem:   make(chan struct{}, maxConcurrent),
	}
}

func (l *limitedService) ListModels(ctx context.Context) ([]string, error) {
	return l.inner.ListModels(ctx)
}

func (l *limitedService) Generate(ctx context.Context, params adapter.GenerateParams) ([]*model.ContentItem, error) {
	l.sem <- struct{}{}
	defer func() { <-l.sem }()
	return l.inner.Generate(ctx, params)
}

func (l *limitedService) Rewrite(ctx context.Context, item *model.ContentItem, modelName string) (*model.ContentItem, error) {
	l.sem <- struct{}{}
	defer func() { <-l.sem }()
	return l.inner.Rewrite(ctx, item, modelName)
}
