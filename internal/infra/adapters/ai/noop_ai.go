package ai

import (
	"context"
	"fmt"
	"time"

	"catalog-console/internal/domain/model"
	"catalog-console/internal/domain/ports/adapter"
)

var _ adapter.GenerationService = (*NoopService)(nil)

// NoopService implements adapter.GenerationService for local/dev testing.
// It fabricates items instead of calling a real model.
type NoopService struct {
	seq int
}

func NewNoopService() *NoopService {
	return &NoopService{}
}

func (a *NoopService) ListModels(ctx context.Context) ([]string, error) {
	return []string{"noop-model"}, nil
}

func (a *NoopService) Generate(ctx context.Context, params adapter.GenerateParams) ([]*model.ContentItem, error) {
	// Simulate slight processing time and respect ctx
	select {
	case <-time.After(100 * time.Millisecond):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	a.seq++
	item := model.NewContentItem(
		fmt.Sprintf("%s sample %d", params.CategoryName, a.seq),
		"- placeholder point one\n- placeholder point two",
		params.CategoryID,
		params.ContentType,
	)
	return []*model.ContentItem{item}, nil
}

func (a *NoopService) Rewrite(ctx context.Context, item *model.ContentItem, modelName string) (*model.ContentItem, error) {
	select {
	case <-time.After(100 * time.Millisecond):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	out := *item
	out.Title = item.Title + " (revised)"
	out.Summary = model.Summarize(out.Body)
	return &out, nil
}
