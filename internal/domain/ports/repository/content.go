package repository

import (
	"context"

	"catalog-console/internal/domain/model"
)

// ContentFilter narrows List results. Zero value lists everything visible.
type ContentFilter struct {
	CategoryID     string
	Status         model.ContentStatus
	OnlyDuplicates bool
	Limit          int
}

// ContentRepository is the single owner of the shared content set. Every
// mutation is keyed by item id, so interleaving with unrelated reads across
// suspension points is safe; conflicting writes resolve last-write-wins at
// the store layer.
type ContentRepository interface {
	// Create assigns the id and persists the draft. New items surface
	// first in List (most-recent-first ordering).
	Create(ctx context.Context, item *model.ContentItem) (*model.ContentItem, error)

	FindByID(ctx context.Context, id string) (*model.ContentItem, error)

	// Update applies a partial patch and returns the updated item.
	Update(ctx context.Context, id string, patch model.ContentPatch) (*model.ContentItem, error)

	// Delete removes the item from the active set. Soft-delete semantics
	// are the store's concern.
	Delete(ctx context.Context, id string) error

	List(ctx context.Context, filter ContentFilter) ([]*model.ContentItem, error)
}

// CategoryRepository resolves category metadata for the orchestrator.
type CategoryRepository interface {
	FindByID(ctx context.Context, id string) (*model.Category, error)
	ListAll(ctx context.Context) ([]*model.Category, error)
}
