// File: internal/usecase/resolve_uc.go
package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"catalog-console/internal/domain"
	"catalog-console/internal/domain/model"
	"catalog-console/internal/domain/ports/adapter"
	"catalog-console/internal/domain/ports/repository"
	"catalog-console/internal/infra/logging"
	"catalog-console/internal/infra/metrics"
)

// Compile-time check
var _ ResolveUseCase = (*resolveUC)(nil)

// DuplicateReason tags items removed by bulk cleanup.
const DuplicateReason = "duplicate"

// DeleteResult reports a per-item bulk delete. A failure on one id never
// blocks the others.
type DeleteResult struct {
	Deleted int
	Failed  int
	Errors  map[string]error
}

// CleanupResult summarizes one bulk cleanup pass.
type CleanupResult struct {
	Groups  int
	Kept    int
	Deleted int
	Failed  int
}

type ResolveUseCase interface {
	// Resolve designates keepID as the group's representative and moves
	// the group to resolving; the remaining members become candidates for
	// Rewrite or Delete.
	Resolve(group *model.DuplicateGroup, keepID string) error

	// Rewrite replaces the item's content with a reworded variant in
	// place; identity, counters and timestamps of record stay intact.
	Rewrite(ctx context.Context, itemID, modelName string) (*model.ContentItem, error)

	Delete(ctx context.Context, ids []string) DeleteResult

	// ResolveGroup applies rewrite or delete to every non-representative
	// member and advances the group through detected, resolving, resolved.
	// Partial failure drops the group back to detected with only the
	// unresolved members and returns ErrPartialResolution.
	ResolveGroup(ctx context.Context, group *model.DuplicateGroup, modelName string, rewrite bool) error

	// BulkCleanup keeps one representative per duplicate group and deletes
	// the rest. Idempotent and convergent: a second run finds zero groups
	// and performs zero mutations.
	BulkCleanup(ctx context.Context) (CleanupResult, error)
}

type resolveUC struct {
	content repository.ContentRepository
	svc     adapter.GenerationService
	dedup   DedupUseCase
	log     *zerolog.Logger
}

func NewResolveUseCase(
	content repository.ContentRepository,
	svc adapter.GenerationService,
	dedup DedupUseCase,
	log *zerolog.Logger,
) *resolveUC {
	return &resolveUC{content: content, svc: svc, dedup: dedup, log: log}
}

func (r *resolveUC) Resolve(group *model.DuplicateGroup, keepID string) error {
	if len(group.Members) == 0 {
		return domain.ErrEmptyGroup
	}
	if keepID == "" {
		// Default to first seen.
		keepID = group.Members[0].ID
	}
	if !group.Contains(keepID) {
		return domain.ErrNotInGroup
	}
	group.KeepID = keepID
	group.State = model.GroupResolving
	return nil
}

func (r *resolveUC) Rewrite(ctx context.Context, itemID, modelName string) (*model.ContentItem, error) {
	item, err := r.content.FindByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	rewritten, err := r.svc.Rewrite(ctx, item, modelName)
	if err != nil {
		return nil, err
	}

	summary := model.Summarize(rewritten.Body)
	no := false
	updated, err := r.content.Update(ctx, itemID, model.ContentPatch{
		Title:       &rewritten.Title,
		Body:        &rewritten.Body,
		Summary:     &summary,
		IsDuplicate: &no, // a rewritten item generally leaves the duplicate set
	})
	if err != nil {
		return nil, err
	}
	metrics.IncDuplicateResolved("rewrite")
	r.log.Info().Str("item_id", itemID).Str("model", modelName).Msg("duplicate rewritten in place")
	return updated, nil
}

func (r *resolveUC) Delete(ctx context.Context, ids []string) DeleteResult {
	res := DeleteResult{Errors: map[string]error{}}
	for _, id := range ids {
		if err := r.content.Delete(ctx, id); err != nil {
			res.Failed++
			res.Errors[id] = err
			r.log.Error().Err(err).Str("item_id", id).Msg("duplicate delete failed")
			continue
		}
		res.Deleted++
		metrics.IncDuplicateResolved("delete")
	}
	return res
}

func (r *resolveUC) ResolveGroup(ctx context.Context, group *model.DuplicateGroup, modelName string, rewrite bool) error {
	if group.KeepID == "" || group.State != model.GroupResolving {
		if err := r.Resolve(group, group.KeepID); err != nil {
			return err
		}
	}

	var unresolved []*model.ContentItem
	for _, m := range group.Members {
		if m.ID == group.KeepID {
			continue
		}
		var err error
		if rewrite {
			_, err = r.Rewrite(ctx, m.ID, modelName)
		} else {
			err = r.content.Delete(ctx, m.ID)
			if err == nil {
				metrics.IncDuplicateResolved("delete")
			}
		}
		if err != nil {
			unresolved = append(unresolved, m)
		}
	}

	if len(unresolved) > 0 {
		kept := group.Members[:0:0]
		for _, m := range group.Members {
			if m.ID == group.KeepID || containsItem(unresolved, m.ID) {
				kept = append(kept, m)
			}
		}
		group.Members = kept
		group.State = model.GroupDetected
		return domain.ErrPartialResolution
	}

	group.Members = []*model.ContentItem{findMember(group, group.KeepID)}
	group.State = model.GroupResolved
	return nil
}

func (r *resolveUC) BulkCleanup(ctx context.Context) (CleanupResult, error) {
	defer logging.TraceDuration(r.log, "ResolveUC.BulkCleanup")()

	groups, err := r.dedup.ScanStore(ctx)
	if err != nil {
		return CleanupResult{}, err
	}

	res := CleanupResult{Groups: len(groups)}
	yes := true
	for i := range groups {
		g := &groups[i]
		rep := g.Representative()
		if rep == nil {
			continue
		}
		res.Kept++
		for _, m := range g.Members {
			if m.ID == rep.ID {
				continue
			}
			// Tag before removal so the store's audit trail records why
			// the item went away.
			if !m.HasTag(DuplicateReason) {
				if _, err := r.content.Update(ctx, m.ID, model.ContentPatch{
					IsDuplicate: &yes,
					Tags:        append(append([]string{}, m.Tags...), DuplicateReason),
				}); err != nil {
					r.log.Error().Err(err).Str("item_id", m.ID).Msg("tagging duplicate before delete failed")
				}
			}
			if err := r.content.Delete(ctx, m.ID); err != nil {
				res.Failed++
				r.log.Error().Err(err).Str("item_id", m.ID).Msg("bulk cleanup delete failed")
				continue
			}
			res.Deleted++
			metrics.IncDuplicateResolved("delete")
		}
	}

	r.log.Info().
		Int("groups", res.Groups).
		Int("deleted", res.Deleted).
		Int("failed", res.Failed).
		Msg("bulk duplicate cleanup finished")
	return res, nil
}

func containsItem(items []*model.ContentItem, id string) bool {
	for _, it := range items {
		if it.ID == id {
			return true
		}
	}
	return false
}

func findMember(g *model.DuplicateGroup, id string) *model.ContentItem {
	for _, m := range g.Members {
		if m.ID == id {
			return m
		}
	}
	return nil
}
