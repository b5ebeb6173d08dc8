// File: internal/usecase/dedup_uc.go
package usecase

import (
	"context"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"catalog-console/internal/domain/model"
	"catalog-console/internal/domain/ports/repository"
	"catalog-console/internal/infra/logging"
	"catalog-console/internal/infra/metrics"
)

// Compile-time check
var _ DedupUseCase = (*dedupUC)(nil)

// Duplicate precedence, from strongest to weakest: the persisted IsDuplicate
// flag, then normalized-title grouping, then the pairwise similarity score.
// Similarity only ranks candidates for display; it never drives deletion.
type DedupUseCase interface {
	FindDuplicates(items []*model.ContentItem) []model.DuplicateGroup
	IsDuplicate(item *model.ContentItem, items []*model.ContentItem) bool

	// ScanStore lists the stored set and returns its duplicate groups.
	ScanStore(ctx context.Context) ([]model.DuplicateGroup, error)

	// MarkDuplicates reconciles persisted flags with current groups: every
	// group member except the first is flagged. Idempotent; returns the
	// number of update calls issued.
	MarkDuplicates(ctx context.Context) (int, error)

	// ScorePairs ranks pairwise similarity between items of the same
	// category, highest overall score first.
	ScorePairs(items []*model.ContentItem) []model.SimilarityScore
}

type dedupUC struct {
	content repository.ContentRepository
	log     *zerolog.Logger
}

func NewDedupUseCase(content repository.ContentRepository, log *zerolog.Logger) *dedupUC {
	return &dedupUC{content: content, log: log}
}

// FindDuplicates partitions items by normalized title and returns the groups
// of cardinality >= 2, group order and member order following first
// appearance in the input.
func (d *dedupUC) FindDuplicates(items []*model.ContentItem) []model.DuplicateGroup {
	byKey := make(map[string][]*model.ContentItem, len(items))
	var order []string
	for _, it := range items {
		key := model.NormalizeTitle(it.Title)
		if key == "" {
			continue
		}
		if _, seen := byKey[key]; !seen {
			order = append(order, key)
		}
		byKey[key] = append(byKey[key], it)
	}

	var groups []model.DuplicateGroup
	for _, key := range order {
		members := byKey[key]
		if len(members) < 2 {
			continue
		}
		groups = append(groups, model.DuplicateGroup{
			Key:     key,
			Members: members,
			State:   model.GroupDetected,
		})
	}
	return groups
}

// IsDuplicate: the persisted flag is the source of truth once set; otherwise
// a direct case-insensitive title match against any other item counts.
func (d *dedupUC) IsDuplicate(item *model.ContentItem, items []*model.ContentItem) bool {
	if item.IsDuplicate {
		return true
	}
	title := strings.ToLower(strings.TrimSpace(item.Title))
	for _, other := range items {
		if other.ID != "" && other.ID == item.ID {
			continue
		}
		if strings.ToLower(strings.TrimSpace(other.Title)) == title {
			return true
		}
	}
	return false
}

func (d *dedupUC) ScanStore(ctx context.Context) ([]model.DuplicateGroup, error) {
	items, err := d.content.List(ctx, repository.ContentFilter{})
	if err != nil {
		return nil, err
	}
	groups := d.FindDuplicates(items)
	metrics.SetDuplicateGroups(len(groups))
	return groups, nil
}

func (d *dedupUC) MarkDuplicates(ctx context.Context) (int, error) {
	defer logging.TraceDuration(d.log, "DedupUC.MarkDuplicates")()

	groups, err := d.ScanStore(ctx)
	if err != nil {
		return 0, err
	}

	updated := 0
	yes := true
	for _, g := range groups {
		// First member stays unflagged; already-true members are skipped
		// so a second pass issues zero writes.
		for _, m := range g.Members[1:] {
			if m.IsDuplicate {
				continue
			}
			if _, err := d.content.Update(ctx, m.ID, model.ContentPatch{IsDuplicate: &yes}); err != nil {
				d.log.Error().Err(err).Str("item_id", m.ID).Msg("marking duplicate failed")
				continue
			}
			updated++
		}
	}
	if updated > 0 {
		d.log.Info().Int("marked", updated).Int("groups", len(groups)).Msg("duplicate flags reconciled")
	}
	metrics.AddDuplicatesMarked(updated)
	return updated, nil
}

const highConfidenceThreshold = 0.85

// ScorePairs scores title and body similarity in [0,1] for every pair of
// items sharing a category. Used to rank candidates in the console, never to
// auto-delete.
func (d *dedupUC) ScorePairs(items []*model.ContentItem) []model.SimilarityScore {
	var scores []model.SimilarityScore
	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			a, b := items[i], items[j]
			if a.CategoryID != b.CategoryID {
				continue
			}
			title := tokenSimilarity(a.Title, b.Title)
			body := tokenSimilarity(a.Body, b.Body)
			overall := 0.6*title + 0.4*body
			scores = append(scores, model.SimilarityScore{
				LeftID:   a.ID,
				RightID:  b.ID,
				Title:    title,
				Body:     body,
				Overall:  overall,
				HighConf: overall > highConfidenceThreshold,
			})
		}
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Overall > scores[j].Overall
	})
	return scores
}

// tokenSimilarity is the Jaccard index over normalized word sets.
func tokenSimilarity(a, b string) float64 {
	as := tokenSet(a)
	bs := tokenSet(b)
	if len(as) == 0 && len(bs) == 0 {
		return 1
	}
	if len(as) == 0 || len(bs) == 0 {
		return 0
	}
	inter := 0
	for t := range as {
		if _, ok := bs[t]; ok {
			inter++
		}
	}
	union := len(as) + len(bs) - inter
	return float64(inter) / float64(union)
}

func tokenSet(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, f := range strings.Fields(model.NormalizeTitle(s)) {
		out[f] = struct{}{}
	}
	return out
}
