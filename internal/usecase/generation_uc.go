// File: internal/usecase/generation_uc.go
package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"catalog-console/internal/domain"
	"catalog-console/internal/domain/model"
	"catalog-console/internal/domain/ports/adapter"
	"catalog-console/internal/domain/ports/repository"
	"catalog-console/internal/infra/logging"
	"catalog-console/internal/infra/metrics"
)

// Compile-time check
var _ GenerationUseCase = (*generationUC)(nil)

const (
	// InProgressKey is the durable marker set while a batch runs. Found
	// still set on restart it means a previous batch may not have
	// finished; it is surfaced to the operator, never silently cleared.
	InProgressKey = "generation:in_progress"

	batchLockKey = "generation:batch_lock"
)

// RunParams describes one batch launch.
type RunParams struct {
	CategoryIDs      []string
	CountPerCategory int
	Difficulty       string
	Model            string

	// OnProgress, when set, observes every progress change. Values are
	// monotonically non-decreasing within the job.
	OnProgress func(model.Progress)
}

type GenerationUseCase interface {
	// Run drives the whole batch and always returns a job describing what
	// succeeded and what failed; only precondition violations and external
	// cancellation produce an error.
	Run(ctx context.Context, params RunParams) (*model.GenerationJob, error)

	// CheckStalled reads the durable in-progress marker left by a batch
	// that never finished. Advisory only: interrupted batches are not
	// resumed.
	CheckStalled(ctx context.Context) (bool, error)
	ClearStalled(ctx context.Context) error

	LastJob() *model.GenerationJob
	ListModels(ctx context.Context) ([]string, error)
}

type generationUC struct {
	content    repository.ContentRepository
	categories repository.CategoryRepository
	flags      repository.FlagRepository
	locker     repository.BatchLocker
	svc        adapter.GenerationService
	dedup      DedupUseCase
	retry      RetryPolicy
	authRetry  RetryPolicy
	pacing     PacingPolicy
	maxCount   int
	log        *zerolog.Logger

	// sleep is swappable so tests run without real timers
	sleep func(ctx context.Context, d time.Duration) error

	// firstCall is true until the first remote call of the running batch
	// has completed; that call uses the more patient auth retry policy.
	firstCall bool

	lastJob *model.GenerationJob
}

func NewGenerationUseCase(
	content repository.ContentRepository,
	categories repository.CategoryRepository,
	flags repository.FlagRepository,
	locker repository.BatchLocker,
	svc adapter.GenerationService,
	dedup DedupUseCase,
	retry RetryPolicy,
	authRetry RetryPolicy,
	pacing PacingPolicy,
	maxCount int,
	log *zerolog.Logger,
) *generationUC {
	if maxCount <= 0 {
		maxCount = 50
	}
	if authRetry.MaxRetries <= 0 {
		authRetry = retry
	}
	return &generationUC{
		content:    content,
		categories: categories,
		flags:      flags,
		locker:     locker,
		svc:        svc,
		dedup:      dedup,
		retry:      retry,
		authRetry:  authRetry,
		pacing:     pacing,
		maxCount:   maxCount,
		log:        log,
		sleep:      sleepCtx,
	}
}

func (g *generationUC) Run(ctx context.Context, params RunParams) (*model.GenerationJob, error) {
	defer logging.TraceDuration(g.log, "GenerationUC.Run")()

	// Preconditions fail fast, before any state is created.
	if len(params.CategoryIDs) == 0 {
		metrics.IncGenerationJob("rejected")
		return nil, domain.ErrNoCategoriesSelected
	}
	if params.CountPerCategory < 1 || params.CountPerCategory > g.maxCount {
		metrics.IncGenerationJob("rejected")
		return nil, domain.ErrInvalidItemCount
	}

	// One batch at a time: the remote service is shared and rate-limited.
	token, err := g.locker.TryLock(ctx, batchLockKey)
	if err != nil {
		return nil, domain.ErrBatchInProgress
	}
	defer func() { _ = g.locker.Unlock(context.Background(), batchLockKey, token) }()

	if err := g.flags.Set(ctx, InProgressKey); err != nil {
		g.log.Warn().Err(err).Msg("could not set in-progress marker")
	}
	defer func() {
		if err := g.flags.Clear(context.Background(), InProgressKey); err != nil {
			g.log.Warn().Err(err).Msg("could not clear in-progress marker")
		}
	}()

	requests := make([]model.GenerationRequest, 0, len(params.CategoryIDs))
	for _, id := range params.CategoryIDs {
		requests = append(requests, model.GenerationRequest{
			CategoryID: id,
			Count:      params.CountPerCategory,
			Difficulty: params.Difficulty,
			Model:      params.Model,
		})
	}
	job := model.NewGenerationJob(uuid.NewString(), requests)
	job.StartedAt = time.Now()
	ctx = logging.WithJobID(ctx, job.ID)
	log := logging.With(ctx, g.log)

	// The first remote call of a batch is the authentication-sensitive one
	// and gets the more patient retry policy.
	g.firstCall = true

	// Categories run strictly in caller order; items within a category in
	// index order. There is no parallel fan-out anywhere in this loop.
	for _, req := range requests {
		if err := g.runCategory(ctx, log, job, req, params.OnProgress); err != nil {
			// Only external cancellation reaches here.
			job.EndedAt = time.Now()
			g.lastJob = job
			return job, err
		}
	}

	job.Status = model.GenerationJobFinished
	job.EndedAt = time.Now()
	g.lastJob = job
	metrics.IncGenerationJob("finished")
	log.Info().
		Int("items", len(job.Results)).
		Int("categories", len(job.Outcomes)).
		Int("failed", job.FailedCategories()).
		Msg(job.Summary())

	// Reconcile duplicate flags now that the visible set changed.
	if g.dedup != nil {
		if _, err := g.dedup.MarkDuplicates(ctx); err != nil {
			log.Warn().Err(err).Msg("duplicate reconciliation after batch failed")
		}
	}
	return job, nil
}

func (g *generationUC) runCategory(
	ctx context.Context,
	log *zerolog.Logger,
	job *model.GenerationJob,
	req model.GenerationRequest,
	onProgress func(model.Progress),
) error {
	notify := func() {
		if onProgress != nil {
			onProgress(job.Progress)
		}
	}

	ctx = logging.WithCategoryID(ctx, req.CategoryID)
	log = logging.With(ctx, g.log)

	cat, err := g.categories.FindByID(ctx, req.CategoryID)
	if err != nil {
		// Upstream should have filtered unknown ids; skip without
		// aborting the job.
		lastErr := "category not found"
		if !errors.Is(err, domain.ErrNotFound) {
			lastErr = err.Error()
			log.Error().Err(err).Msg("category lookup failed")
		} else {
			log.Warn().Msg("category not found, skipping")
		}
		job.BeginCategory(req.CategoryID, req.Count)
		job.FinishCategory(model.CategoryOutcome{
			CategoryID: req.CategoryID,
			Name:       req.CategoryID,
			LastError:  lastErr,
		})
		notify()
		return nil
	}

	job.BeginCategory(cat.Name, req.Count)
	notify()

	produced := 0
	var lastErr error
	for idx := 1; idx <= req.Count; idx++ {
		if idx > 1 {
			if err := g.sleep(ctx, g.pacing.Delay(req.Count)); err != nil {
				return err
			}
		}

		item, err := g.generateOne(ctx, cat, req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			metrics.IncGeneratedItem(req.Model, false)
			log.Warn().Err(err).
				Int("item_index", idx).
				Msg("item generation failed")
			continue // one item never aborts the category
		}

		created, err := g.content.Create(ctx, item)
		if err != nil {
			lastErr = err
			metrics.IncGeneratedItem(req.Model, false)
			log.Error().Err(err).Msg("persisting generated item failed")
			continue
		}
		job.ItemDone(created)
		metrics.IncGeneratedItem(req.Model, true)
		notify()
		produced++
	}

	outcome := model.CategoryOutcome{
		CategoryID: cat.ID,
		Name:       cat.Name,
		Success:    produced >= 1,
		Produced:   produced,
	}
	if produced == 0 && lastErr != nil {
		outcome.LastError = lastErr.Error()
	}
	job.FinishCategory(outcome)
	notify()
	return nil
}

// generateOne issues exactly one unit call, retrying only on a rate-limit
// refusal per the retry policy. The conceptual "generate N" is fragmented
// into N of these so partial progress survives any single failure.
func (g *generationUC) generateOne(ctx context.Context, cat *model.Category, req model.GenerationRequest) (*model.ContentItem, error) {
	params := adapter.GenerateParams{
		CategoryID:   cat.ID,
		CategoryName: cat.Name,
		ContentType:  model.ContentTypeArticle,
		Count:        1,
		Difficulty:   req.Difficulty,
		Model:        req.Model,
	}

	retry := g.retry
	if g.firstCall {
		retry = g.authRetry
	}
	defer func() { g.firstCall = false }()

	var lastErr error
	for attempt := 0; attempt <= retry.MaxRetries; attempt++ {
		if attempt > 0 {
			metrics.IncRetry(req.Model)
			if err := g.sleep(ctx, retry.DelayForError(attempt, lastErr)); err != nil {
				return nil, err
			}
		}

		start := time.Now()
		items, err := g.svc.Generate(ctx, params)
		metrics.ObserveGenerationCall(req.Model, int(time.Since(start)/time.Millisecond), err == nil)
		if err == nil {
			if len(items) == 0 {
				return nil, errors.New("generation service returned no item")
			}
			item := items[0]
			item.CategoryID = cat.ID
			if item.Status == "" {
				item.Status = model.ContentStatusPending
			}
			return item, nil
		}

		lastErr = err
		if se, ok := adapter.AsServiceError(err); !ok || !se.RateLimited() {
			return nil, err // permanent, surfaces immediately
		}
	}
	return nil, lastErr
}

func (g *generationUC) CheckStalled(ctx context.Context) (bool, error) {
	return g.flags.Get(ctx, InProgressKey)
}

func (g *generationUC) ClearStalled(ctx context.Context) error {
	return g.flags.Clear(ctx, InProgressKey)
}

func (g *generationUC) LastJob() *model.GenerationJob { return g.lastJob }

func (g *generationUC) ListModels(ctx context.Context) ([]string, error) {
	return g.svc.ListModels(ctx)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
