// Package reconcile keeps a story's persisted slide sequence and the media
// objects it owns consistent across create, update and delete.
package reconcile

import (
	"context"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/errgroup"

	"webstories/media"
	"webstories/models"
	"webstories/slides"
	"webstories/store"
)

var (
	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stories_reconcile_operations_total",
		Help: "Story write operations by kind and outcome.",
	}, []string{"op", "result"})

	destroyFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stories_media_destroy_failures_total",
		Help: "Media destroy calls that failed and left an orphaned object.",
	})
)

// Update modes.
const (
	ModeNoChange    = "no_change"
	ModeFullReplace = "full_replace"
)

// Submission is a validated write request.
type Submission struct {
	Title    string
	Category string
	Sources  []models.SlideSource
	Files    []slides.File
}

type Engine struct {
	repo        store.StoryRepository
	builder     *slides.Builder
	media       media.Store
	locks       *keyedMutex
	concurrency int
	logger      *slog.Logger
}

func NewEngine(repo store.StoryRepository, builder *slides.Builder, mediaStore media.Store, concurrency int, logger *slog.Logger) *Engine {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Engine{
		repo:        repo,
		builder:     builder,
		media:       mediaStore,
		locks:       newKeyedMutex(),
		concurrency: concurrency,
		logger:      logger.With(slog.String("component", "reconcile")),
	}
}

func (e *Engine) List(ctx context.Context) ([]models.Story, error) {
	return e.repo.FindAll(ctx)
}

func (e *Engine) Get(ctx context.Context, id string) (*models.Story, error) {
	oid, err := models.ParseStoryID(id)
	if err != nil {
		return nil, err
	}
	return e.repo.FindByID(ctx, oid.Hex())
}

// Create builds the slide sequence and persists a new story. Nothing is
// persisted when the build fails.
func (e *Engine) Create(ctx context.Context, sub Submission) (story *models.Story, err error) {
	defer func() { observe("create", err) }()

	title := strings.TrimSpace(sub.Title)
	if title == "" {
		return nil, &models.ValidationError{Field: "title", Reason: "title is required"}
	}
	category := strings.TrimSpace(sub.Category)
	if category == "" {
		category = models.DefaultCategory
	}

	res, err := e.builder.Build(ctx, sub.Sources, sub.Files)
	if err != nil {
		return nil, err
	}

	story = &models.Story{
		Title:    title,
		Category: category,
		Slides:   res.Slides,
	}
	if err := e.repo.Create(ctx, story); err != nil {
		e.builder.Release(context.WithoutCancel(ctx), res.Uploaded)
		return nil, err
	}

	e.logger.Info("story created",
		slog.String("story_id", story.ID.Hex()),
		slog.Int("slides", len(story.Slides)),
	)
	return story, nil
}

// Update applies a submission to an existing story. Without files the
// persisted slides are kept verbatim and only title and category change.
// With files every owned asset of the current sequence is destroyed first
// and the sequence is rebuilt from the submission; those destroys are not
// undone if the rebuild fails.
func (e *Engine) Update(ctx context.Context, id string, sub Submission) (story *models.Story, err error) {
	mode := ModeNoChange
	if len(sub.Files) > 0 {
		mode = ModeFullReplace
	}
	defer func() { observe("update_"+mode, err) }()

	oid, err := models.ParseStoryID(id)
	if err != nil {
		return nil, err
	}
	key := oid.Hex()

	unlock := e.locks.Lock(key)
	defer unlock()

	story, err = e.repo.FindByID(ctx, key)
	if err != nil {
		return nil, err
	}

	if title := strings.TrimSpace(sub.Title); title != "" {
		story.Title = title
	}
	if category := strings.TrimSpace(sub.Category); category != "" {
		story.Category = category
	}

	var uploaded []models.Slide
	if mode == ModeFullReplace {
		e.destroyAll(ctx, story.ID.Hex(), story.Slides)

		res, err := e.builder.Build(ctx, sub.Sources, sub.Files)
		if err != nil {
			e.logger.Error("slide rebuild failed after stale assets were destroyed",
				slog.String("story_id", story.ID.Hex()),
				slog.String("error", err.Error()),
			)
			return nil, err
		}
		story.Slides = res.Slides
		uploaded = res.Uploaded
	}

	if err := e.repo.Replace(ctx, story); err != nil {
		e.builder.Release(context.WithoutCancel(ctx), uploaded)
		return nil, err
	}

	e.logger.Info("story updated",
		slog.String("story_id", story.ID.Hex()),
		slog.String("mode", mode),
		slog.Int("slides", len(story.Slides)),
	)
	return story, nil
}

// Delete releases every owned asset of the story and then removes the
// record. Destroy failures never block the removal.
func (e *Engine) Delete(ctx context.Context, id string) (err error) {
	defer func() { observe("delete", err) }()

	oid, err := models.ParseStoryID(id)
	if err != nil {
		return err
	}
	key := oid.Hex()

	unlock := e.locks.Lock(key)
	defer unlock()

	story, err := e.repo.FindByID(ctx, key)
	if err != nil {
		return err
	}

	e.destroyAll(ctx, key, story.Slides)

	if err := e.repo.Delete(ctx, key); err != nil {
		return err
	}
	e.logger.Info("story deleted", slog.String("story_id", key))
	return nil
}

// destroyAll attempts one destroy per distinct owned asset. Calls are
// independent: a failure is logged and counted, the rest still run.
func (e *Engine) destroyAll(ctx context.Context, storyID string, current []models.Slide) {
	var g errgroup.Group
	g.SetLimit(e.concurrency)

	seen := make(map[string]struct{}, len(current))
	for _, s := range current {
		if !s.Owned() {
			continue
		}
		if _, dup := seen[s.AssetID]; dup {
			continue
		}
		seen[s.AssetID] = struct{}{}
		g.Go(func() error {
			if err := e.media.Destroy(ctx, s.AssetID, s.AssetKind()); err != nil {
				destroyFailuresTotal.Inc()
				e.logger.Warn("media destroy failed",
					slog.String("story_id", storyID),
					slog.String("asset_id", s.AssetID),
					slog.String("resource_kind", string(s.AssetKind())),
					slog.String("error", err.Error()),
				)
			}
			return nil
		})
	}
	_ = g.Wait()
}

func observe(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	operationsTotal.WithLabelValues(op, result).Inc()
}
