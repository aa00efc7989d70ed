// Package slides turns submitted slide descriptions and uploaded binaries
// into the ordered slide sequence of a story.
package slides

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/errgroup"

	"webstories/media"
	"webstories/models"
)

var uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "stories_media_uploads_total",
	Help: "Media uploads issued while building slide sequences.",
}, []string{"kind", "result"})

// File is one binary part of a write submission.
type File interface {
	Filename() string
	ContentType() string
	Size() int64
	Open() (io.ReadCloser, error)
}

// Result is a built slide sequence.
type Result struct {
	Slides []models.Slide
	// Uploaded holds the slides whose objects were created by this build.
	Uploaded []models.Slide
}

type Builder struct {
	store       media.Store
	folder      string
	concurrency int
	logger      *slog.Logger
}

func NewBuilder(store media.Store, folder string, concurrency int, logger *slog.Logger) *Builder {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Builder{
		store:       store,
		folder:      folder,
		concurrency: concurrency,
		logger:      logger.With(slog.String("component", "slide_builder")),
	}
}

// Build resolves sources in submission order. Uploads run concurrently but
// the result always follows the order of sources. An UploadedFile whose
// FileIndex has no matching file is left out of the result.
//
// If any upload fails the whole build fails with *models.UpstreamMediaError,
// and objects already uploaded by this build are destroyed best-effort.
func (b *Builder) Build(ctx context.Context, sources []models.SlideSource, files []File) (*Result, error) {
	slots := make([]*models.Slide, len(sources))

	var (
		mu       sync.Mutex
		uploaded []models.Slide
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	for i, src := range sources {
		switch src := src.(type) {
		case models.RetainedURL:
			s := src.Slide()
			slots[i] = &s
		case models.UploadedFile:
			if src.FileIndex >= len(files) || files[src.FileIndex] == nil {
				b.logger.Warn("slide dropped: no file at index",
					slog.Int("position", i),
					slog.Int("file_index", src.FileIndex),
				)
				continue
			}
			f := files[src.FileIndex]
			g.Go(func() error {
				s, err := b.upload(gctx, src, f)
				if err != nil {
					return err
				}
				mu.Lock()
				uploaded = append(uploaded, s)
				mu.Unlock()
				slots[i] = &s
				return nil
			})
		default:
			_ = g.Wait()
			b.release(context.WithoutCancel(ctx), uploaded)
			return nil, fmt.Errorf("unsupported slide source %T", src)
		}
	}

	if err := g.Wait(); err != nil {
		b.release(context.WithoutCancel(ctx), uploaded)
		var upstream *models.UpstreamMediaError
		if errors.As(err, &upstream) {
			return nil, err
		}
		return nil, &models.UpstreamMediaError{Op: "upload", Err: err}
	}

	res := &Result{Slides: make([]models.Slide, 0, len(sources))}
	for i, s := range slots {
		if s == nil {
			continue
		}
		res.Slides = append(res.Slides, *s)
		if _, ok := sources[i].(models.UploadedFile); ok {
			res.Uploaded = append(res.Uploaded, *s)
		}
	}
	return res, nil
}

func (b *Builder) upload(ctx context.Context, src models.UploadedFile, f File) (models.Slide, error) {
	kind := models.KindFromMediaType(f.ContentType())

	rc, err := f.Open()
	if err != nil {
		uploadsTotal.WithLabelValues(string(kind), "error").Inc()
		return models.Slide{}, fmt.Errorf("open %s: %w", f.Filename(), err)
	}
	defer rc.Close()

	asset, err := b.store.Upload(ctx, rc, media.UploadOptions{
		Folder:       b.folder,
		ResourceKind: kind,
		ObjectID:     media.NewObjectID(f.Filename()),
		ContentType:  f.ContentType(),
		Size:         f.Size(),
	})
	if err == nil && asset.URL == "" {
		err = fmt.Errorf("store returned no url for %s", f.Filename())
	}
	if err != nil {
		uploadsTotal.WithLabelValues(string(kind), "error").Inc()
		return models.Slide{}, &models.UpstreamMediaError{Op: "upload", Err: err}
	}
	uploadsTotal.WithLabelValues(string(kind), "ok").Inc()

	return models.Slide{
		Kind:         kind,
		URL:          asset.URL,
		AssetID:      asset.ID,
		ResourceKind: kind,
		Duration:     models.ResolveDuration(kind, src.Duration),
		Animation:    src.Animation,
	}, nil
}

// Release destroys the owned assets of slides, e.g. after a freshly built
// sequence could not be persisted. Failures are logged only.
func (b *Builder) Release(ctx context.Context, slides []models.Slide) {
	b.release(ctx, slides)
}

func (b *Builder) release(ctx context.Context, slides []models.Slide) {
	for _, s := range slides {
		if !s.Owned() {
			continue
		}
		if err := b.store.Destroy(ctx, s.AssetID, s.AssetKind()); err != nil {
			b.logger.Warn("orphaned asset not released",
				slog.String("asset_id", s.AssetID),
				slog.String("error", err.Error()),
			)
		}
	}
}
