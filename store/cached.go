package store

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"webstories/models"
)

var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stories_cache_hits_total",
		Help: "Story reads served from the in-process cache.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stories_cache_misses_total",
		Help: "Story reads that went to the repository.",
	})
)

// Cached fronts a StoryRepository with an expiring LRU for FindByID.
// Entries are keyed by the canonical lowercase hex id. Writes through this
// wrapper invalidate the cached entry; writes that bypass it are visible
// once the entry's TTL runs out.
type Cached struct {
	StoryRepository
	cache *expirable.LRU[string, models.Story]

	// epoch counts invalidations. A miss only fills the cache if no
	// invalidation happened while it was reading.
	mu    sync.Mutex
	epoch uint64
}

func NewCached(inner StoryRepository, size int, ttl time.Duration) *Cached {
	return &Cached{
		StoryRepository: inner,
		cache:           expirable.NewLRU[string, models.Story](size, nil, ttl),
	}
}

func (c *Cached) FindByID(ctx context.Context, id string) (*models.Story, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	key := oid.Hex()

	if s, ok := c.cache.Get(key); ok {
		cacheHitsTotal.Inc()
		clone := s.Clone()
		return &clone, nil
	}
	cacheMissesTotal.Inc()

	c.mu.Lock()
	epoch := c.epoch
	c.mu.Unlock()

	story, err := c.StoryRepository.FindByID(ctx, key)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.epoch == epoch {
		c.cache.Add(key, story.Clone())
	}
	c.mu.Unlock()
	return story, nil
}

func (c *Cached) Replace(ctx context.Context, story *models.Story) error {
	key := story.ID.Hex()
	c.invalidate(key)
	defer c.invalidate(key)
	return c.StoryRepository.Replace(ctx, story)
}

func (c *Cached) Delete(ctx context.Context, id string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	key := oid.Hex()
	c.invalidate(key)
	defer c.invalidate(key)
	return c.StoryRepository.Delete(ctx, key)
}

func (c *Cached) invalidate(key string) {
	c.mu.Lock()
	c.epoch++
	c.cache.Remove(key)
	c.mu.Unlock()
}
