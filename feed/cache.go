package feed

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"hn-recommender/metrics"
	"hn-recommender/model"
)

// Source loads a fresh list of top articles.
type Source interface {
	Top(ctx context.Context, limit int, hydrate bool) ([]model.Article, error)
}

// CacheConfig controls the cached snapshot.
type CacheConfig struct {
	Limit   int
	Hydrate bool
	TTL     time.Duration

	// FetchTimeout bounds one shared refresh, independent of any caller.
	FetchTimeout time.Duration
}

const defaultFetchTimeout = 5 * time.Minute

// Cache holds the latest top-stories snapshot in memory. It is never persisted.
type Cache struct {
	source Source
	cfg    CacheConfig
	now    func() time.Time

	group singleflight.Group

	mu        sync.RWMutex
	articles  []model.Article
	fetchedAt time.Time
}

// NewCache creates an empty Cache backed by source.
func NewCache(source Source, cfg CacheConfig) *Cache {
	if cfg.Limit <= 0 {
		cfg.Limit = 50
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 15 * time.Minute
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaultFetchTimeout
	}
	return &Cache{source: source, cfg: cfg, now: time.Now}
}

// Articles returns the snapshot, refreshing it first when it is empty or older
// than the TTL. If a refresh fails while an older snapshot exists, the older
// snapshot is returned.
func (c *Cache) Articles(ctx context.Context) ([]model.Article, error) {
	c.mu.RLock()
	articles, fetchedAt := c.articles, c.fetchedAt
	c.mu.RUnlock()

	if articles != nil && c.now().Sub(fetchedAt) < c.cfg.TTL {
		return slices.Clone(articles), nil
	}

	fresh, err := c.Refresh(ctx)
	if err != nil {
		if articles != nil {
			slog.Warn("feed refresh failed, serving stale snapshot", "age", c.now().Sub(fetchedAt).String(), "error", err)
			return slices.Clone(articles), nil
		}
		return nil, err
	}
	return fresh, nil
}

// Refresh replaces the snapshot with a fresh fetch. Concurrent calls share one
// fetch, which is detached from the caller that started it: cancelling ctx
// only stops this caller from waiting.
func (c *Cache) Refresh(ctx context.Context) ([]model.Article, error) {
	ch := c.group.DoChan("refresh", func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.FetchTimeout)
		defer cancel()

		articles, err := c.source.Top(fetchCtx, c.cfg.Limit, c.cfg.Hydrate)
		metrics.RecordFeedRefresh(len(articles), err)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.articles = articles
		c.fetchedAt = c.now()
		c.mu.Unlock()

		slog.Info("feed cache refreshed", "articles", len(articles))
		return articles, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return slices.Clone(res.Val.([]model.Article)), nil
	}
}

// FetchedAt returns when the snapshot was last refreshed, or the zero time.
func (c *Cache) FetchedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fetchedAt
}
