// Package feed loads Hacker News top stories as articles and keeps a
// periodically refreshed snapshot of them in memory.
package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"hn-recommender/hn"
	"hn-recommender/metrics"
	"hn-recommender/model"
)

// ErrNotFound is returned when an article does not exist or is not a story with a title.
var ErrNotFound = errors.New("feed: article not found")

const defaultConcurrency = 8

// HNClient fetches stories and items from Hacker News.
type HNClient interface {
	TopStories(ctx context.Context, limit int) ([]int, error)
	GetItem(ctx context.Context, id int) (*hn.Item, error)
}

// ContentScraper extracts a readable preview from a URL.
type ContentScraper interface {
	Scrape(ctx context.Context, url string) (string, error)
}

// Fetcher turns Hacker News items into articles.
type Fetcher struct {
	hn          HNClient
	scraper     ContentScraper
	concurrency int
}

// NewFetcher creates a Fetcher that loads at most concurrency items at once.
func NewFetcher(hn HNClient, scraper ContentScraper, concurrency int) *Fetcher {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Fetcher{hn: hn, scraper: scraper, concurrency: concurrency}
}

// Top returns up to limit current top stories in ranking order. Items without
// a title or URL, deleted or dead items, and items that fail to load are
// skipped. With hydrate set, each article's Content holds its page preview.
func (f *Fetcher) Top(ctx context.Context, limit int, hydrate bool) ([]model.Article, error) {
	ids, err := f.hn.TopStories(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("fetching top stories: %w", err)
	}
	slog.Debug("fetched story IDs", "count", len(ids))

	results := make([]*model.Article, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			item, err := f.hn.GetItem(gctx, id)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				metrics.FeedItemErrors.Inc()
				slog.Error("failed to fetch item", "id", id, "error", err)
				return nil
			}
			if item.Title == "" || item.URL == "" || item.Deleted || item.Dead {
				return nil
			}

			a := toArticle(item)
			if hydrate {
				a.Content = f.preview(gctx, item.URL)
			}
			results[i] = &a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	articles := make([]model.Article, 0, len(results))
	for _, a := range results {
		if a != nil {
			articles = append(articles, *a)
		}
	}
	slog.Info("feed fetched", "requested", len(ids), "articles", len(articles), "hydrated", hydrate)
	return articles, nil
}

// Article fetches a single story, always with its page preview when it has a URL.
// Deleted and dead items are reported as ErrNotFound.
func (f *Fetcher) Article(ctx context.Context, id int) (*model.Article, error) {
	item, err := f.hn.GetItem(ctx, id)
	if errors.Is(err, hn.ErrNotFound) {
		return nil, fmt.Errorf("article %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching article %d: %w", id, err)
	}
	if item.Title == "" || item.Deleted || item.Dead {
		return nil, fmt.Errorf("article %d: %w", id, ErrNotFound)
	}

	a := toArticle(item)
	if item.URL != "" {
		a.Content = f.preview(ctx, item.URL)
	}
	return &a, nil
}

func (f *Fetcher) preview(ctx context.Context, url string) string {
	if f.scraper == nil {
		return ""
	}
	content, err := f.scraper.Scrape(ctx, url)
	if err != nil {
		slog.Warn("scrape failed, leaving content empty", "url", url, "error", err)
		return ""
	}
	return content
}

func toArticle(item *hn.Item) model.Article {
	author := item.By
	if author == "" {
		author = "unknown"
	}
	return model.Article{
		ID:            item.ID,
		Title:         item.Title,
		URL:           item.URL,
		Score:         max(item.Score, 0),
		Time:          item.Time,
		Author:        author,
		CommentsCount: max(item.Descendants, 0),
	}
}
