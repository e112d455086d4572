package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hn-recommender/hn"
)

// --- Mock implementations ---

type mockHNClient struct {
	topStories []int
	items      map[int]*hn.Item
	topErr     error
	itemErr    map[int]error
}

func (m *mockHNClient) TopStories(ctx context.Context, limit int) ([]int, error) {
	if m.topErr != nil {
		return nil, m.topErr
	}
	if limit > len(m.topStories) {
		return m.topStories, nil
	}
	return m.topStories[:limit], nil
}

func (m *mockHNClient) GetItem(ctx context.Context, id int) (*hn.Item, error) {
	if err, ok := m.itemErr[id]; ok {
		return nil, err
	}
	item, ok := m.items[id]
	if !ok {
		return nil, fmt.Errorf("item %d: %w", id, hn.ErrNotFound)
	}
	return item, nil
}

type mockScraper struct {
	mu      sync.Mutex
	content map[string]string
	err     map[string]error
	calls   []string
}

func (m *mockScraper) Scrape(ctx context.Context, url string) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, url)
	m.mu.Unlock()
	if err, ok := m.err[url]; ok {
		return "", err
	}
	return m.content[url], nil
}

func newMockHN() *mockHNClient {
	return &mockHNClient{
		topStories: []int{5, 3, 9, 7, 1},
		items: map[int]*hn.Item{
			5: {ID: 5, Title: "Five", URL: "https://five.example", Score: 50, By: "alice", Time: 500, Descendants: 12},
			3: {ID: 3, Title: "Three", URL: "https://three.example", Score: 30, Time: 300},
			9: {ID: 9, Title: "Ask HN: no url", Score: 90},
			7: {ID: 7, Title: "Seven", URL: "https://seven.example", Score: 70, Dead: true},
			1: {ID: 1, Title: "One", URL: "https://one.example", Score: 10, By: "bob"},
		},
	}
}

func TestTop_KeepsRankingOrderAndFilters(t *testing.T) {
	f := NewFetcher(newMockHN(), &mockScraper{}, 2)

	articles, err := f.Top(context.Background(), 10, false)
	require.NoError(t, err)
	require.Len(t, articles, 3)

	assert.Equal(t, 5, articles[0].ID)
	assert.Equal(t, 3, articles[1].ID)
	assert.Equal(t, 1, articles[2].ID)

	assert.Equal(t, "alice", articles[0].Author)
	assert.Equal(t, 12, articles[0].CommentsCount)
	assert.Equal(t, int64(500), articles[0].Time)
	assert.Equal(t, "unknown", articles[1].Author)
	assert.Empty(t, articles[0].Content)
}

func TestTop_Limit(t *testing.T) {
	f := NewFetcher(newMockHN(), nil, 0)
	articles, err := f.Top(context.Background(), 2, false)
	require.NoError(t, err)
	require.Len(t, articles, 2)
	assert.Equal(t, 5, articles[0].ID)
	assert.Equal(t, 3, articles[1].ID)
}

func TestTop_Hydrate(t *testing.T) {
	scraper := &mockScraper{
		content: map[string]string{"https://five.example": "five preview"},
		err:     map[string]error{"https://three.example": errors.New("timeout")},
	}
	f := NewFetcher(newMockHN(), scraper, 4)

	articles, err := f.Top(context.Background(), 10, true)
	require.NoError(t, err)
	require.Len(t, articles, 3)
	assert.Equal(t, "five preview", articles[0].Content)
	assert.Empty(t, articles[1].Content, "failed scrape leaves content empty")
	assert.Len(t, scraper.calls, 3)
}

func TestTop_SkipsFailingItems(t *testing.T) {
	client := newMockHN()
	client.itemErr = map[int]error{3: errors.New("boom")}
	f := NewFetcher(client, nil, 1)

	articles, err := f.Top(context.Background(), 10, false)
	require.NoError(t, err)
	require.Len(t, articles, 2)
	assert.Equal(t, 5, articles[0].ID)
	assert.Equal(t, 1, articles[1].ID)
}

func TestTop_TopStoriesError(t *testing.T) {
	client := newMockHN()
	client.topErr = errors.New("unavailable")
	f := NewFetcher(client, nil, 1)

	_, err := f.Top(context.Background(), 10, false)
	assert.Error(t, err)
}

func TestTop_Cancelled(t *testing.T) {
	client := newMockHN()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	client.itemErr = map[int]error{5: context.Canceled, 3: context.Canceled, 9: context.Canceled, 7: context.Canceled, 1: context.Canceled}
	f := NewFetcher(client, nil, 1)

	_, err := f.Top(ctx, 10, false)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestArticle(t *testing.T) {
	scraper := &mockScraper{content: map[string]string{"https://one.example": "one preview"}}
	f := NewFetcher(newMockHN(), scraper, 1)

	t.Run("hydrated story", func(t *testing.T) {
		a, err := f.Article(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, "One", a.Title)
		assert.Equal(t, "one preview", a.Content)
	})

	t.Run("story without url", func(t *testing.T) {
		a, err := f.Article(context.Background(), 9)
		require.NoError(t, err)
		assert.Empty(t, a.Content)
	})

	t.Run("dead item", func(t *testing.T) {
		_, err := f.Article(context.Background(), 7)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("missing item", func(t *testing.T) {
		_, err := f.Article(context.Background(), 404)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
