package hn

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
)

const BaseURL = "https://hacker-news.firebaseio.com"

// ErrNotFound is returned when an item does not exist. It never trips the breaker.
var ErrNotFound = errors.New("hn: item not found")

// Item represents a Hacker News item.
type Item struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Score       int    `json:"score"`
	Descendants int    `json:"descendants"`
	By          string `json:"by"`
	Time        int64  `json:"time"`
	Type        string `json:"type"`
	Deleted     bool   `json:"deleted"`
	Dead        bool   `json:"dead"`
}

// Client interface for HN API operations.
type Client interface {
	TopStories(ctx context.Context, limit int) ([]int, error)
	GetItem(ctx context.Context, id int) (*Item, error)
}

// BreakerConfig controls when the client stops calling the API after failures.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens the breaker.
	FailureThreshold uint32
	// Timeout is how long the breaker stays open before probing again.
	Timeout time.Duration
}

// DefaultBreakerConfig returns the breaker settings used by NewClient.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{FailureThreshold: 5, Timeout: 30 * time.Second}
}

type httpClient struct {
	client  *http.Client
	baseURL string
	breaker *gobreaker.CircuitBreaker[[]byte]
}

// NewClient creates a new HN API client with the given HTTP client.
func NewClient(client *http.Client) Client {
	return NewClientWithBaseURL(client, BaseURL, DefaultBreakerConfig())
}

// NewClientWithBaseURL creates a new HN API client with a custom base URL and breaker (for testing).
func NewClientWithBaseURL(client *http.Client, baseURL string, bc BreakerConfig) Client {
	if client == nil {
		client = http.DefaultClient
	}
	if bc.FailureThreshold == 0 {
		bc.FailureThreshold = DefaultBreakerConfig().FailureThreshold
	}
	settings := gobreaker.Settings{
		Name:    "hn-api",
		Timeout: bc.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= bc.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	}
	return &httpClient{
		client:  client,
		baseURL: baseURL,
		breaker: gobreaker.NewCircuitBreaker[[]byte](settings),
	}
}

// get fetches url through the breaker and returns the response body.
func (c *httpClient) get(ctx context.Context, url string) ([]byte, error) {
	return c.breaker.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return nil, ErrNotFound
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("status %d", resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	})
}

// TopStories fetches the top story IDs from HN, returning up to limit IDs.
func (c *httpClient) TopStories(ctx context.Context, limit int) ([]int, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s/v0/topstories.json", c.baseURL))
	if err != nil {
		return nil, fmt.Errorf("fetching top stories: %w", err)
	}

	var ids []int
	if err := json.Unmarshal(body, &ids); err != nil {
		return nil, fmt.Errorf("decoding top stories response: %w", err)
	}

	if limit > 0 && limit < len(ids) {
		ids = ids[:limit]
	}

	return ids, nil
}

// GetItem fetches a single HN item by ID. The API answers unknown IDs with a
// JSON null, which is reported as ErrNotFound.
func (c *httpClient) GetItem(ctx context.Context, id int) (*Item, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s/v0/item/%d.json", c.baseURL, id))
	if err != nil {
		return nil, fmt.Errorf("fetching item %d: %w", id, err)
	}

	if bytes.Equal(bytes.TrimSpace(body), []byte("null")) {
		return nil, fmt.Errorf("fetching item %d: %w", id, ErrNotFound)
	}

	var item Item
	if err := json.Unmarshal(body, &item); err != nil {
		return nil, fmt.Errorf("decoding item %d: %w", id, err)
	}

	return &item, nil
}
