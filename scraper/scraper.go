package scraper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"hn-recommender/metrics"
)

const (
	maxContentLength  = 500
	previewParagraphs = 3
	maxBodyBytes      = 4 << 20
	defaultCacheSize  = 100
)

// Scraper interface for article preview extraction.
type Scraper interface {
	Scrape(ctx context.Context, url string) (string, error)
}

type httpScraper struct {
	client  *http.Client
	cache   *lru.Cache[string, string]
	limiter *rate.Limiter
}

// Option configures a Scraper.
type Option func(*httpScraper)

// WithCacheSize keeps up to n previews keyed by URL. n <= 0 keeps the default.
func WithCacheSize(n int) Option {
	return func(s *httpScraper) {
		if n > 0 {
			s.cache, _ = lru.New[string, string](n)
		}
	}
}

// WithRateLimit allows at most perSecond page fetches per second with the given burst.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(s *httpScraper) {
		if perSecond > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))
		}
	}
}

// NewScraper creates a new Scraper with the given timeout for HTTP requests.
func NewScraper(timeout time.Duration, opts ...Option) Scraper {
	return NewScraperWithClient(&http.Client{Timeout: timeout}, opts...)
}

// NewScraperWithClient creates a new Scraper with a custom HTTP client (for testing).
func NewScraperWithClient(client *http.Client, opts ...Option) Scraper {
	cache, _ := lru.New[string, string](defaultCacheSize)
	s := &httpScraper{
		client:  client,
		cache:   cache,
		limiter: rate.NewLimiter(rate.Inf, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scrape fetches the given URL and returns a short text preview: the first
// paragraphs of the page, falling back to the readability extraction and then
// to the whole document text. Previews longer than 500 characters are cut and
// end with "...". Successful previews are cached by URL.
func (s *httpScraper) Scrape(ctx context.Context, url string) (string, error) {
	if content, ok := s.cache.Get(url); ok {
		metrics.ScrapeCacheHits.Inc()
		return content, nil
	}
	metrics.ScrapeCacheMisses.Inc()

	if err := s.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("waiting to scrape %s: %w", url, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("creating scrape request for %s: %w", url, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("scraping %s returned status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", url, err)
	}

	pageURL, _ := neturl.Parse(url)
	content, err := extract(body, pageURL)
	if err != nil {
		return "", fmt.Errorf("extracting content from %s: %w", url, err)
	}

	s.cache.Add(url, content)
	return content, nil
}

func extract(body []byte, pageURL *neturl.URL) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	doc.Find("script, style, noscript").Remove()

	var parts []string
	doc.Find("p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
		if text := strings.TrimSpace(p.Text()); text != "" {
			parts = append(parts, text)
		}
		return len(parts) < previewParagraphs
	})
	content := strings.Join(parts, " ")

	if content == "" {
		if article, err := readability.FromReader(bytes.NewReader(body), pageURL); err == nil {
			content = strings.TrimSpace(article.TextContent)
		}
	}
	if content == "" {
		content = strings.TrimSpace(doc.Text())
	}

	return truncate(collapseSpace(content), maxContentLength), nil
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncate cuts s to n runes and marks the cut with "...".
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return strings.TrimSpace(string(runes[:n])) + "..."
}
