// Package metrics exposes Prometheus instrumentation for the recommender
// service. Collectors register with the default registry and are served by
// the API at /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"hn-recommender/recommender"
)

var (
	// Recommendation Metrics
	RecommendationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hn_recommendations_total",
			Help: "Total number of recommendation requests by ranking path",
		},
		[]string{"path"}, // "cold_start", "warm"
	)

	RecommendationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hn_recommendation_duration_seconds",
			Help:    "Time spent encoding, embedding and ranking one request",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		},
		[]string{"path"},
	)

	RecommendationResults = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hn_recommendation_results",
			Help:    "Number of article ids returned per recommendation request",
			Buckets: prometheus.LinearBuckets(0, 5, 11),
		},
	)

	VocabularyTokens = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hn_vocabulary_tokens",
			Help: "Number of distinct title tokens known to the vocabulary",
		},
	)

	EmbeddingTableRows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hn_embedding_table_rows",
			Help: "Allocated rows in the sparse embedding table",
		},
	)

	// Feed Metrics
	FeedRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hn_feed_refreshes_total",
			Help: "Total number of feed cache refreshes",
		},
		[]string{"result"}, // "success", "error"
	)

	FeedArticles = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hn_feed_articles",
			Help: "Number of articles in the cached feed snapshot",
		},
	)

	FeedItemErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hn_feed_item_errors_total",
			Help: "Total number of Hacker News items that failed to load",
		},
	)

	// Scraper Metrics
	ScrapeCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hn_scrape_cache_hits_total",
			Help: "Total number of article previews served from the scrape cache",
		},
	)

	ScrapeCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hn_scrape_cache_misses_total",
			Help: "Total number of article previews that required a page fetch",
		},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hn_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hn_api_request_duration_seconds",
			Help:    "API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
)

// RecordAPIRequest records one served API request.
func RecordAPIRequest(method, endpoint string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordFeedRefresh records the outcome of a feed refresh.
func RecordFeedRefresh(articles int, err error) {
	if err != nil {
		FeedRefreshes.WithLabelValues("error").Inc()
		return
	}
	FeedRefreshes.WithLabelValues("success").Inc()
	FeedArticles.Set(float64(articles))
}

// RecommenderObserver reports recommender measurements to Prometheus.
type RecommenderObserver struct{}

var _ recommender.Observer = RecommenderObserver{}

func (RecommenderObserver) ObserveRecommendation(path recommender.Path, duration time.Duration, results int) {
	RecommendationsTotal.WithLabelValues(string(path)).Inc()
	RecommendationDuration.WithLabelValues(string(path)).Observe(duration.Seconds())
	RecommendationResults.Observe(float64(results))
}

func (RecommenderObserver) ObserveVocabulary(tokens, tableRows int) {
	VocabularyTokens.Set(float64(tokens))
	EmbeddingTableRows.Set(float64(tableRows))
}
