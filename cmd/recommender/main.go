package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hn-recommender/api"
	"hn-recommender/config"
	"hn-recommender/feed"
	"hn-recommender/hn"
	"hn-recommender/metrics"
	"hn-recommender/recommender"
	"hn-recommender/scheduler"
	"hn-recommender/scraper"
	"hn-recommender/storage"
)

const (
	refreshTimeout  = 5 * time.Minute
	shutdownTimeout = 10 * time.Second
)

func main() {
	// Structured JSON logging to stdout
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load(config.DefaultPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Set log level
	switch cfg.LogLevel {
	case "debug":
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})))
	case "warn":
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn})))
	case "error":
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})))
	}
	slog.Info("config loaded", "listen_addr", cfg.ListenAddr, "feed_limit", cfg.FeedLimit, "refresh_cron", cfg.RefreshCron)

	// Initialize storage
	store, err := storage.New(cfg.DBPath)
	if err != nil {
		slog.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("storage initialized", "db_path", cfg.DBPath)

	// Initialize components
	httpClient := &http.Client{Timeout: cfg.FetchTimeout()}
	hnClient := hn.NewClientWithBaseURL(httpClient, hn.BaseURL, hn.BreakerConfig{
		FailureThreshold: cfg.BreakerFailures,
		Timeout:          cfg.BreakerTimeout(),
	})
	articleScraper := scraper.NewScraper(cfg.FetchTimeout(),
		scraper.WithCacheSize(cfg.ScrapeCacheSize),
		scraper.WithRateLimit(cfg.ScrapeRatePerSec, cfg.ScrapeBurst),
	)
	fetcher := feed.NewFetcher(hnClient, articleScraper, cfg.FetchConcurrency)
	cache := feed.NewCache(fetcher, feed.CacheConfig{
		Limit:        cfg.FeedLimit,
		Hydrate:      cfg.Hydrate,
		TTL:          cfg.CacheTTL(),
		FetchTimeout: refreshTimeout,
	})

	rec := recommender.New(recommender.ModelConfig{
		Dim:            cfg.EmbeddingDim,
		Hidden:         cfg.HiddenLayers,
		MinRows:        cfg.MinTableRows,
		Seed:           cfg.ModelSeed,
		NormalizeDense: cfg.NormalizeDense,
	}, recommender.WithObserver(metrics.RecommenderObserver{}))

	refresh := func() {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		if _, err := cache.Refresh(ctx); err != nil {
			slog.Error("feed refresh failed", "error", err)
		}
	}

	// Initialize scheduler
	sched, err := scheduler.New(cfg.Timezone)
	if err != nil {
		slog.Error("failed to create scheduler", "error", err)
		os.Exit(1)
	}
	if err := sched.Schedule(cfg.RefreshCron, refresh); err != nil {
		slog.Error("failed to schedule feed refresh", "error", err)
		os.Exit(1)
	}
	sched.Start()
	slog.Info("scheduler started", "refresh_cron", cfg.RefreshCron, "next_run", sched.Next())

	// Warm the cache without delaying startup.
	go refresh()

	server := api.NewServer(api.Deps{
		Feed:        fetcher,
		Cache:       cache,
		Recommender: rec,
		Likes:       store,
	}, api.Config{
		DefaultTopN:       cfg.DefaultTopN,
		MaxTopN:           cfg.MaxTopN,
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitWindow:   cfg.RateLimitWindow(),
	})
	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		slog.Info("received signal, shutting down")
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server stopped with error", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown failed", "error", err)
	}

	sched.Stop()
	slog.Info("shutdown complete")
}
