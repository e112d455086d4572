// Package api serves articles, recommendations and likes over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hn-recommender/model"
)

// FeedSource fetches live articles.
type FeedSource interface {
	Top(ctx context.Context, limit int, hydrate bool) ([]model.Article, error)
	Article(ctx context.Context, id int) (*model.Article, error)
}

// ArticleCache serves the cached top-stories snapshot.
type ArticleCache interface {
	Articles(ctx context.Context) ([]model.Article, error)
	Refresh(ctx context.Context) ([]model.Article, error)
}

// Recommender ranks articles for a liked set.
type Recommender interface {
	Recommend(articles []model.Article, liked []int, topN int) ([]int, error)
}

// LikeStore persists per-user likes.
type LikeStore interface {
	RecordLike(userID string, articleID int) error
	RemoveLike(userID string, articleID int) (bool, error)
	LikedIDs(userID string) ([]int, error)
	Ping() error
}

// Config controls request limits.
type Config struct {
	DefaultTopN int
	MaxTopN     int
	// RateLimitRequests per RateLimitWindow per client IP. Zero disables limiting.
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// Deps groups the collaborators the handlers call.
type Deps struct {
	Feed        FeedSource
	Cache       ArticleCache
	Recommender Recommender
	Likes       LikeStore
}

const (
	defaultArticleLimit = 30
	maxArticleLimit     = 100
)

// Server holds the HTTP handlers.
type Server struct {
	deps Deps
	cfg  Config
}

// NewServer creates a Server.
func NewServer(deps Deps, cfg Config) *Server {
	if cfg.MaxTopN <= 0 {
		cfg.MaxTopN = 50
	}
	if cfg.DefaultTopN <= 0 || cfg.DefaultTopN > cfg.MaxTopN {
		cfg.DefaultTopN = min(5, cfg.MaxTopN)
	}
	if cfg.RateLimitWindow <= 0 {
		cfg.RateLimitWindow = time.Minute
	}
	return &Server{deps: deps, cfg: cfg}
}

// Router builds the chi router with all routes and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		if s.cfg.RateLimitRequests > 0 {
			r.Use(httprate.Limit(
				s.cfg.RateLimitRequests,
				s.cfg.RateLimitWindow,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
					respondMessage(w, http.StatusTooManyRequests, "rate limit exceeded")
				}),
			))
		}

		r.Get("/articles", s.handleArticles)
		r.Get("/article/{id}", s.handleArticle)
		r.Post("/recommendations", s.handleRecommendations)
		r.Post("/feed/refresh", s.handleRefresh)

		r.Route("/users/{user}/likes", func(r chi.Router) {
			r.Get("/", s.handleListLikes)
			r.Put("/{id}", s.handleAddLike)
			r.Delete("/{id}", s.handleRemoveLike)
		})
	})

	return r
}
