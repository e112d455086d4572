package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"hn-recommender/model"
)

var errLikeNotFound = errors.New("like not found")

type articlesQuery struct {
	Limit   int `validate:"min=1,max=100"`
	Hydrate bool
}

type articlesResponse struct {
	Status   string          `json:"status"`
	Count    int             `json:"count"`
	Articles []model.Article `json:"articles"`
}

type articleResponse struct {
	Status  string         `json:"status"`
	Article *model.Article `json:"article"`
}

type recommendationRequest struct {
	LikedIDs []int  `json:"liked_ids" validate:"max=1000,dive,gt=0"`
	Limit    int    `json:"limit" validate:"min=1,max=50"`
	UserID   string `json:"user_id" validate:"omitempty,max=128"`
}

type recommendationsResponse struct {
	Status          string          `json:"status"`
	Count           int             `json:"count"`
	Recommendations []model.Article `json:"recommendations"`
}

type likesResponse struct {
	Status   string `json:"status"`
	UserID   string `json:"user_id"`
	Count    int    `json:"count"`
	LikedIDs []int  `json:"liked_ids"`
}

type likeResponse struct {
	Status    string `json:"status"`
	UserID    string `json:"user_id"`
	ArticleID int    `json:"article_id"`
	Liked     bool   `json:"liked"`
}

type refreshResponse struct {
	Status    string    `json:"status"`
	Count     int       `json:"count"`
	FetchedAt time.Time `json:"fetched_at"`
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Likes.Ping(); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, healthResponse{Status: statusError, Database: err.Error()})
		return
	}
	respondJSON(w, http.StatusOK, healthResponse{Status: statusSuccess, Database: "ok"})
}

// handleArticles serves a live fetch; it does not touch the cache.
func (s *Server) handleArticles(w http.ResponseWriter, r *http.Request) {
	q := articlesQuery{
		Limit:   defaultArticleLimit,
		Hydrate: strings.EqualFold(r.URL.Query().Get("hydrate"), "true"),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, r, fmt.Errorf("%w: limit must be an integer", errBadRequest))
			return
		}
		q.Limit = n
	}
	if err := validate().Struct(q); err != nil {
		respondError(w, r, err)
		return
	}

	articles, err := s.deps.Feed.Top(r.Context(), q.Limit, q.Hydrate)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, articlesResponse{Status: statusSuccess, Count: len(articles), Articles: articles})
}

func (s *Server) handleArticle(w http.ResponseWriter, r *http.Request) {
	id, err := articleID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	article, err := s.deps.Feed.Article(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, articleResponse{Status: statusSuccess, Article: article})
}

// handleRecommendations ranks the cached feed for the request's liked IDs
// merged with the stored likes of user_id. No likes means cold start.
func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	req := recommendationRequest{Limit: s.cfg.DefaultTopN}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, r, fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err))
		return
	}
	if err := validate().Struct(req); err != nil {
		respondError(w, r, err)
		return
	}
	if req.Limit > s.cfg.MaxTopN {
		respondError(w, r, fmt.Errorf("%w: limit must be at most %d", errBadRequest, s.cfg.MaxTopN))
		return
	}

	liked := req.LikedIDs
	if req.UserID != "" {
		stored, err := s.deps.Likes.LikedIDs(req.UserID)
		if err != nil {
			respondError(w, r, err)
			return
		}
		liked = mergeIDs(liked, stored)
	}

	articles, err := s.deps.Cache.Articles(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	ids, err := s.deps.Recommender.Recommend(articles, liked, req.Limit)
	if err != nil {
		respondError(w, r, err)
		return
	}

	recs := model.Select(articles, ids)
	respondJSON(w, http.StatusOK, recommendationsResponse{Status: statusSuccess, Count: len(recs), Recommendations: recs})
}

// handleRefresh forces a cache refresh.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	articles, err := s.deps.Cache.Refresh(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, refreshResponse{Status: statusSuccess, Count: len(articles), FetchedAt: time.Now().UTC()})
}

func (s *Server) handleListLikes(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	ids, err := s.deps.Likes.LikedIDs(user)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if ids == nil {
		ids = []int{}
	}
	respondJSON(w, http.StatusOK, likesResponse{Status: statusSuccess, UserID: user, Count: len(ids), LikedIDs: ids})
}

func (s *Server) handleAddLike(w http.ResponseWriter, r *http.Request) {
	user, id, err := likeParams(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.deps.Likes.RecordLike(user, id); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, likeResponse{Status: statusSuccess, UserID: user, ArticleID: id, Liked: true})
}

func (s *Server) handleRemoveLike(w http.ResponseWriter, r *http.Request) {
	user, id, err := likeParams(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	removed, err := s.deps.Likes.RemoveLike(user, id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if !removed {
		respondError(w, r, fmt.Errorf("user %s has not liked article %d: %w", user, id, errLikeNotFound))
		return
	}
	respondJSON(w, http.StatusOK, likeResponse{Status: statusSuccess, UserID: user, ArticleID: id, Liked: false})
}

func articleID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: article id must be a positive integer", errBadRequest)
	}
	return id, nil
}

func userID(r *http.Request) (string, error) {
	user := chi.URLParam(r, "user")
	if err := validate().Var(user, "required,max=128"); err != nil {
		return "", fmt.Errorf("%w: invalid user id", errBadRequest)
	}
	return user, nil
}

func likeParams(r *http.Request) (string, int, error) {
	user, err := userID(r)
	if err != nil {
		return "", 0, err
	}
	id, err := articleID(r)
	if err != nil {
		return "", 0, err
	}
	return user, id, nil
}

// mergeIDs appends the IDs of extra not already in ids, keeping first-seen order.
func mergeIDs(ids, extra []int) []int {
	seen := make(map[int]struct{}, len(ids)+len(extra))
	out := make([]int, 0, len(ids)+len(extra))
	for _, list := range [][]int{ids, extra} {
		for _, id := range list {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
