// Package recommender ranks Hacker News articles against a user's liked set.
//
// A Recommender owns the vocabulary and the embedding model for the life of
// the process. Each Recommend call encodes the articles it is given, embeds
// them, and ranks the unliked ones by cosine similarity to the mean embedding
// of the liked ones. Without usable likes it returns the highest scored
// articles instead.
package recommender

import (
	"errors"
	"fmt"
	"time"

	"hn-recommender/model"
)

// ErrInvalidArticle wraps every input validation failure.
var ErrInvalidArticle = errors.New("invalid article")

// Path labels which branch produced a recommendation.
type Path string

const (
	PathColdStart Path = "cold_start"
	PathWarm      Path = "warm"
)

// Observer receives per-request measurements. It may be nil.
type Observer interface {
	ObserveRecommendation(path Path, duration time.Duration, results int)
	ObserveVocabulary(tokens, tableRows int)
}

// Recommender is a recommendation session. Safe for concurrent use.
type Recommender struct {
	vocab    *Vocabulary
	model    *Model
	observer Observer
}

// Option configures a Recommender.
type Option func(*Recommender)

// WithObserver reports measurements to o.
func WithObserver(o Observer) Option {
	return func(r *Recommender) {
		r.observer = o
	}
}

// New creates a Recommender with an empty vocabulary and a lazily built model.
func New(cfg ModelConfig, opts ...Option) *Recommender {
	r := &Recommender{
		vocab: NewVocabulary(),
		model: NewModel(cfg),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Vocabulary returns the session vocabulary.
func (r *Recommender) Vocabulary() *Vocabulary {
	return r.vocab
}

// Model returns the session model.
func (r *Recommender) Model() *Model {
	return r.model
}

// Encode encodes articles against the session vocabulary.
func (r *Recommender) Encode(articles []model.Article) (SparseBatch, DenseBatch) {
	return Encode(r.vocab, articles)
}

// Embed computes an embedding for every article, keyed by article ID.
// The model table is resized to the vocabulary before the forward pass.
func (r *Recommender) Embed(articles []model.Article) map[int][]float64 {
	sparse, dense := r.Encode(articles)
	if len(articles) == 0 {
		return map[int][]float64{}
	}
	r.model.Grow(r.vocab.Size() + 1)
	if r.observer != nil {
		r.observer.ObserveVocabulary(r.vocab.Size(), r.model.Capacity())
	}

	vectors := r.model.Embed(sparse, dense)
	out := make(map[int][]float64, len(articles))
	for i, a := range articles {
		out[a.ID] = vectors[i]
	}
	return out
}

// Recommend returns up to topN article IDs for a user who liked liked,
// most recommended first. Liked IDs are never returned and IDs missing from
// articles are ignored. The only error is an invalid article collection.
func (r *Recommender) Recommend(articles []model.Article, liked []int, topN int) ([]int, error) {
	start := time.Now()
	if err := model.Validate(articles); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArticle, err)
	}

	path := PathColdStart
	var ids []int
	if len(liked) == 0 || !anyPresent(articles, liked) {
		ids = TopByScore(articles, topN)
	} else {
		path = PathWarm
		ids = Rank(articles, r.Embed(articles), liked, topN)
	}

	if r.observer != nil {
		r.observer.ObserveRecommendation(path, time.Since(start), len(ids))
	}
	return ids, nil
}

func anyPresent(articles []model.Article, ids []int) bool {
	idx := model.Index(articles)
	for _, id := range ids {
		if _, ok := idx[id]; ok {
			return true
		}
	}
	return false
}
