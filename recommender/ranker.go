package recommender

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"hn-recommender/model"
)

// TopByScore returns up to topN article IDs by descending score.
// Equal scores keep their input order.
func TopByScore(articles []model.Article, topN int) []int {
	if topN <= 0 || len(articles) == 0 {
		return []int{}
	}

	order := make([]int, len(articles))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return articles[order[i]].Score > articles[order[j]].Score
	})

	n := min(topN, len(order))
	ids := make([]int, n)
	for i := range n {
		ids[i] = articles[order[i]].ID
	}
	return ids
}

// Profile averages the embeddings of the liked IDs present in embeddings.
// It reports false when none of them are present.
func Profile(embeddings map[int][]float64, liked []int) ([]float64, bool) {
	var profile []float64
	count := 0
	seen := make(map[int]struct{}, len(liked))
	for _, id := range liked {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		e, ok := embeddings[id]
		if !ok {
			continue
		}
		if profile == nil {
			profile = make([]float64, len(e))
		}
		floats.Add(profile, e)
		count++
	}
	if count == 0 {
		return nil, false
	}
	floats.Scale(1/float64(count), profile)
	return profile, true
}

// Cosine returns the cosine similarity of a and b, or -Inf when either has
// zero norm, their lengths differ, or the result is not a number.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) {
		return math.Inf(-1)
	}
	na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return math.Inf(-1)
	}
	sim := floats.Dot(a, b) / (na * nb)
	if math.IsNaN(sim) {
		return math.Inf(-1)
	}
	return sim
}

type scored struct {
	id  int
	sim float64
}

// Rank orders the articles that are not liked by cosine similarity between
// their embedding and the mean embedding of the liked articles, returning at
// most topN IDs. With no usable likes it falls back to TopByScore.
func Rank(articles []model.Article, embeddings map[int][]float64, liked []int, topN int) []int {
	if topN <= 0 {
		return []int{}
	}
	profile, ok := Profile(embeddings, liked)
	if !ok {
		return TopByScore(articles, topN)
	}

	likedSet := make(map[int]struct{}, len(liked))
	for _, id := range liked {
		likedSet[id] = struct{}{}
	}

	candidates := make([]scored, 0, len(articles))
	for _, a := range articles {
		if _, skip := likedSet[a.ID]; skip {
			continue
		}
		sim := math.Inf(-1)
		if e, ok := embeddings[a.ID]; ok {
			sim = Cosine(profile, e)
		}
		candidates = append(candidates, scored{id: a.ID, sim: sim})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].sim > candidates[j].sim
	})

	n := min(topN, len(candidates))
	ids := make([]int, n)
	for i := range n {
		ids[i] = candidates[i].id
	}
	return ids
}
