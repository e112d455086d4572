package model

import "fmt"

// Article is a single Hacker News story as fetched by the feed.
// Content holds the optional scraped preview and is never read by the recommender.
type Article struct {
	ID            int    `json:"id" validate:"required,gt=0"`
	Title         string `json:"title"`
	URL           string `json:"url"`
	Score         int    `json:"score" validate:"gte=0"`
	Time          int64  `json:"time"`
	Author        string `json:"author"`
	CommentsCount int    `json:"comments_count" validate:"gte=0"`
	Content       string `json:"content"`
}

// Index maps article IDs to their position in articles.
// Later duplicates do not overwrite earlier ones.
func Index(articles []Article) map[int]int {
	idx := make(map[int]int, len(articles))
	for i, a := range articles {
		if _, ok := idx[a.ID]; !ok {
			idx[a.ID] = i
		}
	}
	return idx
}

// Select returns the articles for ids, in the order of ids. Unknown ids are skipped.
func Select(articles []Article, ids []int) []Article {
	idx := Index(articles)
	out := make([]Article, 0, len(ids))
	for _, id := range ids {
		if i, ok := idx[id]; ok {
			out = append(out, articles[i])
		}
	}
	return out
}

func (a Article) String() string {
	return fmt.Sprintf("#%d %q (%d points)", a.ID, a.Title, a.Score)
}
