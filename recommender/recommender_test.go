package recommender

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hn-recommender/model"
)

func sampleArticles() []model.Article {
	return []model.Article{
		{ID: 1, Title: "rust is fast", Score: 100, Time: 1_700_000_000},
		{ID: 2, Title: "go is simple", Score: 50, Time: 1_700_000_600},
		{ID: 3, Title: "python is slow", Score: 10, Time: 1_700_001_200},
	}
}

type recordingObserver struct {
	mu    sync.Mutex
	paths []Path
	vocab []int
}

func (o *recordingObserver) ObserveRecommendation(path Path, _ time.Duration, _ int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.paths = append(o.paths, path)
}

func (o *recordingObserver) ObserveVocabulary(tokens, _ int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.vocab = append(o.vocab, tokens)
}

func TestRecommend_ColdStartByScore(t *testing.T) {
	r := New(DefaultModelConfig())
	ids, err := r.Recommend(sampleArticles(), nil, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, ids)
	assert.Equal(t, 0, r.Vocabulary().Size(), "cold start must not touch the vocabulary")
}

func TestRecommend_WarmExcludesLiked(t *testing.T) {
	r := New(DefaultModelConfig())
	ids, err := r.Recommend(sampleArticles(), []int{1}, 1)
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Contains(t, []int{2, 3}, ids[0])
}

func TestRecommend_UnknownLikesMatchColdStart(t *testing.T) {
	r := New(DefaultModelConfig())
	cold, err := r.Recommend(sampleArticles(), []int{}, 3)
	require.NoError(t, err)
	unknown, err := r.Recommend(sampleArticles(), []int{999}, 3)
	require.NoError(t, err)
	assert.Equal(t, cold, unknown)
}

func TestRecommend_NeverReturnsLiked(t *testing.T) {
	r := New(DefaultModelConfig())
	articles := make([]model.Article, 0, 30)
	for i := 1; i <= 30; i++ {
		articles = append(articles, model.Article{
			ID:    i,
			Title: fmt.Sprintf("story number %d about topic%d", i, i%4),
			Score: i * 3,
			Time:  int64(1_700_000_000 + i*60),
		})
	}

	liked := []int{2, 5, 11, 999}
	for _, topN := range []int{1, 5, 26, 100} {
		ids, err := r.Recommend(articles, liked, topN)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(ids), min(topN, len(articles)-3))
		for _, id := range ids {
			assert.NotContains(t, liked, id)
		}
	}

	ids, err := r.Recommend(articles, liked, 100)
	require.NoError(t, err)
	assert.Len(t, ids, 27)
	sorted := append([]int(nil), ids...)
	sort.Ints(sorted)
	for i := 1; i < len(sorted); i++ {
		assert.NotEqual(t, sorted[i-1], sorted[i], "duplicate id in result")
	}
}

func TestRecommend_AllLiked(t *testing.T) {
	r := New(DefaultModelConfig())
	ids, err := r.Recommend(sampleArticles(), []int{1, 2, 3}, 5)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRecommend_EmptyCollection(t *testing.T) {
	r := New(DefaultModelConfig())
	ids, err := r.Recommend(nil, []int{1}, 5)
	require.NoError(t, err)
	assert.Empty(t, ids)

	ids, err = r.Recommend(nil, nil, 5)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRecommend_ColdStartIsSortedByScore(t *testing.T) {
	r := New(DefaultModelConfig())
	articles := []model.Article{
		{ID: 10, Score: 3}, {ID: 11, Score: 300}, {ID: 12, Score: 30}, {ID: 13, Score: 300},
	}
	ids, err := r.Recommend(articles, nil, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{11, 13, 12}, ids)
}

func TestRecommend_InvalidInput(t *testing.T) {
	r := New(DefaultModelConfig())

	_, err := r.Recommend([]model.Article{{ID: 1}, {ID: 1}}, nil, 3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidArticle))
	assert.True(t, errors.Is(err, model.ErrDuplicateID))

	_, err = r.Recommend([]model.Article{{ID: 1, Score: -5}}, []int{1}, 3)
	assert.True(t, errors.Is(err, ErrInvalidArticle))
}

func TestRecommend_VocabularyGrowthAcrossRequests(t *testing.T) {
	r := New(DefaultModelConfig())

	first := sampleArticles()
	_, err := r.Recommend(first, []int{1}, 2)
	require.NoError(t, err)

	more := make([]model.Article, 0, 200)
	for i := 1; i <= 200; i++ {
		more = append(more, model.Article{ID: i, Title: fmt.Sprintf("unique%d word%d", i, i), Score: i})
	}
	ids, err := r.Recommend(more, []int{1, 2}, 10)
	require.NoError(t, err)
	assert.Len(t, ids, 10)
	assert.GreaterOrEqual(t, r.Model().Capacity(), r.Vocabulary().Size()+1)
}

func TestRecommend_Observer(t *testing.T) {
	obs := &recordingObserver{}
	r := New(DefaultModelConfig(), WithObserver(obs))

	_, err := r.Recommend(sampleArticles(), nil, 2)
	require.NoError(t, err)
	_, err = r.Recommend(sampleArticles(), []int{2}, 2)
	require.NoError(t, err)

	assert.Equal(t, []Path{PathColdStart, PathWarm}, obs.paths)
	assert.Equal(t, []int{7}, obs.vocab)
}

func TestRecommend_ConcurrentRequests(t *testing.T) {
	r := New(DefaultModelConfig())

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			articles := []model.Article{
				{ID: 1, Title: fmt.Sprintf("shared words goroutine%d", g), Score: 5},
				{ID: 2, Title: "shared title", Score: 3},
				{ID: 3, Title: fmt.Sprintf("other%d", g), Score: 1},
			}
			if _, err := r.Recommend(articles, []int{1}, 2); err != nil {
				errs <- err
			}
		}(g)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}

	id, ok := r.Vocabulary().Lookup("shared")
	require.True(t, ok)
	assert.Greater(t, id, 0)
	// 3 shared tokens plus one goroutineN and one otherN per goroutine.
	assert.Equal(t, 3+16*2, r.Vocabulary().Size())
}

func TestEmbed_KeyedByArticleID(t *testing.T) {
	r := New(DefaultModelConfig())
	emb := r.Embed(sampleArticles())
	require.Len(t, emb, 3)
	for _, id := range []int{1, 2, 3} {
		assert.Len(t, emb[id], 64)
	}
	assert.NotEqual(t, emb[1], emb[2])

	assert.Empty(t, r.Embed(nil))
}
