package recommender

import "hn-recommender/model"

// SparseBatch is a ragged batch of title token IDs: Values holds every
// article's IDs back to back and Lengths[i] is the count belonging to article i.
type SparseBatch struct {
	Values  []int
	Lengths []int
}

// Len returns the number of articles in the batch.
func (b SparseBatch) Len() int {
	return len(b.Lengths)
}

// Offsets returns the start offset of every row plus the total length,
// so row i spans Values[off[i]:off[i+1]].
func (b SparseBatch) Offsets() []int {
	off := make([]int, len(b.Lengths)+1)
	for i, n := range b.Lengths {
		off[i+1] = off[i] + n
	}
	return off
}

// Row returns the token IDs of article i.
func (b SparseBatch) Row(i int) []int {
	start := 0
	for _, n := range b.Lengths[:i] {
		start += n
	}
	return b.Values[start : start+b.Lengths[i]]
}

// DenseFeatures is the number of dense columns: score and timestamp.
const DenseFeatures = 2

// DenseBatch holds one [score, time] row per article in native units.
type DenseBatch [][DenseFeatures]float64

// Encode turns articles into aligned sparse (title tokens) and dense
// (score, time) batches, growing v with any unseen title words.
func Encode(v *Vocabulary, articles []model.Article) (SparseBatch, DenseBatch) {
	sparse := SparseBatch{
		Values:  make([]int, 0, len(articles)*8),
		Lengths: make([]int, 0, len(articles)),
	}
	dense := make(DenseBatch, 0, len(articles))

	for _, a := range articles {
		ids := v.Tokenize(a.Title)
		sparse.Values = append(sparse.Values, ids...)
		sparse.Lengths = append(sparse.Lengths, len(ids))
		dense = append(dense, [DenseFeatures]float64{float64(a.Score), float64(a.Time)})
	}

	return sparse, dense
}
