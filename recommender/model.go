package recommender

import (
	"math"
	"math/rand/v2"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// PCG streams used to derive independent, reproducible weight sequences.
const (
	tableStream = 1 << 32
	layerStream = 1 << 40
)

// ModelConfig configures the embedding network.
type ModelConfig struct {
	// Dim is the width of an embedding table row and of the dense tower output.
	Dim int
	// Hidden lists the widths of the fully-connected layers applied to the
	// concatenated sparse and dense representations. The last width is the
	// embedding size.
	Hidden []int
	// MinRows is the smallest embedding table ever allocated.
	MinRows int
	Seed    uint64
	// NormalizeDense applies log1p to the score and to the article age in hours
	// before the dense tower. Without it raw magnitudes are used.
	NormalizeDense bool
}

// DefaultModelConfig returns the default network shape.
func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		Dim:            64,
		Hidden:         []int{256, 128, 64},
		MinRows:        100,
		Seed:           42,
		NormalizeDense: true,
	}
}

type layer struct {
	w    *mat.Dense
	b    *mat.VecDense
	relu bool
}

func newLayer(in, out int, relu bool, rng *rand.Rand) layer {
	bound := 1 / math.Sqrt(float64(in))
	w := make([]float64, in*out)
	for i := range w {
		w[i] = uniform(rng, bound)
	}
	b := make([]float64, out)
	for i := range b {
		b[i] = uniform(rng, bound)
	}
	return layer{w: mat.NewDense(out, in, w), b: mat.NewVecDense(out, b), relu: relu}
}

func (l layer) forward(x []float64) []float64 {
	out, _ := l.w.Dims()
	y := mat.NewVecDense(out, nil)
	y.MulVec(l.w, mat.NewVecDense(len(x), x))
	y.AddVec(y, l.b)
	data := y.RawVector().Data
	if l.relu {
		for i, v := range data {
			if v < 0 {
				data[i] = 0
			}
		}
	}
	return data
}

func uniform(rng *rand.Rand, bound float64) float64 {
	return (rng.Float64()*2 - 1) * bound
}

// Model is an untrained sparse+dense network mapping encoded articles to
// embeddings. Weights come from a seeded initialization and are never updated,
// so the same seed always yields the same embeddings.
//
// The table is built lazily on the first Embed and grows when token IDs exceed
// its capacity. Every row is derived from (Seed, row index) alone, which keeps
// existing embeddings unchanged across growth.
type Model struct {
	cfg ModelConfig

	mu    sync.RWMutex
	table [][]float64
	dense layer
	over  []layer
}

// NewModel returns an uninitialized Model. Zero or negative config values
// fall back to DefaultModelConfig.
func NewModel(cfg ModelConfig) *Model {
	def := DefaultModelConfig()
	if cfg.Dim <= 0 {
		cfg.Dim = def.Dim
	}
	if cfg.MinRows <= 0 {
		cfg.MinRows = def.MinRows
	}
	if cfg.Hidden == nil {
		cfg.Hidden = def.Hidden
	}
	return &Model{cfg: cfg}
}

// OutputDim returns the length of every embedding.
func (m *Model) OutputDim() int {
	if n := len(m.cfg.Hidden); n > 0 {
		return m.cfg.Hidden[n-1]
	}
	return 2 * m.cfg.Dim
}

// Capacity returns the number of table rows, or 0 before initialization.
func (m *Model) Capacity() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.table)
}

// Grow makes sure the table holds at least rows rows, initializing the model
// on first use. Capacity doubles until it fits.
func (m *Model) Grow(rows int) {
	m.mu.RLock()
	ready := m.table != nil && len(m.table) >= rows
	m.mu.RUnlock()
	if ready {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.table == nil {
		m.build()
	}
	capacity := len(m.table)
	for capacity < rows {
		capacity *= 2
	}
	for r := len(m.table); r < capacity; r++ {
		m.table = append(m.table, m.row(r))
	}
}

// build allocates the network and the initial table. Caller holds mu.
func (m *Model) build() {
	rng := rand.New(rand.NewPCG(m.cfg.Seed, layerStream))
	m.dense = newLayer(DenseFeatures, m.cfg.Dim, true, rng)

	in := 2 * m.cfg.Dim
	m.over = make([]layer, 0, len(m.cfg.Hidden))
	for i, width := range m.cfg.Hidden {
		last := i == len(m.cfg.Hidden)-1
		m.over = append(m.over, newLayer(in, width, !last, rng))
		in = width
	}

	m.table = make([][]float64, 0, m.cfg.MinRows)
	for r := 0; r < m.cfg.MinRows; r++ {
		m.table = append(m.table, m.row(r))
	}
}

func (m *Model) row(r int) []float64 {
	out := make([]float64, m.cfg.Dim)
	if r == PaddingID {
		return out
	}
	rng := rand.New(rand.NewPCG(m.cfg.Seed, tableStream+uint64(r)))
	bound := 1 / math.Sqrt(float64(m.cfg.Dim))
	for i := range out {
		out[i] = uniform(rng, bound)
	}
	return out
}

// Embed returns one embedding per article in batch order. The sparse rows are
// mean-pooled table lookups; an article without tokens pools to zeros.
func (m *Model) Embed(sparse SparseBatch, dense DenseBatch) [][]float64 {
	n := sparse.Len()
	if n == 0 {
		return [][]float64{}
	}

	maxID := 0
	for _, id := range sparse.Values {
		maxID = max(maxID, id)
	}
	m.Grow(maxID + 1)

	features := m.denseInputs(dense)

	m.mu.RLock()
	defer m.mu.RUnlock()

	off := sparse.Offsets()
	out := make([][]float64, n)
	for i := 0; i < n; i++ {
		pooled := make([]float64, m.cfg.Dim)
		count := 0
		for _, id := range sparse.Values[off[i]:off[i+1]] {
			if id <= PaddingID || id >= len(m.table) {
				continue
			}
			floats.Add(pooled, m.table[id])
			count++
		}
		if count > 0 {
			floats.Scale(1/float64(count), pooled)
		}

		var f [DenseFeatures]float64
		if i < len(features) {
			f = features[i]
		}
		x := append(pooled, m.dense.forward(f[:])...)
		for _, l := range m.over {
			x = l.forward(x)
		}
		out[i] = x
	}
	return out
}

// denseInputs prepares the dense tower input. With normalization, time becomes
// the age in hours relative to the newest article in the batch.
func (m *Model) denseInputs(dense DenseBatch) DenseBatch {
	if !m.cfg.NormalizeDense {
		return dense
	}
	newest := math.Inf(-1)
	for _, row := range dense {
		newest = math.Max(newest, row[1])
	}
	out := make(DenseBatch, len(dense))
	for i, row := range dense {
		ageHours := math.Max(0, (newest-row[1])/3600)
		out[i] = [DenseFeatures]float64{math.Log1p(math.Max(0, row[0])), math.Log1p(ageHours)}
	}
	return out
}
