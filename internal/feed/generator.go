package feed

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/colearn-ml/colearn-examples/internal/dataset"
)

// Generator errors.
var (
	ErrEmptyData       = errors.New("generator requires at least one sample")
	ErrLabelMismatch   = errors.New("data and labels have different lengths")
	ErrInvalidBatch    = errors.New("batch size must be positive")
	ErrFeatureMismatch = errors.New("sample width does not match feature size")
)

// Batch is one mini-batch. Data is BatchSize x FeatureSize and Labels is
// BatchSize x 1.
type Batch struct {
	Data   [][]float32
	Labels [][]uint8
}

// Size returns the number of samples in the batch.
func (b Batch) Size() int { return len(b.Data) }

// GeneratorConfig configures a Generator.
type GeneratorConfig struct {
	BatchSize   int
	FeatureSize int
	Seed        *int64 // nil leaves the shuffle unseeded
	Shuffle     bool
}

// Seed is a helper for filling GeneratorConfig.Seed.
func Seed(s int64) *int64 { return &s }

// Generator yields fixed-size batches from a dataset indefinitely.
// It is not safe for concurrent use.
type Generator struct {
	data    [][]float32
	labels  []uint8
	cfg     GeneratorConfig
	indices []int
	rng     *rand.Rand
	it      int
	epoch   int
}

// NewGenerator validates the inputs and prepares the first epoch's ordering.
// data and labels are retained, not copied.
func NewGenerator(data [][]float32, labels []uint8, cfg GeneratorConfig) (*Generator, error) {
	if len(data) == 0 {
		return nil, ErrEmptyData
	}
	if len(data) != len(labels) {
		return nil, fmt.Errorf("%w: %d samples, %d labels", ErrLabelMismatch, len(data), len(labels))
	}
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBatch, cfg.BatchSize)
	}
	for i, row := range data {
		if len(row) != cfg.FeatureSize {
			return nil, fmt.Errorf("%w: sample %d has %d features, want %d",
				ErrFeatureMismatch, i, len(row), cfg.FeatureSize)
		}
	}

	g := &Generator{
		data:    data,
		labels:  labels,
		cfg:     cfg,
		indices: make([]int, len(data)),
	}
	for i := range g.indices {
		g.indices[i] = i
	}

	if cfg.Shuffle {
		if cfg.Seed == nil {
			//nolint:gosec // G404: data order only.
			g.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		}
		g.reshuffle()
	}
	return g, nil
}

// reshuffle shuffles the current index order. With a seed the generator is
// reset first, so every call applies the same permutation.
func (g *Generator) reshuffle() {
	if g.cfg.Seed != nil {
		g.rng = dataset.NewRand(*g.cfg.Seed)
	}
	dataset.ShuffleInts(g.rng, g.indices)
}

// Next returns the next batch. It never returns fewer than BatchSize samples.
func (g *Generator) Next() Batch {
	batch := Batch{
		Data:   make([][]float32, g.cfg.BatchSize),
		Labels: make([][]uint8, g.cfg.BatchSize),
	}

	for k := 0; k < g.cfg.BatchSize; k++ {
		idx := g.indices[g.it]
		row := make([]float32, g.cfg.FeatureSize)
		copy(row, g.data[idx])
		batch.Data[k] = row
		batch.Labels[k] = []uint8{g.labels[idx]}

		g.it++
		if g.it >= len(g.indices) {
			g.it = 0
			g.epoch++
			if g.cfg.Shuffle {
				g.reshuffle()
			}
		}
	}
	return batch
}

// Take returns the next n batches.
func (g *Generator) Take(n int) []Batch {
	out := make([]Batch, n)
	for i := range out {
		out[i] = g.Next()
	}
	return out
}

// Len returns the number of samples in the underlying dataset.
func (g *Generator) Len() int { return len(g.data) }

// BatchSize returns the configured batch size.
func (g *Generator) BatchSize() int { return g.cfg.BatchSize }

// FeatureSize returns the width of each sample.
func (g *Generator) FeatureSize() int { return g.cfg.FeatureSize }

// Epoch returns how many times the cursor has wrapped.
func (g *Generator) Epoch() int { return g.epoch }

// Cursor returns the position of the next sample within the current epoch.
func (g *Generator) Cursor() int { return g.it }

// Order returns a copy of the current epoch's index order.
func (g *Generator) Order() []int {
	out := make([]int, len(g.indices))
	copy(out, g.indices)
	return out
}
