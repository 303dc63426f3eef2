package dataset

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// chunkTolerance is how far the sum of chunk fractions may drift from 1.
const chunkTolerance = 1e-6

// Range is a half-open [Start, End) row interval.
type Range struct {
	Start int
	End   int
}

// Len returns the number of rows in the range.
func (r Range) Len() int { return r.End - r.Start }

// NewRand returns a generator seeded deterministically from seed.
// Two generators created from the same seed produce the same stream.
func NewRand(seed int64) *rand.Rand {
	//nolint:gosec // G404: reproducible shuffles, not security sensitive.
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
}

// Shuffle returns a permutation of [0, n) determined by seed.
func Shuffle(seed int64, n int) ([]int, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: n=%d", ErrNegativeSize, n)
	}
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	ShuffleInts(NewRand(seed), indices)
	return indices, nil
}

// ShuffleInts shuffles indices in place using r.
func ShuffleInts(r *rand.Rand, indices []int) {
	r.Shuffle(len(indices), func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})
}

// ShuffleRows shuffles the rows of x in place using r.
func ShuffleRows[T any](r *rand.Rand, x []T) {
	r.Shuffle(len(x), func(i, j int) {
		x[i], x[j] = x[j], x[i]
	})
}

// ShuffleData permutes x and y in unison with the permutation for seed.
// The inputs are not modified.
func ShuffleData[T, L any](x []T, y []L, seed int64) ([]T, []L, error) {
	if len(x) != len(y) {
		return nil, nil, fmt.Errorf("%w: %d rows, %d labels", ErrLengthMismatch, len(x), len(y))
	}
	perm, err := Shuffle(seed, len(x))
	if err != nil {
		return nil, nil, err
	}
	xs := make([]T, len(x))
	ys := make([]L, len(y))
	for i, idx := range perm {
		xs[i] = x[idx]
		ys[i] = y[idx]
	}
	return xs, ys, nil
}

// EqualSplit returns n equal fractions summing to 1.
func EqualSplit(n int) []float64 {
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = 1 / float64(n)
	}
	return out
}

// SplitByChunkSizes partitions n rows into contiguous ranges sized by
// fractions. Boundaries are floor(cumsum(fractions) * n) and the final
// boundary is always n, so the ranges cover [0, n) exactly once.
func SplitByChunkSizes(n int, fractions []float64) ([]Range, error) {
	if len(fractions) == 0 {
		return nil, ErrNoChunks
	}

	sum := 0.0
	for i, f := range fractions {
		if f < 0 || math.IsNaN(f) {
			return nil, fmt.Errorf("%w: fraction %d is %v", ErrNegativeChunk, i, f)
		}
		sum += f
	}
	if math.Abs(sum-1) > chunkTolerance {
		return nil, fmt.Errorf("%w: got %v", ErrChunkSum, sum)
	}

	ranges := make([]Range, len(fractions))
	cum := 0.0
	start := 0
	for i, f := range fractions {
		cum += f
		end := int(math.Floor(cum*float64(n) + chunkTolerance))
		if i == len(fractions)-1 || end > n {
			end = n
		}
		if end < start {
			end = start
		}
		ranges[i] = Range{Start: start, End: end}
		start = end
	}
	return ranges, nil
}

// SplitSlice applies ranges to s, returning sub-slices that share storage with s.
func SplitSlice[T any](s []T, ranges []Range) [][]T {
	out := make([][]T, len(ranges))
	for i, r := range ranges {
		out[i] = s[r.Start:r.End]
	}
	return out
}

// TrainTestSplit splits x and y in order: the first (1-testRatio) share of
// rows goes to train and the remainder to test.
func TrainTestSplit[T, L any](x []T, y []L, testRatio float64) (xTrain, xTest []T, yTrain, yTest []L, err error) {
	if len(x) != len(y) {
		return nil, nil, nil, nil, fmt.Errorf("%w: %d rows, %d labels", ErrLengthMismatch, len(x), len(y))
	}
	if testRatio < 0 || testRatio >= 1 {
		return nil, nil, nil, nil, fmt.Errorf("%w: %v", ErrInvalidRatio, testRatio)
	}
	ranges, err := SplitByChunkSizes(len(x), []float64{1 - testRatio, testRatio})
	if err != nil {
		return nil, nil, nil, nil, err
	}
	xs := SplitSlice(x, ranges)
	ys := SplitSlice(y, ranges)
	return xs[0], xs[1], ys[0], ys[1], nil
}

// KFoldSplit distributes a seeded permutation of [0, n) round-robin over k folds.
func KFoldSplit(n, k int, seed int64) ([][]int, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k=%d", ErrInvalidLearners, k)
	}
	indices, err := Shuffle(seed, n)
	if err != nil {
		return nil, err
	}
	folds := make([][]int, k)
	for i := range n {
		folds[i%k] = append(folds[i%k], indices[i])
	}
	return folds, nil
}
