package dataset

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShuffle_Deterministic(t *testing.T) {
	a, err := Shuffle(7, 100)
	require.NoError(t, err)
	b, err := Shuffle(7, 100)
	require.NoError(t, err)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("same seed produced different permutations (-first +second):\n%s", diff)
	}

	c, err := Shuffle(8, 100)
	require.NoError(t, err)
	assert.NotEqual(t, a, c, "different seeds should differ")
}

func TestShuffle_IsPermutation(t *testing.T) {
	perm, err := Shuffle(3, 50)
	require.NoError(t, err)
	seen := make(map[int]bool, len(perm))
	for _, idx := range perm {
		require.GreaterOrEqual(t, idx, 0)
		require.Less(t, idx, 50)
		require.False(t, seen[idx], "index %d repeated", idx)
		seen[idx] = true
	}
	assert.Len(t, seen, 50)
}

func TestShuffleData(t *testing.T) {
	x := [][]float64{{0}, {1}, {2}, {3}, {4}, {5}}
	y := []float64{0, 1, 2, 3, 4, 5}

	xs, ys, err := ShuffleData(x, y, 11)
	require.NoError(t, err)
	require.Len(t, xs, len(x))

	for i := range xs {
		assert.Equal(t, xs[i][0], ys[i], "row %d lost its label", i)
	}
	// Inputs untouched.
	assert.Equal(t, []float64{0, 1, 2, 3, 4, 5}, y)

	_, _, err = ShuffleData(x, y[:3], 11)
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestSplitByChunkSizes(t *testing.T) {
	tests := []struct {
		name      string
		n         int
		fractions []float64
		want      []Range
	}{
		{"equal thirds", 9, EqualSplit(3), []Range{{0, 3}, {3, 6}, {6, 9}}},
		{"uneven remainder to last", 10, EqualSplit(3), []Range{{0, 3}, {3, 6}, {6, 10}}},
		{"train test", 10, []float64{0.8, 0.2}, []Range{{0, 8}, {8, 10}}},
		{"single chunk", 5, []float64{1}, []Range{{0, 5}}},
		{"empty chunk", 4, []float64{0.5, 0, 0.5}, []Range{{0, 2}, {2, 2}, {2, 4}}},
		{"no rows", 0, EqualSplit(2), []Range{{0, 0}, {0, 0}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SplitByChunkSizes(tt.n, tt.fractions)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ranges mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSplitByChunkSizes_CoversInput(t *testing.T) {
	for n := 0; n < 200; n += 7 {
		for learners := 1; learners <= 6; learners++ {
			ranges, err := SplitByChunkSizes(n, EqualSplit(learners))
			require.NoError(t, err)

			total := 0
			prev := 0
			for _, r := range ranges {
				assert.Equal(t, prev, r.Start)
				assert.GreaterOrEqual(t, r.Len(), 0)
				total += r.Len()
				prev = r.End
			}
			assert.Equal(t, n, total, "n=%d learners=%d", n, learners)
		}
	}
}

func TestSplitByChunkSizes_Errors(t *testing.T) {
	_, err := SplitByChunkSizes(10, nil)
	assert.ErrorIs(t, err, ErrNoChunks)

	_, err = SplitByChunkSizes(10, []float64{0.5, 0.4})
	assert.ErrorIs(t, err, ErrChunkSum)

	_, err = SplitByChunkSizes(10, []float64{1.5, -0.5})
	assert.ErrorIs(t, err, ErrNegativeChunk)
}

func TestTrainTestSplit_SizesAddUp(t *testing.T) {
	x := make([]int, 37)
	y := make([]int, 37)
	for i := range x {
		x[i] = i
		y[i] = i
	}

	xTrain, xTest, yTrain, yTest, err := TrainTestSplit(x, y, 0.2)
	require.NoError(t, err)

	assert.Equal(t, len(x), len(xTrain)+len(xTest))
	assert.Equal(t, len(y), len(yTrain)+len(yTest))
	assert.Equal(t, x, append(append([]int{}, xTrain...), xTest...))

	_, _, _, _, err = TrainTestSplit(x, y, 1)
	assert.ErrorIs(t, err, ErrInvalidRatio)
}

func TestKFoldSplit(t *testing.T) {
	folds, err := KFoldSplit(10, 3, 1)
	require.NoError(t, err)
	require.Len(t, folds, 3)
	assert.Len(t, folds[0], 4)
	assert.Len(t, folds[1], 3)
	assert.Len(t, folds[2], 3)

	_, err = KFoldSplit(10, 0, 1)
	assert.ErrorIs(t, err, ErrInvalidLearners)

	_, err = KFoldSplit(-1, 3, 1)
	assert.ErrorIs(t, err, ErrNegativeSize)
}

func TestShuffle_NegativeSize(t *testing.T) {
	_, err := Shuffle(1, -5)
	assert.ErrorIs(t, err, ErrNegativeSize)

	perm, err := Shuffle(1, 0)
	require.NoError(t, err)
	assert.Empty(t, perm)
}

func TestEqualSplit(t *testing.T) {
	assert.Nil(t, EqualSplit(0))
	assert.InDeltaSlice(t, []float64{0.25, 0.25, 0.25, 0.25}, EqualSplit(4), 1e-12)
}
