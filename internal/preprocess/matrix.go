package preprocess

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// shape validates x and returns its dimensions.
func shape(x [][]float64) (rows, cols int, err error) {
	if len(x) == 0 {
		return 0, 0, ErrEmptyInput
	}
	cols = len(x[0])
	for i, row := range x {
		if len(row) != cols {
			return 0, 0, fmt.Errorf("%w: row %d has %d columns, want %d", ErrRaggedInput, i, len(row), cols)
		}
	}
	return len(x), cols, nil
}

// column copies column j of x.
func column(x [][]float64, j int) []float64 {
	col := make([]float64, len(x))
	for i := range x {
		col[i] = x[i][j]
	}
	return col
}

// alloc returns a zeroed rows x cols matrix backed by one allocation.
func alloc(rows, cols int) [][]float64 {
	backing := make([]float64, rows*cols)
	out := make([][]float64, rows)
	for i := range out {
		out[i] = backing[i*cols : (i+1)*cols : (i+1)*cols]
	}
	return out
}

// centered returns x minus means as a dense matrix.
func centered(x [][]float64, means []float64) *mat.Dense {
	rows, cols := len(x), len(means)
	d := mat.NewDense(rows, cols, nil)
	for i, row := range x {
		for j, v := range row {
			d.Set(i, j, v-means[j])
		}
	}
	return d
}

// rowsOf converts a dense matrix to row slices.
func rowsOf(d *mat.Dense) [][]float64 {
	r, c := d.Dims()
	out := alloc(r, c)
	for i := range out {
		mat.Row(out[i], i, d)
	}
	return out
}

// ToFloat32 converts rows to float32, the precision learner shards are stored in.
func ToFloat32(x [][]float64) [][]float32 {
	out := make([][]float32, len(x))
	for i, row := range x {
		out[i] = make([]float32, len(row))
		for j, v := range row {
			out[i][j] = float32(v)
		}
	}
	return out
}
