package preprocess

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// KernelLinear is the only kernel KernelPCA supports.
const KernelLinear = "linear"

// eigenFloor is the eigenvalue below which a component carries no variance.
const eigenFloor = 1e-12

// KernelPCA projects rows onto the leading principal axes of the training
// data. With a linear kernel this is ordinary PCA on centered features; the
// decomposition runs on whichever of the covariance (features x features) or
// Gram (samples x samples) matrix is smaller.
type KernelPCA struct {
	NComponents int
	Kernel      string

	// Means are the training column means.
	Means []float64
	// Components is features x k; column c is the c-th principal axis.
	Components *mat.Dense
	// Eigenvalues of the centered kernel, descending.
	Eigenvalues []float64
}

// NewKernelPCA creates a linear KernelPCA keeping n components.
func NewKernelPCA(n int) *KernelPCA {
	return &KernelPCA{NComponents: n, Kernel: KernelLinear}
}

// Fit learns the principal axes of x. The number of kept components is
// capped at min(rows, cols).
func (p *KernelPCA) Fit(x [][]float64) error {
	if p.Kernel != "" && p.Kernel != KernelLinear {
		return fmt.Errorf("%w: %q", ErrUnsupportedKern, p.Kernel)
	}
	if p.NComponents <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidComponent, p.NComponents)
	}
	rows, cols, err := shape(x)
	if err != nil {
		return err
	}

	p.Means = make([]float64, cols)
	for j := range cols {
		p.Means[j] = stat.Mean(column(x, j), nil)
	}
	xc := centered(x, p.Means)
	k := min(p.NComponents, rows, cols)

	// Covariance path factors X^T X; Gram path factors X X^T and maps the
	// sample-space eigenvectors back to feature space.
	gram := rows < cols
	var sym mat.SymDense
	if gram {
		sym.SymOuterK(1, xc)
	} else {
		sym.SymOuterK(1, xc.T())
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(&sym, true); !ok {
		return ErrDecomposition
	}
	values := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	// gonum returns ascending eigenvalues.
	order := make([]int, len(values))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return values[order[a]] > values[order[b]] })

	p.Components = mat.NewDense(cols, k, nil)
	p.Eigenvalues = make([]float64, k)
	axis := make([]float64, cols)
	for c := 0; c < k; c++ {
		idx := order[c]
		lambda := math.Max(values[idx], 0)
		p.Eigenvalues[c] = lambda

		if gram {
			if lambda < eigenFloor {
				clear(axis)
			} else {
				alpha := mat.Col(nil, idx, &vecs)
				var v mat.VecDense
				v.MulVec(xc.T(), mat.NewVecDense(rows, alpha))
				v.ScaleVec(1/math.Sqrt(lambda), &v)
				mat.Col(axis, 0, &v)
			}
		} else {
			mat.Col(axis, idx, &vecs)
		}
		flipSign(axis)
		p.Components.SetCol(c, axis)
	}
	return nil
}

// flipSign makes the largest-magnitude entry of v positive so results do
// not depend on the solver's arbitrary sign.
func flipSign(v []float64) {
	best := 0
	for i := range v {
		if math.Abs(v[i]) > math.Abs(v[best]) {
			best = i
		}
	}
	if len(v) > 0 && v[best] < 0 {
		for i := range v {
			v[i] = -v[i]
		}
	}
}

// Transform projects x onto the fitted components.
func (p *KernelPCA) Transform(x [][]float64) ([][]float64, error) {
	if p.Components == nil {
		return nil, ErrNotFitted
	}
	_, cols, err := shape(x)
	if err != nil {
		return nil, err
	}
	if cols != len(p.Means) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrFeatureMismatch, cols, len(p.Means))
	}

	var out mat.Dense
	out.Mul(centered(x, p.Means), p.Components)
	return rowsOf(&out), nil
}

// FitTransform fits on x and returns its projection.
func (p *KernelPCA) FitTransform(x [][]float64) ([][]float64, error) {
	if err := p.Fit(x); err != nil {
		return nil, err
	}
	return p.Transform(x)
}

// ExplainedVarianceRatio returns each kept component's share of the total
// variance captured by the kept components.
func (p *KernelPCA) ExplainedVarianceRatio() []float64 {
	total := 0.0
	for _, v := range p.Eigenvalues {
		total += v
	}
	out := make([]float64, len(p.Eigenvalues))
	if total == 0 {
		return out
	}
	for i, v := range p.Eigenvalues {
		out[i] = v / total
	}
	return out
}
