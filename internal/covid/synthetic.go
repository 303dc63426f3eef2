package covid

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/colearn-ml/colearn-examples/internal/dataset"
	"github.com/colearn-ml/colearn-examples/internal/matfile"
)

// WriteSynthetic writes covid.mat, normal.mat and pneumonia.mat into dir with
// rowsPerClass random rows of features columns plus a label column. Class k
// is centered at k so the classes are separable. Used by demos and tests
// when the real dataset is not available.
func WriteSynthetic(dir string, rowsPerClass, features int, seed int64) error {
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // G301: shared dataset directory.
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	rng := dataset.NewRand(seed)
	for k, name := range Classes {
		m := &matfile.Matrix{Name: name, Rows: rowsPerClass, Cols: features + 1}
		m.Data = make([]float64, m.Rows*m.Cols)
		for i := range m.Rows {
			for j := range features {
				m.Data[i*m.Cols+j] = float64(k) + rng.NormFloat64()*0.5
			}
			m.Data[i*m.Cols+features] = float64(k)
		}
		path := filepath.Join(dir, name+".mat")
		if err := matfile.WriteFile(path, []*matfile.Matrix{m}, matfile.WriteOptions{Compress: k%2 == 1}); err != nil {
			return err
		}
	}
	return nil
}
