package preprocess

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/colearn-ml/colearn-examples/internal/parallel"
)

// MinMaxScaler maps each column to [0, 1] using the range seen during Fit.
// Constant columns map to 0.
type MinMaxScaler struct {
	Min      []float64
	Max      []float64
	Parallel parallel.Config
}

// NewMinMaxScaler creates an unfitted scaler.
func NewMinMaxScaler() *MinMaxScaler {
	return &MinMaxScaler{Parallel: parallel.DefaultConfig()}
}

// Fit records per-column minimum and maximum.
func (s *MinMaxScaler) Fit(x [][]float64) error {
	_, cols, err := shape(x)
	if err != nil {
		return err
	}
	s.Min = make([]float64, cols)
	s.Max = make([]float64, cols)
	parallel.For(cols, func(j int) {
		col := column(x, j)
		s.Min[j] = floats.Min(col)
		s.Max[j] = floats.Max(col)
	}, s.Parallel)
	return nil
}

// Transform scales x with the fitted range. Values outside the training range
// fall outside [0, 1].
func (s *MinMaxScaler) Transform(x [][]float64) ([][]float64, error) {
	if s.Min == nil {
		return nil, ErrNotFitted
	}
	rows, cols, err := shape(x)
	if err != nil {
		return nil, err
	}
	if cols != len(s.Min) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrFeatureMismatch, cols, len(s.Min))
	}

	out := alloc(rows, cols)
	parallel.For(rows, func(i int) {
		for j, v := range x[i] {
			span := s.Max[j] - s.Min[j]
			if span == 0 {
				out[i][j] = 0
				continue
			}
			out[i][j] = (v - s.Min[j]) / span
		}
	}, s.Parallel)
	return out, nil
}

// FitTransform fits on x and returns x scaled.
func (s *MinMaxScaler) FitTransform(x [][]float64) ([][]float64, error) {
	if err := s.Fit(x); err != nil {
		return nil, err
	}
	return s.Transform(x)
}

// StandardScaler shifts each column to zero mean and unit (population)
// variance. Columns with zero variance keep a scale of 1.
type StandardScaler struct {
	Mean     []float64
	Std      []float64
	Parallel parallel.Config
}

// NewStandardScaler creates an unfitted scaler.
func NewStandardScaler() *StandardScaler {
	return &StandardScaler{Parallel: parallel.DefaultConfig()}
}

// Fit records per-column mean and standard deviation.
func (s *StandardScaler) Fit(x [][]float64) error {
	_, cols, err := shape(x)
	if err != nil {
		return err
	}
	s.Mean = make([]float64, cols)
	s.Std = make([]float64, cols)
	parallel.For(cols, func(j int) {
		mean, variance := stat.PopMeanVariance(column(x, j), nil)
		std := math.Sqrt(variance)
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		s.Mean[j] = mean
		s.Std[j] = std
	}, s.Parallel)
	return nil
}

// Transform standardizes x with the fitted statistics.
func (s *StandardScaler) Transform(x [][]float64) ([][]float64, error) {
	if s.Mean == nil {
		return nil, ErrNotFitted
	}
	rows, cols, err := shape(x)
	if err != nil {
		return nil, err
	}
	if cols != len(s.Mean) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrFeatureMismatch, cols, len(s.Mean))
	}

	out := alloc(rows, cols)
	parallel.For(rows, func(i int) {
		for j, v := range x[i] {
			out[i][j] = (v - s.Mean[j]) / s.Std[j]
		}
	}, s.Parallel)
	return out, nil
}

// FitTransform fits on x and returns x standardized.
func (s *StandardScaler) FitTransform(x [][]float64) ([][]float64, error) {
	if err := s.Fit(x); err != nil {
		return nil, err
	}
	return s.Transform(x)
}
