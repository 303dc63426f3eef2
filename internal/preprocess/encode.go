package preprocess

import (
	"fmt"
	"slices"
)

// LabelEncoder maps string categories to integer codes. Codes follow the
// sorted order of the classes seen during Fit.
type LabelEncoder struct {
	Classes []string
	index   map[string]int
}

// Fit learns the sorted set of distinct values.
func (e *LabelEncoder) Fit(values []string) {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		seen[v] = struct{}{}
	}
	e.Classes = make([]string, 0, len(seen))
	for v := range seen {
		e.Classes = append(e.Classes, v)
	}
	slices.Sort(e.Classes)

	e.index = make(map[string]int, len(e.Classes))
	for i, c := range e.Classes {
		e.index[c] = i
	}
}

// Transform encodes values. Unseen values are an error.
func (e *LabelEncoder) Transform(values []string) ([]float64, error) {
	if e.index == nil {
		return nil, ErrNotFitted
	}
	out := make([]float64, len(values))
	for i, v := range values {
		code, ok := e.index[v]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownClass, v)
		}
		out[i] = float64(code)
	}
	return out, nil
}

// FitTransform fits on values and encodes them.
func (e *LabelEncoder) FitTransform(values []string) []float64 {
	e.Fit(values)
	out, _ := e.Transform(values) // every value was just fitted
	return out
}

// Inverse maps a code back to its class.
func (e *LabelEncoder) Inverse(code int) (string, bool) {
	if code < 0 || code >= len(e.Classes) {
		return "", false
	}
	return e.Classes[code], true
}
