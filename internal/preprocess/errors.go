package preprocess

import "errors"

// Common errors.
var (
	ErrEmptyInput       = errors.New("input data cannot be empty")
	ErrRaggedInput      = errors.New("rows have different widths")
	ErrNotFitted        = errors.New("transform used before fit")
	ErrFeatureMismatch  = errors.New("feature count mismatch between input and training data")
	ErrInvalidComponent = errors.New("number of components must be positive")
	ErrUnsupportedKern  = errors.New("unsupported kernel")
	ErrDecomposition    = errors.New("eigendecomposition failed")
	ErrUnknownClass     = errors.New("value not seen during fit")
)
