package dataset

import "errors"

// Common errors.
var (
	ErrLengthMismatch  = errors.New("features and labels have different lengths")
	ErrNoChunks        = errors.New("at least one chunk fraction is required")
	ErrNegativeChunk   = errors.New("chunk fraction must be non-negative")
	ErrChunkSum        = errors.New("chunk fractions must sum to 1")
	ErrInvalidRatio    = errors.New("ratio must be in [0, 1)")
	ErrInvalidLearners = errors.New("number of learners must be positive")
	ErrNegativeSize    = errors.New("size must not be negative")
)
