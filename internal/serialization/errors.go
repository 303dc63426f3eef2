package serialization

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrChecksumMismatch = errors.New("checksum mismatch: file may be corrupted")
	ErrOffsetOverlap    = errors.New("tensor offsets overlap")
	ErrOutOfBounds      = errors.New("tensor extends beyond data section")
	ErrNegativeOffset   = errors.New("negative offset or size")
	ErrTooManyTensors   = errors.New("too many tensors in file")
	ErrInvalidTensor    = errors.New("invalid tensor name")
	ErrHeaderTooLarge   = errors.New("header exceeds maximum size")
	ErrMissingTensor    = errors.New("required tensor missing")
	ErrShapeMismatch    = errors.New("tensor shape does not match its data")
	ErrUnsupportedDType = errors.New("unsupported tensor dtype")
	ErrEmptyShard       = errors.New("shard has no samples")
	ErrOverlappingDirs  = errors.New("output directories overlap")
)

// ValidationError provides detailed information about validation failures.
type ValidationError struct {
	Type    string // Type of error (e.g., "offset_overlap", "out_of_bounds")
	Tensor  string // Primary tensor name involved
	Tensor2 string // Secondary tensor name (for overlap errors)
	Details string // Additional details
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Tensor2 != "" {
		return fmt.Sprintf("%s: tensors %q and %q: %s", e.Type, e.Tensor, e.Tensor2, e.Details)
	}
	if e.Tensor != "" {
		return fmt.Sprintf("%s: tensor %q: %s", e.Type, e.Tensor, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Details)
}

// Unwrap maps the error type to its sentinel so callers can use errors.Is.
func (e *ValidationError) Unwrap() error {
	switch e.Type {
	case "offset_overlap":
		return ErrOffsetOverlap
	case "out_of_bounds":
		return ErrOutOfBounds
	case "negative_offset":
		return ErrNegativeOffset
	case "too_many_tensors":
		return ErrTooManyTensors
	case "invalid_name", "name_too_long":
		return ErrInvalidTensor
	case "missing_tensor":
		return ErrMissingTensor
	case "shape_mismatch":
		return ErrShapeMismatch
	case "unsupported_dtype":
		return ErrUnsupportedDType
	default:
		return nil
	}
}
