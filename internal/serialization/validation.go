package serialization

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"
)

// Validation limits for resource protection.
const (
	MaxHeaderSize    = 100 * 1024 * 1024 // 100MB - maximum header size
	MaxTensorCount   = 1024              // Shards carry a handful of tensors
	MaxTensorNameLen = 256               // Maximum tensor name length
)

// ValidationLevel controls the strictness of validation.
type ValidationLevel int

const (
	// ValidationStrict checks names, dtypes, shapes, offsets and checksum.
	ValidationStrict ValidationLevel = iota
	// ValidationNormal skips the checksum.
	ValidationNormal
	// ValidationNone skips validation (use only with trusted input).
	ValidationNone
)

// ValidateTensorOffsets checks for negative, overlapping and out-of-bounds
// tensor regions.
func ValidateTensorOffsets(tensors []TensorMeta, dataSize int64) error {
	if len(tensors) > MaxTensorCount {
		return &ValidationError{
			Type:    "too_many_tensors",
			Details: fmt.Sprintf("got %d, max %d", len(tensors), MaxTensorCount),
		}
	}

	sorted := slices.Clone(tensors)
	slices.SortFunc(sorted, func(a, b TensorMeta) int {
		return cmp.Compare(a.Offset(), b.Offset())
	})

	for i, t := range sorted {
		if t.Offset() < 0 || t.Size() < 0 {
			return &ValidationError{
				Type:    "negative_offset",
				Tensor:  t.Name,
				Details: fmt.Sprintf("offsets=[%d, %d)", t.Offsets[0], t.Offsets[1]),
			}
		}

		if t.Offsets[1] > dataSize {
			return &ValidationError{
				Type:    "out_of_bounds",
				Tensor:  t.Name,
				Details: fmt.Sprintf("end %d > data_size %d", t.Offsets[1], dataSize),
			}
		}

		if i < len(sorted)-1 {
			next := sorted[i+1]
			if t.Offsets[1] > next.Offset() {
				return &ValidationError{
					Type:    "offset_overlap",
					Tensor:  t.Name,
					Tensor2: next.Name,
					Details: fmt.Sprintf("regions [%d-%d] and [%d-%d] overlap",
						t.Offsets[0], t.Offsets[1], next.Offsets[0], next.Offsets[1]),
				}
			}
		}
	}

	return nil
}

// ValidateTensorName rejects empty, oversized and path-like names.
func ValidateTensorName(name string) error {
	if name == "" {
		return &ValidationError{Type: "invalid_name", Details: "empty tensor name"}
	}
	if len(name) > MaxTensorNameLen {
		return &ValidationError{
			Type:    "name_too_long",
			Tensor:  name,
			Details: fmt.Sprintf("length %d > max %d", len(name), MaxTensorNameLen),
		}
	}
	if strings.ContainsAny(name, "/\\\x00") || strings.Contains(name, "..") {
		return &ValidationError{
			Type:    "invalid_name",
			Tensor:  name,
			Details: "contains path separator, '..' or null byte",
		}
	}
	return nil
}

// ValidateTensorShape checks that a tensor's dtype is known and its byte
// length matches its shape.
func ValidateTensorShape(t TensorMeta) error {
	size, ok := dtypeSize(t.DType)
	if !ok {
		return &ValidationError{Type: "unsupported_dtype", Tensor: t.Name, Details: t.DType}
	}
	want := size
	for _, d := range t.Shape {
		if d < 0 {
			return &ValidationError{
				Type:    "shape_mismatch",
				Tensor:  t.Name,
				Details: fmt.Sprintf("negative dimension in %v", t.Shape),
			}
		}
		if d != 0 && want > math.MaxInt64/d {
			return &ValidationError{
				Type:    "shape_mismatch",
				Tensor:  t.Name,
				Details: fmt.Sprintf("shape %v %s overflows int64 bytes", t.Shape, t.DType),
			}
		}
		want *= d
	}
	if want != t.Size() {
		return &ValidationError{
			Type:    "shape_mismatch",
			Tensor:  t.Name,
			Details: fmt.Sprintf("shape %v %s needs %d bytes, region has %d", t.Shape, t.DType, want, t.Size()),
		}
	}
	return nil
}

// ValidateHeader performs header validation at the given level.
func ValidateHeader(h *Header, dataSize int64, level ValidationLevel) error {
	if level == ValidationNone {
		return nil
	}

	if len(h.Tensors) > MaxTensorCount {
		return &ValidationError{
			Type:    "too_many_tensors",
			Details: fmt.Sprintf("got %d, max %d", len(h.Tensors), MaxTensorCount),
		}
	}

	for _, t := range h.Tensors {
		if err := ValidateTensorName(t.Name); err != nil {
			return err
		}
		if err := ValidateTensorShape(t); err != nil {
			return err
		}
	}

	return ValidateTensorOffsets(h.Tensors, dataSize)
}
